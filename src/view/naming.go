package view

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/elee1766/genstudio/src/apiclient"
	"github.com/elee1766/genstudio/src/images"
)

// PasteName names an image that arrived without a file name (clipboard or
// stdin): pasted-YYYYMMDD-HHMMSS.<ext>. A numeric suffix is appended when the
// name is already taken.
func PasteName(mimeType string, existing []string, now time.Time) string {
	ext := images.ExtensionFor(mimeType)
	base := "pasted-" + now.Format("20060102-150405")

	taken := make(map[string]bool, len(existing))
	for _, name := range existing {
		taken[strings.ToLower(name)] = true
	}

	name := base + ext
	for i := 1; taken[strings.ToLower(name)]; i++ {
		name = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
	return name
}

// SplitName splits a file name into its base and extension (with dot).
// Dotfiles such as ".env" have no extension.
func SplitName(name string) (base, ext string) {
	ext = path.Ext(name)
	if ext == name {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

// ComposeRename re-attaches the extension of oldName to the edited base name.
// If the user typed the same extension it is not doubled. A base that is empty
// once that extension is dropped is rejected.
func ComposeRename(oldName, editedBase string) (string, error) {
	editedBase = strings.TrimSpace(editedBase)
	_, ext := SplitName(oldName)
	if ext != "" && strings.HasSuffix(strings.ToLower(editedBase), strings.ToLower(ext)) {
		editedBase = strings.TrimSpace(editedBase[:len(editedBase)-len(ext)])
	}
	if editedBase == "" {
		return "", apiclient.NewValidationError("name", "please enter a name")
	}
	return editedBase + ext, nil
}

// DownloadName names a generated image saved to disk.
func DownloadName(now time.Time, slot, part int, mimeType string) string {
	return fmt.Sprintf("generated-%d-%d-%d%s", now.UnixMilli(), slot, part, images.ExtensionFor(mimeType))
}
