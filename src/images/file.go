package images

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"

	"github.com/elee1766/genstudio/src/apiclient"
)

// maxUploadSize caps files read for upload
const maxUploadSize = 32 << 20

// OpenFile reads path from fs into a FilePart, sniffing its MIME type.
// Content that is not an image is rejected.
func OpenFile(fs afero.Fs, path string) (apiclient.FilePart, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return apiclient.FilePart{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return apiclient.FilePart{}, apiclient.NewValidationError("file", fmt.Sprintf("%s is a directory", path))
	}
	if info.Size() > maxUploadSize {
		return apiclient.FilePart{}, apiclient.NewValidationError("file", fmt.Sprintf("%s is too large", path))
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return apiclient.FilePart{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewFilePart(filepath.Base(path), data)
}

// NewFilePart builds a FilePart from raw bytes, rejecting non-image content.
func NewFilePart(name string, data []byte) (apiclient.FilePart, error) {
	if len(data) == 0 {
		return apiclient.FilePart{}, apiclient.NewValidationError("file", "file is empty")
	}

	mime := mimetype.Detect(data)
	if !IsImageMIME(mime.String()) {
		return apiclient.FilePart{}, &apiclient.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("%s: %s (%s)", name, apiclient.ErrNotImage, mime.String()),
		}
	}

	return apiclient.FilePart{Name: name, MimeType: baseMIME(mime.String()), Data: data}, nil
}

// DetectMIME sniffs the MIME type of data without parameters.
func DetectMIME(data []byte) string {
	return baseMIME(mimetype.Detect(data).String())
}

// ExtensionFor returns the file extension (with dot) for an image MIME type.
func ExtensionFor(mimeType string) string {
	if mime := mimetype.Lookup(baseMIME(mimeType)); mime != nil && mime.Extension() != "" {
		return mime.Extension()
	}
	if sub, ok := strings.CutPrefix(baseMIME(mimeType), "image/"); ok && sub != "" {
		return "." + sub
	}
	return ".png"
}

// IsImageMIME reports whether mimeType is an image type.
func IsImageMIME(mimeType string) bool {
	return strings.HasPrefix(baseMIME(mimeType), "image/")
}

func baseMIME(mimeType string) string {
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	return strings.TrimSpace(mimeType)
}
