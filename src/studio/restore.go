package studio

import (
	"strings"

	"github.com/elee1766/genstudio/src/apiclient"
	"github.com/elee1766/genstudio/src/model"
)

// Restore loads the provenance of a generated image back into the studio: its
// prompt becomes the draft, its reference images found in the current list
// become the selection, and its conversation becomes the restored view.
// References no longer present are counted in Missing.
func (s *Studio) Restore(info model.ImageInfo) (RestoreResult, error) {
	prompt := strings.TrimSpace(info.Prompt)
	if prompt == "" {
		err := apiclient.NewValidationError("prompt", "image has no prompt to restore")
		s.setError(err)
		return RestoreResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exists := make(map[string]bool, len(s.state.Images))
	for _, img := range s.state.Images {
		exists[img.Path] = true
	}

	result := RestoreResult{Prompt: info.Prompt, Selected: []string{}}
	seen := make(map[string]bool, len(info.RefImages))
	for _, ref := range info.RefImages {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		if exists[ref] {
			result.Selected = append(result.Selected, ref)
		} else {
			result.Missing++
		}
	}
	result.Messages = cloneMessages(info.MessageList)

	s.state.Prompt = info.Prompt
	s.state.Selection = cloneStrings(result.Selected)
	s.state.Restored = cloneMessages(info.MessageList)
	s.state.Error = ""

	s.logger.Info("restored context", "path", info.Path, "selected", len(result.Selected), "missing", result.Missing)
	return result, nil
}
