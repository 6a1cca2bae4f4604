package studio

import (
	"time"

	"github.com/elee1766/genstudio/src/model"
)

// MaxCount is the largest number of images one submission may request
const MaxCount = 3

// SlotStatus is the lifecycle state of a generation slot
type SlotStatus string

const (
	StatusPending    SlotStatus = "pending"
	StatusGenerating SlotStatus = "generating"
	StatusSuccess    SlotStatus = "success"
	StatusError      SlotStatus = "error"
)

// Settled reports whether the slot reached a terminal state.
func (s SlotStatus) Settled() bool {
	return s == StatusSuccess || s == StatusError
}

// Slot tracks one requested image of a batch. ID is the slot's index at
// allocation and is kept when a delete drops sibling slots.
type Slot struct {
	ID      int                  `json:"id"`
	Status  SlotStatus           `json:"status"`
	Parts   []model.GeneratePart `json:"parts,omitempty"`
	Elapsed time.Duration        `json:"elapsed"`
	Error   string               `json:"error,omitempty"`
}

// ImageParts returns the image parts of the slot.
func (s Slot) ImageParts() []model.GeneratePart {
	var parts []model.GeneratePart
	for _, p := range s.Parts {
		if p.IsImage() {
			parts = append(parts, p)
		}
	}
	return parts
}

// State is the studio's view state for one workspace
type State struct {
	Workspace  string            `json:"workspace"`
	Images     []model.ImageInfo `json:"images,omitempty"`
	Selection  []string          `json:"selection,omitempty"` // image paths, in selection order
	Prompt     string            `json:"prompt,omitempty"`
	BatchID    string            `json:"batch_id,omitempty"`
	Slots      []Slot            `json:"slots,omitempty"`
	Elapsed    int               `json:"elapsed"` // whole seconds since the batch started
	Generating bool              `json:"generating"`
	Error      string            `json:"error,omitempty"`
	Restored   []model.Message   `json:"restored,omitempty"`
}

// IsSelected reports whether path is in the selection.
func (s State) IsSelected(path string) bool {
	for _, p := range s.Selection {
		if p == path {
			return true
		}
	}
	return false
}

// SelectedImages returns the selected images in selection order.
func (s State) SelectedImages() []model.ImageInfo {
	byPath := make(map[string]model.ImageInfo, len(s.Images))
	for _, img := range s.Images {
		byPath[img.Path] = img
	}
	out := make([]model.ImageInfo, 0, len(s.Selection))
	for _, p := range s.Selection {
		if img, ok := byPath[p]; ok {
			out = append(out, img)
		}
	}
	return out
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := s
	out.Images = cloneImages(s.Images)
	out.Selection = cloneStrings(s.Selection)
	out.Slots = cloneSlots(s.Slots)
	out.Restored = cloneMessages(s.Restored)
	return out
}

// SubmitRequest is one generation submission
type SubmitRequest struct {
	Prompt          string `validate:"required"`
	Count           int    `validate:"min=1,max=3"`
	EnableWebSearch bool
}

// RestoreResult reports what a restore applied
type RestoreResult struct {
	Prompt   string
	Selected []string
	Missing  int
	Messages []model.Message
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneMessages(in []model.Message) []model.Message {
	if in == nil {
		return nil
	}
	return append([]model.Message(nil), in...)
}

func cloneImages(in []model.ImageInfo) []model.ImageInfo {
	if in == nil {
		return nil
	}
	out := make([]model.ImageInfo, len(in))
	for i, img := range in {
		img.RefImages = cloneStrings(img.RefImages)
		img.MessageList = cloneMessages(img.MessageList)
		out[i] = img
	}
	return out
}

func cloneParts(in []model.GeneratePart) []model.GeneratePart {
	if in == nil {
		return nil
	}
	out := make([]model.GeneratePart, len(in))
	for i, p := range in {
		if p.Image != nil {
			img := *p.Image
			p.Image = &img
		}
		out[i] = p
	}
	return out
}

func cloneSlots(in []Slot) []Slot {
	if in == nil {
		return nil
	}
	out := make([]Slot, len(in))
	for i, slot := range in {
		slot.Parts = cloneParts(slot.Parts)
		out[i] = slot
	}
	return out
}
