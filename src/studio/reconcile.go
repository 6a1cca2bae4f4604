package studio

import "github.com/elee1766/genstudio/src/model"

// The functions below never modify their inputs; each returns new slices so a
// previously taken snapshot stays consistent.

// renameImage replaces the entry at oldPath with updated.
func renameImage(images []model.ImageInfo, oldPath string, updated model.ImageInfo) []model.ImageInfo {
	out := make([]model.ImageInfo, len(images))
	for i, img := range images {
		if img.Path == oldPath {
			out[i] = updated
		} else {
			out[i] = img
		}
	}
	return out
}

// renamePaths maps oldPath to newPath, dropping duplicates the rename would create.
func renamePaths(paths []string, oldPath, newPath string) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p == oldPath {
			p = newPath
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// renameSlots rewrites the path and url of every image part that references
// oldPath. Sibling parts and other slots are carried over unchanged.
func renameSlots(slots []Slot, oldPath string, updated model.ImageInfo) []Slot {
	out := make([]Slot, len(slots))
	for i, slot := range slots {
		if !slotReferences(slot, oldPath) {
			out[i] = slot
			continue
		}
		parts := make([]model.GeneratePart, len(slot.Parts))
		for j, part := range slot.Parts {
			if part.IsImage() && part.Image.Path == oldPath {
				img := *part.Image
				img.Path = updated.Path
				img.URL = updated.URL
				part.Image = &img
			}
			parts[j] = part
		}
		slot.Parts = parts
		out[i] = slot
	}
	return out
}

// removeImage filters path out of images.
func removeImage(images []model.ImageInfo, path string) []model.ImageInfo {
	out := make([]model.ImageInfo, 0, len(images))
	for _, img := range images {
		if img.Path != path {
			out = append(out, img)
		}
	}
	return out
}

// removePath filters path out of paths.
func removePath(paths []string, path string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != path {
			out = append(out, p)
		}
	}
	return out
}

// removeFromSlots drops the image parts referencing path. A slot that held such
// a part is dropped once it has no image part left; slots that never
// referenced path are untouched.
func removeFromSlots(slots []Slot, path string) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		if !slotReferences(slot, path) {
			out = append(out, slot)
			continue
		}
		parts := make([]model.GeneratePart, 0, len(slot.Parts))
		hasImage := false
		for _, part := range slot.Parts {
			if part.IsImage() && part.Image.Path == path {
				continue
			}
			if part.IsImage() {
				hasImage = true
			}
			parts = append(parts, part)
		}
		if !hasImage {
			continue
		}
		slot.Parts = parts
		out = append(out, slot)
	}
	return out
}

// pruneSelection keeps only selected paths that still exist in images.
func pruneSelection(selection []string, images []model.ImageInfo) []string {
	if len(selection) == 0 {
		return selection
	}
	exists := make(map[string]bool, len(images))
	for _, img := range images {
		exists[img.Path] = true
	}
	out := make([]string, 0, len(selection))
	for _, p := range selection {
		if exists[p] {
			out = append(out, p)
		}
	}
	return out
}

func slotReferences(slot Slot, path string) bool {
	for _, part := range slot.Parts {
		if part.IsImage() && part.Image.Path == path {
			return true
		}
	}
	return false
}
