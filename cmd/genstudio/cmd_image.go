package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/elee1766/genstudio/src/apiclient"
	"github.com/elee1766/genstudio/src/images"
	"github.com/elee1766/genstudio/src/model"
	"github.com/elee1766/genstudio/src/studio"
	"github.com/elee1766/genstudio/src/view"
)

// ImageCmd manages images
type ImageCmd struct {
	List     ImageListCmd     `cmd:"" default:"1" aliases:"ls" help:"List images in the workspace"`
	Show     ImageShowCmd     `cmd:"" help:"Show an image and how it was generated"`
	Upload   ImageUploadCmd   `cmd:"" help:"Upload image files, or - for stdin"`
	Rename   ImageRenameCmd   `cmd:"" aliases:"mv" help:"Rename an image, keeping its extension"`
	Delete   ImageDeleteCmd   `cmd:"" aliases:"rm" help:"Delete images"`
	Download ImageDownloadCmd `cmd:"" help:"Save an image to a local directory"`
}

// ImageListCmd lists images
type ImageListCmd struct {
	Width int `help:"Name column width" default:"32"`
}

func (c *ImageListCmd) Run(ctx context.Context, cli *CLI) error {
	s, err := cli.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.inspect(ctx)
	if err != nil {
		return err
	}
	state := st.Snapshot()
	if s.out.json {
		return s.out.printJSON(state.Images)
	}
	s.out.printf("%s", s.out.renderer.RenderBanner(state.Error))
	s.out.printf("%s", s.out.renderer.WithNameWidth(c.Width).RenderGallery(state))
	return nil
}

// ImageShowCmd shows one image
type ImageShowCmd struct {
	Image string `arg:"" help:"Image path or name"`
}

func (c *ImageShowCmd) Run(ctx context.Context, cli *CLI) error {
	s, err := cli.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.inspect(ctx)
	if err != nil {
		return err
	}
	img, err := findImage(st.Snapshot(), c.Image)
	if err != nil {
		return err
	}
	return s.out.emit(img, func() string {
		return s.out.renderer.RenderImage(img)
	})
}

// ImageUploadCmd uploads files
type ImageUploadCmd struct {
	Files  []string `arg:"" help:"Files to upload; - reads one image from stdin"`
	Select bool     `help:"Add the uploaded images to the selection"`
}

func (c *ImageUploadCmd) Run(ctx context.Context, cli *CLI) error {
	s, err := cli.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.studio(ctx, nil)
	if err != nil {
		return err
	}
	state := st.Snapshot()

	names := make([]string, 0, len(state.Images))
	for _, img := range state.Images {
		names = append(names, img.Name)
	}

	var results []model.UploadResult
	for _, file := range c.Files {
		part, err := c.read(cli, file, names)
		if err != nil {
			return err
		}
		result, err := s.Images.Upload(ctx, part, state.Workspace)
		if err != nil {
			return err
		}
		names = append(names, part.Name)
		results = append(results, result)
	}

	if err := st.Reload(ctx); err != nil {
		s.Logger.Warn("failed to reload images after upload", "error", err)
	}
	if c.Select {
		for _, result := range results {
			if _, err := st.Toggle(result.Path); err != nil {
				s.Logger.Warn("uploaded image not selectable", "path", result.Path, "error", err)
			}
		}
	}
	s.save(ctx, st)

	return s.out.emit(results, func() string {
		var b strings.Builder
		for _, result := range results {
			fmt.Fprintf(&b, "uploaded %s\n", result.Path)
		}
		return b.String()
	})
}

// read loads one upload. Stdin has no file name, so one is made up from the
// time and sniffed type.
func (c *ImageUploadCmd) read(cli *CLI, file string, existing []string) (apiclient.FilePart, error) {
	e := cli.environment()
	if file != "-" {
		return images.OpenFile(e.fs, file)
	}

	data, err := io.ReadAll(io.LimitReader(e.stdin, 32<<20+1))
	if err != nil {
		return apiclient.FilePart{}, fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(data) > 32<<20 {
		return apiclient.FilePart{}, apiclient.NewValidationError("file", "stdin is too large")
	}
	name := view.PasteName(images.DetectMIME(data), existing, e.now())
	return images.NewFilePart(name, data)
}

// ImageRenameCmd renames an image
type ImageRenameCmd struct {
	Image   string `arg:"" help:"Image path or name"`
	NewName string `arg:"" help:"New name; the current extension is kept"`
}

func (c *ImageRenameCmd) Run(ctx context.Context, cli *CLI) error {
	s, err := cli.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.studio(ctx, nil)
	if err != nil {
		return err
	}
	img, err := findImage(st.Snapshot(), c.Image)
	if err != nil {
		return err
	}

	newName, err := view.ComposeRename(img.Name, c.NewName)
	if err != nil {
		return err
	}
	updated, err := st.Rename(ctx, img.Path, newName)
	s.save(ctx, st)
	if err != nil {
		return err
	}
	return s.out.emit(updated, func() string {
		return fmt.Sprintf("renamed %s to %s\n", img.Path, updated.Path)
	})
}

// ImageDeleteCmd deletes images
type ImageDeleteCmd struct {
	Images []string `arg:"" help:"Image paths or names"`
}

func (c *ImageDeleteCmd) Run(ctx context.Context, cli *CLI) error {
	s, err := cli.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.studio(ctx, nil)
	if err != nil {
		return err
	}
	defer s.save(ctx, st)

	var deleted []string
	for _, ref := range c.Images {
		img, err := findImage(st.Snapshot(), ref)
		if err != nil {
			return err
		}
		if err := st.Delete(ctx, img.Path); err != nil {
			return err
		}
		deleted = append(deleted, img.Path)
	}

	return s.out.emit(map[string][]string{"deleted": deleted}, func() string {
		var b strings.Builder
		for _, path := range deleted {
			fmt.Fprintf(&b, "deleted %s\n", path)
		}
		return b.String()
	})
}

// ImageDownloadCmd saves an image locally
type ImageDownloadCmd struct {
	Image string `arg:"" help:"Image path or name"`
	Out   string `short:"o" help:"Output directory" default:"."`
}

func (c *ImageDownloadCmd) Run(ctx context.Context, cli *CLI) error {
	s, err := cli.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.inspect(ctx)
	if err != nil {
		return err
	}
	img, err := findImage(st.Snapshot(), c.Image)
	if err != nil {
		return err
	}

	name, err := localName(img.Name)
	if err != nil {
		return err
	}
	data, err := s.Images.Download(ctx, model.GeneratedImage{URL: img.URL})
	if err != nil {
		return err
	}
	target := filepath.Join(c.Out, name)
	if err := writeFile(s.Fs, target, data); err != nil {
		return err
	}
	return s.out.emit(map[string]string{"saved": target}, func() string {
		return fmt.Sprintf("saved %s\n", target)
	})
}

// findImage matches ref against image paths first, then names.
func findImage(state studio.State, ref string) (model.ImageInfo, error) {
	for _, img := range state.Images {
		if img.Path == ref {
			return img, nil
		}
	}
	var match []model.ImageInfo
	for _, img := range state.Images {
		if img.Name == ref {
			match = append(match, img)
		}
	}
	switch len(match) {
	case 1:
		return match[0], nil
	case 0:
		return model.ImageInfo{}, apiclient.NewValidationError("image", fmt.Sprintf("no image %q in %s", ref, state.Workspace))
	default:
		return model.ImageInfo{}, apiclient.NewValidationError("image", fmt.Sprintf("%q is ambiguous; use the full path", ref))
	}
}

// localName reduces a server-supplied image name to a plain file name so a
// download always lands inside the output directory.
func localName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	switch base {
	case ".", "..", "/":
		return "", apiclient.NewValidationError("name", fmt.Sprintf("image name %q is not a usable file name", name))
	}
	return base, nil
}

func writeFile(fs afero.Fs, path string, data []byte) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
