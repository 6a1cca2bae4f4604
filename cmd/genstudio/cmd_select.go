package main

import (
	"context"
	"fmt"
	"strings"
)

// SelectCmd toggles images in the reference selection. The selection is sent
// as reference images with the next generate.
type SelectCmd struct {
	Images []string `arg:"" optional:"" help:"Image paths or names to toggle"`
	Clear  bool     `help:"Clear the selection first"`
}

func (c *SelectCmd) Run(ctx context.Context, cli *CLI) error {
	s, err := cli.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.studio(ctx, nil)
	if err != nil {
		return err
	}

	if c.Clear {
		st.ClearSelection()
	}
	for _, ref := range c.Images {
		img, err := findImage(st.Snapshot(), ref)
		if err != nil {
			return err
		}
		if _, err := st.Toggle(img.Path); err != nil {
			return err
		}
	}
	if c.Clear || len(c.Images) > 0 {
		s.save(ctx, st)
	}

	state := st.Snapshot()
	selection := state.Selection
	if selection == nil {
		selection = []string{}
	}
	return s.out.emit(selection, func() string {
		if len(state.Selection) == 0 {
			return "no images selected\n"
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%d selected\n", len(state.Selection))
		for i, path := range state.Selection {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, path)
		}
		return b.String()
	})
}
