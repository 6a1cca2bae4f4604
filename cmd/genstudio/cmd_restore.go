package main

import (
	"context"
	"fmt"
	"strings"
)

// RestoreCmd loads a generated image's prompt, references and conversation
// back into the studio so the next generate continues from it
type RestoreCmd struct {
	Image string `arg:"" help:"Image path or name"`
}

func (c *RestoreCmd) Run(ctx context.Context, cli *CLI) error {
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

	result, err := st.Restore(img)
	s.save(ctx, st)
	if err != nil {
		return err
	}

	state := st.Snapshot()
	return s.out.emit(result, func() string {
		r := s.out.renderer
		var b strings.Builder
		fmt.Fprintf(&b, "prompt: %s\n", result.Prompt)
		fmt.Fprintf(&b, "selected %d reference images", len(result.Selected))
		if result.Missing > 0 {
			fmt.Fprintf(&b, " (%d no longer exist)", result.Missing)
		}
		b.WriteString("\n")
		b.WriteString(r.RenderConversation(state.Restored))
		return b.String()
	})
}
