package main

import (
	"context"
	"strings"
)

// ResultsCmd shows the last batch of the workspace
type ResultsCmd struct {
	Out string `short:"o" type:"path" help:"Save the batch's images to this directory"`
}

func (c *ResultsCmd) Run(ctx context.Context, cli *CLI) error {
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

	var saved []string
	if c.Out != "" {
		if saved, err = saveSlotImages(ctx, s, state.Slots, c.Out); err != nil {
			return err
		}
	}

	return s.out.emit(batchResult{
		Workspace: state.Workspace,
		BatchID:   state.BatchID,
		Prompt:    state.Prompt,
		Slots:     state.Slots,
		Saved:     saved,
		Error:     state.Error,
	}, func() string {
		if len(state.Slots) == 0 {
			return "no generation yet\n"
		}
		var b strings.Builder
		b.WriteString(s.out.renderer.RenderSlots(state))
		b.WriteString(renderBatch(s.out.renderer, state, saved))
		return b.String()
	})
}

// StatusCmd shows the whole studio view of a workspace
type StatusCmd struct{}

func (c *StatusCmd) Run(ctx context.Context, cli *CLI) error {
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

	return s.out.emit(state, func() string {
		r := s.out.renderer
		var b strings.Builder
		b.WriteString(r.RenderBanner(state.Error))
		b.WriteString(r.RenderGallery(state))
		if state.Prompt != "" {
			b.WriteString("\nprompt: " + state.Prompt + "\n")
		}
		if len(state.Restored) > 0 {
			b.WriteString("\n" + r.RenderConversation(state.Restored))
		}
		if len(state.Slots) > 0 {
			b.WriteString("\n" + r.RenderSlots(state))
		}
		return b.String()
	})
}
