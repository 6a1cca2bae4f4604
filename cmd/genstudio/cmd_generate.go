package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/elee1766/genstudio/src/apiclient"
	"github.com/elee1766/genstudio/src/studio"
	"github.com/elee1766/genstudio/src/view"
)

// GenerateCmd runs one generation batch
type GenerateCmd struct {
	Prompt    []string `arg:"" optional:"" help:"Prompt; defaults to the saved or restored prompt"`
	Count     int      `short:"n" help:"Number of images to generate (1-3); defaults to the configured count"`
	WebSearch bool     `help:"Let the model use web search"`
	Out       string   `short:"o" type:"path" help:"Save generated images to this directory"`
}

// batchResult is the JSON form of a finished batch
type batchResult struct {
	Workspace string        `json:"workspace"`
	BatchID   string        `json:"batch_id"`
	Prompt    string        `json:"prompt"`
	Slots     []studio.Slot `json:"slots"`
	Saved     []string      `json:"saved,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func (c *GenerateCmd) Run(ctx context.Context, cli *CLI) error {
	s, err := cli.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	e := cli.environment()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	live := !s.out.json && e.isTTY(e.stdout)
	var program *tea.Program
	var processors []studio.EventProcessor
	switch {
	case live:
		processors = append(processors, studio.ProcessorFunc(func(event studio.Event) error {
			return view.ProgramProcessor(program).Process(event)
		}))
	case !s.out.json:
		processors = append(processors, view.LineProcessor(e.stderr, s.out.renderer))
	}
	sink := studio.NewChannelEventSink(64, s.Logger, processors...)
	defer sink.Close()

	st, err := s.studio(ctx, sink)
	if err != nil {
		return err
	}

	req := c.request(s, st.Snapshot().Prompt)

	var submitErr error
	if live {
		program = tea.NewProgram(view.NewBatchModel(s.out.renderer, req.Prompt), tea.WithOutput(e.stdout))
		done := make(chan error, 1)
		go func() {
			err := st.Submit(ctx, req)
			sink.Close()
			program.Send(view.DoneMsg{Err: err})
			done <- err
		}()
		final, runErr := program.Run()
		if runErr != nil {
			s.Logger.Warn("progress display failed", "error", runErr)
		}
		if m, ok := final.(view.BatchModel); ok && m.Quitting() {
			cancel()
		}
		submitErr = <-done
	} else {
		submitErr = st.Submit(ctx, req)
		sink.Close()
	}

	s.save(ctx, st)
	if apiclient.IsValidationError(submitErr) {
		return submitErr
	}
	state := st.Snapshot()

	var saved []string
	if dir := c.outputDir(s); dir != "" {
		saved, err = saveSlotImages(ctx, s, state.Slots, dir)
		if err != nil {
			return err
		}
	}

	result := batchResult{
		Workspace: state.Workspace,
		BatchID:   state.BatchID,
		Prompt:    state.Prompt,
		Slots:     state.Slots,
		Saved:     saved,
		Error:     state.Error,
	}
	if err := s.out.emit(result, func() string {
		return renderBatch(s.out.renderer, state, saved)
	}); err != nil {
		return err
	}
	return submitErr
}

func (c *GenerateCmd) request(s *session, savedPrompt string) studio.SubmitRequest {
	prompt := strings.Join(c.Prompt, " ")
	if strings.TrimSpace(prompt) == "" {
		prompt = savedPrompt
	}
	count := c.Count
	if count == 0 {
		count = s.Config.Generation.DefaultCount
	}
	return studio.SubmitRequest{
		Prompt:          prompt,
		Count:           count,
		EnableWebSearch: c.WebSearch || s.Config.Generation.EnableWebSearch,
	}
}

func (c *GenerateCmd) outputDir(s *session) string {
	if c.Out != "" {
		return c.Out
	}
	return s.Config.Generation.OutputDir
}

func renderBatch(r *view.Renderer, state studio.State, saved []string) string {
	var b strings.Builder
	b.WriteString(r.RenderBanner(state.Error))
	b.WriteString(r.RenderResults(state.Slots))
	for _, path := range saved {
		fmt.Fprintf(&b, "saved %s\n", path)
	}
	return b.String()
}

// saveSlotImages writes every image of every successful slot to dir.
func saveSlotImages(ctx context.Context, s *session, slots []studio.Slot, dir string) ([]string, error) {
	now := s.cli.environment().now()
	var saved []string
	for _, slot := range slots {
		if slot.Status != studio.StatusSuccess {
			continue
		}
		for i, part := range slot.ImageParts() {
			data, err := s.Images.Download(ctx, *part.Image)
			if err != nil {
				return saved, err
			}
			target := filepath.Join(dir, view.DownloadName(now, slot.ID, i, part.Image.MimeType))
			if err := writeFile(s.Fs, target, data); err != nil {
				return saved, err
			}
			saved = append(saved, target)
		}
	}
	return saved, nil
}
