package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/elee1766/genstudio/src/config"
	"github.com/elee1766/genstudio/src/view"
)

// output writes command results as styled text or JSON
type output struct {
	w        io.Writer
	json     bool
	color    bool
	tty      bool
	renderer *view.Renderer
}

func newOutput(w io.Writer, cfg config.OutputConfig, tty bool) *output {
	color := tty
	switch cfg.Color {
	case "always":
		color = true
	case "never":
		color = false
	}
	if color {
		lipgloss.SetColorProfile(termenv.ANSI256)
	} else {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	return &output{
		w:        w,
		json:     cfg.Format == "json",
		color:    color,
		tty:      tty,
		renderer: view.NewRenderer(),
	}
}

// emit prints v as JSON in JSON mode, otherwise the text from render.
func (o *output) emit(v any, render func() string) error {
	if o.json {
		return o.printJSON(v)
	}
	_, err := io.WriteString(o.w, render())
	return err
}

func (o *output) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	data = append(data, '\n')

	if !o.color {
		_, err = o.w.Write(data)
		return err
	}

	var buf bytes.Buffer
	if err := quick.Highlight(&buf, string(data), "json", "terminal256", "monokai"); err != nil {
		_, err = o.w.Write(data)
		return err
	}
	_, err = buf.WriteTo(o.w)
	return err
}

func (o *output) printf(format string, args ...any) {
	fmt.Fprintf(o.w, format, args...)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
