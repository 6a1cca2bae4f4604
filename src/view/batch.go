package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/elee1766/genstudio/src/studio"
)

// EventMsg carries a studio event into the bubbletea program
type EventMsg struct {
	Event studio.Event
}

// DoneMsg is sent when Submit returns
type DoneMsg struct {
	Err error
}

// BatchModel renders a running batch: a spinner per generating slot and the
// elapsed seconds.
type BatchModel struct {
	spinner  spinner.Model
	renderer *Renderer
	prompt   string
	slots    []studio.Slot
	elapsed  int
	done     bool
	quitting bool
	err      error
}

// NewBatchModel creates a model for a batch about to start.
func NewBatchModel(renderer *Renderer, prompt string) BatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	return BatchModel{
		spinner:  s,
		renderer: renderer,
		prompt:   prompt,
	}
}

func (m BatchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m BatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case EventMsg:
		m.apply(msg.Event)
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m *BatchModel) apply(event studio.Event) {
	switch e := event.(type) {
	case *studio.BatchStartedEvent:
		m.slots = make([]studio.Slot, e.Total)
		for i := range m.slots {
			m.slots[i] = studio.Slot{ID: i, Status: studio.StatusPending}
		}
		m.elapsed = 0
	case *studio.SlotEvent:
		for i := range m.slots {
			if m.slots[i].ID == e.Slot.ID {
				m.slots[i] = e.Slot
				return
			}
		}
		m.slots = append(m.slots, e.Slot)
	case *studio.TickEvent:
		m.elapsed = e.Elapsed
	}
}

// Slots returns the slots as last reported.
func (m BatchModel) Slots() []studio.Slot {
	return m.slots
}

// Quitting reports whether the user interrupted the batch.
func (m BatchModel) Quitting() bool {
	return m.quitting
}

func (m BatchModel) View() string {
	var b strings.Builder
	b.WriteString(m.renderer.styles.Title.Render(fmt.Sprintf("generating %s", plural(len(m.slots), "image"))))
	if !m.done {
		b.WriteString(m.renderer.styles.Muted.Render(fmt.Sprintf("  %ds", m.elapsed)))
	}
	b.WriteString("\n")
	b.WriteString(m.renderer.styles.Muted.Render("  "+truncatePrompt(m.prompt)) + "\n")

	for _, slot := range m.slots {
		b.WriteString(m.renderer.renderSlot(slot, m.spinner.View()))
	}

	if m.quitting && !m.done {
		b.WriteString(m.renderer.styles.Warning.Render("interrupted") + "\n")
	}
	return b.String()
}

// ProgramProcessor forwards studio events to a running bubbletea program.
func ProgramProcessor(p *tea.Program) studio.EventProcessor {
	return studio.ProcessorFunc(func(event studio.Event) error {
		p.Send(EventMsg{Event: event})
		return nil
	})
}

// LineProcessor prints one line per settled slot, for output that is not a terminal.
func LineProcessor(w io.Writer, renderer *Renderer) studio.EventProcessor {
	return studio.ProcessorFunc(func(event studio.Event) error {
		switch e := event.(type) {
		case *studio.BatchStartedEvent:
			_, err := fmt.Fprintf(w, "generating %s\n", plural(e.Total, "image"))
			return err
		case *studio.SlotEvent:
			if !e.Slot.Status.Settled() {
				return nil
			}
			_, err := io.WriteString(w, renderer.renderSlot(e.Slot, ""))
			return err
		case *studio.BatchEvent:
			_, err := fmt.Fprintf(w, "%d succeeded, %d failed\n", e.Succeeded, e.Failed)
			return err
		}
		return nil
	})
}

func truncatePrompt(prompt string) string {
	return ansi.Truncate(strings.Join(strings.Fields(prompt), " "), 72, "…")
}
