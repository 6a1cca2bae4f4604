// Package view renders studio state and service results for the terminal.
package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/elee1766/genstudio/src/model"
	"github.com/elee1766/genstudio/src/studio"
	"github.com/elee1766/genstudio/src/theme"
)

// DefaultNameWidth is the gallery name column width
const DefaultNameWidth = 32

// Renderer renders with a fixed set of styles
type Renderer struct {
	styles    theme.Styles
	nameWidth int
	now       func() time.Time
}

// NewRenderer creates a new renderer using the current theme.
func NewRenderer() *Renderer {
	return &Renderer{
		styles:    theme.NewStyles(),
		nameWidth: DefaultNameWidth,
		now:       time.Now,
	}
}

// WithNameWidth sets the gallery name column width.
func (r *Renderer) WithNameWidth(width int) *Renderer {
	if width > 0 {
		r.nameWidth = width
	}
	return r
}

// RenderBanner renders a banner error, or nothing.
func (r *Renderer) RenderBanner(message string) string {
	if message == "" {
		return ""
	}
	return r.styles.Banner.Render(message) + "\n"
}

// RenderWorkspaces renders the workspace switcher.
func (r *Renderer) RenderWorkspaces(workspaces []model.Workspace) string {
	if len(workspaces) == 0 {
		return r.styles.Muted.Render("no workspaces") + "\n"
	}

	var b strings.Builder
	for _, ws := range workspaces {
		marker := "  "
		name := ws.Name
		if ws.IsCurrent {
			marker = "* "
			name = r.styles.Selected.Render(name)
		}
		b.WriteString(marker + name)
		if ws.CreatedAt != "" {
			if t, err := time.Parse(time.RFC3339, ws.CreatedAt); err == nil {
				b.WriteString(r.styles.Muted.Render("  created " + r.relTime(t)))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderGallery renders the image list with selection markers.
func (r *Renderer) RenderGallery(state studio.State) string {
	var b strings.Builder
	b.WriteString(r.styles.Title.Render(fmt.Sprintf("%s (%d images, %d selected)", state.Workspace, len(state.Images), len(state.Selection))))
	b.WriteString("\n")

	if len(state.Images) == 0 {
		b.WriteString(r.styles.Muted.Render("  no images yet") + "\n")
		return b.String()
	}

	for _, img := range state.Images {
		marker := "[ ]"
		if state.IsSelected(img.Path) {
			marker = r.styles.Selected.Render("[x]")
		}

		name := ansi.Truncate(img.Name, r.nameWidth, "…")
		name = name + strings.Repeat(" ", max(0, r.nameWidth-ansi.StringWidth(name)))

		source := img.SourceType
		if img.IsGenerated() {
			source = r.styles.Success.Render(source)
		}

		updated := ""
		if t := img.UpdatedAt(); !t.IsZero() {
			updated = r.relTime(t)
		}

		fmt.Fprintf(&b, "%s %s %9s  %-14s %s\n",
			marker, name, humanize.Bytes(uint64(max(img.Size, 0))), updated, source)
		b.WriteString(r.styles.Muted.Render("    "+img.Path) + "\n")
	}
	return b.String()
}

// RenderImage renders one image with its generation provenance.
func (r *Renderer) RenderImage(img model.ImageInfo) string {
	var b strings.Builder
	b.WriteString(r.styles.Title.Render(img.Name) + "\n")
	rows := [][2]string{
		{"path", img.Path},
		{"url", img.URL},
		{"size", humanize.Bytes(uint64(max(img.Size, 0)))},
		{"source", img.SourceType},
	}
	if t := img.UpdatedAt(); !t.IsZero() {
		rows = append(rows, [2]string{"updated", t.Local().Format("2006-01-02 15:04:05")})
	}
	if img.Prompt != "" {
		rows = append(rows, [2]string{"prompt", img.Prompt})
	}
	if len(img.RefImages) > 0 {
		rows = append(rows, [2]string{"references", strings.Join(img.RefImages, ", ")})
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "%s %s\n", r.styles.Muted.Render(fmt.Sprintf("%-10s", row[0])), row[1])
	}
	if len(img.MessageList) > 0 {
		b.WriteString("\n")
		b.WriteString(r.RenderConversation(img.MessageList))
	}
	return b.String()
}

// RenderSlots renders per-slot progress of the current batch.
func (r *Renderer) RenderSlots(state studio.State) string {
	if len(state.Slots) == 0 {
		return ""
	}

	var b strings.Builder
	header := fmt.Sprintf("batch %s", shortID(state.BatchID))
	if state.Generating {
		header += fmt.Sprintf("  generating… %ds", state.Elapsed)
	}
	b.WriteString(r.styles.Title.Render(header) + "\n")
	for _, slot := range state.Slots {
		b.WriteString(r.renderSlot(slot, ""))
	}
	return b.String()
}

func (r *Renderer) renderSlot(slot studio.Slot, spinner string) string {
	label := fmt.Sprintf("#%d", slot.ID+1)
	switch slot.Status {
	case studio.StatusSuccess:
		images := len(slot.ImageParts())
		texts := len(slot.Parts) - images
		return fmt.Sprintf("  %s %s done in %s (%s, %s)\n",
			r.styles.Success.Render("⏺"), label, seconds(slot.Elapsed),
			plural(images, "image"), plural(texts, "text part"))
	case studio.StatusError:
		return fmt.Sprintf("  %s %s failed after %s: %s\n",
			r.styles.Error.Render("⏺"), label, seconds(slot.Elapsed), slot.Error)
	case studio.StatusGenerating:
		if spinner == "" {
			spinner = r.styles.Warning.Render("⏺")
		}
		return fmt.Sprintf("  %s %s generating\n", spinner, label)
	default:
		return fmt.Sprintf("  %s %s pending\n", r.styles.Muted.Render("○"), label)
	}
}

// RenderResults renders the parts of every successful slot, text parts as
// prose and image parts as references.
func (r *Renderer) RenderResults(slots []studio.Slot) string {
	var b strings.Builder
	for _, slot := range slots {
		if slot.Status != studio.StatusSuccess {
			continue
		}
		b.WriteString(r.styles.Title.Render(fmt.Sprintf("result #%d", slot.ID+1)) + "\n")
		for _, part := range slot.Parts {
			switch {
			case part.IsImage():
				ref := part.Image.Path
				if ref == "" {
					ref = "(inline)"
				}
				fmt.Fprintf(&b, "  %s %s %s\n", r.styles.Success.Render("[image]"), ref, r.styles.Muted.Render(part.Image.MimeType))
				if part.Image.URL != "" {
					b.WriteString(r.styles.Muted.Render("          "+part.Image.URL) + "\n")
				}
			case part.Type == model.PartText:
				for _, line := range strings.Split(strings.TrimSpace(part.Text), "\n") {
					b.WriteString("  " + line + "\n")
				}
			}
		}
	}
	return b.String()
}

// RenderConversation renders a restored conversation, oldest turn first.
func (r *Renderer) RenderConversation(messages []model.Message) string {
	if len(messages) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(r.styles.Title.Render("conversation") + "\n")
	for _, msg := range messages {
		role := r.styles.Bot.Render(msg.Role)
		if msg.Role == model.RoleUser {
			role = r.styles.User.Render(msg.Role)
		}
		content := msg.Content
		if msg.Type == model.MessageImage {
			content = "[image] " + msg.URL
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, "  "+role+": ", content) + "\n")
	}
	return b.String()
}

// relTime follows the web front-end: "just now" under a minute, relative for
// a week, then the date.
func (r *Renderer) relTime(t time.Time) string {
	now := r.now()
	diff := now.Sub(t)
	switch {
	case diff < time.Minute && diff > -time.Minute:
		return "just now"
	case diff < 7*24*time.Hour:
		return humanize.RelTime(t, now, "ago", "from now")
	default:
		return t.Local().Format("2006-01-02")
	}
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%ds", int(d.Round(time.Second)/time.Second))
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
