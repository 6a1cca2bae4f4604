package view

import (
	"bytes"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elee1766/genstudio/src/apiclient"
	"github.com/elee1766/genstudio/src/model"
	"github.com/elee1766/genstudio/src/studio"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestRenderer() *Renderer {
	r := NewRenderer()
	r.now = func() time.Time { return fixedNow }
	return r
}

func TestPasteName(t *testing.T) {
	tests := []struct {
		name     string
		mime     string
		existing []string
		want     string
	}{
		{"fresh png", "image/png", nil, "pasted-20250314-092653.png"},
		{"jpeg", "image/jpeg", nil, "pasted-20250314-092653.jpg"},
		{"collision", "image/png", []string{"pasted-20250314-092653.png"}, "pasted-20250314-092653-1.png"},
		{"double collision", "image/png", []string{"Pasted-20250314-092653.PNG", "pasted-20250314-092653-1.png"}, "pasted-20250314-092653-2.png"},
		{"other extension is free", "image/webp", []string{"pasted-20250314-092653.png"}, "pasted-20250314-092653.webp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PasteName(tt.mime, tt.existing, fixedNow))
		})
	}
}

func TestComposeRename(t *testing.T) {
	tests := []struct {
		old, edited, want string
	}{
		{"cat.png", "dog", "dog.png"},
		{"cat.png", "dog.png", "dog.png"},
		{"cat.PNG", "dog.png", "dog.PNG"},
		{"cat.png", " spaced ", "spaced.png"},
		{"archive.tar.gz", "backup", "backup.gz"},
		{"noext", "renamed", "renamed"},
		{".hidden", "visible", "visible"},
		{"cat.png", "my.cat", "my.cat.png"},
	}
	for _, tt := range tests {
		t.Run(tt.old+"->"+tt.edited, func(t *testing.T) {
			got, err := ComposeRename(tt.old, tt.edited)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComposeRenameRejectsEmptyBase(t *testing.T) {
	tests := []struct {
		old, edited string
	}{
		{"a.png", ".png"},
		{"a.png", ".PNG"},
		{"a.png", " .png "},
		{"a.png", ""},
		{"noext", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.old+"->"+tt.edited, func(t *testing.T) {
			got, err := ComposeRename(tt.old, tt.edited)
			require.Error(t, err)
			assert.True(t, apiclient.IsValidationError(err))
			assert.Equal(t, "please enter a name", err.Error())
			assert.Empty(t, got)
		})
	}
}

func TestSplitName(t *testing.T) {
	base, ext := SplitName("photo.final.jpeg")
	assert.Equal(t, "photo.final", base)
	assert.Equal(t, ".jpeg", ext)
}

func TestDownloadName(t *testing.T) {
	assert.Equal(t, "generated-1741944413000-0-1.png", DownloadName(fixedNow, 0, 1, "image/png"))
}

func TestRenderGallery(t *testing.T) {
	r := newTestRenderer().WithNameWidth(12)
	state := studio.State{
		Workspace: "default",
		Images: []model.ImageInfo{
			{Path: "default/a.png", Name: "a.png", Size: 2048, SourceType: model.SourceUpload, Updated: fixedNow.Add(-3 * time.Hour).Format(time.RFC3339)},
			{Path: "default/very-long-generated-name.png", Name: "very-long-generated-name.png", Size: 10, SourceType: model.SourceGenerate, Updated: fixedNow.Format(time.RFC3339)},
		},
		Selection: []string{"default/a.png"},
	}

	out := ansi.Strip(r.RenderGallery(state))
	assert.Contains(t, out, "default (2 images, 1 selected)")
	assert.Contains(t, out, "[x] a.png")
	assert.Contains(t, out, "2.0 kB")
	assert.Contains(t, out, "3 hours ago")
	assert.Contains(t, out, "[ ] very-long-g…")
	assert.Contains(t, out, "just now")
	assert.Contains(t, out, "default/very-long-generated-name.png")

	empty := ansi.Strip(r.RenderGallery(studio.State{Workspace: "empty"}))
	assert.Contains(t, empty, "no images yet")
}

func TestRenderSlotsAndResults(t *testing.T) {
	r := newTestRenderer()
	state := studio.State{
		BatchID:    "0123456789abcdef",
		Generating: true,
		Elapsed:    4,
		Slots: []studio.Slot{
			{ID: 0, Status: studio.StatusSuccess, Elapsed: 3 * time.Second, Parts: []model.GeneratePart{
				{Type: model.PartText, Text: "a fox in snow"},
				{Type: model.PartImage, Image: &model.GeneratedImage{MimeType: "image/png", Path: "default/fox.png", URL: "/files/default/fox.png"}},
			}},
			{ID: 1, Status: studio.StatusError, Elapsed: 2 * time.Second, Error: "model overloaded"},
			{ID: 2, Status: studio.StatusGenerating},
		},
	}

	slots := ansi.Strip(r.RenderSlots(state))
	assert.Contains(t, slots, "batch 01234567")
	assert.Contains(t, slots, "generating… 4s")
	assert.Contains(t, slots, "#1 done in 3s (1 image, 1 text part)")
	assert.Contains(t, slots, "#2 failed after 2s: model overloaded")
	assert.Contains(t, slots, "#3 generating")

	results := ansi.Strip(r.RenderResults(state.Slots))
	assert.Contains(t, results, "result #1")
	assert.Contains(t, results, "a fox in snow")
	assert.Contains(t, results, "[image] default/fox.png image/png")
	assert.NotContains(t, results, "result #2")

	assert.Empty(t, r.RenderSlots(studio.State{}))
}

func TestRenderConversationAndBanner(t *testing.T) {
	r := newTestRenderer()
	out := ansi.Strip(r.RenderConversation([]model.Message{
		{Role: model.RoleUser, Type: model.MessageText, Content: "make it blue"},
		{Role: model.RoleAssistant, Type: model.MessageImage, URL: "/files/x.png"},
	}))
	assert.Contains(t, out, "user: make it blue")
	assert.Contains(t, out, "assistant: [image] /files/x.png")

	assert.Empty(t, r.RenderBanner(""))
	assert.Contains(t, ansi.Strip(r.RenderBanner("2 images failed to generate")), "2 images failed to generate")
}

func TestRenderWorkspaces(t *testing.T) {
	r := newTestRenderer()
	out := ansi.Strip(r.RenderWorkspaces([]model.Workspace{
		{Name: "default", IsCurrent: true},
		{Name: "sketches", CreatedAt: fixedNow.Add(-30 * 24 * time.Hour).Format(time.RFC3339)},
	}))
	assert.Contains(t, out, "* default")
	assert.Regexp(t, `  sketches  created 2025-02-1[123]`, out)
}

func TestBatchModel(t *testing.T) {
	m := NewBatchModel(newTestRenderer(), "a lighthouse")
	var tm tea.Model = m

	tm, _ = tm.Update(EventMsg{Event: &studio.BatchStartedEvent{Total: 2}})
	tm, _ = tm.Update(EventMsg{Event: &studio.SlotEvent{Slot: studio.Slot{ID: 0, Status: studio.StatusGenerating}}})
	tm, _ = tm.Update(EventMsg{Event: &studio.SlotEvent{Slot: studio.Slot{ID: 1, Status: studio.StatusError, Error: "boom"}}})
	tm, _ = tm.Update(EventMsg{Event: &studio.TickEvent{Elapsed: 5}})

	view := ansi.Strip(tm.View())
	assert.Contains(t, view, "generating 2 images")
	assert.Contains(t, view, "5s")
	assert.Contains(t, view, "#1 generating")
	assert.Contains(t, view, "#2 failed after 0s: boom")

	tm, cmd := tm.Update(DoneMsg{})
	require.NotNil(t, cmd)
	bm := tm.(BatchModel)
	assert.Len(t, bm.Slots(), 2)
	assert.False(t, bm.Quitting())

	tm, cmd = NewBatchModel(newTestRenderer(), "x").Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.True(t, tm.(BatchModel).Quitting())
}

func TestLineProcessor(t *testing.T) {
	var buf bytes.Buffer
	p := LineProcessor(&buf, newTestRenderer())

	require.NoError(t, p.Process(&studio.BatchStartedEvent{Total: 1}))
	require.NoError(t, p.Process(&studio.SlotEvent{Slot: studio.Slot{ID: 0, Status: studio.StatusGenerating}}))
	require.NoError(t, p.Process(&studio.SlotEvent{Slot: studio.Slot{ID: 0, Status: studio.StatusSuccess, Elapsed: time.Second}}))
	require.NoError(t, p.Process(&studio.BatchEvent{Total: 1, Succeeded: 1}))

	out := ansi.Strip(buf.String())
	assert.Contains(t, out, "generating 1 image\n")
	assert.NotContains(t, out, "#1 generating")
	assert.Contains(t, out, "#1 done in 1s (0 images, 0 text parts)")
	assert.Contains(t, out, "1 succeeded, 0 failed")
}
