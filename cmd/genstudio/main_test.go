package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elee1766/genstudio/src/apiclient"
	"github.com/elee1766/genstudio/src/config"
	"github.com/elee1766/genstudio/src/model"
	"github.com/elee1766/genstudio/src/testutil"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

type harness struct {
	t      *testing.T
	server *testutil.Server
	fs     afero.Fs
	dbPath string
	stdin  string
	stderr string
}

func newHarness(t *testing.T) *harness {
	return &harness{
		t:      t,
		server: testutil.NewServer(t),
		fs:     afero.NewMemMapFs(),
		dbPath: filepath.Join(t.TempDir(), "studio.db"),
	}
}

// run executes one command line and returns its stdout. Its stderr is kept
// in h.stderr.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	vars := map[string]string{
		"GENSTUDIO_BASE_URL": h.server.BaseURL(),
		"GENSTUDIO_DB_PATH":  h.dbPath,
	}

	cli := CLI{env: &env{
		stdout:    &stdout,
		stderr:    &stderr,
		stdin:     strings.NewReader(h.stdin),
		fs:        h.fs,
		lookupEnv: func(k string) (string, bool) { v, ok := vars[k]; return v, ok },
		precedence: config.ConfigPrecedence{
			UserConfig:        "/home/u/.config/genstudio/config.json",
			ProjectConfig:     "/work/.genstudio/config.json",
			EnvironmentPrefix: "GENSTUDIO",
		},
		isTTY: func(io.Writer) bool { return false },
		now:   func() time.Time { return fixedNow },
	}}

	parser, err := kong.New(&cli, kong.Name("genstudio"), kong.Exit(func(int) {}))
	require.NoError(h.t, err)
	kctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	kctx.BindTo(context.Background(), (*context.Context)(nil))
	err = run(kctx, &cli)
	h.stderr = stderr.String()
	return stdout.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "genstudio %s", strings.Join(args, " "))
	return out
}

func TestWorkspaceCommands(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("workspace", "create", "sketches")
	assert.Contains(t, out, "created workspace sketches")

	out = h.mustRun("workspace", "list")
	assert.Contains(t, out, "* default")
	assert.Contains(t, out, "sketches")

	out = h.mustRun("workspace", "use", "sketches")
	assert.Contains(t, out, "sketches (0 images, 0 selected)")

	out = h.mustRun("--json", "workspace", "list")
	var workspaces []model.Workspace
	require.NoError(t, json.Unmarshal([]byte(out), &workspaces))
	for _, ws := range workspaces {
		assert.Equal(t, ws.Name == "sketches", ws.IsCurrent, ws.Name)
	}

	_, err := h.run("workspace", "create", "sketches")
	require.Error(t, err)
	assert.Equal(t, "workspace already exists", displayError(err))

	_, err = h.run("workspace", "create", "  ")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, exitCode(err))
}

func TestUploadFromFileAndStdin(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/pics/cat.png", testutil.PNG, 0644))

	out := h.mustRun("image", "upload", "/pics/cat.png")
	assert.Contains(t, out, "uploaded default/cat.png")

	h.stdin = string(testutil.PNG)
	out = h.mustRun("image", "upload", "-", "--select")
	assert.Contains(t, out, "uploaded default/pasted-20250314-092653.png")

	out = h.mustRun("--json", "image", "list")
	var imgs []model.ImageInfo
	require.NoError(t, json.Unmarshal([]byte(out), &imgs))
	require.Len(t, imgs, 2)
	assert.Equal(t, "cat.png", imgs[0].Name)
	assert.Equal(t, model.SourceUpload, imgs[0].SourceType)

	out = h.mustRun("select")
	assert.Contains(t, out, "1. default/pasted-20250314-092653.png")

	require.NoError(t, afero.WriteFile(h.fs, "/pics/notes.txt", []byte("not an image"), 0644))
	_, err := h.run("image", "upload", "/pics/notes.txt")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, exitCode(err))
}

func TestGenerateSendsSelectionAndSavesImages(t *testing.T) {
	h := newHarness(t)
	h.server.AddImage("default", model.ImageInfo{Name: "ref.png"})

	calls := make(chan model.GenerateRequest, 3)
	h.server.SetGenerate(func(call int, req model.GenerateRequest) (model.GenerateResult, error) {
		calls <- req
		return model.GenerateResult{Parts: []model.GeneratePart{
			{Type: model.PartText, Text: fmt.Sprintf("variant %d", call)},
			{Type: model.PartImage, Image: &model.GeneratedImage{MimeType: "image/png", Data: "iVBORw0KGgo="}},
		}}, nil
	})

	h.mustRun("select", "ref.png")
	out := h.mustRun("generate", "-n", "2", "--web-search", "-o", "/out", "a", "lighthouse")
	close(calls)
	var seen []model.GenerateRequest
	for req := range calls {
		seen = append(seen, req)
	}

	require.Len(t, seen, 2)
	for _, req := range seen {
		assert.Equal(t, "a lighthouse", req.Prompt)
		assert.Equal(t, []string{"default/ref.png"}, req.Images)
		assert.True(t, req.EnableWebSearch)
		assert.Equal(t, "default", req.Workspace)
	}

	assert.Contains(t, out, "result #1")
	assert.Contains(t, out, "result #2")
	assert.Contains(t, out, "saved /out/generated-1741944413000-0-0.png")
	assert.Contains(t, out, "saved /out/generated-1741944413000-1-0.png")

	data, err := afero.ReadFile(h.fs, "/out/generated-1741944413000-0-0.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), data)

	out = h.mustRun("results")
	assert.Contains(t, out, "#1 done in")
	assert.Contains(t, out, "#2 done in")

	out = h.mustRun("image", "list")
	assert.Contains(t, out, "(3 images, 1 selected)")
}

func TestGenerateValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("generate")
	require.Error(t, err)
	assert.Equal(t, "please enter a prompt", displayError(err))
	assert.Equal(t, ExitUsage, exitCode(err))

	_, err = h.run("generate", "-n", "4", "a", "cat")
	require.Error(t, err)
	assert.Equal(t, "count must be between 1 and 3", displayError(err))

	assert.Zero(t, h.server.GenerateCalls())
}

func TestGeneratePartialFailure(t *testing.T) {
	h := newHarness(t)
	h.server.SetGenerate(func(call int, req model.GenerateRequest) (model.GenerateResult, error) {
		if call == 1 {
			return model.GenerateResult{}, errors.New("model overloaded")
		}
		return model.GenerateResult{Parts: []model.GeneratePart{{Type: model.PartText, Text: "ok"}}}, nil
	})

	out, err := h.run("--json", "generate", "-n", "3", "three", "cats")
	require.Error(t, err)
	var batchErr *apiclient.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 1, batchErr.Failed)
	assert.Equal(t, ExitError, exitCode(err))

	var result batchResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Slots, 3)
	failed := 0
	for _, slot := range result.Slots {
		if slot.Error != "" {
			failed++
			assert.Equal(t, "model overloaded", slot.Error)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestRestoreThenGenerateReusesPrompt(t *testing.T) {
	h := newHarness(t)
	h.server.AddImage("default", model.ImageInfo{Name: "a.png"})
	h.server.AddImage("default", model.ImageInfo{
		Name:       "old.png",
		SourceType: model.SourceGenerate,
		Prompt:     "a foggy harbor",
		RefImages:  []string{"default/a.png", "default/gone.png"},
		MessageList: []model.Message{
			{Role: model.RoleUser, Type: model.MessageText, Content: "a foggy harbor"},
		},
	})

	out := h.mustRun("restore", "old.png")
	assert.Contains(t, out, "prompt: a foggy harbor")
	assert.Contains(t, out, "selected 1 reference images (1 no longer exist)")
	assert.Contains(t, out, "user: a foggy harbor")

	requests := make(chan model.GenerateRequest, 1)
	h.server.SetGenerate(func(call int, req model.GenerateRequest) (model.GenerateResult, error) {
		requests <- req
		return model.GenerateResult{Parts: []model.GeneratePart{{Type: model.PartText, Text: "ok"}}}, nil
	})
	h.mustRun("generate")
	got := <-requests
	assert.Equal(t, "a foggy harbor", got.Prompt)
	assert.Equal(t, []string{"default/a.png"}, got.Images)

	_, err := h.run("restore", "a.png")
	require.Error(t, err)
	assert.Equal(t, "image has no prompt to restore", displayError(err))
}

func TestRenameAndDelete(t *testing.T) {
	h := newHarness(t)
	h.server.AddImage("default", model.ImageInfo{Name: "cat.png"})
	h.server.AddImage("default", model.ImageInfo{Name: "dog.png"})

	h.mustRun("select", "cat.png", "dog.png")

	out := h.mustRun("image", "rename", "cat.png", "kitten")
	assert.Contains(t, out, "renamed default/cat.png to default/kitten.png")

	out = h.mustRun("select")
	assert.Contains(t, out, "default/kitten.png")

	h.mustRun("image", "delete", "dog.png")
	out = h.mustRun("--json", "select")
	var selection []string
	require.NoError(t, json.Unmarshal([]byte(out), &selection))
	assert.Equal(t, []string{"default/kitten.png"}, selection)

	_, err := h.run("image", "delete", "nothing.png")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, exitCode(err))
}

func TestConfigCommands(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("config", "set", "generation.default_count", "2")
	assert.Contains(t, out, "set generation.default_count in /home/u/.config/genstudio/config.json")

	out = h.mustRun("config", "get", "generation.default_count")
	assert.Equal(t, "2\n", out)

	_, err := h.run("config", "set", "generation.default_count", "9")
	require.Error(t, err)
	assert.Equal(t, ExitConfig, exitCode(err))

	_, err = h.run("config", "get", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitConfig, exitCode(err))

	out = h.mustRun("config", "keys")
	assert.Contains(t, out, "api.base_url")

	// the configured count applies when -n is omitted
	h.mustRun("generate", "two", "birds")
	assert.Equal(t, 2, h.server.GenerateCalls())
}

func TestExitCode(t *testing.T) {
	netErr := &apiclient.RequestError{Method: "GET", Path: "/x", Message: "request failed", Cause: errors.New("connection refused")}
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", apiclient.NewValidationError("prompt", "please enter a prompt"), ExitUsage},
		{"config", &configError{err: errors.New("bad")}, ExitConfig},
		{"config validation", fmt.Errorf("wrapped: %w", config.ValidationError{Field: "x"}), ExitConfig},
		{"network", fmt.Errorf("failed to list images: %w", netErr), ExitNetwork},
		{"canceled", fmt.Errorf("x: %w", context.Canceled), ExitInterrupted},
		{"timeout", context.DeadlineExceeded, ExitTimeout},
		{"envelope code", &apiclient.RequestError{StatusCode: 200, Code: 500, Message: "boom"}, ExitError},
		{"server status", fmt.Errorf("failed to generate: %w", &apiclient.RequestError{StatusCode: 502, Message: "bad gateway"}), ExitServer},
		{"batch", &apiclient.BatchError{Total: 2, Failed: 1}, ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestStateCommands(t *testing.T) {
	h := newHarness(t)
	h.server.AddImage("default", model.ImageInfo{Name: "a.png"})

	out := h.mustRun("state")
	assert.Contains(t, out, "no saved state")

	h.mustRun("select", "a.png")
	out = h.mustRun("state", "list")
	assert.Contains(t, out, "default")
	assert.Contains(t, out, "1 selected, 0 slots")

	out = h.mustRun("state", "migrations")
	assert.Contains(t, out, "001_studio_state  applied")

	out = h.mustRun("state", "clear")
	assert.Contains(t, out, "cleared saved state of default")
	out = h.mustRun("select")
	assert.Contains(t, out, "no images selected")
}

func TestFailuresAreLoggedByKind(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("generate")
	require.Error(t, err)
	assert.Contains(t, h.stderr, "validation error")
	assert.Contains(t, h.stderr, "operation=generate")

	h.mustRun("workspace", "create", "sketches")
	assert.NotContains(t, h.stderr, "error")

	_, err = h.run("workspace", "create", "sketches")
	require.Error(t, err)
	assert.Contains(t, h.stderr, "API error")
	assert.Contains(t, h.stderr, `operation="workspace create"`)
	assert.Contains(t, h.stderr, "workspace already exists")

	_, err = h.run("config", "get", "nope")
	require.Error(t, err)
	assert.Contains(t, h.stderr, "error occurred")
	assert.Contains(t, h.stderr, `operation="config get"`)
}

func TestDownloadKeepsServerNamesInsideOutputDir(t *testing.T) {
	h := newHarness(t)
	h.server.AddImage("default", model.ImageInfo{Path: "default/evil.png", Name: "../../evil.png"})
	h.server.AddImage("default", model.ImageInfo{Path: "default/dots.png", Name: ".."})

	out := h.mustRun("image", "download", "default/evil.png", "-o", "/out/sub")
	assert.Contains(t, out, "saved /out/sub/evil.png")

	exists, err := afero.Exists(h.fs, "/out/sub/evil.png")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = afero.Exists(h.fs, "/evil.png")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = h.run("image", "download", "default/dots.png", "-o", "/out")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, exitCode(err))
}

func TestRenameRejectsBareExtension(t *testing.T) {
	h := newHarness(t)
	h.server.AddImage("default", model.ImageInfo{Name: "a.png"})
	before := h.server.RequestCount()

	_, err := h.run("image", "rename", "a.png", ".png")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, exitCode(err))
	assert.Equal(t, "please enter a name", displayError(err))

	for _, req := range h.server.Requests[before:] {
		assert.NotContains(t, req, "/rename")
	}
	assert.Equal(t, "a.png", h.server.Images("default")[0].Name)
}
