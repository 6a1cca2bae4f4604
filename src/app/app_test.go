package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elee1766/genstudio/src/config"
	"github.com/elee1766/genstudio/src/model"
	"github.com/elee1766/genstudio/src/studio"
	"github.com/elee1766/genstudio/src/testutil"
)

func newTestApp(t *testing.T, server *testutil.Server) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = server.BaseURL()
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "studio.db")

	a, err := New(context.Background(), AppConfig{
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Fs:     afero.NewMemMapFs(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestOpenStudioResolvesCurrentWorkspace(t *testing.T) {
	server := testutil.NewServer(t)
	server.AddImage("default", model.ImageInfo{Name: "a.png", SourceType: model.SourceUpload})
	a := newTestApp(t, server)

	st, err := a.OpenStudio(context.Background(), "", nil)
	require.NoError(t, err)

	state := st.Snapshot()
	assert.Equal(t, "default", state.Workspace)
	require.Len(t, state.Images, 1)
	assert.Equal(t, "default/a.png", state.Images[0].Path)
}

func TestStudioStatePersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	server := testutil.NewServer(t)
	server.AddImage("default", model.ImageInfo{Name: "a.png", SourceType: model.SourceUpload})
	server.AddImage("default", model.ImageInfo{Name: "b.png", SourceType: model.SourceUpload})
	a := newTestApp(t, server)

	st, err := a.OpenStudio(ctx, "default", nil)
	require.NoError(t, err)
	_, err = st.Toggle("default/b.png")
	require.NoError(t, err)
	st.SetPrompt("a watercolor fox")
	require.NoError(t, a.SaveStudio(ctx, st))

	reopened, err := a.OpenStudio(ctx, "default", nil)
	require.NoError(t, err)
	state := reopened.Snapshot()
	assert.Equal(t, []string{"default/b.png"}, state.Selection)
	assert.Equal(t, "a watercolor fox", state.Prompt)
}

func TestOpenStudioPrunesSelectionOfDeletedImages(t *testing.T) {
	ctx := context.Background()
	server := testutil.NewServer(t)
	a := newTestApp(t, server)

	require.NoError(t, a.States.Save(ctx, studio.State{
		Workspace: "default",
		Selection: []string{"default/gone.png"},
	}))

	st, err := a.OpenStudio(ctx, "default", nil)
	require.NoError(t, err)
	assert.Empty(t, st.Snapshot().Selection)
}

func TestResolveWorkspace(t *testing.T) {
	ctx := context.Background()
	server := testutil.NewServer(t)
	a := newTestApp(t, server)

	// an explicit name skips resolution
	name, err := a.ResolveWorkspace(ctx, "sketches")
	require.NoError(t, err)
	assert.Equal(t, "sketches", name)

	server.Close()
	_, err = a.OpenStudio(ctx, "", nil)
	require.Error(t, err)
}
