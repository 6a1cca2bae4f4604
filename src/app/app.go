package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/elee1766/genstudio/src/apiclient"
	"github.com/elee1766/genstudio/src/config"
	"github.com/elee1766/genstudio/src/images"
	"github.com/elee1766/genstudio/src/storage"
	"github.com/elee1766/genstudio/src/studio"
	"github.com/elee1766/genstudio/src/workspace"
)

// ErrNoWorkspace is returned when the server has no workspace to work in
var ErrNoWorkspace = errors.New("no workspace available; create one first")

// App represents the main application with all services
type App struct {
	Config     *config.Config
	Client     *apiclient.Client
	Workspaces *workspace.Service
	Images     *images.Service
	Store      *storage.DB
	States     *storage.StateStore
	Fs         afero.Fs
	Logger     *slog.Logger
}

// AppConfig holds configuration for creating a new App instance
type AppConfig struct {
	Config     *config.Config
	Logger     *slog.Logger
	Fs         afero.Fs
	HTTPClient *http.Client // optional transport override, used by tests
}

// New creates a new App instance with all services initialized
func New(ctx context.Context, cfg AppConfig) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	conf := cfg.Config
	if conf == nil {
		conf = config.DefaultConfig()
	}
	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	dbPath := conf.Storage.DatabasePath
	if dbPath == "" {
		dbPath = config.GetDefaultStoragePaths().DatabasePath
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	client := apiclient.NewClient(apiclient.Config{
		BaseURL:       conf.API.BaseURL,
		Timeout:       conf.API.Timeout.Std(),
		UploadTimeout: conf.API.UploadTimeout.Std(),
		UserAgent:     conf.API.UserAgent,
		Logger:        logger,
		HTTPClient:    cfg.HTTPClient,
	})

	return &App{
		Config:     conf,
		Client:     client,
		Workspaces: workspace.NewService(client, logger),
		Images:     images.NewService(client, logger),
		Store:      store,
		States:     storage.NewStateStore(store),
		Fs:         fs,
		Logger:     logger,
	}, nil
}

// ResolveWorkspace returns name if given, else the server's current
// workspace, falling back to the first one listed.
func (a *App) ResolveWorkspace(ctx context.Context, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	ws, err := a.Workspaces.Resolve(ctx)
	if err != nil {
		return "", err
	}
	if ws == nil {
		return "", ErrNoWorkspace
	}
	return ws.Name, nil
}

// OpenStudio builds a studio for a workspace with its saved state and a fresh
// image list. A failed list is reported on the studio's banner and returned;
// the studio is usable either way.
func (a *App) OpenStudio(ctx context.Context, workspaceName string, sink studio.EventSink) (*studio.Studio, error) {
	name, err := a.ResolveWorkspace(ctx, workspaceName)
	if err != nil {
		return nil, err
	}

	state, err := a.States.Load(ctx, name)
	if err != nil {
		return nil, err
	}

	st := studio.New(studio.Config{
		Images:       a.Images,
		Workspaces:   a.Workspaces,
		Workspace:    name,
		Sink:         sink,
		Logger:       a.Logger,
		TickInterval: time.Second,
	})
	st.Load(state)

	if err := st.Reload(ctx); err != nil {
		return st, err
	}
	return st, nil
}

// SaveStudio persists the studio's state once background work has settled.
func (a *App) SaveStudio(ctx context.Context, st *studio.Studio) error {
	st.Wait()
	return a.States.Save(ctx, st.Snapshot())
}

// Close closes all resources held by the app
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
