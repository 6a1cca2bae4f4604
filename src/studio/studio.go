package studio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/elee1766/genstudio/src/apiclient"
	"github.com/elee1766/genstudio/src/model"
)

// ImageService is the image directory the studio works against.
type ImageService interface {
	List(ctx context.Context, workspace string) ([]model.ImageInfo, error)
	Rename(ctx context.Context, path, newName, workspace string) (model.ImageInfo, error)
	Delete(ctx context.Context, path string) error
	Generate(ctx context.Context, req model.GenerateRequest) (model.GenerateResult, error)
}

// WorkspaceService moves the current-workspace pointer.
type WorkspaceService interface {
	SetCurrent(ctx context.Context, name string) (model.Workspace, error)
}

// Config holds configuration for a Studio
type Config struct {
	Images       ImageService
	Workspaces   WorkspaceService
	Workspace    string        // initial workspace
	Sink         EventSink     // optional; receives batch, slot and tick events
	Logger       *slog.Logger  // Logger for debugging
	TickInterval time.Duration // elapsed-time resolution, default one second
}

// Studio holds the view state of one workspace and orchestrates generation
// batches against it. All mutations happen under mu and replace slices rather
// than editing them, so a Snapshot never observes a partial update.
type Studio struct {
	images       ImageService
	workspaces   WorkspaceService
	sink         EventSink
	logger       *slog.Logger
	validate     *validator.Validate
	tickInterval time.Duration

	mu    sync.Mutex
	state State
	batch uint64 // incremented by every submission and workspace switch

	background sync.WaitGroup
}

// New creates a new Studio.
func New(config Config) *Studio {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.TickInterval <= 0 {
		config.TickInterval = time.Second
	}

	return &Studio{
		images:       config.Images,
		workspaces:   config.Workspaces,
		sink:         config.Sink,
		logger:       logger.With("component", "studio"),
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		tickInterval: config.TickInterval,
		state:        State{Workspace: config.Workspace},
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Studio) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Load replaces the state, typically with one persisted by a previous run.
func (s *Studio) Load(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state = state.Clone()
	if state.Workspace == "" {
		state.Workspace = s.state.Workspace
	}
	state.Generating = false
	s.state = state
}

// Wait blocks until background refreshes started by Submit have finished.
func (s *Studio) Wait() {
	s.background.Wait()
}

// SetPrompt sets the prompt draft.
func (s *Studio) SetPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Prompt = prompt
}

// ClearError dismisses the banner error.
func (s *Studio) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Error = ""
}

// Toggle selects or deselects an image of the current list by path and
// reports whether it is selected afterwards.
func (s *Studio) Toggle(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, img := range s.state.Images {
		if img.Path == path {
			found = true
			break
		}
	}
	if !found {
		return false, apiclient.NewValidationError("path", fmt.Sprintf("%s is not in workspace %s", path, s.state.Workspace))
	}

	if s.state.IsSelected(path) {
		s.state.Selection = removePath(s.state.Selection, path)
		return false, nil
	}
	s.state.Selection = append(cloneStrings(s.state.Selection), path)
	return true, nil
}

// ClearSelection deselects every image.
func (s *Studio) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Selection = nil
}

// ClearRestored closes the restored conversation.
func (s *Studio) ClearRestored() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Restored = nil
}

// Reload replaces the image list with the server's and prunes the selection
// to images that still exist.
func (s *Studio) Reload(ctx context.Context) error {
	s.mu.Lock()
	workspace := s.state.Workspace
	s.mu.Unlock()

	images, err := s.images.List(ctx, workspace)
	if err != nil {
		s.setError(err)
		return err
	}
	s.applyList(workspace, images)
	return nil
}

// SwitchWorkspace makes name current and resets the view to it.
func (s *Studio) SwitchWorkspace(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		err := apiclient.NewValidationError("name", "please choose a workspace")
		s.setError(err)
		return err
	}

	ws, err := s.workspaces.SetCurrent(ctx, name)
	if err != nil {
		s.setError(err)
		return err
	}

	s.mu.Lock()
	s.batch++
	s.state = State{Workspace: ws.Name}
	s.mu.Unlock()
	s.logger.Info("switched workspace", "workspace", ws.Name)

	return s.Reload(ctx)
}

// Rename renames an image and migrates every structure indexed by its old path.
// On failure the error is surfaced and the list is reloaded from the server.
func (s *Studio) Rename(ctx context.Context, path, newName string) (model.ImageInfo, error) {
	s.mu.Lock()
	workspace := s.state.Workspace
	s.mu.Unlock()

	updated, err := s.images.Rename(ctx, path, newName, workspace)
	if err != nil {
		s.resync(ctx, err)
		return model.ImageInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Images = renameImage(s.state.Images, path, updated)
	s.state.Selection = renamePaths(s.state.Selection, path, updated.Path)
	s.state.Slots = renameSlots(s.state.Slots, path, updated)
	s.logger.Debug("reconciled rename", "path", path, "new_path", updated.Path)
	return updated, nil
}

// Delete deletes an image and removes it from the list, the selection, and
// any slot result that shows it. On failure the error is surfaced and the
// list is reloaded from the server.
func (s *Studio) Delete(ctx context.Context, path string) error {
	if err := s.images.Delete(ctx, path); err != nil {
		s.resync(ctx, err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Images = removeImage(s.state.Images, path)
	s.state.Selection = removePath(s.state.Selection, path)
	s.state.Slots = removeFromSlots(s.state.Slots, path)
	s.logger.Debug("reconciled delete", "path", path)
	return nil
}

// resync surfaces err and resyncs the list with the server.
func (s *Studio) resync(ctx context.Context, err error) {
	s.setError(err)

	s.mu.Lock()
	workspace := s.state.Workspace
	s.mu.Unlock()

	images, listErr := s.images.List(ctx, workspace)
	if listErr != nil {
		s.logger.Warn("corrective reload failed", "workspace", workspace, "error", listErr)
		return
	}
	s.applyList(workspace, images)
}

func (s *Studio) applyList(workspace string, images []model.ImageInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Workspace != workspace {
		s.logger.Debug("dropping image list for previous workspace", "workspace", workspace)
		return
	}
	s.state.Images = images
	s.state.Selection = pruneSelection(s.state.Selection, images)
}

func (s *Studio) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Error = apiclient.DisplayMessage(err)
}
