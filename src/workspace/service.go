package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/elee1766/genstudio/src/apiclient"
	"github.com/elee1766/genstudio/src/model"
)

// Sender issues JSON requests against the backend API.
type Sender interface {
	Send(ctx context.Context, method, path string, body any, query url.Values, out any) error
}

// Service manages workspaces on the backend.
type Service struct {
	client Sender
	logger *slog.Logger
}

// NewService creates a new workspace service.
func NewService(client Sender, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client: client,
		logger: logger.With("component", "workspace_service"),
	}
}

// List returns every workspace.
func (s *Service) List(ctx context.Context) ([]model.Workspace, error) {
	var resp model.ListWorkspacesResponse
	if err := s.client.Send(ctx, http.MethodGet, "/workspace", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	if resp.Workspaces == nil {
		return []model.Workspace{}, nil
	}
	return resp.Workspaces, nil
}

// Create creates a workspace. A blank name is rejected before any request is made.
func (s *Service) Create(ctx context.Context, name string) (model.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Workspace{}, apiclient.NewValidationError("name", "please enter a workspace name")
	}

	var resp model.WorkspaceResponse
	if err := s.client.Send(ctx, http.MethodPost, "/workspace", model.WorkspaceNameRequest{Name: name}, nil, &resp); err != nil {
		return model.Workspace{}, fmt.Errorf("failed to create workspace %q: %w", name, err)
	}
	s.logger.Info("workspace created", "name", name)

	if resp.Workspace == nil {
		return model.Workspace{Name: name}, nil
	}
	return *resp.Workspace, nil
}

// Delete removes a workspace and, server-side, all of its images.
func (s *Service) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apiclient.NewValidationError("name", "please enter a workspace name")
	}

	if err := s.client.Send(ctx, http.MethodDelete, "/workspace", model.WorkspaceNameRequest{Name: name}, nil, nil); err != nil {
		return fmt.Errorf("failed to delete workspace %q: %w", name, err)
	}
	s.logger.Info("workspace deleted", "name", name)
	return nil
}

// SetCurrent moves the current-workspace pointer.
func (s *Service) SetCurrent(ctx context.Context, name string) (model.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Workspace{}, apiclient.NewValidationError("name", "please enter a workspace name")
	}

	var resp model.WorkspaceResponse
	if err := s.client.Send(ctx, http.MethodPut, "/workspace/current", model.WorkspaceNameRequest{Name: name}, nil, &resp); err != nil {
		return model.Workspace{}, fmt.Errorf("failed to switch workspace to %q: %w", name, err)
	}
	s.logger.Debug("current workspace set", "name", name)

	if resp.Workspace == nil {
		return model.Workspace{Name: name, IsCurrent: true}, nil
	}
	return *resp.Workspace, nil
}

// GetCurrent returns the current workspace, or nil when the server reports none.
func (s *Service) GetCurrent(ctx context.Context) (*model.Workspace, error) {
	var resp model.WorkspaceResponse
	if err := s.client.Send(ctx, http.MethodGet, "/workspace/current", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get current workspace: %w", err)
	}
	if resp.Workspace == nil || resp.Workspace.Name == "" {
		return nil, nil
	}
	return resp.Workspace, nil
}

// Resolve returns the current workspace, falling back to the first listed one.
// It returns nil when no workspace exists.
func (s *Service) Resolve(ctx context.Context) (*model.Workspace, error) {
	current, err := s.GetCurrent(ctx)
	if err != nil {
		return nil, err
	}
	if current != nil {
		return current, nil
	}

	workspaces, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range workspaces {
		if workspaces[i].IsCurrent {
			return &workspaces[i], nil
		}
	}
	if len(workspaces) == 0 {
		return nil, nil
	}
	s.logger.Debug("no current workspace, using first listed", "name", workspaces[0].Name)
	return &workspaces[0], nil
}
