package images

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/elee1766/genstudio/src/apiclient"
	"github.com/elee1766/genstudio/src/model"
)

// Client is the subset of the API client the image service needs.
type Client interface {
	Send(ctx context.Context, method, path string, body any, query url.Values, out any) error
	Upload(ctx context.Context, path string, fields map[string]string, file apiclient.FilePart, out any) error
	Fetch(ctx context.Context, rawURL string) ([]byte, string, error)
}

// Service manages the images of a workspace and issues generation calls.
type Service struct {
	client Client
	logger *slog.Logger
}

// NewService creates a new image service.
func NewService(client Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client: client,
		logger: logger.With("component", "image_service"),
	}
}

// Upload stores a file in a workspace.
func (s *Service) Upload(ctx context.Context, file apiclient.FilePart, workspace string) (model.UploadResult, error) {
	if len(file.Data) == 0 {
		return model.UploadResult{}, apiclient.NewValidationError("file", "file is empty")
	}

	var result model.UploadResult
	fields := map[string]string{"workspace": workspace}
	if err := s.client.Upload(ctx, "/image/upload", fields, file, &result); err != nil {
		return model.UploadResult{}, fmt.Errorf("failed to upload %s: %w", file.Name, err)
	}
	s.logger.Info("image uploaded", "name", file.Name, "workspace", workspace, "path", result.Path)
	return result, nil
}

// List returns the images of a workspace.
func (s *Service) List(ctx context.Context, workspace string) ([]model.ImageInfo, error) {
	query := url.Values{}
	if workspace != "" {
		query.Set("workspace", workspace)
	}

	var resp model.ListImagesResponse
	if err := s.client.Send(ctx, http.MethodGet, "/image/list", nil, query, &resp); err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	if resp.Images == nil {
		return []model.ImageInfo{}, nil
	}
	return resp.Images, nil
}

// Delete removes an image by path.
func (s *Service) Delete(ctx context.Context, path string) error {
	if err := s.client.Send(ctx, http.MethodDelete, "/image", model.DeleteImageRequest{Path: path}, nil, nil); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	s.logger.Info("image deleted", "path", path)
	return nil
}

// Rename renames an image. The server recomputes path and url; callers are
// expected to preserve the extension in newName.
func (s *Service) Rename(ctx context.Context, path, newName, workspace string) (model.ImageInfo, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return model.ImageInfo{}, apiclient.NewValidationError("new_name", "please enter a name")
	}

	req := model.RenameImageRequest{Path: path, NewName: newName, Workspace: workspace}
	var resp model.RenameImageResponse
	if err := s.client.Send(ctx, http.MethodPost, "/image/rename", req, nil, &resp); err != nil {
		return model.ImageInfo{}, fmt.Errorf("failed to rename %s: %w", path, err)
	}
	s.logger.Info("image renamed", "path", path, "new_path", resp.Image.Path)
	return resp.Image, nil
}

// Generate runs one generation call.
func (s *Service) Generate(ctx context.Context, req model.GenerateRequest) (model.GenerateResult, error) {
	logger := s.logger.With("workspace", req.Workspace, "refs", len(req.Images), "web_search", req.EnableWebSearch)
	logger.Debug("generating")

	var result model.GenerateResult
	if err := s.client.Send(ctx, http.MethodPost, "/image/generate", req, nil, &result); err != nil {
		return model.GenerateResult{}, fmt.Errorf("failed to generate: %w", err)
	}
	logger.Debug("generation finished", "parts", len(result.Parts))
	return result, nil
}

// Download returns the bytes of a generated image, decoding inline base64 data
// when present and fetching the url otherwise.
func (s *Service) Download(ctx context.Context, img model.GeneratedImage) ([]byte, error) {
	if img.Data != "" {
		data, err := decodeInline(img.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image data: %w", err)
		}
		return data, nil
	}
	if img.URL == "" {
		return nil, apiclient.ErrEmptyResponse
	}

	data, _, err := s.client.Fetch(ctx, img.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", img.URL, err)
	}
	return data, nil
}

// decodeInline accepts raw base64 or a data: URL.
func decodeInline(data string) ([]byte, error) {
	if strings.HasPrefix(data, "data:") {
		if idx := strings.Index(data, ","); idx >= 0 {
			data = data[idx+1:]
		}
	}
	return base64.StdEncoding.DecodeString(data)
}
