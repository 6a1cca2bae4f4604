package model

import "time"

// Source types for ImageInfo.SourceType
const (
	SourceUpload   = "upload"
	SourceGenerate = "generate"
)

// Part types for GeneratePart.Type
const (
	PartText  = "text"
	PartImage = "image"
)

// Message roles and types
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	MessageText  = "text"
	MessageImage = "image"
)

// Workspace represents a named collection of images on the server
type Workspace struct {
	Name      string `json:"name"`
	IsCurrent bool   `json:"is_current"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Message is a single conversation turn attached to a generated image
type Message struct {
	Role    string `json:"role"`
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	URL     string `json:"url,omitempty"`
}

// ImageInfo describes one image in a workspace. Generated images carry their
// provenance (prompt, reference paths and conversation).
type ImageInfo struct {
	ID           int64     `json:"id,omitempty"`
	Path         string    `json:"path"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	Updated      string    `json:"updated"` // RFC3339
	SourceType   string    `json:"source_type"`
	Prompt       string    `json:"prompt,omitempty"`
	RefImages    []string  `json:"ref_images,omitempty"`
	MessageList  []Message `json:"message_list,omitempty"`
}

// UpdatedAt parses Updated. The zero time is returned when it is missing or malformed.
func (i ImageInfo) UpdatedAt() time.Time {
	t, err := time.Parse(time.RFC3339, i.Updated)
	if err != nil {
		return time.Time{}
	}
	return t
}

// IsGenerated reports whether the image came from a generation call
func (i ImageInfo) IsGenerated() bool {
	return i.SourceType == SourceGenerate
}

// GeneratedImage is the image payload of a GeneratePart
type GeneratedImage struct {
	Data     string `json:"data,omitempty"` // base64, optional
	MimeType string `json:"mimeType"`
	Path     string `json:"path,omitempty"`
	URL      string `json:"url,omitempty"`
}

// GeneratePart is one element of a generation response: either text or an image
type GeneratePart struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Image *GeneratedImage `json:"image,omitempty"`
}

// IsImage reports whether the part carries an image
func (p GeneratePart) IsImage() bool {
	return p.Type == PartImage && p.Image != nil
}

// GenerateRequest is the body of POST /image/generate
type GenerateRequest struct {
	Prompt          string    `json:"prompt"`
	Images          []string  `json:"images,omitempty"`
	Workspace       string    `json:"workspace,omitempty"`
	Messages        []Message `json:"messages,omitempty"`
	EnableWebSearch bool      `json:"enable_web_search,omitempty"`
}

// GenerateResult is the payload of a successful generation
type GenerateResult struct {
	Parts []GeneratePart `json:"parts"`
}

// UploadResult is the payload of a successful upload
type UploadResult struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// Request and response payloads for the workspace endpoints

type ListWorkspacesResponse struct {
	Workspaces []Workspace `json:"workspaces"`
}

type WorkspaceNameRequest struct {
	Name string `json:"name"`
}

type WorkspaceResponse struct {
	Workspace *Workspace `json:"workspace"`
}

// Request and response payloads for the image endpoints

type ListImagesResponse struct {
	Images []ImageInfo `json:"images"`
}

type DeleteImageRequest struct {
	Path string `json:"path"`
}

type RenameImageRequest struct {
	Path      string `json:"path"`
	NewName   string `json:"new_name"`
	Workspace string `json:"workspace"`
}

type RenameImageResponse struct {
	Image ImageInfo `json:"image"`
}
