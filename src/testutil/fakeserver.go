// Package testutil provides an in-memory fake of the image-generation backend
// for tests.
package testutil

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/elee1766/genstudio/src/model"
)

// GenerateFunc handles one generation call. The call index counts from zero
// across the lifetime of the server.
type GenerateFunc func(call int, req model.GenerateRequest) (model.GenerateResult, error)

// Server is a fake backend implementing the /api endpoints in memory.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	workspaces []model.Workspace
	images     map[string][]model.ImageInfo // by workspace
	blobs      map[string][]byte            // by path
	nextID     int64

	generate      GenerateFunc
	generateCalls atomic.Int64
	requests      atomic.Int64

	failRename bool
	failDelete bool

	// Requests records the method and path of every request, in order
	Requests []string
}

// PNG is a minimal valid PNG header followed by padding, enough for MIME sniffing.
var PNG = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

// NewServer starts a fake backend with one current workspace named "default".
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		workspaces: []model.Workspace{{Name: "default", IsCurrent: true, CreatedAt: time.Now().UTC().Format(time.RFC3339)}},
		images:     map[string][]model.ImageInfo{},
		blobs:      map[string][]byte{},
	}
	s.generate = s.defaultGenerate

	mux := http.NewServeMux()
	mux.HandleFunc("/api/workspace", s.handleWorkspace)
	mux.HandleFunc("/api/workspace/current", s.handleCurrent)
	mux.HandleFunc("/api/image/upload", s.handleUpload)
	mux.HandleFunc("/api/image/list", s.handleList)
	mux.HandleFunc("/api/image", s.handleDeleteImage)
	mux.HandleFunc("/api/image/rename", s.handleRename)
	mux.HandleFunc("/api/image/generate", s.handleGenerate)
	mux.HandleFunc("/files/", s.handleFile)

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		s.mu.Lock()
		s.Requests = append(s.Requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

// BaseURL returns the API base URL including the /api prefix.
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

// RequestCount returns the number of requests received.
func (s *Server) RequestCount() int {
	return int(s.requests.Load())
}

// GenerateCalls returns the number of generation calls received.
func (s *Server) GenerateCalls() int {
	return int(s.generateCalls.Load())
}

// SetGenerate replaces the generation handler.
func (s *Server) SetGenerate(fn GenerateFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generate = fn
}

// FailRename makes every rename request fail.
func (s *Server) FailRename(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRename = fail
}

// FailDelete makes every image delete request fail.
func (s *Server) FailDelete(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDelete = fail
}

// AddImage seeds an image into a workspace and returns it.
func (s *Server) AddImage(workspace string, info model.ImageInfo) model.ImageInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addImageLocked(workspace, info, PNG)
}

// Images returns a copy of the images of a workspace.
func (s *Server) Images(workspace string) []model.ImageInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ImageInfo(nil), s.images[workspace]...)
}

// AddWorkspace seeds a workspace.
func (s *Server) AddWorkspace(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaces = append(s.workspaces, model.Workspace{Name: name})
}

func (s *Server) addImageLocked(workspace string, info model.ImageInfo, data []byte) model.ImageInfo {
	s.nextID++
	info.ID = s.nextID
	if info.Path == "" {
		info.Path = workspace + "/" + info.Name
	}
	if info.Name == "" {
		info.Name = info.Path[strings.LastIndex(info.Path, "/")+1:]
	}
	info.URL = "/files/" + info.Path
	info.ThumbnailURL = info.URL
	if info.Size == 0 {
		info.Size = int64(len(data))
	}
	if info.Updated == "" {
		info.Updated = time.Now().UTC().Format(time.RFC3339)
	}
	if info.SourceType == "" {
		info.SourceType = model.SourceUpload
	}
	s.images[workspace] = append(s.images[workspace], info)
	s.blobs[info.Path] = data
	return info
}

func (s *Server) defaultGenerate(call int, req model.GenerateRequest) (model.GenerateResult, error) {
	return model.GenerateResult{Parts: []model.GeneratePart{
		{Type: model.PartText, Text: "here is your image"},
		{Type: model.PartImage, Image: &model.GeneratedImage{MimeType: "image/png", Data: base64.StdEncoding.EncodeToString(PNG)}},
	}}, nil
}

func (s *Server) handleWorkspace(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		writeData(w, model.ListWorkspacesResponse{Workspaces: append([]model.Workspace(nil), s.workspaces...)})
	case http.MethodPost:
		var req model.WorkspaceNameRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Name == "" {
			writeError(w, 400, "workspace name required")
			return
		}
		if s.findWorkspaceLocked(req.Name) >= 0 {
			writeError(w, 409, "workspace already exists")
			return
		}
		ws := model.Workspace{Name: req.Name, CreatedAt: time.Now().UTC().Format(time.RFC3339)}
		s.workspaces = append(s.workspaces, ws)
		writeData(w, model.WorkspaceResponse{Workspace: &ws})
	case http.MethodDelete:
		var req model.WorkspaceNameRequest
		if !decode(w, r, &req) {
			return
		}
		idx := s.findWorkspaceLocked(req.Name)
		if idx < 0 {
			writeError(w, 404, "workspace not found")
			return
		}
		if len(s.workspaces) == 1 {
			writeError(w, 400, "cannot delete the last workspace")
			return
		}
		wasCurrent := s.workspaces[idx].IsCurrent
		s.workspaces = append(s.workspaces[:idx:idx], s.workspaces[idx+1:]...)
		if wasCurrent {
			s.workspaces[0].IsCurrent = true
		}
		for _, img := range s.images[req.Name] {
			delete(s.blobs, img.Path)
		}
		delete(s.images, req.Name)
		writeData(w, nil)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		for i := range s.workspaces {
			if s.workspaces[i].IsCurrent {
				ws := s.workspaces[i]
				writeData(w, model.WorkspaceResponse{Workspace: &ws})
				return
			}
		}
		writeData(w, model.WorkspaceResponse{})
	case http.MethodPut:
		var req model.WorkspaceNameRequest
		if !decode(w, r, &req) {
			return
		}
		idx := s.findWorkspaceLocked(req.Name)
		if idx < 0 {
			writeError(w, 404, "workspace not found")
			return
		}
		for i := range s.workspaces {
			s.workspaces[i].IsCurrent = i == idx
		}
		ws := s.workspaces[idx]
		writeData(w, model.WorkspaceResponse{Workspace: &ws})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, 400, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, 400, "file required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, 400, "failed to read file")
		return
	}

	workspace := r.FormValue("workspace")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findWorkspaceLocked(workspace) < 0 {
		writeError(w, 404, "workspace not found")
		return
	}
	info := s.addImageLocked(workspace, model.ImageInfo{Name: header.Filename, SourceType: model.SourceUpload}, data)
	writeData(w, model.UploadResult{Path: info.Path, URL: info.URL})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	workspace := r.URL.Query().Get("workspace")
	writeData(w, model.ListImagesResponse{Images: append([]model.ImageInfo{}, s.images[workspace]...)})
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.DeleteImageRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete {
		writeError(w, 500, "delete failed")
		return
	}
	for ws, list := range s.images {
		for i := range list {
			if list[i].Path == req.Path {
				s.images[ws] = append(list[:i:i], list[i+1:]...)
				delete(s.blobs, req.Path)
				writeData(w, nil)
				return
			}
		}
	}
	writeError(w, 404, "image not found")
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.RenameImageRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRename {
		writeError(w, 500, "rename failed")
		return
	}
	list := s.images[req.Workspace]
	for i := range list {
		if list[i].Path != req.Path {
			continue
		}
		updated := list[i]
		updated.Name = req.NewName
		updated.Path = req.Workspace + "/" + req.NewName
		updated.URL = "/files/" + updated.Path
		updated.ThumbnailURL = updated.URL
		s.blobs[updated.Path] = s.blobs[req.Path]
		delete(s.blobs, req.Path)

		next := append([]model.ImageInfo(nil), list...)
		next[i] = updated
		s.images[req.Workspace] = next
		writeData(w, model.RenameImageResponse{Image: updated})
		return
	}
	writeError(w, 404, "image not found")
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.GenerateRequest
	if !decode(w, r, &req) {
		return
	}

	call := int(s.generateCalls.Add(1) - 1)
	s.mu.Lock()
	fn := s.generate
	s.mu.Unlock()

	result, err := fn(call, req)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}

	// successful image parts become workspace images, as the real backend does
	s.mu.Lock()
	for i, part := range result.Parts {
		if !part.IsImage() || req.Workspace == "" {
			continue
		}
		data, _ := base64.StdEncoding.DecodeString(part.Image.Data)
		info := s.addImageLocked(req.Workspace, model.ImageInfo{
			Name:       fmt.Sprintf("generated-%d-%d.png", call, i),
			Path:       part.Image.Path,
			SourceType: model.SourceGenerate,
			Prompt:     req.Prompt,
			RefImages:  req.Images,
			MessageList: []model.Message{
				{Role: model.RoleUser, Type: model.MessageText, Content: req.Prompt},
			},
		}, data)
		img := *part.Image
		img.Path = info.Path
		img.URL = info.URL
		result.Parts[i].Image = &img
	}
	s.mu.Unlock()

	writeData(w, result)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/files/")
	s.mu.Lock()
	data, ok := s.blobs[path]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Write(data)
}

func (s *Server) findWorkspaceLocked(name string) int {
	for i := range s.workspaces {
		if s.workspaces[i].Name == name {
			return i
		}
	}
	return -1
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, 400, "invalid request body")
		return false
	}
	return true
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"code": 0, "message": "success", "data": data})
}

// writeError answers 200 with a non-zero envelope code, as the backend does.
func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"code": code, "message": message})
}
