package apiclient

import (
	"log/slog"
	"net/http"
	"time"
)

// Config holds configuration for the backend API client
type Config struct {
	BaseURL       string        // Base URL including the /api prefix
	Timeout       time.Duration // Timeout for JSON requests (generation can be slow)
	UploadTimeout time.Duration // Timeout for multipart uploads
	UserAgent     string        // Optional User-Agent header
	Logger        *slog.Logger  // Logger for debugging
	HTTPClient    *http.Client  // Optional transport override; its Timeout is ignored
}
