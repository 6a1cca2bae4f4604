package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	defaultBaseURL       = "http://localhost:8080/api"
	defaultTimeout       = 120 * time.Second
	defaultUploadTimeout = 60 * time.Second
)

// FilePart is a file attached to a multipart upload
type FilePart struct {
	Name     string
	MimeType string
	Data     []byte
}

// Client is the backend API client. It has two configurations: JSON requests
// with a long timeout suitable for generation, and multipart uploads.
type Client struct {
	config       Config
	httpClient   *http.Client
	uploadClient *http.Client
	logger       *slog.Logger
	baseURL      string
}

// NewClient creates a new backend API client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.UploadTimeout == 0 {
		config.UploadTimeout = defaultUploadTimeout
	}

	var transport http.RoundTripper
	if config.HTTPClient != nil {
		transport = config.HTTPClient.Transport
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api_client")

	return &Client{
		config:       config,
		httpClient:   &http.Client{Timeout: config.Timeout, Transport: transport},
		uploadClient: &http.Client{Timeout: config.UploadTimeout, Transport: transport},
		logger:       logger,
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
	}
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send issues a JSON request and decodes the envelope's data into out (which may be nil).
// A body is sent for any method, including DELETE.
func (c *Client) Send(ctx context.Context, method, path string, body any, query url.Values, out any) error {
	logger := c.logger.With("method", method, "path", path)
	logger.Debug("sending request")

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			logger.Error("failed to marshal request", "error", err)
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := c.newRequest(ctx, method, path, query, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(c.httpClient, req, path, out)
}

// Upload issues a multipart request with the given form fields and one file under "file".
func (c *Client) Upload(ctx context.Context, path string, fields map[string]string, file FilePart, out any) error {
	logger := c.logger.With("method", http.MethodPost, "path", path, "file", file.Name, "size", len(file.Data))
	logger.Debug("sending upload")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	// deterministic field order keeps request bodies stable
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := writer.WriteField(k, fields[k]); err != nil {
			return fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(file.Name)))
	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, nil, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(c.uploadClient, req, path, out)
}

// Fetch downloads raw bytes from an absolute URL or a path relative to the base URL.
// It returns the body and its Content-Type.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	target, err := c.resolveURL(rawURL)
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", &RequestError{Method: http.MethodGet, Path: rawURL, Message: DefaultErrorMessage, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &RequestError{
			Method:     http.MethodGet,
			Path:       rawURL,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("download failed with status %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read download: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// newRequest creates a new HTTP request against the base URL.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	return req, nil
}

// do performs the request and unwraps the envelope.
func (c *Client) do(httpClient *http.Client, req *http.Request, path string, out any) error {
	logger := c.logger.With("method", req.Method, "path", path)
	start := time.Now()

	resp, err := httpClient.Do(req)
	if err != nil {
		logger.Error("request failed", "error", err)
		return &RequestError{Method: req.Method, Path: path, Message: DefaultErrorMessage, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("failed to read response", "error", err)
		return &RequestError{Method: req.Method, Path: path, StatusCode: resp.StatusCode, Message: DefaultErrorMessage, Cause: err}
	}

	logger.Debug("received response", "status_code", resp.StatusCode, "duration", time.Since(start))
	return c.handleResponse(req.Method, path, resp.StatusCode, body, out)
}

// handleResponse decodes the {code, message, data} envelope.
func (c *Client) handleResponse(method, path string, statusCode int, body []byte, out any) error {
	success := statusCode >= 200 && statusCode < 300

	var env struct {
		Envelope
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		if !success {
			return &RequestError{
				Method:     method,
				Path:       path,
				StatusCode: statusCode,
				Message:    fmt.Sprintf("%s (status %d)", DefaultErrorMessage, statusCode),
			}
		}
		return &RequestError{
			Method:     method,
			Path:       path,
			StatusCode: statusCode,
			Message:    "failed to decode response",
			Cause:      err,
		}
	}

	if env.Code != 0 || !success {
		message := env.Message
		if message == "" {
			message = DefaultErrorMessage
		}
		c.logger.Warn("API returned an error", "method", method, "path", path, "status_code", statusCode, "code", env.Code, "message", message)
		return &RequestError{
			Method:     method,
			Path:       path,
			StatusCode: statusCode,
			Code:       env.Code,
			Message:    message,
		}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &RequestError{
			Method:     method,
			Path:       path,
			StatusCode: statusCode,
			Message:    "failed to decode response",
			Cause:      err,
		}
	}
	return nil
}

// resolveURL resolves rawURL against the base URL when it is not absolute.
func (c *Client) resolveURL(rawURL string) (string, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if ref.IsAbs() {
		return rawURL, nil
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", c.baseURL, err)
	}
	return base.ResolveReference(ref).String(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
