package apiclient

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// DefaultErrorMessage is used when the server gives no message
const DefaultErrorMessage = "request failed"

// Common error variables
var (
	// ErrEmptyResponse indicates the envelope carried no data where data was expected
	ErrEmptyResponse = errors.New("empty response from API")

	// ErrNotImage indicates an upload whose content is not an image
	ErrNotImage = errors.New("file is not an image")
)

// Envelope is the response wrapper used by every endpoint: {"code":0,"message":"","data":{}}
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RequestError is returned when the network call fails, the server answers with a
// non-2xx status, or the envelope code is not zero.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int // 0 when the request never got a response
	Code       int // envelope code, 0 when absent
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Cause != nil && e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *RequestError) Unwrap() error {
	return e.Cause
}

// IsNetworkError reports whether the request failed before a response arrived.
func (e *RequestError) IsNetworkError() bool {
	return e.StatusCode == 0 && e.Cause != nil
}

// IsServerError returns true for 5xx responses.
func (e *RequestError) IsServerError() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// ValidationError represents input rejected client-side, before any network call.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// BatchError aggregates the failed slots of a generation batch.
type BatchError struct {
	Failed int
	Total  int
	Errors []error
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.Failed == 1 {
		return "1 image failed to generate"
	}
	return fmt.Sprintf("%d images failed to generate", e.Failed)
}

// Add records a slot failure.
func (e *BatchError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
		e.Failed++
	}
}

// HasErrors returns true if there are any errors.
func (e *BatchError) HasErrors() bool {
	return e.Failed > 0
}

// Unwrap returns the errors slice.
func (e *BatchError) Unwrap() []error {
	return e.Errors
}

// IsRequestError reports whether err is or wraps a *RequestError.
func IsRequestError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}

// DisplayMessage coerces any error into a string suitable for a banner.
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Message
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Message != "" {
			return reqErr.Message
		}
		return DefaultErrorMessage
	}

	var batchErr *BatchError
	if errors.As(err, &batchErr) {
		return batchErr.Error()
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return "unexpected error"
}

// ErrorHandler provides centralized error logging.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger: logger.With("component", "error_handler"),
	}
}

// Handle logs err according to its type and returns it unchanged.
func (eh *ErrorHandler) Handle(err error, operation string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}

	logAttrs := []any{"operation", operation, "error", err.Error()}
	for _, attr := range attrs {
		logAttrs = append(logAttrs, attr.Key, attr.Value)
	}

	var (
		reqErr   *RequestError
		valErr   *ValidationError
		batchErr *BatchError
	)
	switch {
	case errors.As(err, &valErr):
		eh.logger.Warn("validation error", logAttrs...)
	case errors.As(err, &batchErr):
		eh.logger.Warn("generation batch had failures", append(logAttrs, "failed", batchErr.Failed, "total", batchErr.Total)...)
	case errors.As(err, &reqErr):
		if reqErr.IsNetworkError() {
			eh.logger.Error("network error", logAttrs...)
		} else {
			eh.logger.Error("API error", append(logAttrs, "status_code", reqErr.StatusCode, "code", reqErr.Code)...)
		}
	default:
		eh.logger.Error("error occurred", logAttrs...)
	}

	return err
}
