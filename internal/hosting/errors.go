package hosting

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConflict matches an *APIError for a custom domain that already exists.
	ErrConflict = errors.New("hosting: custom domain already exists")

	// ErrNotFound matches an *APIError for a missing custom domain.
	ErrNotFound = errors.New("hosting: custom domain not found")
)

// APIError is a failed Firebase Hosting API call. The body follows the
// Google API error shape {"error":{"code","message","status"}}.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("hosting: status %d", e.StatusCode)
	}
	if e.Status != "" {
		return fmt.Sprintf("hosting: status %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("hosting: status %d: %s", e.StatusCode, e.Message)
}

// Is maps HTTP 409 to ErrConflict and HTTP 404 to ErrNotFound.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrConflict:
		return e.StatusCode == http.StatusConflict || e.Status == "ALREADY_EXISTS"
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound || e.Status == "NOT_FOUND"
	}
	return false
}
