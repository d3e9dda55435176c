package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Failure kinds reported in the "code" field of error responses.
const (
	CodeInvalidArgument    = "InvalidArgument"
	CodeUnauthenticated    = "Unauthenticated"
	CodePermissionDenied   = "PermissionDenied"
	CodeNotFound           = "NotFound"
	CodeFailedPrecondition = "FailedPrecondition"
	CodeAborted            = "Aborted"
	CodeInternal           = "Internal"
	CodeResourceExhausted  = "ResourceExhausted"
)

// ErrNotFound matches an *APIError with code NotFound.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("domain service: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("domain service: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && (e.Code == CodeNotFound || e.StatusCode == http.StatusNotFound)
}

// Upstream reports whether the service blamed an external provider.
func (e *APIError) Upstream() bool {
	return e.StatusCode == http.StatusBadGateway
}

// CodeOf returns the failure kind of err, or "" if err is not an *APIError.
func CodeOf(err error) string {
	var e *APIError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func parseAPIError(status int, raw []byte) *APIError {
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return &APIError{StatusCode: status, Code: body.Code, Message: body.Error}
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}
