package cloudflare

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrConflict matches any *APIError that reports the resource already exists.
	ErrConflict = errors.New("cloudflare: resource already exists")

	// ErrNotFound matches any *APIError for a missing resource.
	ErrNotFound = errors.New("cloudflare: resource not found")

	// ErrConflictUnresolved is returned when the API reported a duplicate
	// custom hostname but the existing hostname could not be retrieved.
	ErrConflictUnresolved = errors.New("cloudflare: duplicate custom hostname could not be recovered")
)

// Cloudflare error codes that signal an existing resource.
var conflictCodes = map[int]bool{
	81053: true, // an A, AAAA, or CNAME record with that host already exists
	81057: true, // record already exists
	81058: true, // an identical record already exists
	1406:  true, // duplicate custom hostname found
	1407:  true, // custom hostname already exists
}

// The API does not always attach a code; these phrases are the fallback.
var conflictPhrases = []string{
	"already exists",
	"duplicate custom hostname",
}

// Codes returned for a custom hostname or record that does not exist.
var notFoundCodes = map[int]bool{
	1436:  true, // custom hostname not found
	81044: true, // record does not exist
}

// ErrorDetail is one entry of the envelope's errors array.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// APIError is a failed Cloudflare API call.
type APIError struct {
	StatusCode int
	Errors     []ErrorDetail
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("cloudflare: status %d", e.StatusCode)
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, d := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s (code %d)", d.Message, d.Code))
	}
	return fmt.Sprintf("cloudflare: status %d: %s", e.StatusCode, strings.Join(msgs, "; "))
}

// Message returns the provider messages joined for display.
func (e *APIError) Message() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, d := range e.Errors {
		msgs = append(msgs, d.Message)
	}
	return strings.Join(msgs, "; ")
}

// Is lets errors.Is classify an APIError against ErrConflict and ErrNotFound.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrConflict:
		return e.Conflict()
	case ErrNotFound:
		return e.NotFound()
	}
	return false
}

// Conflict reports whether the resource already exists.
func (e *APIError) Conflict() bool {
	if e.StatusCode == http.StatusConflict {
		return true
	}
	for _, d := range e.Errors {
		if conflictCodes[d.Code] {
			return true
		}
		msg := strings.ToLower(d.Message)
		for _, p := range conflictPhrases {
			if strings.Contains(msg, p) {
				return true
			}
		}
	}
	return false
}

// NotFound reports whether the resource is missing.
func (e *APIError) NotFound() bool {
	if e.StatusCode == http.StatusNotFound {
		return true
	}
	for _, d := range e.Errors {
		if notFoundCodes[d.Code] {
			return true
		}
	}
	return false
}
