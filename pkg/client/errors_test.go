package client

import (
	"errors"
	"net/http"
	"testing"
)

func TestParseAPIError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		raw      string
		wantCode string
		wantMsg  string
	}{
		{"json body", http.StatusConflict, `{"error":"duplicate hostname","code":"Aborted"}`, CodeAborted, "duplicate hostname"},
		{"plain text", http.StatusServiceUnavailable, "upstream connect error\n", "", "upstream connect error"},
		{"empty body", http.StatusTooManyRequests, "", "", "Too Many Requests"},
		{"json without error", http.StatusBadRequest, `{"foo":"bar"}`, "", `{"foo":"bar"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := parseAPIError(tc.status, []byte(tc.raw))
			if e.StatusCode != tc.status || e.Code != tc.wantCode || e.Message != tc.wantMsg {
				t.Errorf("got %+v", e)
			}
		})
	}
}

func TestAPIError_IsNotFound(t *testing.T) {
	if !errors.Is(&APIError{StatusCode: http.StatusNotFound}, ErrNotFound) {
		t.Error("404 should match ErrNotFound")
	}
	if errors.Is(&APIError{StatusCode: http.StatusBadGateway, Code: CodeInternal}, ErrNotFound) {
		t.Error("502 should not match ErrNotFound")
	}
}
