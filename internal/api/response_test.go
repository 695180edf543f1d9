// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fieldmap/internal/logging"
)

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestResponseWriter_Success(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(logging.ContextWithRequestID(req.Context(), "req-42"))
	rec := httptest.NewRecorder()

	NewResponseWriter(rec, req).Success(map[string]string{"key": "value"})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	resp := decodeResponse(t, rec)
	if !resp.Success || resp.Error != nil {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Meta == nil || resp.Meta.RequestID != "req-42" {
		t.Errorf("meta = %+v, want request id req-42", resp.Meta)
	}
	if resp.Meta.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestResponseWriter_SuccessList(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	NewResponseWriter(rec, req).SuccessList([]int{}, 0)

	resp := decodeResponse(t, rec)
	if resp.Meta.Count == nil || *resp.Meta.Count != 0 {
		t.Errorf("count = %v, want explicit 0", resp.Meta.Count)
	}
}

func TestResponseWriter_Errors(t *testing.T) {
	tests := []struct {
		name          string
		write         func(rw *ResponseWriter)
		wantStatus    int
		wantCode      string
		wantRetryable bool
	}{
		{"bad request", func(rw *ResponseWriter) { rw.BadRequest("nope") }, 400, ErrCodeBadRequest, false},
		{"not found", func(rw *ResponseWriter) { rw.NotFound("gone") }, 404, ErrCodeNotFound, false},
		{"too many", func(rw *ResponseWriter) { rw.TooManyRequests("slow") }, 429, ErrCodeTooManyRequests, true},
		{"internal", func(rw *ResponseWriter) { rw.InternalError("boom") }, 500, ErrCodeInternalError, true},
		{"unavailable", func(rw *ResponseWriter) { rw.ServiceUnavailable("later") }, 503, ErrCodeServiceUnavailable, true},
		{"validation", func(rw *ResponseWriter) { rw.ValidationError("bad", []string{"x"}) }, 400, ErrCodeValidationFailed, false},
		{"external", func(rw *ResponseWriter) { rw.ExternalServiceError("telemetry", http.ErrHandlerTimeout) }, 502, ErrCodeExternalServiceFail, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			tt.write(NewResponseWriter(rec, req))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			resp := decodeResponse(t, rec)
			if resp.Success || resp.Error == nil {
				t.Fatalf("resp = %+v", resp)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.wantCode)
			}
			if resp.Error.Retryable != tt.wantRetryable {
				t.Errorf("retryable = %v, want %v", resp.Error.Retryable, tt.wantRetryable)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	WriteError(rec, req, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "no")

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Error.Code != "METHOD_NOT_ALLOWED" {
		t.Errorf("code = %q", resp.Error.Code)
	}
}
