package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteError_Envelope(t *testing.T) {
	rr := httptest.NewRecorder()
	NotFound(rr, "NOT_FOUND", "Comment not found", "rid-1")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "NOT_FOUND" || resp.Error.RequestID != "rid-1" {
		t.Fatalf("unexpected envelope: %+v", resp.Error)
	}
}

func TestValidationFailed_Details(t *testing.T) {
	rr := httptest.NewRecorder()
	ValidationFailed(rr, "", map[string]string{"content": "Content is required"})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Details["content"] != "Content is required" {
		t.Fatalf("expected content detail, got %v", resp.Error.Details)
	}
}
