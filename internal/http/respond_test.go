package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bilancio/internal/core"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "validation error",
			err:        &core.ValidationError{Field: "amount", Reason: "amount must be positive"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "not found error",
			err:        &core.NotFoundError{Entity: "person", ID: "p1"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "conflict error",
			err:        &core.ConflictError{Invariant: "single open period", Reason: "already open"},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "invalid state error",
			err:        &core.InvalidStateError{Op: "end period", Reason: "no open period"},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "wrapped domain error",
			err:        errors.Join(errors.New("commit failed"), &core.NotFoundError{Entity: "period", ID: "bp1"}),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown error",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)

			writeError(rec, req, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("response is not JSON: %v", err)
			}
			if body.Error == "" {
				t.Error("expected non-empty error message")
			}
			if tt.wantStatus == http.StatusInternalServerError && strings.Contains(body.Error, "disk") {
				t.Error("internal error details must not leak to the client")
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"name":"anna"}`))
		var p payload
		if err := decodeJSON(req, &p); err != nil {
			t.Fatalf("decodeJSON() error = %v", err)
		}
		if p.Name != "anna" {
			t.Errorf("Name = %q, want anna", p.Name)
		}
	})

	t.Run("empty body means defaults", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))
		var p payload
		if err := decodeJSON(req, &p); err != nil {
			t.Fatalf("decodeJSON() error = %v", err)
		}
		if p.Name != "" {
			t.Errorf("Name = %q, want empty", p.Name)
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"bogus":1}`))
		var p payload
		err := decodeJSON(req, &p)
		var validationErr *core.ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("malformed JSON rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"name":`))
		var p payload
		if err := decodeJSON(req, &p); err == nil {
			t.Fatal("expected error for malformed JSON")
		}
	})
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  hello  ", "hello"},
		{"with\x00control\x07chars", "withcontrolchars"},
		{"keeps\ttabs and\nnewlines", "keeps\ttabs and\nnewlines"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDateParam(t *testing.T) {
	d, err := parseDateParam("date", "2025-07-11")
	if err != nil {
		t.Fatalf("parseDateParam() error = %v", err)
	}
	if d.ISO() != "2025-07-11" {
		t.Errorf("date = %s, want 2025-07-11", d.ISO())
	}

	for _, bad := range []string{"", "11/07/2025", "2025-13-40"} {
		if _, err := parseDateParam("date", bad); err == nil {
			t.Errorf("parseDateParam(%q) expected error", bad)
		}
	}
}
