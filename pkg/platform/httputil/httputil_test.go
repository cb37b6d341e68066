package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "prospector/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("plain error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal" {
			t.Fatalf("expected error code internal, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for plain errors")
		}
	})

	t.Run("domain error includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInvalidArgument, "name, email and password are required"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "invalid_argument" {
			t.Fatalf("expected error code invalid_argument, got %q", body["error"])
		}
		if body["error_description"] != "name, email and password are required" {
			t.Fatalf("unexpected error_description %q", body["error_description"])
		}
	})

	t.Run("wrapped cause is not exposed", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Wrap(errors.New("pq: deadlock"), dErrors.CodeInternal, "failed to delete records"))

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error_description"] != "failed to delete records" {
			t.Fatalf("unexpected error_description %q", body["error_description"])
		}
	})
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("decodes a body within the limit", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ana"}`))
		var got payload
		if err := DecodeJSON(httptest.NewRecorder(), r, &got); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Name != "Ana" {
			t.Fatalf("expected name Ana, got %q", got.Name)
		}
	})

	t.Run("rejects a body over the limit", func(t *testing.T) {
		body := `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var got payload
		err := DecodeJSON(httptest.NewRecorder(), r, &got)
		var tooLarge *http.MaxBytesError
		if !errors.As(err, &tooLarge) {
			t.Fatalf("expected *http.MaxBytesError, got %v", err)
		}
	})
}
