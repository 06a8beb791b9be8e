package observability

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLogger_EmitsJSONLines(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf)

	logger.Info("something_happened", map[string]any{"count": 3})

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log line is not JSON: %v (line %q)", err, buf.String())
	}
	if record["level"] != "info" || record["message"] != "something_happened" {
		t.Fatalf("unexpected record: %v", record)
	}
	if record["count"] != float64(3) {
		t.Fatalf("field lost: %v", record)
	}
	if _, ok := record["timestamp"]; !ok {
		t.Fatalf("record has no timestamp: %v", record)
	}
}

func TestRequestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf)

	handler := RequestLoggingMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/login", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if record["message"] != "http_request" || record["path"] != "/api/login" {
		t.Fatalf("unexpected record: %v", record)
	}
	if record["status"] != float64(http.StatusTeapot) {
		t.Fatalf("status not captured from WriteHeader: %v", record)
	}
	if record["ip"] != "203.0.113.9" {
		t.Fatalf("forwarded ip not used: %v", record)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf)

	handler := RecoverMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/login", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Error string `json:"error"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("panic response is not the JSON envelope: %v (body %q)", err, rec.Body.String())
	}
	if body.Success || body.Error.Error != "internal_server_error" {
		t.Fatalf("unexpected panic body: %s", rec.Body.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("panic_recovered")) {
		t.Fatalf("panic was not logged: %q", buf.String())
	}
}
