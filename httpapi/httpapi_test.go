package httpapi

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/extpipe/pipeline"
	"github.com/hazyhaar/extpipe/runlog"
)

func echoEngine(_ context.Context, input []byte, mimeType string, _ map[string]any) (*pipeline.Result, error) {
	return &pipeline.Result{Content: string(input), MimeType: mimeType}, nil
}

func newTestServer(t *testing.T, opts Options) (*pipeline.Pipeline, http.Handler) {
	t.Helper()
	pipe, err := pipeline.New(echoEngine, pipeline.Config{})
	if err != nil {
		t.Fatal(err)
	}
	return pipe, New(pipe, opts).Router()
}

func postExtract(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/extract", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	_, h := newTestServer(t, Options{})
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestExtract_OK(t *testing.T) {
	_, h := newTestServer(t, Options{})
	body, _ := json.Marshal(map[string]any{
		"input":     base64.StdEncoding.EncodeToString([]byte("hello")),
		"mime_type": "text/plain",
	})
	w := postExtract(t, h, string(body))
	if w.Code != 200 {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}

	var res pipeline.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Content != "hello" {
		t.Errorf("content = %q", res.Content)
	}
}

func TestExtract_BadRequests(t *testing.T) {
	_, h := newTestServer(t, Options{})

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{not json"},
		{"missing mime type", `{"input":"aGk="}`},
		{"bad base64", `{"input":"%%","mime_type":"text/plain"}`},
	}
	for _, tt := range tests {
		w := postExtract(t, h, tt.body)
		if w.Code != 400 {
			t.Errorf("%s: status = %d, want 400", tt.name, w.Code)
		}
	}
}

func TestExtract_PipelineFailure(t *testing.T) {
	pipe, h := newTestServer(t, Options{})
	pipe.Registry().RegisterValidator("v", pipeline.ValidatorFunc(
		func(context.Context, *pipeline.ValidationContext) error {
			return errors.New("too small")
		}), 0)

	body, _ := json.Marshal(map[string]any{
		"input":     base64.StdEncoding.EncodeToString([]byte("x")),
		"mime_type": "text/plain",
	})
	w := postExtract(t, h, string(body))
	if w.Code != 422 {
		t.Fatalf("status = %d, want 422", w.Code)
	}

	var resp struct {
		Error  string `json:"error"`
		Kind   string `json:"kind"`
		Plugin string `json:"plugin"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Kind != "validation_failed" || resp.Plugin != "v" || resp.Error != "too small" {
		t.Errorf("failure body: %+v", resp)
	}
}

func TestPlugins(t *testing.T) {
	pipe, h := newTestServer(t, Options{})
	pipe.Registry().RegisterValidator("size", pipeline.ValidatorFunc(
		func(context.Context, *pipeline.ValidationContext) error { return nil }), 5)

	req := httptest.NewRequest("GET", "/api/plugins", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Validators []pipeline.ValidatorInfo `json:"validators"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Validators) != 1 || resp.Validators[0].Name != "size" {
		t.Errorf("validators: %+v", resp.Validators)
	}
}

func TestRuns(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := runlog.NewStore(db)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	store.RecordAsync(&runlog.Entry{RunID: "run_1", MimeType: "text/plain", Status: "complete"})
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	_, h := newTestServer(t, Options{Runs: store})
	req := httptest.NewRequest("GET", "/api/runs?limit=10", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}

	var resp struct {
		Runs []runlog.Entry `json:"runs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Runs) != 1 || resp.Runs[0].RunID != "run_1" {
		t.Errorf("runs: %+v", resp.Runs)
	}
}

func TestRuns_NotConfigured(t *testing.T) {
	_, h := newTestServer(t, Options{})
	req := httptest.NewRequest("GET", "/api/runs", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != 404 {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	_, h := newTestServer(t, Options{AuthHash: string(hash)})

	// No credentials.
	req := httptest.NewRequest("GET", "/api/plugins", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("unauthenticated: status = %d, want 401", w.Code)
	}

	// Wrong password.
	req = httptest.NewRequest("GET", "/api/plugins", nil)
	req.SetBasicAuth("ops", "wrong")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("wrong password: status = %d, want 401", w.Code)
	}

	// Correct password.
	req = httptest.NewRequest("GET", "/api/plugins", nil)
	req.SetBasicAuth("ops", "s3cret")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("authenticated: status = %d, want 200", w.Code)
	}

	// Health never requires auth.
	req = httptest.NewRequest("GET", "/healthz", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("healthz: status = %d", w.Code)
	}
}
