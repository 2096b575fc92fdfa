package builtin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPOCRBackend_Recognize(t *testing.T) {
	var got ocrRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/ocr" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		json.NewEncoder(w).Encode(ocrResponse{Text: "recognized text"})
	}))
	defer srv.Close()

	b := NewHTTPOCRBackend(OCRConfig{Endpoint: srv.URL, Languages: []string{"eng", "fra"}})

	text, err := b.Recognize(context.Background(), []byte("image bytes"), "eng")
	if err != nil {
		t.Fatal(err)
	}
	if text != "recognized text" {
		t.Errorf("text = %q", text)
	}
	if got.Language != "eng" {
		t.Errorf("language = %q", got.Language)
	}
	img, _ := base64.StdEncoding.DecodeString(got.Image)
	if string(img) != "image bytes" {
		t.Errorf("image payload = %q", img)
	}
}

func TestHTTPOCRBackend_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "engine overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	b := NewHTTPOCRBackend(OCRConfig{Endpoint: srv.URL})
	if _, err := b.Recognize(context.Background(), []byte("x"), ""); err == nil {
		t.Fatal("expected error on HTTP 503")
	}
}

func TestHTTPOCRBackend_SupportedLanguages(t *testing.T) {
	b := NewHTTPOCRBackend(OCRConfig{Languages: []string{"eng"}})
	langs := b.SupportedLanguages()
	if len(langs) != 1 || langs[0] != "eng" {
		t.Fatalf("languages: %v", langs)
	}
	// Returned slice is a copy.
	langs[0] = "mutated"
	if b.SupportedLanguages()[0] != "eng" {
		t.Error("internal language list was mutated through the returned slice")
	}
}
