// CLAUDE:SUMMARY Remote OCR backend speaking JSON over HTTP.
package builtin

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/extpipe/pipeline"
)

// OCRConfig configures an HTTPOCRBackend.
type OCRConfig struct {
	// Endpoint is the OCR service base URL, e.g. "http://localhost:8804".
	Endpoint string `yaml:"endpoint"`
	// Languages lists the language codes the remote engine handles.
	Languages []string      `yaml:"languages"`
	Timeout   time.Duration `yaml:"timeout"`
}

// HTTPOCRBackend recognizes text through a remote OCR service over
// JSON/HTTP. The pipeline never calls OCR itself; extraction engines
// look backends up in the registry when a document needs them.
type HTTPOCRBackend struct {
	endpoint  string
	languages []string
	client    *http.Client
}

// NewHTTPOCRBackend creates a backend for the given service.
func NewHTTPOCRBackend(cfg OCRConfig) *HTTPOCRBackend {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &HTTPOCRBackend{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		languages: cfg.Languages,
		client:    &http.Client{Timeout: timeout},
	}
}

// ocrRequest is the JSON body sent to /v1/ocr.
type ocrRequest struct {
	Image    string `json:"image"` // base64
	Language string `json:"language,omitempty"`
}

type ocrResponse struct {
	Text string `json:"text"`
}

func (b *HTTPOCRBackend) Recognize(ctx context.Context, image []byte, language string) (string, error) {
	body, err := json.Marshal(ocrRequest{
		Image:    base64.StdEncoding.EncodeToString(image),
		Language: language,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := b.endpoint + "/v1/ocr"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, url, string(respBody))
	}

	var result ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return result.Text, nil
}

func (b *HTTPOCRBackend) SupportedLanguages() []string {
	out := make([]string, len(b.languages))
	copy(out, b.languages)
	return out
}

var _ pipeline.OcrBackend = (*HTTPOCRBackend)(nil)
