// CLAUDE:SUMMARY Extraction collaborators for the server binary: remote JSON/HTTP engine and plain-text passthrough.
package main

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

// remoteEngine delegates extraction to an HTTP service speaking the
// same JSON shape as POST /api/extract, minus the plugin selection.
type remoteEngine struct {
	url    string
	client *http.Client
}

func newRemoteEngine(url string) *remoteEngine {
	return &remoteEngine{
		url:    strings.TrimRight(url, "/"),
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type engineRequest struct {
	Input    string         `json:"input"` // base64
	MimeType string         `json:"mime_type"`
	Config   map[string]any `json:"config,omitempty"`
}

func (e *remoteEngine) Extract(ctx context.Context, input []byte, mimeType string, config map[string]any) (*pipeline.Result, error) {
	body, err := json.Marshal(engineRequest{
		Input:    base64.StdEncoding.EncodeToString(input),
		MimeType: mimeType,
		Config:   config,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP POST %s: %w", e.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, e.url, string(respBody))
	}

	var res pipeline.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &res, nil
}

// passthroughExtract serves text/* inputs verbatim so the binary works
// standalone, without a remote engine.
func passthroughExtract(_ context.Context, input []byte, mimeType string, _ map[string]any) (*pipeline.Result, error) {
	mt := strings.ToLower(mimeType)
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if !strings.HasPrefix(mt, "text/") {
		return nil, fmt.Errorf("unsupported mime type %q (no engine configured)", mimeType)
	}
	return &pipeline.Result{Content: string(input), MimeType: mt}, nil
}
