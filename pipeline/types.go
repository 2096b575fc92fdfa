// CLAUDE:SUMMARY Request, Result and plugin contract types shared by the registry and the orchestrator.
package pipeline

import "context"

// Request carries one extraction request through the pipeline. It is
// immutable for the duration of a run and never shared across runs.
type Request struct {
	Input    []byte
	MimeType string
	Config   map[string]any
}

// Result is the output of the extraction collaborator, threaded through
// post-processors and final validators. Processors receive the current
// value and return a (possibly new) value of the same shape.
type Result struct {
	Content           string         `json:"content"`
	MimeType          string         `json:"mime_type"`
	Metadata          map[string]any `json:"metadata"`
	Tables            []Table        `json:"tables"`
	DetectedLanguages []string       `json:"detected_languages,omitempty"`
	Chunks            []Chunk        `json:"chunks,omitempty"`
	Images            []Image        `json:"images,omitempty"`
	Pages             []Page         `json:"pages,omitempty"`
}

// Table is tabular content recovered by the extraction engine.
type Table struct {
	Cells      [][]string `json:"cells,omitempty"`
	Markdown   string     `json:"markdown,omitempty"`
	PageNumber int        `json:"page_number"`
}

// Chunk is one segment of chunked content.
type Chunk struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// Image is an embedded image surfaced by the extraction engine.
type Image struct {
	Data       []byte `json:"data,omitempty"`
	Format     string `json:"format,omitempty"`
	PageNumber int    `json:"page_number"`
}

// Page is per-page content when the engine preserves pagination.
type Page struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

// ValidationContext is what validators see. Request is always set.
// Result is nil during pre-validation and set during final validation,
// which is how a validator distinguishes the two phases.
type ValidationContext struct {
	Request *Request
	Result  *Result
}

// ExtractFunc is the extraction collaborator: the external engine that
// performs the actual document extraction. The orchestrator calls it
// exactly once per successful pre-validation and treats it as opaque.
type ExtractFunc func(ctx context.Context, input []byte, mimeType string, config map[string]any) (*Result, error)
