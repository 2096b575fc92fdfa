// CLAUDE:SUMMARY HTTP ops surface: extraction endpoint, plugin listing, run audit log, health check.
// Package httpapi exposes the extraction pipeline over HTTP. Plugin
// registration stays in-process; the API only selects among plugins
// already registered by the host program.
package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/extpipe/pipeline"
	"github.com/hazyhaar/extpipe/runlog"
)

// Server wires the pipeline and its run log behind a chi router.
type Server struct {
	pipe     *pipeline.Pipeline
	runs     *runlog.Store
	authHash string
	logger   *slog.Logger
}

// Options configures optional server behaviour.
type Options struct {
	// Runs enables GET /api/runs when set.
	Runs *runlog.Store
	// AuthHash protects /api/* with Basic Auth when set. It is a bcrypt
	// hash of the expected password; the user part is ignored.
	AuthHash string
	Logger   *slog.Logger
}

// New creates a Server around the given pipeline.
func New(pipe *pipeline.Pipeline, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{pipe: pipe, runs: opts.Runs, authHash: opts.AuthHash, logger: logger}
}

// Router builds the HTTP routing tree. When an auth hash is configured
// the /api group requires Basic Auth; /healthz never does.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if s.authHash != "" {
			r.Use(basicAuth(s.authHash, s.logger))
		}
		r.Post("/api/extract", s.handleExtract)
		r.Get("/api/plugins", s.handlePlugins)
		r.Get("/api/runs", s.handleRuns)
	})

	return r
}

// extractRequest is the JSON body of POST /api/extract.
type extractRequest struct {
	// Input is the document content, base64-encoded.
	Input    string               `json:"input"`
	MimeType string               `json:"mime_type"`
	Config   map[string]any       `json:"config,omitempty"`
	Plugins  *pipeline.PluginOpts `json:"plugins,omitempty"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	if req.MimeType == "" {
		writeJSON(w, 400, map[string]string{"error": "mime_type is required"})
		return
	}
	input, err := base64.StdEncoding.DecodeString(req.Input)
	if err != nil {
		writeJSON(w, 400, map[string]string{"error": "input must be base64"})
		return
	}

	res, err := s.pipe.ExtractWithPlugins(r.Context(), input, req.MimeType, req.Config, req.Plugins)
	if err != nil {
		var perr *pipeline.Error
		if errors.As(err, &perr) {
			writeJSON(w, 422, map[string]string{
				"error":  perr.Message,
				"kind":   perr.Kind.String(),
				"plugin": perr.Plugin,
			})
			return
		}
		writeError(w, 400, err)
		return
	}
	writeJSON(w, 200, res)
}

func (s *Server) handlePlugins(w http.ResponseWriter, _ *http.Request) {
	reg := s.pipe.Registry()
	processors := map[string][]string{}
	for _, stage := range pipeline.Stages() {
		processors[string(stage)] = reg.ListPostProcessors(stage)
	}
	writeJSON(w, 200, map[string]any{
		"validators":      reg.ListValidators(),
		"post_processors": processors,
		"ocr_backends":    reg.ListOcrBackends(),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeJSON(w, 404, map[string]string{"error": "run log not configured"})
		return
	}
	limit := queryInt(r, "limit", 50)
	entries, err := s.runs.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, map[string]any{"runs": entries})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
