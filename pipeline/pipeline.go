// CLAUDE:SUMMARY Orchestrator running one request through pre-validation, extraction, staged post-processing, final validation.
// Package pipeline orchestrates plugin-driven document extraction.
//
// Callers register validators, staged post-processors and OCR backends on
// a Registry, then run requests through ExtractWithPlugins. The actual
// extraction is delegated to an external collaborator (ExtractFunc); the
// pipeline contributes the ordering, short-circuiting and fault isolation
// around it:
//
//  1. pre-validation    — first failure stops the run, extraction never happens
//  2. extraction        — the collaborator is invoked exactly once
//  3. post-processing   — stages early → middle → late, in order
//  4. final validation  — against the fully post-processed result
//
// Usage:
//
//	pipe, _ := pipeline.New(engine.Extract, pipeline.Config{})
//	pipe.Registry().RegisterValidator("size", sizeCheck, 100)
//	res, err := pipe.ExtractWithPlugins(ctx, data, "text/plain", nil, nil)
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/extpipe/idgen"
	"github.com/hazyhaar/extpipe/runlog"
)

// NamedValidator pairs an explicit validator handle with the name used
// in failure reporting. Handles bypass the registry entirely.
type NamedValidator struct {
	Name      string
	Validator Validator
}

// PluginOpts selects which plugins participate in one run.
//
// A nil slice (or, for post-processors, an absent stage key) means "use
// the registry's full ordered list for that phase"; a non-nil empty
// slice means "run none". This default-to-registry behaviour is what
// makes registered plugins take effect without per-call opt-in.
type PluginOpts struct {
	// Validators names registered pre-validators, in execution order.
	Validators []string `json:"validators,omitempty"`
	// ValidatorHandles are explicit pre-validator handles. When set they
	// take precedence over Validators.
	ValidatorHandles []NamedValidator `json:"-"`
	// PostProcessors overrides the processor selection per stage.
	PostProcessors map[Stage][]string `json:"post_processors,omitempty"`
	// FinalValidators names registered validators to run against the
	// post-processed result.
	FinalValidators []string `json:"final_validators,omitempty"`
}

// Pipeline runs extraction requests through registered plugins. Safe for
// concurrent use; runs share only the registry.
type Pipeline struct {
	cfg      Config
	registry *Registry
	extract  ExtractFunc
	logger   *slog.Logger
	newID    idgen.Generator
}

// New creates a Pipeline around the given extraction collaborator.
func New(extract ExtractFunc, cfg Config) (*Pipeline, error) {
	if extract == nil {
		return nil, errors.New("pipeline: extract function is required")
	}
	cfg.defaults()
	return &Pipeline{
		cfg:      cfg,
		registry: NewRegistry(),
		extract:  extract,
		logger:   cfg.Logger,
		newID:    idgen.Prefixed("run_", idgen.Default),
	}, nil
}

// Registry returns the pipeline's plugin registry.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// ExtractWithPlugins runs one request to completion or to first failure.
// With a nil opts and an empty registry the output is exactly the
// collaborator's output. Failures are returned as *Error.
func (p *Pipeline) ExtractWithPlugins(ctx context.Context, input []byte, mimeType string, config map[string]any, opts *PluginOpts) (*Result, error) {
	if p.cfg.MaxInputSize > 0 && int64(len(input)) > p.cfg.MaxInputSize {
		return nil, fmt.Errorf("pipeline: input too large: %d bytes (max %d)", len(input), p.cfg.MaxInputSize)
	}
	if opts == nil {
		opts = &PluginOpts{}
	}
	req := &Request{Input: input, MimeType: mimeType, Config: config}

	start := time.Now()
	res, err := p.run(ctx, req, opts)
	p.record(req, err, time.Since(start))
	return res, err
}

func (p *Pipeline) run(ctx context.Context, req *Request, opts *PluginOpts) (*Result, error) {
	for stage := range opts.PostProcessors {
		if _, err := ParseStage(string(stage)); err != nil {
			return nil, &Error{Kind: KindRegistration, Message: err.Error(), err: err}
		}
	}

	// Phase 1: pre-validation. Fail-closed: the collaborator is never
	// invoked once a validator rejects.
	pre, err := p.resolvePreValidators(opts)
	if err != nil {
		return nil, err
	}
	vc := &ValidationContext{Request: req}
	if err := p.runValidators(ctx, pre, vc); err != nil {
		return nil, err
	}

	// Phase 2: extraction, exactly once.
	res, err := p.runExtract(ctx, req)
	if err != nil {
		return nil, err
	}

	// Phase 3: staged post-processing.
	for _, stage := range Stages() {
		procs, err := p.resolveProcessors(stage, opts.PostProcessors)
		if err != nil {
			return nil, err
		}
		for _, e := range procs {
			res, err = p.runProcessor(ctx, e, res, req.Config)
			if err != nil {
				return nil, err
			}
		}
	}

	// Phase 4: final validation against the post-processed result.
	fin, err := p.resolveValidators(opts.FinalValidators)
	if err != nil {
		return nil, err
	}
	fvc := &ValidationContext{Request: req, Result: res}
	if err := p.runValidators(ctx, fin, fvc); err != nil {
		return nil, err
	}

	return res, nil
}

// resolvePreValidators honours explicit handles before named selection.
func (p *Pipeline) resolvePreValidators(opts *PluginOpts) ([]validatorEntry, error) {
	if opts.ValidatorHandles != nil {
		entries := make([]validatorEntry, len(opts.ValidatorHandles))
		for i, nv := range opts.ValidatorHandles {
			entries[i] = validatorEntry{name: nv.Name, handle: nv.Validator}
		}
		return entries, nil
	}
	return p.resolveValidators(opts.Validators)
}

func (p *Pipeline) resolveValidators(names []string) ([]validatorEntry, error) {
	if names == nil {
		return p.registry.validatorSnapshot(), nil
	}
	entries := make([]validatorEntry, 0, len(names))
	for _, name := range names {
		e, ok := p.registry.lookupValidator(name)
		if !ok {
			return nil, notRegistered("validator", name)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (p *Pipeline) resolveProcessors(stage Stage, selection map[Stage][]string) ([]processorEntry, error) {
	names, ok := selection[stage]
	if !ok {
		return p.registry.processorSnapshot(stage), nil
	}
	entries := make([]processorEntry, 0, len(names))
	for _, name := range names {
		e, ok := p.registry.lookupProcessor(stage, name)
		if !ok {
			return nil, notRegistered("post-processor", name)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (p *Pipeline) runValidators(ctx context.Context, entries []validatorEntry, vc *ValidationContext) error {
	for _, e := range entries {
		if err := p.runValidator(ctx, e, vc); err != nil {
			return err
		}
	}
	return nil
}

// runValidator invokes one validator with fault isolation: a panic in
// plugin code becomes a PluginFault instead of tearing down the run.
func (p *Pipeline) runValidator(ctx context.Context, e validatorEntry, vc *ValidationContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("validator panicked", "plugin", e.name, "panic", r)
			err = pluginFault(e.name, r)
		}
	}()
	if cv, ok := e.handle.(ConditionalValidator); ok && !cv.ShouldValidate(vc) {
		p.logger.Debug("validator skipped", "plugin", e.name)
		return nil
	}
	if verr := e.handle.Validate(ctx, vc); verr != nil {
		return validationFailed(e.name, verr)
	}
	return nil
}

// runExtract calls the collaborator once. Its errors come back verbatim
// as extraction failures; post-processing and final validation are
// bypassed entirely.
func (p *Pipeline) runExtract(ctx context.Context, req *Request) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("extraction engine panicked", "mime_type", req.MimeType, "panic", r)
			res, err = nil, extractionFailed(fmt.Errorf("panic: %v", r))
		}
	}()
	res, xerr := p.extract(ctx, req.Input, req.MimeType, req.Config)
	if xerr != nil {
		return nil, extractionFailed(xerr)
	}
	return res, nil
}

func (p *Pipeline) runProcessor(ctx context.Context, e processorEntry, res *Result, config map[string]any) (out *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("post-processor panicked", "plugin", e.name, "panic", r)
			out, err = nil, pluginFault(e.name, r)
		}
	}()
	out, perr := e.handle.Process(ctx, res, config)
	if perr != nil {
		return nil, postProcessingFailed(e.name, perr)
	}
	if out == nil {
		return nil, postProcessingFailed(e.name, errors.New("processor returned nil result"))
	}
	return out, nil
}

// record writes one run-audit row when a run log is configured.
func (p *Pipeline) record(req *Request, runErr error, dur time.Duration) {
	if p.cfg.RunLog == nil {
		return
	}
	e := &runlog.Entry{
		RunID:      p.newID(),
		MimeType:   req.MimeType,
		InputBytes: int64(len(req.Input)),
		Status:     "complete",
		DurationUS: dur.Microseconds(),
	}
	if runErr != nil {
		var perr *Error
		if errors.As(runErr, &perr) {
			e.Status = perr.Kind.String()
			e.Plugin = perr.Plugin
		} else {
			e.Status = "rejected"
		}
		e.Error = runErr.Error()
	}
	p.cfg.RunLog.RecordAsync(e)
}
