// CLAUDE:SUMMARY Plugin capability interfaces (Validator, PostProcessor, OcrBackend) and the Stage enum.
package pipeline

import (
	"context"
	"fmt"
)

// Stage is a post-processing phase. Stages always execute in the fixed
// order early → middle → late.
type Stage string

const (
	StageEarly  Stage = "early"
	StageMiddle Stage = "middle"
	StageLate   Stage = "late"
)

// Stages returns the three stages in execution order.
func Stages() []Stage {
	return []Stage{StageEarly, StageMiddle, StageLate}
}

// ParseStage converts a string into a Stage.
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageEarly, StageMiddle, StageLate:
		return Stage(s), nil
	}
	return "", fmt.Errorf("%w: %q (expected early, middle or late)", ErrInvalidStage, s)
}

// Validator approves or rejects proceeding with a run. Registered
// validators run before extraction (Result nil) and, when selected as
// final validators, again on the post-processed result. A non-nil error
// rejects the run.
//
// Name, priority and stage are registration metadata, not plugin state:
// they are passed to the Registry, so the same handle can be registered
// under several names.
type Validator interface {
	Validate(ctx context.Context, vc *ValidationContext) error
}

// ConditionalValidator is an optional extension. When implemented and
// ShouldValidate returns false, the validator is skipped without
// counting as success or failure.
type ConditionalValidator interface {
	Validator
	ShouldValidate(vc *ValidationContext) bool
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(ctx context.Context, vc *ValidationContext) error

func (f ValidatorFunc) Validate(ctx context.Context, vc *ValidationContext) error {
	return f(ctx, vc)
}

// PostProcessor transforms an extraction result after a successful
// extraction. It receives the output of the previous processor and
// returns a replacement result; returning the input unchanged is valid.
type PostProcessor interface {
	Process(ctx context.Context, res *Result, config map[string]any) (*Result, error)
}

// PostProcessorFunc adapts a function to the PostProcessor interface.
type PostProcessorFunc func(ctx context.Context, res *Result, config map[string]any) (*Result, error)

func (f PostProcessorFunc) Process(ctx context.Context, res *Result, config map[string]any) (*Result, error) {
	return f(ctx, res, config)
}

// OcrBackend recognizes text in an image. Backends are held by the
// Registry for the extraction engine to look up; the orchestrator never
// invokes them directly.
type OcrBackend interface {
	Recognize(ctx context.Context, image []byte, language string) (string, error)
	SupportedLanguages() []string
}
