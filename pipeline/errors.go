// CLAUDE:SUMMARY Pipeline error taxonomy: validation, extraction, post-processing, plugin fault, registration.
package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidStage is returned when a stage name is not early, middle or late.
var ErrInvalidStage = errors.New("pipeline: invalid stage")

// ErrNotRegistered is returned when plugin options reference a name that
// is not present in the registry.
var ErrNotRegistered = errors.New("pipeline: plugin not registered")

// Kind discriminates pipeline failures.
type Kind int

const (
	// KindValidation: a pre- or final validator rejected the run.
	KindValidation Kind = iota + 1
	// KindExtraction: the extraction collaborator returned an error.
	KindExtraction
	// KindPostProcessing: a post-processor returned an error.
	KindPostProcessing
	// KindPluginFault: plugin code panicked instead of returning an error.
	KindPluginFault
	// KindRegistration: a registration or plugin selection was malformed.
	KindRegistration
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_failed"
	case KindExtraction:
		return "extraction_failed"
	case KindPostProcessing:
		return "post_processing_failed"
	case KindPluginFault:
		return "plugin_fault"
	case KindRegistration:
		return "invalid_registration"
	default:
		return "unknown"
	}
}

// Error is the single discriminated failure value a pipeline run
// produces: which phase failed, which named plugin failed (empty for
// extraction failures), and a human-readable message. It is created at
// the point of first failure; the run never continues past it.
type Error struct {
	Kind    Kind   `json:"kind"`
	Plugin  string `json:"plugin,omitempty"`
	Message string `json:"message"`
	err     error
}

func (e *Error) Error() string {
	if e.Plugin != "" {
		return fmt.Sprintf("pipeline: %s (plugin %s): %s", e.Kind, e.Plugin, e.Message)
	}
	return fmt.Sprintf("pipeline: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

func validationFailed(plugin string, cause error) *Error {
	return &Error{Kind: KindValidation, Plugin: plugin, Message: cause.Error(), err: cause}
}

func extractionFailed(cause error) *Error {
	return &Error{Kind: KindExtraction, Message: cause.Error(), err: cause}
}

func postProcessingFailed(plugin string, cause error) *Error {
	return &Error{Kind: KindPostProcessing, Plugin: plugin, Message: cause.Error(), err: cause}
}

// pluginFault converts a recovered panic value into an Error.
func pluginFault(plugin string, recovered any) *Error {
	return &Error{Kind: KindPluginFault, Plugin: plugin, Message: fmt.Sprintf("panic: %v", recovered)}
}

func notRegistered(category, name string) *Error {
	return &Error{
		Kind:    KindRegistration,
		Plugin:  name,
		Message: fmt.Sprintf("%s %q is not registered", category, name),
		err:     ErrNotRegistered,
	}
}
