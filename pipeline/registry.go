// CLAUDE:SUMMARY Concurrency-safe plugin registry: validators by priority, post-processors by stage, OCR backends.
package pipeline

import (
	"fmt"
	"sort"
	"sync"
)

// ValidatorInfo is one row of a validator listing.
type ValidatorInfo struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

type validatorEntry struct {
	name     string
	handle   Validator
	priority int
	seq      uint64
}

type processorEntry struct {
	name   string
	handle PostProcessor
}

type ocrEntry struct {
	name   string
	handle OcrBackend
}

// Registry stores registered plugins. It starts empty, is mutated only
// through the Register/Unregister/Clear methods, and is safe for
// concurrent use: writers are serialized, readers take consistent
// snapshots and never hold the lock across plugin calls.
//
// Names are unique within each category. Re-registering a name replaces
// the prior entry atomically, keeping its position in the ordering.
type Registry struct {
	mu         sync.RWMutex
	seq        uint64
	validators []validatorEntry
	processors map[Stage][]processorEntry
	ocr        []ocrEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{processors: make(map[Stage][]processorEntry)}
}

// --- Validators ---

// RegisterValidator inserts or replaces a validator. Higher priority runs
// first; ties run in registration order. Replacing keeps the original
// registration order but applies the new priority and handle.
func (r *Registry) RegisterValidator(name string, handle Validator, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.validators {
		if r.validators[i].name == name {
			r.validators[i].handle = handle
			r.validators[i].priority = priority
			return
		}
	}
	r.seq++
	r.validators = append(r.validators, validatorEntry{name: name, handle: handle, priority: priority, seq: r.seq})
}

// UnregisterValidator removes a validator by name. No-op if absent.
func (r *Registry) UnregisterValidator(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.validators {
		if r.validators[i].name == name {
			r.validators = append(r.validators[:i], r.validators[i+1:]...)
			return
		}
	}
}

// ClearValidators removes all validators.
func (r *Registry) ClearValidators() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators = nil
}

// ListValidators returns a snapshot of registered validators, sorted by
// priority descending, ties broken by registration order.
func (r *Registry) ListValidators() []ValidatorInfo {
	entries := r.validatorSnapshot()
	infos := make([]ValidatorInfo, len(entries))
	for i, e := range entries {
		infos[i] = ValidatorInfo{Name: e.name, Priority: e.priority}
	}
	return infos
}

// validatorSnapshot copies the validator list in execution order.
func (r *Registry) validatorSnapshot() []validatorEntry {
	r.mu.RLock()
	entries := make([]validatorEntry, len(r.validators))
	copy(entries, r.validators)
	r.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority > entries[j].priority
		}
		return entries[i].seq < entries[j].seq
	})
	return entries
}

func (r *Registry) lookupValidator(name string) (validatorEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.validators {
		if e.name == name {
			return e, true
		}
	}
	return validatorEntry{}, false
}

// --- Post-processors ---

// RegisterPostProcessor inserts or replaces a post-processor in the given
// stage. Insertion appends to the stage's ordered list; replacement keeps
// the existing position. A malformed stage is rejected with ErrInvalidStage
// and nothing is stored.
func (r *Registry) RegisterPostProcessor(stage Stage, name string, handle PostProcessor) error {
	if _, err := ParseStage(string(stage)); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.processors[stage]
	for i := range list {
		if list[i].name == name {
			list[i].handle = handle
			return nil
		}
	}
	r.processors[stage] = append(list, processorEntry{name: name, handle: handle})
	return nil
}

// UnregisterPostProcessor removes a post-processor by name from a stage.
// No-op if absent or if the stage is malformed.
func (r *Registry) UnregisterPostProcessor(stage Stage, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.processors[stage]
	for i := range list {
		if list[i].name == name {
			r.processors[stage] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// ClearPostProcessors removes all post-processors from all stages.
func (r *Registry) ClearPostProcessors() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors = make(map[Stage][]processorEntry)
}

// ListPostProcessors returns the names registered for a stage in
// insertion order.
func (r *Registry) ListPostProcessors(stage Stage) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.processors[stage]
	names := make([]string, len(list))
	for i, e := range list {
		names[i] = e.name
	}
	return names
}

func (r *Registry) processorSnapshot(stage Stage) []processorEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.processors[stage]
	entries := make([]processorEntry, len(list))
	copy(entries, list)
	return entries
}

func (r *Registry) lookupProcessor(stage Stage, name string) (processorEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.processors[stage] {
		if e.name == name {
			return e, true
		}
	}
	return processorEntry{}, false
}

// --- OCR backends ---

// RegisterOcrBackend inserts or replaces an OCR backend.
func (r *Registry) RegisterOcrBackend(name string, handle OcrBackend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.ocr {
		if r.ocr[i].name == name {
			r.ocr[i].handle = handle
			return
		}
	}
	r.ocr = append(r.ocr, ocrEntry{name: name, handle: handle})
}

// UnregisterOcrBackend removes an OCR backend by name. No-op if absent.
func (r *Registry) UnregisterOcrBackend(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.ocr {
		if r.ocr[i].name == name {
			r.ocr = append(r.ocr[:i], r.ocr[i+1:]...)
			return
		}
	}
}

// ClearOcrBackends removes all OCR backends.
func (r *Registry) ClearOcrBackends() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ocr = nil
}

// ListOcrBackends returns backend names in registration order.
func (r *Registry) ListOcrBackends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.ocr))
	for i, e := range r.ocr {
		names[i] = e.name
	}
	return names
}

// OcrBackend returns a registered backend by name, for callers (typically
// the extraction engine) that dispatch OCR work.
func (r *Registry) OcrBackend(name string) (OcrBackend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.ocr {
		if e.name == name {
			return e.handle, nil
		}
	}
	return nil, fmt.Errorf("%w: ocr backend %q", ErrNotRegistered, name)
}
