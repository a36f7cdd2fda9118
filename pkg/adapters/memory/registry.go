package memory

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/script"
)

// Registry implements ports.ScriptRegistry with a map of built scripts.
// Safe for concurrent use; Replace swaps the whole set atomically.
type Registry struct {
	mu      sync.RWMutex
	scripts map[string]*script.Script
}

// NewRegistry creates a registry holding scripts.
func NewRegistry(scripts ...*script.Script) *Registry {
	r := &Registry{scripts: make(map[string]*script.Script)}
	r.Register(scripts...)
	return r
}

// Register adds or overwrites scripts by ID.
func (r *Registry) Register(scripts ...*script.Script) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range scripts {
		r.scripts[s.ID()] = s
	}
}

// Replace discards every registered script and installs scripts instead.
func (r *Registry) Replace(scripts ...*script.Script) {
	next := make(map[string]*script.Script, len(scripts))
	for _, s := range scripts {
		next[s.ID()] = s
	}
	r.mu.Lock()
	r.scripts = next
	r.mu.Unlock()
}

// Script returns the script registered under id.
func (r *Registry) Script(id string) (*script.Script, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scripts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrScriptNotFound, id)
	}
	return s, nil
}

// Scripts returns the registered IDs, sorted.
func (r *Registry) Scripts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.scripts))
}

// Validate checks that every child or replacement dialog referenced by a
// registered script exists, together with its start thread.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, id := range slices.Sorted(maps.Keys(r.scripts)) {
		for _, ref := range r.scripts[id].References() {
			target, ok := r.scripts[ref.ScriptID]
			if !ok {
				errs = append(errs, fmt.Errorf("script %q: %w: %s", id, domain.ErrScriptNotFound, ref.ScriptID))
				continue
			}
			if ref.Thread != "" && !target.HasThread(ref.Thread) {
				errs = append(errs, fmt.Errorf("script %q: %w: %s#%s", id, script.ErrUnknownThread, ref.ScriptID, ref.Thread))
			}
		}
	}
	return errors.Join(errs...)
}
