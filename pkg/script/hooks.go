package script

import (
	"context"
	"maps"
	"slices"
)

// StepContext is the narrow mutation surface handed to hooks and custom
// branch handlers. Redirects requested through it are applied by the engine
// once the handler returns.
type StepContext interface {
	// Thread is the thread being executed.
	Thread() string
	// Index is the line being executed.
	Index() int
	// GotoThread redirects execution to index 0 of thread.
	GotoThread(thread string)
	// Repeat redirects execution to the previous line.
	Repeat()
	// SetVariable stores a value in the dialog's variable bag.
	SetVariable(key string, value any)
	// Variable reads a value from the variable bag.
	Variable(key string) (any, bool)
}

// BeforeHandler runs when a thread is entered, before its first line.
type BeforeHandler func(ctx context.Context, sc StepContext) error

// ChangeHandler runs after a captured reply is stored under its key.
type ChangeHandler func(ctx context.Context, value any, sc StepContext) error

// AfterHandler runs once the dialog completes, with its final variables.
// The map is a copy; changes are not written back.
type AfterHandler func(ctx context.Context, vars map[string]any) error

type hooks struct {
	before map[string][]BeforeHandler
	change map[string][]ChangeHandler
	after  []AfterHandler
}

func newHooks() hooks {
	return hooks{
		before: make(map[string][]BeforeHandler),
		change: make(map[string][]ChangeHandler),
	}
}

func (h hooks) clone() hooks {
	out := hooks{
		before: maps.Clone(h.before),
		change: maps.Clone(h.change),
		after:  slices.Clone(h.after),
	}
	if out.before == nil {
		out.before = make(map[string][]BeforeHandler)
	}
	if out.change == nil {
		out.change = make(map[string][]ChangeHandler)
	}
	for k, v := range out.before {
		out.before[k] = slices.Clone(v)
	}
	for k, v := range out.change {
		out.change[k] = slices.Clone(v)
	}
	return out
}

// HookCount reports the number of registered handlers by kind, for tooling.
func (s *Script) HookCount() (before, change, after int) {
	for _, hs := range s.hooks.before {
		before += len(hs)
	}
	for _, hs := range s.hooks.change {
		change += len(hs)
	}
	return before, change, len(s.hooks.after)
}
