package runtime

import (
	"errors"
	"fmt"

	"github.com/aretw0/convo/pkg/domain"
)

var (
	// ErrThreadNotFound is returned when execution reaches a thread the script
	// does not declare, e.g. through a hook redirect.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrScriptNotFound is returned when a dialog or child dialog names an
	// unregistered script.
	ErrScriptNotFound = domain.ErrScriptNotFound

	// ErrRedirectLimit is returned when one turn chains more redirects than
	// the configured limit.
	ErrRedirectLimit = errors.New("redirect limit exceeded")
)

// HookKind identifies which user callback failed.
type HookKind string

const (
	HookBefore HookKind = "before"
	HookChange HookKind = "change"
	HookAfter  HookKind = "after"
	HookBranch HookKind = "branch"
)

// HookError wraps an error returned by a script hook or custom branch handler.
type HookError struct {
	Kind     HookKind
	ScriptID string
	// Name is the thread (before, branch) or variable (change) the hook is bound to.
	Name string
	Err  error
}

func (e *HookError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s hook of script %q failed: %v", e.Kind, e.ScriptID, e.Err)
	}
	return fmt.Sprintf("%s hook %q of script %q failed: %v", e.Kind, e.Name, e.ScriptID, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// DeliveryError wraps a transport failure.
type DeliveryError struct {
	Thread    string
	LineIndex int
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery of %s[%d] failed: %v", e.Thread, e.LineIndex, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
