package script

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownThread is returned when an action targets a thread the script does not declare.
	ErrUnknownThread = errors.New("unknown thread")
	// ErrInvalidPattern is returned when a branch pattern does not compile.
	ErrInvalidPattern = errors.New("invalid branch pattern")
	// ErrEmptyLine is returned for a line with no content, payload, prompt or action.
	ErrEmptyLine = errors.New("empty line")
	// ErrInvalidAction is returned for an action missing required fields.
	ErrInvalidAction = errors.New("invalid action")
	// ErrNoDefaultThread is returned when a script has no "default" thread.
	ErrNoDefaultThread = errors.New("script has no default thread")
)

// LineError locates a problem inside a script.
type LineError struct {
	Thread string
	Index  int
	Err    error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s[%d]: %v", e.Thread, e.Index, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// BuildError aggregates every problem found while building a script.
type BuildError struct {
	ScriptID string
	Errs     []error
}

func (e *BuildError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("script %q: %s", e.ScriptID, strings.Join(msgs, "; "))
}

func (e *BuildError) Unwrap() []error { return e.Errs }
