package domain

import (
	"maps"
	"time"
)

// Status is the lifecycle status of one dialog frame.
type Status string

const (
	StatusActive    Status = "active"    // Running or awaiting a reply
	StatusCompleted Status = "completed" // Ended; after hooks have run
)

// KeyStatus is the reserved variable holding the dialog outcome.
const KeyStatus = "_status"

// KeyResult is the reserved variable holding the reply that completed the
// dialog through a complete action.
const KeyResult = "_result"

// Outcome values stored under KeyStatus.
const (
	OutcomeRunning   = "running"
	OutcomeCompleted = "completed"
	OutcomeCanceled  = "canceled"
	OutcomeTimeout   = "timeout"
)

// DefaultThread is the thread every dialog starts on.
const DefaultThread = "default"

// State is the serializable position of one in-flight dialog instance.
//
// A dialog that started a child dialog keeps the child in Child and is not
// advanced until the child completes. The parent's Thread/LineIndex then point
// at the line that started the child.
type State struct {
	SessionID string `json:"session_id"`
	ScriptID  string `json:"script_id"`

	// Thread is the last thread recorded as entered. Before hooks fire when a
	// step at index 0 targets a different thread.
	Thread string `json:"thread"`

	// LineIndex is the line the dialog is parked on: the prompt awaiting a
	// reply, or the line that started a child or issued a wait.
	LineIndex int `json:"line_index"`
	// Variant is the content alternative the pending prompt was delivered
	// with; repeats re-deliver the same one.
	Variant int `json:"variant,omitempty"`

	Variables map[string]any `json:"variables"`
	Status    Status         `json:"status"`

	// Child is the active nested dialog, if any.
	Child *State `json:"child,omitempty"`
	// ChildKey names the variable receiving the child's final variables.
	ChildKey string `json:"child_key,omitempty"`

	// Turn counts the turns applied to this session.
	Turn int `json:"turn"`
	// History records entered threads, in order.
	History   []string  `json:"history,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState creates a fresh, active state for a script.
func NewState(sessionID, scriptID string) *State {
	return &State{
		SessionID: sessionID,
		ScriptID:  scriptID,
		Variables: make(map[string]any),
		Status:    StatusActive,
	}
}

// Result returns the value of the reserved _result variable.
func (s *State) Result() string {
	v, _ := s.Variables[KeyResult].(string)
	return v
}

// Outcome returns the value of the reserved _status variable.
func (s *State) Outcome() string {
	v, _ := s.Variables[KeyStatus].(string)
	return v
}

// Completed reports whether the dialog has ended.
func (s *State) Completed() bool {
	return s.Status == StatusCompleted
}

// Active returns the innermost frame that receives the next reply.
func (s *State) Active() *State {
	cur := s
	for cur.Child != nil {
		cur = cur.Child
	}
	return cur
}

// Depth returns the number of nested frames below (and including) s.
func (s *State) Depth() int {
	n := 0
	for cur := s; cur != nil; cur = cur.Child {
		n++
	}
	return n
}

// Clone deep-copies the frame chain. Variable values are copied shallowly,
// except nested maps which are cloned so captured child bags stay isolated.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	next := *s
	next.Variables = CloneVariables(s.Variables)
	next.History = append([]string(nil), s.History...)
	next.Child = s.Child.Clone()
	return &next
}

// CloneVariables copies a variable bag, descending into nested maps.
func CloneVariables(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		if nested, ok := v.(map[string]any); ok {
			out[k] = CloneVariables(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// Snapshot returns a flat copy of the variables suitable for handing to user
// code that must not alias engine state.
func (s *State) Snapshot() map[string]any {
	return maps.Clone(s.Variables)
}
