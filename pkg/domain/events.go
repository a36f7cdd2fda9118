package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventDialogBegin EventType = "dialog_begin"
	EventDialogEnd   EventType = "dialog_end"
	EventThreadEnter EventType = "thread_enter"
	EventDeliver     EventType = "deliver"
	EventCapture     EventType = "capture"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	ScriptID  string    `json:"script_id"`
}

// DialogEvent marks the start or end of a dialog frame.
type DialogEvent struct {
	EventBase
	Outcome string `json:"outcome,omitempty"`
	Result  string `json:"result,omitempty"`
	Depth   int    `json:"depth"`
}

// ThreadEvent marks entry into a thread.
type ThreadEvent struct {
	EventBase
	Thread string `json:"thread"`
	From   string `json:"from,omitempty"`
}

// MessageEvent marks a delivered line.
type MessageEvent struct {
	EventBase
	Thread    string `json:"thread"`
	LineIndex int    `json:"line_index"`
	Prompt    bool   `json:"prompt"`
}

// CaptureEvent marks a reply stored in the variable bag.
type CaptureEvent struct {
	EventBase
	Key string `json:"key"`
}

// LifecycleHooks defines callbacks for engine observability.
// Unlike script hooks they cannot alter control flow.
type LifecycleHooks struct {
	OnDialogBegin func(context.Context, *DialogEvent)
	OnDialogEnd   func(context.Context, *DialogEvent)
	OnThreadEnter func(context.Context, *ThreadEvent)
	OnDeliver     func(context.Context, *MessageEvent)
	OnCapture     func(context.Context, *CaptureEvent)
}

// Merge returns hooks that call h and then other for every event.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnDialogBegin: chain(h.OnDialogBegin, other.OnDialogBegin),
		OnDialogEnd:   chain(h.OnDialogEnd, other.OnDialogEnd),
		OnThreadEnter: chain(h.OnThreadEnter, other.OnThreadEnter),
		OnDeliver:     chain(h.OnDeliver, other.OnDeliver),
		OnCapture:     chain(h.OnCapture, other.OnCapture),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
