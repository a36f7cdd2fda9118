package runner

import (
	"log/slog"

	"github.com/google/uuid"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

func newID() string { return uuid.NewString()[:8] }

// WithSessionID sets the session to run. Reusing an ID resumes its dialog.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		if id != "" {
			r.SessionID = id
		}
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.Logger = logger
		}
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithRenderer configures the content renderer of the default TextHandler.
func WithRenderer(renderer ContentRenderer) Option {
	return func(r *Runner) {
		r.Renderer = renderer
	}
}

// WithFallback replaces DefaultFallback.
func WithFallback(msg string) Option {
	return func(r *Runner) {
		r.Fallback = msg
	}
}

// WithCancelOnExit ends the dialog when the user leaves.
func WithCancelOnExit(cancel bool) Option {
	return func(r *Runner) {
		r.CancelOnExit = cancel
	}
}

// WithSignals enables or disables SIGINT/SIGTERM handling.
func WithSignals(enabled bool) Option {
	return func(r *Runner) {
		r.HandleSignals = enabled
	}
}
