package runner

import (
	"context"

	"github.com/aretw0/convo/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (terminal) and JSON (structured) modes.
type IOHandler interface {
	// Output presents the messages delivered during one turn.
	Output(ctx context.Context, msgs []domain.Message) error

	// Input blocks until the user sends a reply or ctx is done.
	// io.EOF means the user left.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message, distinct from dialog content.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer transforms message text before it is printed, e.g. to
// render markdown for a terminal.
type ContentRenderer func(string) (string, error)
