package ports

import (
	"context"

	"github.com/aretw0/convo/pkg/domain"
)

// StateStore is the Persistent Turn Store: it keeps dialog state between turns.
// The host saves the state returned by a turn before acknowledging it, and loads
// the exact last-saved state before the next one.
type StateStore interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, sessionID string, state *domain.State) error

	// Load retrieves the state for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.State, error)

	// Delete removes the state for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
