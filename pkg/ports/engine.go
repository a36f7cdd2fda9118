package ports

import (
	"context"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/script"
)

// DialogEngine advances dialog state. Implementations are stateless: every
// call takes the state it works on and returns the next one, leaving the input
// untouched.
type DialogEngine interface {
	// BeginDialog starts scriptID for a session with the given initial variables.
	BeginDialog(ctx context.Context, out Transport, sessionID, scriptID string, vars map[string]any) (*domain.State, error)

	// ResumeDialog applies one user reply to the innermost active dialog.
	ResumeDialog(ctx context.Context, out Transport, state *domain.State, reply string) (*domain.State, error)

	// Apply performs an action on the innermost active dialog outside of a
	// reply, e.g. a scheduled timeout.
	Apply(ctx context.Context, out Transport, state *domain.State, action script.Action) (*domain.State, error)

	// Unwind ends every frame, innermost first, recording outcome as each
	// frame's _status. Parents are not resumed.
	Unwind(ctx context.Context, state *domain.State, outcome string) (*domain.State, error)
}
