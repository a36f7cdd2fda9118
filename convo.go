package convo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/convo/internal/logging"
	"github.com/aretw0/convo/internal/runtime"
	"github.com/aretw0/convo/pkg/adapters/memory"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/observability"
	"github.com/aretw0/convo/pkg/ports"
	"github.com/aretw0/convo/pkg/script"
	"github.com/aretw0/convo/pkg/session"
)

// ErrInvalidSessionID is returned for an empty session ID.
var ErrInvalidSessionID = errors.New("session id is required")

// errNotIdle aborts an expiry update without writing.
var errNotIdle = errors.New("session not idle")

// Bot is the host turn adapter. It loads the session state, runs one turn of
// the dialog engine under the session lock, and persists the result before
// returning.
type Bot struct {
	engine   *runtime.Engine
	registry ports.ScriptRegistry
	sessions *session.Manager

	store           ports.StateStore
	transport       ports.Transport
	logger          *slog.Logger
	hooks           domain.LifecycleHooks
	metrics         *observability.Metrics
	retainCompleted bool
	now             func() time.Time

	sessionOpts []session.Option
	runtimeOpts []runtime.EngineOption
}

// New creates a Bot running the scripts of registry.
func New(registry ports.ScriptRegistry, opts ...Option) (*Bot, error) {
	if registry == nil {
		return nil, fmt.Errorf("a script registry is required")
	}
	b := &Bot{
		registry: registry,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = logging.NewNop()
	}
	if b.store == nil {
		b.store = memory.NewStore()
	}
	if b.metrics != nil {
		b.hooks = b.hooks.Merge(b.metrics.Hooks())
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLogger(b.logger),
		runtime.WithLifecycleHooks(b.hooks),
	}
	b.engine = runtime.NewEngine(registry, append(runtimeOpts, b.runtimeOpts...)...)
	b.sessions = session.NewManager(b.store, append([]session.Option{session.WithLogger(b.logger)}, b.sessionOpts...)...)
	return b, nil
}

// TurnResult is the outcome of one turn.
type TurnResult struct {
	// State is the state after the turn. It is also returned when a completed
	// dialog was removed from the store.
	State *domain.State
	// Messages lists what was delivered during the turn, in order.
	Messages []domain.Message
}

// Completed reports whether the dialog ended during the turn.
func (r *TurnResult) Completed() bool {
	return r.State != nil && r.State.Completed()
}

// Result returns the reply that completed the conversation through a
// complete action, or "" when it is still running or ended otherwise.
func (r *TurnResult) Result() string {
	if !r.Completed() {
		return ""
	}
	return r.State.Result()
}

// Texts returns the text of every delivered message.
func (r *TurnResult) Texts() []string {
	texts := make([]string, 0, len(r.Messages))
	for _, m := range r.Messages {
		texts = append(texts, m.Text)
	}
	return texts
}

type stepFunc func(ctx context.Context, out ports.Transport, current *domain.State) (*domain.State, error)

// BeginDialog starts scriptID for the session, replacing any dialog it had.
func (b *Bot) BeginDialog(ctx context.Context, sessionID, scriptID string, vars map[string]any) (*TurnResult, error) {
	return b.turn(ctx, sessionID, func(ctx context.Context, out ports.Transport, _ *domain.State) (*domain.State, error) {
		return b.engine.BeginDialog(ctx, out, sessionID, scriptID, vars)
	})
}

// ResumeDialog applies a reply to the session's active dialog.
func (b *Bot) ResumeDialog(ctx context.Context, sessionID, reply string) (*TurnResult, error) {
	return b.turn(ctx, sessionID, func(ctx context.Context, out ports.Transport, current *domain.State) (*domain.State, error) {
		if current == nil {
			return nil, domain.ErrSessionNotFound
		}
		return b.engine.ResumeDialog(ctx, out, current, reply)
	})
}

// HandleTurn is the inbound-message entry point. A session without an active
// dialog starts scriptID and the message only triggers it; otherwise the
// message is the reply to the pending prompt.
func (b *Bot) HandleTurn(ctx context.Context, sessionID, scriptID, text string) (*TurnResult, error) {
	return b.turn(ctx, sessionID, func(ctx context.Context, out ports.Transport, current *domain.State) (*domain.State, error) {
		if current == nil || current.Completed() {
			if scriptID == "" {
				return nil, domain.ErrSessionNotFound
			}
			return b.engine.BeginDialog(ctx, out, sessionID, scriptID, nil)
		}
		return b.engine.ResumeDialog(ctx, out, current, text)
	})
}

// Apply performs action on the session's innermost dialog outside of a reply.
func (b *Bot) Apply(ctx context.Context, sessionID string, action script.Action) (*TurnResult, error) {
	return b.turn(ctx, sessionID, func(ctx context.Context, out ports.Transport, current *domain.State) (*domain.State, error) {
		if current == nil {
			return nil, domain.ErrSessionNotFound
		}
		return b.engine.Apply(ctx, out, current, action)
	})
}

// Timeout delivers a synthetic timeout turn: the innermost dialog ends with
// outcome "timeout" and its parent, if any, resumes.
func (b *Bot) Timeout(ctx context.Context, sessionID string) (*TurnResult, error) {
	return b.Apply(ctx, sessionID, script.Timeout())
}

// Cancel ends every dialog of the session with outcome "canceled". After hooks
// run; parents do not resume and nothing is delivered.
func (b *Bot) Cancel(ctx context.Context, sessionID string) (*TurnResult, error) {
	return b.turn(ctx, sessionID, func(ctx context.Context, _ ports.Transport, current *domain.State) (*domain.State, error) {
		if current == nil {
			return nil, domain.ErrSessionNotFound
		}
		return b.engine.Unwind(ctx, current, domain.OutcomeCanceled)
	})
}

// ExpireIdle applies Timeout to every active session not updated within idle.
// It returns the expired session IDs. Failures on individual sessions are
// joined; the sweep continues past them.
func (b *Bot) ExpireIdle(ctx context.Context, idle time.Duration) ([]string, error) {
	ids, err := b.sessions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var (
		expired []string
		errs    []error
		active  int
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		res, err := b.turn(ctx, id, func(ctx context.Context, out ports.Transport, current *domain.State) (*domain.State, error) {
			if current == nil || current.Completed() || b.now().Sub(current.UpdatedAt) < idle {
				return nil, errNotIdle
			}
			return b.engine.Apply(ctx, out, current, script.Timeout())
		})
		switch {
		case errors.Is(err, errNotIdle):
			active++
		case err != nil:
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		default:
			expired = append(expired, id)
			if !res.Completed() {
				active++
			}
		}
	}

	if b.metrics != nil {
		b.metrics.SetActiveSessions(active)
	}
	if len(expired) > 0 {
		b.logger.Info("expired idle sessions", "count", len(expired), "idle", idle)
	}
	return expired, errors.Join(errs...)
}

// Session returns the stored state of a session.
func (b *Bot) Session(ctx context.Context, sessionID string) (*domain.State, error) {
	return b.sessions.Load(ctx, sessionID)
}

// Sessions lists the stored session IDs.
func (b *Bot) Sessions(ctx context.Context) ([]string, error) {
	return b.sessions.List(ctx)
}

// Delete removes a session without running any hook.
func (b *Bot) Delete(ctx context.Context, sessionID string) error {
	return b.sessions.Delete(ctx, sessionID)
}

// Scripts returns the IDs of the scripts the Bot can run.
func (b *Bot) Scripts() []string {
	return b.registry.Scripts()
}

// Registry returns the script registry.
func (b *Bot) Registry() ports.ScriptRegistry {
	return b.registry
}

func (b *Bot) turn(ctx context.Context, sessionID string, step stepFunc) (*TurnResult, error) {
	if sessionID == "" {
		return nil, ErrInvalidSessionID
	}
	start := time.Now()

	rec := &recorder{next: b.transport}
	var final *domain.State
	_, err := b.sessions.Update(ctx, sessionID, func(ctx context.Context, current *domain.State) (*domain.State, error) {
		next, err := step(ctx, rec, current)
		if err != nil {
			return nil, err
		}
		next.UpdatedAt = b.now()
		final = next
		if next.Completed() && !b.retainCompleted {
			return nil, nil
		}
		return next, nil
	})

	if errors.Is(err, errNotIdle) {
		return nil, err
	}
	if b.metrics != nil {
		b.metrics.ObserveTurn(time.Since(start), err)
	}
	if err != nil {
		b.logger.Debug("turn failed", "session_id", sessionID, "error", err)
		return nil, err
	}
	return &TurnResult{State: final, Messages: rec.messages}, nil
}

// recorder collects delivered messages and forwards them to next.
type recorder struct {
	next     ports.Transport
	messages []domain.Message
}

func (r *recorder) Deliver(ctx context.Context, msg domain.Message) error {
	if r.next != nil {
		if err := r.next.Deliver(ctx, msg); err != nil {
			return err
		}
	}
	r.messages = append(r.messages, msg)
	return nil
}
