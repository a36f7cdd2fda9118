package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"

	"github.com/aretw0/convo/internal/logging"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/ports"
	"github.com/aretw0/convo/pkg/render"
	"github.com/aretw0/convo/pkg/script"
)

// Engine is the dialog step runner. It holds no per-dialog state: each call
// works on a clone of the state it is given and returns the advanced copy, so
// a failed turn leaves the caller's state untouched.
type Engine struct {
	registry      ports.ScriptRegistry
	logger        *slog.Logger
	hooks         domain.LifecycleHooks
	redirectLimit int
	interpolator  Interpolator
	pick          func(n int) int
}

var _ ports.DialogEngine = (*Engine)(nil)

// NewEngine creates an engine resolving scripts through registry.
func NewEngine(registry ports.ScriptRegistry, opts ...EngineOption) *Engine {
	e := &Engine{
		registry:      registry,
		logger:        logging.NewNop(),
		redirectLimit: DefaultRedirectLimit,
		interpolator: func(_ context.Context, text string, data map[string]any) (string, error) {
			return render.Render(text, data), nil
		},
		pick: rand.IntN,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) script(id string) (*script.Script, error) {
	s, err := e.registry.Script(id)
	if err != nil {
		if errors.Is(err, ErrScriptNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrScriptNotFound, id, err)
	}
	return s, nil
}

// BeginDialog starts a new dialog instance of scriptID at the default thread.
// vars are copied shallowly into the variable bag.
func (e *Engine) BeginDialog(ctx context.Context, out ports.Transport, sessionID, scriptID string, vars map[string]any) (*domain.State, error) {
	s, err := e.script(scriptID)
	if err != nil {
		return nil, err
	}

	state := domain.NewState(sessionID, scriptID)
	maps.Copy(state.Variables, vars)
	state.Variables[domain.KeyStatus] = domain.OutcomeRunning
	state.Turn = 1

	t := e.newTurn(ctx, out, state)
	t.emitBegin(state)
	if err := t.run(cursor{frame: state, script: s, thread: domain.DefaultThread}); err != nil {
		return nil, err
	}
	return state, nil
}

// ResumeDialog applies reply to the innermost active dialog, resuming at the
// line after the one it is parked on.
func (e *Engine) ResumeDialog(ctx context.Context, out ports.Transport, state *domain.State, reply string) (*domain.State, error) {
	next, frame, s, err := e.prepare(state)
	if err != nil {
		return nil, err
	}

	t := e.newTurn(ctx, out, next)
	c := cursor{frame: frame, script: s, thread: frame.Thread, index: frame.LineIndex + 1, reply: &reply}
	if err := t.run(c); err != nil {
		return nil, err
	}
	return next, nil
}

// Apply performs action on the innermost active dialog as if the line it is
// parked on had issued it. Repeat re-sends the pending prompt; Timeout and
// Stop end the innermost dialog (a parent, if any, resumes).
func (e *Engine) Apply(ctx context.Context, out ports.Transport, state *domain.State, action script.Action) (*domain.State, error) {
	next, frame, s, err := e.prepare(state)
	if err != nil {
		return nil, err
	}

	t := e.newTurn(ctx, out, next)
	c := cursor{frame: frame, script: s, thread: frame.Thread, index: frame.LineIndex + 1}
	follow, handled, err := t.perform(c, frame.LineIndex, action, "")
	if err != nil {
		return nil, err
	}
	if !handled {
		return next, nil
	}
	if follow != nil {
		if err := t.run(*follow); err != nil {
			return nil, err
		}
	}
	return next, nil
}

// Unwind ends every frame of the dialog stack, innermost first, with the given
// outcome. After hooks run for each frame; parents do not resume.
func (e *Engine) Unwind(ctx context.Context, state *domain.State, outcome string) (*domain.State, error) {
	next, _, _, err := e.prepare(state)
	if err != nil {
		return nil, err
	}

	t := e.newTurn(ctx, ports.Discard, next)
	for {
		frame := next.Active()
		s, err := e.script(frame.ScriptID)
		if err != nil {
			return nil, err
		}
		frame.Variables[domain.KeyStatus] = outcome
		if err := t.finish(frame, s); err != nil {
			return nil, err
		}
		parent := parentOf(next, frame)
		if parent == nil {
			return next, nil
		}
		if parent.ChildKey != "" {
			parent.Variables[parent.ChildKey] = frame.Snapshot()
		}
		parent.Child = nil
		parent.ChildKey = ""
	}
}

func (e *Engine) prepare(state *domain.State) (*domain.State, *domain.State, *script.Script, error) {
	if state == nil {
		return nil, nil, nil, fmt.Errorf("%w: nil state", domain.ErrSessionNotFound)
	}
	if state.Completed() {
		return nil, nil, nil, domain.ErrDialogCompleted
	}
	next := state.Clone()
	next.Turn++
	frame := next.Active()
	s, err := e.script(frame.ScriptID)
	if err != nil {
		return nil, nil, nil, err
	}
	return next, frame, s, nil
}

func parentOf(root, frame *domain.State) *domain.State {
	for cur := root; cur != nil; cur = cur.Child {
		if cur.Child == frame {
			return cur
		}
	}
	return nil
}

func depthOf(root, frame *domain.State) int {
	d := 1
	for cur := root; cur != nil && cur != frame; cur = cur.Child {
		d++
	}
	return d
}
