package runtime

import (
	"maps"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/script"
)

var outcomes = map[script.ActionKind]string{
	script.ActionComplete: domain.OutcomeCompleted,
	script.ActionStop:     domain.OutcomeCanceled,
	script.ActionTimeout:  domain.OutcomeTimeout,
}

// perform executes an action issued by the line at index at. It reports
// handled when the action ended the dialog, redirected, parked or started
// another dialog; otherwise processing falls through to the current line.
func (t *turn) perform(c cursor, at int, action script.Action, reply string) (*cursor, bool, error) {
	t.logger.Debug("action", "script", c.script.ID(), "thread", c.thread, "index", at, "action", action.String())

	switch action.Kind {
	case script.ActionNext:
		return nil, false, nil

	case script.ActionGoto:
		return t.redirect(c.at(location{thread: action.Thread}))

	case script.ActionRepeat:
		return t.redirect(c.at(location{thread: c.thread, index: max(c.index-1, 0), repeat: true}))

	case script.ActionComplete, script.ActionStop, script.ActionTimeout:
		c.frame.Variables[domain.KeyStatus] = outcomes[action.Kind]
		if action.Kind == script.ActionComplete && reply != "" {
			c.frame.Variables[domain.KeyResult] = reply
		}
		next, err := t.end(c)
		return next, true, err

	case script.ActionWait:
		c.frame.LineIndex = at
		return nil, true, nil

	case script.ActionExecuteScript:
		return t.beginChild(c, at, action)

	case script.ActionGotoDialog:
		return t.replaceDialog(c, action)

	case script.ActionCustom:
		sc := newStepContext(c.frame, c.thread, c.index)
		if err := action.Handler(t.ctx, reply, sc); err != nil {
			return nil, false, &HookError{Kind: HookBranch, ScriptID: c.script.ID(), Name: c.thread, Err: err}
		}
		if target, ok := sc.redirected(); ok {
			return t.redirect(c.at(target))
		}
		return nil, false, nil
	}

	t.logger.Warn("unknown action ignored", "script", c.script.ID(), "thread", c.thread, "kind", action.Kind.String())
	return nil, false, nil
}

// end completes the frame at c and, for a child dialog, returns the cursor
// resuming its parent.
func (t *turn) end(c cursor) (*cursor, error) {
	if err := t.finish(c.frame, c.script); err != nil {
		return nil, err
	}

	parent := parentOf(t.root, c.frame)
	if parent == nil {
		return nil, nil
	}

	key := parent.ChildKey
	parent.Child = nil
	parent.ChildKey = ""

	ps, err := t.script(parent.ScriptID)
	if err != nil {
		return nil, err
	}
	resume := cursor{frame: parent, script: ps, thread: parent.Thread, index: parent.LineIndex + 1}

	if key != "" {
		parent.Variables[key] = c.frame.Snapshot()
		t.emitCapture(parent, key)
		next, handled, err := t.runChangeHooks(resume, key, parent.Variables[key])
		if err != nil || handled {
			return next, err
		}
	}
	return &resume, nil
}

// finish marks a frame completed and runs its after hooks.
func (t *turn) finish(frame *domain.State, s *script.Script) error {
	if o := frame.Outcome(); o == "" || o == domain.OutcomeRunning {
		frame.Variables[domain.KeyStatus] = domain.OutcomeCompleted
	}
	for _, h := range s.AfterHooks() {
		if err := h(t.ctx, frame.Snapshot()); err != nil {
			return &HookError{Kind: HookAfter, ScriptID: s.ID(), Err: err}
		}
	}
	frame.Status = domain.StatusCompleted

	depth := depthOf(t.root, frame)
	if t.hooks.OnDialogEnd != nil {
		t.hooks.OnDialogEnd(t.ctx, &domain.DialogEvent{
			EventBase: t.base(domain.EventDialogEnd, frame),
			Outcome:   frame.Outcome(),
			Result:    frame.Result(),
			Depth:     depth,
		})
	}
	t.logger.Debug("dialog end", "script", s.ID(), "outcome", frame.Outcome(), "depth", depth)
	return nil
}

func (t *turn) beginChild(c cursor, at int, action script.Action) (*cursor, bool, error) {
	cs, err := t.script(action.ScriptID)
	if err != nil {
		return nil, false, err
	}

	child := domain.NewState(c.frame.SessionID, action.ScriptID)
	maps.Copy(child.Variables, c.frame.Variables)
	child.Variables[domain.KeyStatus] = domain.OutcomeRunning
	child.Turn = c.frame.Turn

	c.frame.LineIndex = at
	c.frame.Child = child
	c.frame.ChildKey = action.Key

	t.emitBegin(child)
	thread := action.Thread
	if thread == "" {
		thread = domain.DefaultThread
	}
	return t.redirect(cursor{frame: child, script: cs, thread: thread})
}

// replaceDialog swaps the frame's script in place. Variables and the child
// key binding survive; the replaced script's after hooks do not run.
func (t *turn) replaceDialog(c cursor, action script.Action) (*cursor, bool, error) {
	ns, err := t.script(action.ScriptID)
	if err != nil {
		return nil, false, err
	}

	f := c.frame
	f.ScriptID = action.ScriptID
	f.Thread = ""
	f.LineIndex = 0
	f.Variables[domain.KeyStatus] = domain.OutcomeRunning

	t.emitBegin(f)
	thread := action.Thread
	if thread == "" {
		thread = domain.DefaultThread
	}
	return t.redirect(cursor{frame: f, script: ns, thread: thread})
}
