package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/ports"
	"github.com/aretw0/convo/pkg/script"
)

// turn carries what one host turn needs while the step loop runs.
type turn struct {
	*Engine
	ctx       context.Context
	out       ports.Transport
	root      *domain.State
	redirects int
}

// cursor is the next step to execute. reply is set only for the first step
// after a resume; repeat marks a jump back to the pending prompt.
type cursor struct {
	frame  *domain.State
	script *script.Script
	thread string
	index  int
	reply  *string
	repeat bool
}

func (e *Engine) newTurn(ctx context.Context, out ports.Transport, root *domain.State) *turn {
	if out == nil {
		out = ports.Discard
	}
	return &turn{Engine: e, ctx: ctx, out: out, root: root}
}

// run is the trampoline: each step returns the next cursor or nil to halt.
func (t *turn) run(c cursor) error {
	next := &c
	for next != nil {
		if err := t.ctx.Err(); err != nil {
			return err
		}
		var err error
		next, err = t.step(*next)
		if err != nil {
			return err
		}
	}
	return nil
}

// redirect counts a jump against the per-turn limit.
func (t *turn) redirect(c cursor) (*cursor, bool, error) {
	t.redirects++
	if t.redirects > t.redirectLimit {
		return nil, true, fmt.Errorf("%w: %d redirects in one turn (last target %s/%s)",
			ErrRedirectLimit, t.redirects-1, c.frame.ScriptID, c.thread)
	}
	c.reply = nil
	return &c, true, nil
}

func (t *turn) step(c cursor) (*cursor, error) {
	lines, ok := c.script.Thread(c.thread)
	if !ok {
		return nil, fmt.Errorf("%w: %q in script %q", ErrThreadNotFound, c.thread, c.script.ID())
	}

	if c.reply != nil {
		next, handled, err := t.consumeReply(c, lines)
		if err != nil || handled {
			return next, err
		}
		c.reply = nil
	}

	if c.index >= len(lines) {
		return t.end(c)
	}

	if c.index == 0 && c.frame.Thread != c.thread {
		next, handled, err := t.enterThread(c)
		if err != nil || handled {
			return next, err
		}
	}

	line := lines[c.index]
	c.frame.LineIndex = c.index

	if line.IsPrompt() {
		t.logger.Debug("awaiting reply", "script", c.script.ID(), "thread", c.thread, "index", c.index)
		return nil, t.deliver(c, line, true)
	}

	if err := t.deliver(c, line, false); err != nil {
		return nil, err
	}
	if line.Action != nil {
		next, handled, err := t.perform(c, c.index, *line.Action, "")
		if err != nil || handled {
			return next, err
		}
	}
	return &cursor{frame: c.frame, script: c.script, thread: c.thread, index: c.index + 1}, nil
}

// consumeReply stores and branches on a reply to the prompt preceding c.index.
func (t *turn) consumeReply(c cursor, lines []script.Line) (*cursor, bool, error) {
	at := c.index - 1
	if at < 0 || at >= len(lines) || lines[at].Collect == nil {
		return nil, false, nil
	}
	collect := lines[at].Collect
	reply := *c.reply

	if collect.Key != "" {
		c.frame.Variables[collect.Key] = reply
		t.emitCapture(c.frame, collect.Key)
		if next, handled, err := t.runChangeHooks(c, collect.Key, reply); err != nil || handled {
			return next, handled, err
		}
	}

	if len(collect.Options) == 0 {
		return nil, false, nil
	}
	branch, ok := collect.Select(reply)
	if !ok {
		t.logger.Debug("no branch matched", "script", c.script.ID(), "thread", c.thread, "index", at)
		return nil, false, nil
	}
	return t.perform(c, at, branch.Action, reply)
}

func (t *turn) enterThread(c cursor) (*cursor, bool, error) {
	from := c.frame.Thread
	c.frame.Thread = c.thread
	c.frame.History = append(c.frame.History, c.thread)
	if t.hooks.OnThreadEnter != nil {
		t.hooks.OnThreadEnter(t.ctx, &domain.ThreadEvent{
			EventBase: t.base(domain.EventThreadEnter, c.frame),
			Thread:    c.thread,
			From:      from,
		})
	}
	t.logger.Debug("thread entered", "script", c.script.ID(), "thread", c.thread, "from", from)

	// Every hook runs; a redirect is applied once after the last one.
	sc := newStepContext(c.frame, c.thread, c.index)
	for _, h := range c.script.BeforeHooks(c.thread) {
		if err := h(t.ctx, sc); err != nil {
			return nil, false, &HookError{Kind: HookBefore, ScriptID: c.script.ID(), Name: c.thread, Err: err}
		}
	}
	if target, ok := sc.redirected(); ok {
		return t.redirect(c.at(target))
	}
	return nil, false, nil
}

func (t *turn) runChangeHooks(c cursor, key string, value any) (*cursor, bool, error) {
	sc := newStepContext(c.frame, c.thread, c.index)
	for _, h := range c.script.ChangeHooks(key) {
		if err := h(t.ctx, value, sc); err != nil {
			return nil, false, &HookError{Kind: HookChange, ScriptID: c.script.ID(), Name: key, Err: err}
		}
	}
	if target, ok := sc.redirected(); ok {
		return t.redirect(c.at(target))
	}
	return nil, false, nil
}

func (c cursor) at(target location) cursor {
	c.thread = target.thread
	c.index = target.index
	c.repeat = target.repeat
	c.reply = nil
	return c
}

func (t *turn) base(typ domain.EventType, frame *domain.State) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		Type:      typ,
		SessionID: frame.SessionID,
		ScriptID:  frame.ScriptID,
	}
}

func (t *turn) emitBegin(frame *domain.State) {
	if t.hooks.OnDialogBegin != nil {
		t.hooks.OnDialogBegin(t.ctx, &domain.DialogEvent{
			EventBase: t.base(domain.EventDialogBegin, frame),
			Depth:     depthOf(t.root, frame),
		})
	}
	t.logger.Debug("dialog begin", slog.String("script", frame.ScriptID), slog.Int("depth", depthOf(t.root, frame)))
}

func (t *turn) emitCapture(frame *domain.State, key string) {
	if t.hooks.OnCapture != nil {
		t.hooks.OnCapture(t.ctx, &domain.CaptureEvent{
			EventBase: t.base(domain.EventCapture, frame),
			Key:       key,
		})
	}
}
