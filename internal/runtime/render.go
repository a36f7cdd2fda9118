package runtime

import (
	"fmt"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/render"
	"github.com/aretw0/convo/pkg/script"
	"github.com/google/uuid"
)

// deliver renders a line and hands it to the transport. Statements with
// nothing to show are skipped; prompts are always sent. A repeated prompt
// keeps the alternative it was first delivered with.
func (t *turn) deliver(c cursor, line script.Line, prompt bool) error {
	data := map[string]any{"vars": c.frame.Variables}

	var text string
	if n := len(line.Content); n > 0 {
		choice := 0
		switch {
		case n == 1:
		case prompt && c.repeat && c.frame.Variant < n:
			choice = c.frame.Variant
		default:
			choice = t.pick(n)
		}
		if prompt {
			c.frame.Variant = choice
		}
		var err error
		text, err = t.interpolator(t.ctx, line.Content[choice], data)
		if err != nil {
			return fmt.Errorf("rendering %s[%d] failed during interpolation: %w", c.thread, c.index, err)
		}
	}

	msg := domain.Message{
		ID:        uuid.NewString(),
		SessionID: c.frame.SessionID,
		ScriptID:  c.frame.ScriptID,
		Thread:    c.thread,
		LineIndex: c.index,
		Text:      text,
		Payload:   render.Payload(line.Payload, data),
		Prompt:    prompt,
	}
	if msg.Empty() && !prompt {
		return nil
	}

	if err := t.out.Deliver(t.ctx, msg); err != nil {
		return &DeliveryError{Thread: c.thread, LineIndex: c.index, Err: err}
	}

	if t.hooks.OnDeliver != nil {
		t.hooks.OnDeliver(t.ctx, &domain.MessageEvent{
			EventBase: t.base(domain.EventDeliver, c.frame),
			Thread:    c.thread,
			LineIndex: c.index,
			Prompt:    prompt,
		})
	}
	return nil
}
