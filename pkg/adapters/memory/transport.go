package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/convo/pkg/domain"
)

// Transport implements ports.Transport by recording every delivered message.
// Useful in tests and for hosts that reply synchronously with the turn's output.
type Transport struct {
	mu       sync.Mutex
	messages []domain.Message
	// Err, when set, is returned by Deliver and nothing is recorded.
	Err error
}

// NewTransport creates an empty recording transport.
func NewTransport() *Transport {
	return &Transport{}
}

// Deliver records msg.
func (t *Transport) Deliver(ctx context.Context, msg domain.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.messages = append(t.messages, msg)
	return nil
}

// Messages returns the recorded messages.
func (t *Transport) Messages() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.messages)
}

// Texts returns the text of every recorded message.
func (t *Transport) Texts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.messages))
	for i, m := range t.messages {
		out[i] = m.Text
	}
	return out
}

// Reset drops the recorded messages.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = nil
}
