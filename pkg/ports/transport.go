package ports

import (
	"context"

	"github.com/aretw0/convo/pkg/domain"
)

// Transport is the Messaging Transport: it accepts rendered outbound lines.
// Delivery is fire-and-forget from the engine's point of view; an error means
// the message was rejected and the turn fails.
type Transport interface {
	Deliver(ctx context.Context, msg domain.Message) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, msg domain.Message) error

// Deliver calls f.
func (f TransportFunc) Deliver(ctx context.Context, msg domain.Message) error {
	return f(ctx, msg)
}

// Discard is a Transport that drops every message.
var Discard Transport = TransportFunc(func(context.Context, domain.Message) error { return nil })
