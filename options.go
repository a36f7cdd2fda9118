package convo

import (
	"log/slog"
	"time"

	"github.com/aretw0/convo/internal/runtime"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/observability"
	"github.com/aretw0/convo/pkg/ports"
	"github.com/aretw0/convo/pkg/session"
)

// Option defines a functional option for configuring the Bot.
type Option func(*Bot)

// WithStore sets the persistent turn store. Defaults to an in-memory store.
func WithStore(store ports.StateStore) Option {
	return func(b *Bot) {
		b.store = store
	}
}

// WithLocker serializes turns across processes sharing the store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(b *Bot) {
		b.sessionOpts = append(b.sessionOpts, session.WithLocker(locker))
	}
}

// WithLockTTL bounds how long a distributed session lock may be held.
func WithLockTTL(ttl time.Duration) Option {
	return func(b *Bot) {
		b.sessionOpts = append(b.sessionOpts, session.WithLockTTL(ttl))
	}
}

// WithTransport sets the transport receiving every delivered message, in
// addition to the TurnResult.
func WithTransport(t ports.Transport) Option {
	return func(b *Bot) {
		b.transport = t
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(b *Bot) {
		b.hooks = b.hooks.Merge(hooks)
	}
}

// WithMetrics records engine events and turn timings.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *Bot) {
		b.metrics = m
	}
}

// WithRetainCompleted keeps completed dialogs in the store instead of
// deleting them at the end of the turn.
func WithRetainCompleted(retain bool) Option {
	return func(b *Bot) {
		b.retainCompleted = retain
	}
}

// WithRedirectLimit caps the redirects a single turn may chain.
func WithRedirectLimit(n int) Option {
	return func(b *Bot) {
		b.runtimeOpts = append(b.runtimeOpts, runtime.WithRedirectLimit(n))
	}
}

// WithInterpolator replaces the default {{path}} renderer.
func WithInterpolator(interp runtime.Interpolator) Option {
	return func(b *Bot) {
		b.runtimeOpts = append(b.runtimeOpts, runtime.WithInterpolator(interp))
	}
}

// WithClock overrides time.Now for UpdatedAt stamps and idle expiry.
func WithClock(now func() time.Time) Option {
	return func(b *Bot) {
		if now != nil {
			b.now = now
		}
	}
}
