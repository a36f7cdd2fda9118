package runtime

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/aretw0/convo/pkg/domain"
)

// DefaultRedirectLimit caps the redirects a single turn may chain.
const DefaultRedirectLimit = 50

// Interpolator renders line text against the dialog data.
// The data map has a single "vars" key holding the variable bag.
type Interpolator func(ctx context.Context, text string, data map[string]any) (string, error)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithRedirectLimit overrides DefaultRedirectLimit. Non-positive values are ignored.
func WithRedirectLimit(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.redirectLimit = n
		}
	}
}

// WithInterpolator replaces the default {{path}} renderer.
func WithInterpolator(interp Interpolator) EngineOption {
	return func(e *Engine) {
		if interp != nil {
			e.interpolator = interp
		}
	}
}

// WithRand sets the source used to pick between content alternatives.
func WithRand(r *rand.Rand) EngineOption {
	return func(e *Engine) {
		var mu sync.Mutex
		e.pick = func(n int) int {
			mu.Lock()
			defer mu.Unlock()
			return r.IntN(n)
		}
	}
}
