package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/ports"
)

// Mask replaces the value of every masked variable.
const Mask = "***"

type maskMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewMaskMiddleware creates a middleware that masks the values of variables
// whose key matches any of the patterns, in every frame and nested map.
// Masking is one-way: loaded states carry the mask, not the original value.
func NewMaskMiddleware(patterns []string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("mask pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return func(next ports.StateStore) ports.StateStore {
		return &maskMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *maskMiddleware) Save(ctx context.Context, sessionID string, state *domain.State) error {
	// The engine keeps using state after Save; never mask in place.
	cloned := state.Clone()
	for frame := cloned; frame != nil; frame = frame.Child {
		m.mask(frame.Variables)
	}
	return m.next.Save(ctx, sessionID, cloned)
}

func (m *maskMiddleware) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *maskMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *maskMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *maskMiddleware) mask(vars map[string]any) {
	for k, v := range vars {
		if m.matches(k) {
			vars[k] = Mask
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			m.mask(nested)
		}
	}
}

func (m *maskMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
