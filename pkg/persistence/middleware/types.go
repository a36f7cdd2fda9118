// Package middleware decorates a ports.StateStore with cross-cutting behavior
// such as encryption at rest and variable masking.
package middleware

import "github.com/aretw0/convo/pkg/ports"

// Middleware allows wrapping a StateStore to add behavior.
type Middleware func(ports.StateStore) ports.StateStore

// Chain wraps store with mws. The first middleware is the outermost, so it
// sees state first on Save and last on Load.
func Chain(store ports.StateStore, mws ...Middleware) ports.StateStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
