package ports

import (
	"context"

	"github.com/aretw0/convo/pkg/script"
)

// ScriptRegistry resolves script IDs to built scripts.
type ScriptRegistry interface {
	// Script returns the script with the given ID, or an error wrapping
	// domain.ErrScriptNotFound.
	Script(id string) (*script.Script, error)

	// Scripts returns the IDs of all registered scripts, sorted.
	Scripts() []string
}

// Watchable is implemented by registries that can notify about source changes.
type Watchable interface {
	// Watch returns a channel that is signaled after the registry reloaded.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
