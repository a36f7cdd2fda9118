package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405.000000")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(sessionID, "onboarding")
		state.Thread = "ask_name"
		state.LineIndex = 2
		state.Turn = 3
		state.Variables["name"] = "Ada"
		state.Variables["count"] = 42
		state.Variables[domain.KeyStatus] = domain.OutcomeRunning

		require.NoError(t, store.Save(ctx, sessionID, state), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "onboarding", loaded.ScriptID)
		assert.Equal(t, "ask_name", loaded.Thread)
		assert.Equal(t, 2, loaded.LineIndex)
		assert.Equal(t, 3, loaded.Turn)
		assert.Equal(t, domain.StatusActive, loaded.Status)
		assert.Equal(t, "Ada", loaded.Variables["name"])
		assert.Equal(t, domain.OutcomeRunning, loaded.Outcome())
		// JSON-backed stores turn ints into float64; only existence is part of the contract.
		assert.NotNil(t, loaded.Variables["count"])
	})

	t.Run("Child Dialog Round Trip", func(t *testing.T) {
		id := sessionID + "-child"
		defer func() { _ = store.Delete(ctx, id) }()

		parent := domain.NewState(id, "checkout")
		parent.LineIndex = 1
		parent.ChildKey = "address"
		parent.Child = domain.NewState(id, "address_form")
		parent.Child.Thread = domain.DefaultThread
		parent.Child.Variables["street"] = "Main St"

		require.NoError(t, store.Save(ctx, id, parent))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, loaded.Child)
		assert.Equal(t, "address", loaded.ChildKey)
		assert.Equal(t, "address_form", loaded.Active().ScriptID)
		assert.Equal(t, "Main St", loaded.Active().Variables["street"])
	})

	t.Run("Load Is Isolated", func(t *testing.T) {
		id := sessionID + "-isolated"
		defer func() { _ = store.Delete(ctx, id) }()

		state := domain.NewState(id, "s")
		state.Variables["k"] = "v"
		require.NoError(t, store.Save(ctx, id, state))

		state.Variables["k"] = "mutated"
		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "v", loaded.Variables["k"], "stores must not alias saved state")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.NewState(sessionID, "start")))

		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("Delete Non-Existent", func(t *testing.T) {
		assert.NoError(t, store.Delete(ctx, "never-saved-"+sessionID))
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewState(id1, "start")))
		require.NoError(t, store.Save(ctx, id2, domain.NewState(id2, "start")))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
