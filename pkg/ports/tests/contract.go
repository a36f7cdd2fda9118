package tests

import (
	"slices"
	"testing"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ScriptRegistryContractTest is a reusable test suite that verifies if an adapter complies with ports.ScriptRegistry.
// want lists the script IDs the registry is expected to hold.
func ScriptRegistryContractTest(t *testing.T, reg ports.ScriptRegistry, want []string) {
	t.Helper()

	t.Run("Script_Success", func(t *testing.T) {
		for _, id := range want {
			s, err := reg.Script(id)
			require.NoError(t, err, "script %s", id)
			assert.Equal(t, id, s.ID())
			assert.True(t, s.HasThread(domain.DefaultThread), "script %s must have a default thread", id)
		}
	})

	t.Run("Script_NotFound", func(t *testing.T) {
		_, err := reg.Script("non-existent-script")
		assert.ErrorIs(t, err, domain.ErrScriptNotFound)
	})

	t.Run("Scripts", func(t *testing.T) {
		ids := reg.Scripts()
		assert.True(t, slices.IsSorted(ids), "ids must be sorted: %v", ids)
		assert.ElementsMatch(t, want, ids)
	})
}
