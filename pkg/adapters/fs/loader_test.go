package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/convo/pkg/adapters/fs"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/ports"
	"github.com/aretw0/convo/pkg/ports/tests"
	"github.com/aretw0/convo/pkg/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.ScriptRegistry = (*fs.Loader)(nil)
	_ ports.Watchable      = (*fs.Loader)(nil)
)

const profileYAML = `
threads:
  default:
    - say: Profile.
  start:
    - ask: Name?
      key: name
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func scriptDir(t *testing.T) string {
	dir := t.TempDir()
	writeFile(t, dir, "colors.yaml", colorsYAML)
	writeFile(t, dir, "profile.yml", profileYAML)
	writeFile(t, dir, "README.md", "not a script")
	return dir
}

func TestLoader_Contract(t *testing.T) {
	loader, err := fs.NewLoader(scriptDir(t))
	require.NoError(t, err)
	tests.ScriptRegistryContractTest(t, loader, []string{"colors", "profile"})
}

func TestLoader_MissingDir(t *testing.T) {
	_, err := fs.NewLoader(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestLoader_DanglingReference(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "colors.yaml", colorsYAML)

	_, err := fs.NewLoader(dir)
	assert.ErrorIs(t, err, domain.ErrScriptNotFound)
}

func TestLoader_DuplicateID(t *testing.T) {
	dir := scriptDir(t)
	writeFile(t, dir, "copy.yaml", "id: profile\nthreads:\n  default:\n    - say: again\n")

	_, err := fs.NewLoader(dir)
	assert.ErrorContains(t, err, "already defined")
}

func TestLoader_FailedReloadKeepsScripts(t *testing.T) {
	dir := scriptDir(t)
	loader, err := fs.NewLoader(dir)
	require.NoError(t, err)

	writeFile(t, dir, "broken.yaml", "threads: [\n")
	assert.Error(t, loader.Load())
	assert.Equal(t, []string{"colors", "profile"}, loader.Scripts())
}

func TestLoader_WithHooks(t *testing.T) {
	loader, err := fs.NewLoader(scriptDir(t), fs.WithHooks("profile", func(b *script.Builder) {
		b.After(func(ctx context.Context, vars map[string]any) error { return nil })
	}))
	require.NoError(t, err)

	s, err := loader.Script("profile")
	require.NoError(t, err)
	_, _, after := s.HookCount()
	assert.Equal(t, 1, after)
}

func TestLoader_Watch(t *testing.T) {
	dir := scriptDir(t)
	loader, err := fs.NewLoader(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded, err := loader.Watch(ctx)
	require.NoError(t, err)

	writeFile(t, dir, "farewell.yaml", "threads:\n  default:\n    - say: bye\n")

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	assert.Contains(t, loader.Scripts(), "farewell")

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-reloaded
		return !open
	}, 2*time.Second, 10*time.Millisecond)
}
