package fs_test

import (
	"context"
	"testing"

	"github.com/aretw0/convo/pkg/adapters/fs"
	"github.com/aretw0/convo/pkg/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const colorsYAML = `
id: colors
threads:
  default:
    - say: Hello!
    - ask: "Pick a color:"
      key: color
      payload:
        quick_replies: [red, blue]
      options:
        - pattern: red
          action: red_thread
        - pattern: "^b"
          type: regex
          action: blue_thread
        - default: true
          action: repeat
  red_thread:
    - say: ["Red it is.", "Red, nice."]
    - child: profile
      key: who
      thread: start
  blue_thread:
    - say: Blue.
      action: complete
`

func TestParse(t *testing.T) {
	s, err := fs.Parse([]byte(colorsYAML), "ignored", nil)
	require.NoError(t, err)

	assert.Equal(t, "colors", s.ID())
	assert.Equal(t, []string{"default", "red_thread", "blue_thread"}, s.Threads(), "document order is kept")

	lines, _ := s.Thread("default")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"Hello!"}, lines[0].Content)
	require.True(t, lines[1].IsPrompt())
	assert.Equal(t, "color", lines[1].Collect.Key)
	assert.NotNil(t, lines[1].Payload)

	options := lines[1].Collect.Options
	require.Len(t, options, 3)
	assert.Equal(t, script.MatchString, options[0].Match)
	assert.Equal(t, script.ActionGoto, options[0].Action.Kind)
	assert.Equal(t, script.MatchRegex, options[1].Match)
	assert.True(t, options[2].Default)
	assert.Equal(t, script.ActionRepeat, options[2].Action.Kind)

	br, ok := lines[1].Collect.Select("BLUE")
	require.True(t, ok)
	assert.Equal(t, "blue_thread", br.Action.Thread)

	red, _ := s.Thread("red_thread")
	assert.Len(t, red[0].Content, 2)
	require.NotNil(t, red[1].Action)
	assert.Equal(t, script.ActionExecuteScript, red[1].Action.Kind)
	assert.Equal(t, "profile", red[1].Action.ScriptID)
	assert.Equal(t, "who", red[1].Action.Key)
	assert.Equal(t, "start", red[1].Action.Thread)

	blue, _ := s.Thread("blue_thread")
	assert.Equal(t, script.ActionComplete, blue[0].Action.Kind)

	assert.Equal(t, []script.Reference{{ScriptID: "profile", Thread: "start"}}, s.References())
}

func TestParse_FallbackID(t *testing.T) {
	s, err := fs.Parse([]byte("threads:\n  default:\n    - say: hi\n"), "greeting", nil)
	require.NoError(t, err)
	assert.Equal(t, "greeting", s.ID())
}

func TestParse_Configure(t *testing.T) {
	called := false
	s, err := fs.Parse([]byte("threads:\n  default:\n    - ask: name?\n      key: name\n"), "hooks", func(b *script.Builder) {
		b.OnChange("name", func(ctx context.Context, value any, sc script.StepContext) error {
			called = true
			return nil
		})
	})
	require.NoError(t, err)
	_, change, _ := s.HookCount()
	assert.Equal(t, 1, change)

	require.NoError(t, s.ChangeHooks("name")[0](context.Background(), "Ada", nil))
	assert.True(t, called)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"Malformed YAML", "threads: [\n"},
		{"Unknown Field", "threads:\n  default:\n    - sya: hi\n"},
		{"Ask With Action", "threads:\n  default:\n    - ask: q\n      action: stop\n"},
		{"Options Without Ask", "threads:\n  default:\n    - say: q\n      options: [{default: true}]\n"},
		{"Unknown Match Type", "threads:\n  default:\n    - ask: q\n      options: [{pattern: x, type: glob}]\n"},
		{"Bare Execute Script", "threads:\n  default:\n    - action: execute_script\n"},
		{"Child And Goto Dialog", "threads:\n  default:\n    - child: a\n      goto_dialog: b\n"},
		{"Unknown Thread", "threads:\n  default:\n    - action: nowhere\n"},
		{"No Default Thread", "threads:\n  other:\n    - say: hi\n"},
		{"Empty Line", "threads:\n  default:\n    - key: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fs.Parse([]byte(tt.doc), "broken", nil)
			assert.Error(t, err)
		})
	}
}
