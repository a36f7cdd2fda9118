package script_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/convo/pkg/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Threads(t *testing.T) {
	s, err := script.New("colors").
		Ask("Pick a color:", "color",
			script.Match("red", script.Goto("red_thread")),
			script.Match("blue", script.Goto("blue_thread")),
			script.Default(script.Repeat()),
		).
		AddMessage("red_thread", script.Text("Red it is.")).
		AddMessage("blue_thread", script.Text("Blue it is.", "Blue, nice.")).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "colors", s.ID())
	assert.Equal(t, []string{"default", "red_thread", "blue_thread"}, s.Threads())

	lines, ok := s.Thread("default")
	require.True(t, ok)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].IsPrompt())
	assert.Equal(t, "color", lines[0].Collect.Key)
	assert.Len(t, lines[0].Collect.Options, 3)

	blue, _ := s.Thread("blue_thread")
	assert.Equal(t, []string{"Blue it is.", "Blue, nice."}, blue[0].Content)
}

func TestBuilder_Errors(t *testing.T) {
	_, err := script.New("broken").
		Say("hello").
		AddAction("default", script.Goto("nowhere")).
		Ask("again?", "x", script.MatchRegexp("([", script.Next())).
		AddAction("default", script.ExecuteScript("", "")).
		Before("ghost", func(ctx context.Context, sc script.StepContext) error { return nil }).
		Build()
	require.Error(t, err)

	var buildErr *script.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "broken", buildErr.ScriptID)
	assert.Len(t, buildErr.Errs, 4)

	assert.ErrorIs(t, err, script.ErrUnknownThread)
	assert.ErrorIs(t, err, script.ErrInvalidPattern)
	assert.ErrorIs(t, err, script.ErrInvalidAction)

	var lineErr *script.LineError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, "default", lineErr.Thread)
	assert.Equal(t, 1, lineErr.Index)
}

func TestBuilder_NoDefaultThread(t *testing.T) {
	_, err := script.New("x").AddMessage("other", script.Text("hi")).Build()
	assert.ErrorIs(t, err, script.ErrNoDefaultThread)
}

func TestBuilder_EmptyLine(t *testing.T) {
	_, err := script.New("x").AddMessage("default", script.Text()).Build()
	assert.ErrorIs(t, err, script.ErrEmptyLine)
}

func TestBuilder_ImmutableAfterBuild(t *testing.T) {
	b := script.New("x").Say("one")
	s, err := b.Build()
	require.NoError(t, err)

	b.Say("two")
	lines, _ := s.Thread("default")
	assert.Len(t, lines, 1)
}

func TestCollect_Select(t *testing.T) {
	red := script.Goto("red")
	blue := script.Goto("blue")

	tests := []struct {
		name    string
		options []script.Branch
		reply   string
		want    string
		ok      bool
	}{
		{
			name:    "Substring Case Insensitive",
			options: []script.Branch{script.Match("red", red), script.Match("blue", blue)},
			reply:   "I like RED cars",
			want:    "red",
			ok:      true,
		},
		{
			name:    "First Match Wins",
			options: []script.Branch{script.Match("car", blue), script.Match("red", red)},
			reply:   "red car",
			want:    "blue",
			ok:      true,
		},
		{
			name:    "Literal Pattern",
			options: []script.Branch{script.Match("a.c", red), script.Default(blue)},
			reply:   "abc",
			want:    "blue",
			ok:      true,
		},
		{
			name:    "Regex",
			options: []script.Branch{script.MatchRegexp(`^y(es)?$`, red)},
			reply:   "YES",
			want:    "red",
			ok:      true,
		},
		{
			name:    "First Default Wins",
			options: []script.Branch{script.Default(red), script.Match("x", blue), script.Default(blue)},
			reply:   "nothing",
			want:    "red",
			ok:      true,
		},
		{
			name:    "Empty Reply Uses Default",
			options: []script.Branch{script.Match("red", red), script.Default(blue)},
			reply:   "",
			want:    "blue",
			ok:      true,
		},
		{
			name:    "No Match No Default",
			options: []script.Branch{script.Match("red", red)},
			reply:   "green",
			ok:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &script.Collect{Options: tt.options}
			got, ok := c.Select(tt.reply)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.Action.Thread)
			}
		})
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		word string
		kind script.ActionKind
	}{
		{"", script.ActionNext},
		{"next", script.ActionNext},
		{"repeat", script.ActionRepeat},
		{"complete", script.ActionComplete},
		{"stop", script.ActionStop},
		{"timeout", script.ActionTimeout},
		{"wait", script.ActionWait},
		{"execute_script", script.ActionExecuteScript},
		{"goto_dialog", script.ActionGotoDialog},
		{"red_thread", script.ActionGoto},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.kind, script.ParseAction(tt.word).Kind)
		})
	}
	assert.Equal(t, "red_thread", script.ParseAction(" red_thread ").Thread)
}

func TestScript_Derive(t *testing.T) {
	base := script.New("base").
		Say("hi").
		AddChildDialog("default", "profile", "").
		MustBuild()

	called := false
	derived, err := base.Derive().
		After(func(ctx context.Context, vars map[string]any) error {
			called = true
			return nil
		}).
		Build()
	require.NoError(t, err)

	_, _, after := base.HookCount()
	assert.Equal(t, 0, after)
	_, _, after = derived.HookCount()
	assert.Equal(t, 1, after)

	require.NoError(t, derived.AfterHooks()[0](context.Background(), nil))
	assert.True(t, called)

	assert.Equal(t, []script.Reference{{ScriptID: "profile"}}, derived.References())
	lines, _ := derived.Thread("default")
	assert.Equal(t, "profile", lines[1].Action.Key)
}

func TestMustBuild_Panics(t *testing.T) {
	assert.Panics(t, func() {
		script.New("x").AddAction("default", script.Goto("missing")).MustBuild()
	})
}

func TestBuildError_Unwrap(t *testing.T) {
	err := &script.BuildError{ScriptID: "s", Errs: []error{script.ErrEmptyLine}}
	assert.True(t, errors.Is(err, script.ErrEmptyLine))
	assert.Contains(t, err.Error(), `script "s"`)
}
