package runtime_test

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/aretw0/convo/internal/runtime"
	"github.com/aretw0/convo/pkg/adapters/memory"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(scripts ...*script.Script) *runtime.Engine {
	return runtime.NewEngine(memory.NewRegistry(scripts...), runtime.WithRand(rand.New(rand.NewPCG(1, 2))))
}

func TestEngine_StatementChaining(t *testing.T) {
	s := script.New("chain").
		Say("one").
		Say("two").
		Say("three").
		MustBuild()
	engine := newEngine(s)
	out := memory.NewTransport()

	state, err := engine.BeginDialog(context.Background(), out, "sid", "chain", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"one", "two", "three"}, out.Texts())
	assert.Equal(t, domain.StatusCompleted, state.Status)
	assert.Equal(t, domain.OutcomeCompleted, state.Outcome())
}

func TestEngine_PromptSuspension(t *testing.T) {
	s := script.New("ask").
		Say("a").
		Ask("b", "x").
		Say("c").
		MustBuild()
	engine := newEngine(s)
	out := memory.NewTransport()
	ctx := context.Background()

	state, err := engine.BeginDialog(ctx, out, "sid", "ask", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, out.Texts())
	assert.Equal(t, domain.StatusActive, state.Status)
	assert.Equal(t, domain.DefaultThread, state.Thread)
	assert.Equal(t, 1, state.LineIndex)
	assert.Equal(t, domain.OutcomeRunning, state.Outcome())

	msgs := out.Messages()
	assert.False(t, msgs[0].Prompt)
	assert.True(t, msgs[1].Prompt)

	out.Reset()
	next, err := engine.ResumeDialog(ctx, out, state, "anything")
	require.NoError(t, err)

	assert.Equal(t, []string{"c"}, out.Texts())
	assert.True(t, next.Completed())
	assert.Equal(t, "anything", next.Variables["x"])
	assert.Equal(t, 2, next.Turn)
}

func TestEngine_CaptureFidelity(t *testing.T) {
	var final map[string]any
	s := script.New("name").
		Ask("What is your name?", "name").
		After(func(ctx context.Context, vars map[string]any) error {
			final = vars
			return nil
		}).
		MustBuild()
	engine := newEngine(s)
	ctx := context.Background()

	state, err := engine.BeginDialog(ctx, nil, "sid", "name", map[string]any{"channel": "web"})
	require.NoError(t, err)
	require.False(t, state.Completed())

	next, err := engine.ResumeDialog(ctx, nil, state, "Ada")
	require.NoError(t, err)

	assert.True(t, next.Completed())
	require.NotNil(t, final)
	assert.Equal(t, "Ada", final["name"])
	assert.Equal(t, "web", final["channel"])
	assert.Equal(t, domain.OutcomeCompleted, final[domain.KeyStatus])
}

func TestEngine_BranchFirstMatchWins(t *testing.T) {
	s := script.New("confirm").
		Ask("Continue?", "answer",
			script.Match("yes", script.Goto("first")),
			script.Match("y", script.Goto("second")),
			script.Default(script.Goto("fallback")),
		).
		AddMessage("first", script.Text("first")).
		AddMessage("second", script.Text("second")).
		AddMessage("fallback", script.Text("fallback")).
		MustBuild()
	engine := newEngine(s)
	ctx := context.Background()

	tests := []struct {
		reply string
		want  string
	}{
		{"yes please", "first"},
		{"Y", "second"},
		{"nope", "fallback"},
		{"", "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			state, err := engine.BeginDialog(ctx, nil, "sid", "confirm", nil)
			require.NoError(t, err)

			out := memory.NewTransport()
			next, err := engine.ResumeDialog(ctx, out, state, tt.reply)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, out.Texts())
			assert.Equal(t, tt.want, next.Thread)
		})
	}
}

func colorScript() *script.Script {
	return script.New("colors").
		Ask("Pick a color:", "color",
			script.Match("red", script.Goto("red_thread")),
			script.Match("blue", script.Goto("blue_thread")),
			script.Default(script.Repeat()),
		).
		AddQuestion("red_thread", script.Text("Why red?"), "why").
		AddMessage("blue_thread", script.Text("Blue it is.")).
		MustBuild()
}

func TestEngine_ColorScenario(t *testing.T) {
	engine := newEngine(colorScript())
	ctx := context.Background()

	state, err := engine.BeginDialog(ctx, nil, "sid", "colors", nil)
	require.NoError(t, err)

	out := memory.NewTransport()
	next, err := engine.ResumeDialog(ctx, out, state, "I like RED cars")
	require.NoError(t, err)

	assert.Equal(t, "red_thread", next.Thread)
	assert.Equal(t, 0, next.LineIndex)
	assert.Equal(t, "I like RED cars", next.Variables["color"])
	assert.Equal(t, []string{"Why red?"}, out.Texts())
	assert.Equal(t, []string{"default", "red_thread"}, next.History)
}

func TestEngine_Repeat(t *testing.T) {
	engine := newEngine(colorScript())
	ctx := context.Background()

	first := memory.NewTransport()
	state, err := engine.BeginDialog(ctx, first, "sid", "colors", nil)
	require.NoError(t, err)

	again := memory.NewTransport()
	next, err := engine.ResumeDialog(ctx, again, state, "green")
	require.NoError(t, err)

	assert.Equal(t, first.Texts(), again.Texts(), "repeat re-delivers the prompt verbatim")
	assert.Equal(t, state.Thread, next.Thread)
	assert.Equal(t, state.LineIndex, next.LineIndex)
	assert.Equal(t, domain.StatusActive, next.Status)
	assert.Equal(t, domain.OutcomeRunning, next.Outcome())
}

func TestEngine_RepeatKeepsAlternative(t *testing.T) {
	s := script.New("mood").
		AddQuestion("default", script.Text("How are you?", "How do you feel?", "All good?", "What's up?"), "mood",
			script.Match("fine", script.Complete()),
			script.Default(script.Repeat()),
		).
		MustBuild()
	engine := newEngine(s)
	ctx := context.Background()

	first := memory.NewTransport()
	state, err := engine.BeginDialog(ctx, first, "sid", "mood", nil)
	require.NoError(t, err)
	require.Len(t, first.Texts(), 1)
	asked := first.Texts()[0]

	for i := range 12 {
		out := memory.NewTransport()
		state, err = engine.ResumeDialog(ctx, out, state, "meh")
		require.NoError(t, err)
		assert.Equal(t, []string{asked}, out.Texts(), "reply %d", i)
	}

	out := memory.NewTransport()
	_, err = engine.Apply(ctx, out, state, script.Repeat())
	require.NoError(t, err)
	assert.Equal(t, []string{asked}, out.Texts())
}

func TestEngine_ChildDialog(t *testing.T) {
	parent := script.New("checkout").
		Say("start").
		AddChildDialog("default", "profile", "profile").
		Say("back {{vars.profile.name}}").
		MustBuild()
	profile := script.New("profile").
		Ask("Name?", "name").
		AddAction("default", script.Complete()).
		Say("unreachable").
		MustBuild()
	engine := newEngine(parent, profile)
	ctx := context.Background()

	out := memory.NewTransport()
	state, err := engine.BeginDialog(ctx, out, "sid", "checkout", map[string]any{"cart": 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "Name?"}, out.Texts())
	require.NotNil(t, state.Child)
	assert.Equal(t, "profile", state.Active().ScriptID)
	assert.Equal(t, 3, state.Active().Variables["cart"], "child inherits parent variables")
	assert.Equal(t, 1, state.LineIndex, "parent parks on the line that started the child")
	assert.Equal(t, 2, state.Depth())

	out.Reset()
	next, err := engine.ResumeDialog(ctx, out, state, "Ada")
	require.NoError(t, err)

	assert.Equal(t, []string{"back Ada"}, out.Texts())
	assert.True(t, next.Completed())
	assert.Nil(t, next.Child)

	child, ok := next.Variables["profile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ada", child["name"])
	assert.Equal(t, domain.OutcomeCompleted, child[domain.KeyStatus])
	assert.NotContains(t, next.Variables, "name", "child captures stay in the child")
}

func TestEngine_StateUntouched(t *testing.T) {
	engine := newEngine(colorScript())
	ctx := context.Background()

	state, err := engine.BeginDialog(ctx, nil, "sid", "colors", nil)
	require.NoError(t, err)
	before := state.Clone()

	_, err = engine.ResumeDialog(ctx, nil, state, "blue")
	require.NoError(t, err)

	assert.Equal(t, before, state)
}
