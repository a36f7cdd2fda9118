package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/convo/internal/presentation/graph"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/script"
	"github.com/stretchr/testify/assert"
)

func checkout() *script.Script {
	return script.New("checkout").
		Say("Welcome.").
		Ask("Pick a color:", "color",
			script.Match("red", script.Goto("red_thread")),
			script.MatchRegexp(`^b`, script.Complete()),
			script.Default(script.Repeat()),
		).
		AddChildDialog("red_thread", "profile", "profile").
		AddGotoDialog("red_thread", "survey").
		MustBuild()
}

func TestGenerateMermaid(t *testing.T) {
	out := graph.GenerateMermaid(checkout(), nil)

	tests := []struct {
		name string
		want string
	}{
		{"Header", "graph TD\n"},
		{"Start", `start(("checkout"))`},
		{"Entry", "start --> default_0"},
		{"Thread Subgraph", `subgraph t_red_thread["red_thread"]`},
		{"Statement Shape", `default_0["Welcome."]`},
		{"Prompt Shape", `default_1[/"Pick a color: → color"/]`},
		{"Sequential Edge", "default_0 --> default_1"},
		{"Substring Branch", `default_1 -- "red" --> red_thread_0`},
		{"Regex Branch", `default_1 -- "/^b/" --> done`},
		{"Default Branch", `default_1 -- "default" --> default_1`},
		{"Child Dialog", "red_thread_0 -.-> script_profile"},
		{"Child Resumes", "red_thread_0 --> red_thread_1"},
		{"Replacement Dialog", "red_thread_1 -.-> script_survey"},
		{"Script Node", `script_profile[["profile"]]`},
		{"End Node", `done(("end"))`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, out, tt.want)
		})
	}
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	out := graph.GenerateMermaid(checkout(), &graph.Overlay{
		VisitedThreads: []string{"default", "default", "ghost"},
		Thread:         "default",
		LineIndex:      1,
	})

	assert.Contains(t, out, "classDef visited")
	assert.Equal(t, 1, strings.Count(out, "class t_default visited;"))
	assert.NotContains(t, out, "t_ghost")
	assert.Contains(t, out, "class default_1 current;")
}

func TestOverlayFor(t *testing.T) {
	root := domain.NewState("s1", "checkout")
	root.Thread = "red_thread"
	root.History = []string{"default", "red_thread"}
	child := domain.NewState("s1", "profile")
	child.Thread = "default"
	child.LineIndex = 2
	root.Child = child

	overlay := graph.OverlayFor(root, "profile")
	if assert.NotNil(t, overlay) {
		assert.Equal(t, "default", overlay.Thread)
		assert.Equal(t, 2, overlay.LineIndex)
	}
	assert.Equal(t, []string{"default", "red_thread"}, graph.OverlayFor(root, "checkout").VisitedThreads)
	assert.Nil(t, graph.OverlayFor(root, "survey"))
}

func TestGenerateMermaid_SanitizesIDs(t *testing.T) {
	s := script.New("x").
		Ask(`Say "hi"`, "",
			script.Match("a", script.Goto("my-thread.v2")),
		).
		AddMessage("my-thread.v2", script.Text("ok")).
		MustBuild()

	out := graph.GenerateMermaid(s, nil)
	assert.Contains(t, out, "my_thread_v2_0")
	assert.Contains(t, out, `default_0[/"Say 'hi'"/]`)
	assert.Contains(t, out, "default_0 --> done", "no default branch falls through")
}
