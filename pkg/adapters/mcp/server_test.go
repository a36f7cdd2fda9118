package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/aretw0/convo"
	"github.com/aretw0/convo/pkg/adapters/mcp"
	"github.com/aretw0/convo/pkg/adapters/memory"
	"github.com/aretw0/convo/pkg/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StructuredContent json.RawMessage `json:"structuredContent"`
	IsError           bool            `json:"isError"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newServer(t *testing.T) *mcp.Server {
	t.Helper()
	greet := script.New("greet").
		Ask("Name?", "name").
		Say("Hi {{vars.name}}.").
		MustBuild()
	confirm := script.New("confirm").
		Ask("Confirm?", "",
			script.Match("yes", script.Complete()),
		).
		MustBuild()
	bot, err := convo.New(memory.NewRegistry(greet, confirm), convo.WithRetainCompleted(true))
	require.NoError(t, err)
	return mcp.NewServer(bot, "test", mcp.WithDefaultScript("greet"))
}

func rpc(t *testing.T, srv *mcp.Server, id int, method string, params any) rpcResponse {
	t.Helper()
	body, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": id, "method": method, "params": params})
	require.NoError(t, err)

	msg := srv.MCPServer().HandleMessage(context.Background(), body)
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

func callTool(t *testing.T, srv *mcp.Server, name string, args map[string]any) toolResult {
	t.Helper()
	resp := rpc(t, srv, 1, "tools/call", map[string]any{"name": name, "arguments": args})
	require.Nil(t, resp.Error)

	var res toolResult
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	return res
}

func TestServer_ListTools(t *testing.T) {
	resp := rpc(t, newServer(t), 1, "tools/list", map[string]any{})
	require.Nil(t, resp.Error)

	var list struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &list))

	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"handle_turn", "cancel", "get_session", "list_scripts", "get_graph"}, names)
}

func TestServer_HandleTurn(t *testing.T) {
	srv := newServer(t)

	res := callTool(t, srv, "handle_turn", map[string]any{"session_id": "s1", "text": "hello"})
	require.False(t, res.IsError, res.Content)
	var turn mcp.TurnResponse
	require.NoError(t, json.Unmarshal(res.StructuredContent, &turn))
	assert.Equal(t, "greet", turn.ScriptID)
	require.Len(t, turn.Messages, 1)
	assert.Equal(t, "Name?", turn.Messages[0].Text)
	assert.False(t, turn.Completed)

	res = callTool(t, srv, "handle_turn", map[string]any{"session_id": "s1", "text": "Ada"})
	require.False(t, res.IsError)
	require.NoError(t, json.Unmarshal(res.StructuredContent, &turn))
	require.Len(t, turn.Messages, 1)
	assert.Equal(t, "Hi Ada.", turn.Messages[0].Text)
	assert.True(t, turn.Completed)
	assert.Equal(t, "completed", turn.Outcome)

	t.Run("Completing Reply", func(t *testing.T) {
		callTool(t, srv, "handle_turn", map[string]any{"session_id": "s2", "script": "confirm", "text": ""})
		res := callTool(t, srv, "handle_turn", map[string]any{"session_id": "s2", "text": "yes"})
		var turn mcp.TurnResponse
		require.NoError(t, json.Unmarshal(res.StructuredContent, &turn))
		assert.Equal(t, "yes", turn.Result)
	})

	t.Run("Oversized Text", func(t *testing.T) {
		res := callTool(t, srv, "handle_turn", map[string]any{"session_id": "s3", "text": strings.Repeat("x", 5000)})
		assert.True(t, res.IsError)
	})

	t.Run("Unknown Script", func(t *testing.T) {
		res := callTool(t, srv, "handle_turn", map[string]any{"session_id": "s4", "script": "nope", "text": "hi"})
		assert.True(t, res.IsError)
	})
}

func TestServer_SessionAndCancel(t *testing.T) {
	srv := newServer(t)
	callTool(t, srv, "handle_turn", map[string]any{"session_id": "s1", "text": "hello"})

	res := callTool(t, srv, "get_session", map[string]any{"session_id": "s1"})
	require.False(t, res.IsError)
	var state struct {
		ScriptID  string `json:"script_id"`
		LineIndex int    `json:"line_index"`
	}
	require.NoError(t, json.Unmarshal(res.StructuredContent, &state))
	assert.Equal(t, "greet", state.ScriptID)
	assert.Equal(t, 0, state.LineIndex)

	res = callTool(t, srv, "cancel", map[string]any{"session_id": "s1"})
	require.False(t, res.IsError)
	var turn mcp.TurnResponse
	require.NoError(t, json.Unmarshal(res.StructuredContent, &turn))
	assert.True(t, turn.Completed)
	assert.Equal(t, "canceled", turn.Outcome)

	res = callTool(t, srv, "get_session", map[string]any{"session_id": "missing"})
	assert.True(t, res.IsError)
}

func TestServer_ScriptsAndGraph(t *testing.T) {
	srv := newServer(t)

	res := callTool(t, srv, "list_scripts", nil)
	require.False(t, res.IsError)
	var scripts mcp.ScriptsResponse
	require.NoError(t, json.Unmarshal(res.StructuredContent, &scripts))
	assert.Equal(t, []string{"confirm", "greet"}, scripts.Scripts)

	res = callTool(t, srv, "get_graph", map[string]any{"script": "greet"})
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	assert.Contains(t, res.Content[0].Text, "graph TD")
	assert.NotContains(t, res.Content[0].Text, "classDef current")

	callTool(t, srv, "handle_turn", map[string]any{"session_id": "s1", "text": "hello"})
	res = callTool(t, srv, "get_graph", map[string]any{"script": "greet", "session_id": "s1"})
	require.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "class default_0 current;")

	res = callTool(t, srv, "get_graph", map[string]any{"script": "confirm", "session_id": "s1"})
	assert.True(t, res.IsError)

	res = callTool(t, srv, "get_graph", map[string]any{"script": "nope"})
	assert.True(t, res.IsError)
}

func TestServer_ScriptsResource(t *testing.T) {
	resp := rpc(t, newServer(t), 7, "resources/read", map[string]any{"uri": "convo://scripts"})
	require.Nil(t, resp.Error)

	var read struct {
		Contents []struct {
			URI  string `json:"uri"`
			Text string `json:"text"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &read))
	require.Len(t, read.Contents, 1)
	assert.JSONEq(t, `{"scripts":["confirm","greet"]}`, read.Contents[0].Text)
}

func ExampleNewServer() {
	s := script.New("hello").Say("Hello!").MustBuild()
	bot, _ := convo.New(memory.NewRegistry(s))
	srv := mcp.NewServer(bot, "dev")

	msg := srv.MCPServer().HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"handle_turn","arguments":{"session_id":"s1","script":"hello","text":""}}}`))
	raw, _ := json.Marshal(msg)
	var resp struct {
		Result struct {
			StructuredContent mcp.TurnResponse `json:"structuredContent"`
		} `json:"result"`
	}
	_ = json.Unmarshal(raw, &resp)
	fmt.Println(resp.Result.StructuredContent.Messages[0].Text)
	// Output: Hello!
}
