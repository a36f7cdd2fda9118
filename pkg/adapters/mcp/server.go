// Package mcp exposes a convo.Bot to AI agents as a Model Context Protocol
// server.
//
// Tools:
//
//	handle_turn   run one turn of a session, starting the script when needed
//	cancel        end every dialog of a session with outcome "canceled"
//	get_session   return the stored state of a session
//	list_scripts  list the registered script IDs
//	get_graph     render a script as a Mermaid flowchart
//
// The script list is also readable as the resource convo://scripts.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/convo"
	"github.com/aretw0/convo/internal/presentation/graph"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/ports"
	"github.com/aretw0/convo/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const scriptsURI = "convo://scripts"

// Bot is the part of convo.Bot exposed as tools.
type Bot interface {
	HandleTurn(ctx context.Context, sessionID, scriptID, text string) (*convo.TurnResult, error)
	Cancel(ctx context.Context, sessionID string) (*convo.TurnResult, error)
	Session(ctx context.Context, sessionID string) (*domain.State, error)
	Scripts() []string
	Registry() ports.ScriptRegistry
}

var _ Bot = (*convo.Bot)(nil)

// TurnResponse matches the body returned by the HTTP adapter for a turn.
type TurnResponse struct {
	SessionID string           `json:"session_id" jsonschema_description:"The session the turn ran in"`
	ScriptID  string           `json:"script_id" jsonschema_description:"The script of the innermost running dialog"`
	Messages  []domain.Message `json:"messages" jsonschema_description:"Messages delivered during the turn, in order"`
	Completed bool             `json:"completed" jsonschema_description:"True when the whole conversation has ended"`
	Outcome   string           `json:"outcome,omitempty" jsonschema_description:"completed, canceled or timeout once ended"`
	Result    string           `json:"result,omitempty" jsonschema_description:"The reply that completed the conversation, if any"`
}

// ScriptsResponse lists the registered scripts.
type ScriptsResponse struct {
	Scripts []string `json:"scripts" jsonschema_description:"Registered script IDs, sorted"`
}

type turnArgs struct {
	SessionID string `json:"session_id"`
	Script    string `json:"script"`
	Text      string `json:"text"`
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

type graphArgs struct {
	Script    string `json:"script"`
	SessionID string `json:"session_id"`
}

// Server wraps a Bot and exposes it as an MCP server.
type Server struct {
	bot           Bot
	logger        *slog.Logger
	defaultScript string
	mcpServer     *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger. Stdio servers must not log to stdout.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultScript is started by handle_turn calls that name no script.
func WithDefaultScript(id string) Option {
	return func(s *Server) {
		s.defaultScript = id
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(bot Bot, version string, opts ...Option) *Server {
	s := &Server{bot: bot, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("convo", strings.TrimSpace(version),
		server.WithRecovery(),
		server.WithResourceCapabilities(false, false),
	)
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, e.g. to mount it on another transport.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves JSON-RPC on in and out until ctx is done or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+localAddr(addr)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sse.SSEHandler())
	mux.Handle("/message", sse.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "addr", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

// localAddr turns ":8080" into "localhost:8080" for the advertised endpoint.
func localAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("handle_turn",
		mcp.WithDescription("Send the user's text to a session. Starts the script when the session has no running dialog."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation session ID")),
		mcp.WithString("text", mcp.Required(), mcp.Description("The user's reply")),
		mcp.WithString("script", mcp.Description("Script to start for a new session (optional)")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleTurn))

	s.mcpServer.AddTool(mcp.NewTool("cancel",
		mcp.WithDescription("End every running dialog of a session with outcome canceled."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation session ID")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleCancel))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Return the stored state of a session, including nested child dialogs."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation session ID")),
	), mcp.NewStructuredToolHandler(s.handleSession))

	s.mcpServer.AddTool(mcp.NewTool("list_scripts",
		mcp.WithDescription("List the IDs of the registered scripts."),
		mcp.WithOutputSchema[ScriptsResponse](),
	), mcp.NewStructuredToolHandler(s.handleScripts))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Render a script as a Mermaid flowchart. With session_id, the session's position is highlighted."),
		mcp.WithString("script", mcp.Required(), mcp.Description("Script ID")),
		mcp.WithString("session_id", mcp.Description("Session whose visited threads are highlighted (optional)")),
	), mcp.NewTypedToolHandler(s.handleGraph))
}

func (s *Server) handleTurn(ctx context.Context, request mcp.CallToolRequest, args turnArgs) (TurnResponse, error) {
	text, err := runner.SanitizeInput(args.Text)
	if err != nil {
		s.logger.Warn("mcp turn: input rejected", "error", err, "size", len(args.Text))
		return TurnResponse{}, fmt.Errorf("input rejected: %w", err)
	}
	scriptID := args.Script
	if scriptID == "" {
		scriptID = s.defaultScript
	}

	res, err := s.bot.HandleTurn(ctx, args.SessionID, scriptID, text)
	if err != nil {
		s.logger.Warn("mcp turn failed", "session", args.SessionID, "error", err)
		return TurnResponse{}, fmt.Errorf("turn failed: %w", err)
	}
	return toResponse(res), nil
}

func (s *Server) handleCancel(ctx context.Context, request mcp.CallToolRequest, args sessionArgs) (TurnResponse, error) {
	res, err := s.bot.Cancel(ctx, args.SessionID)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("cancel failed: %w", err)
	}
	return toResponse(res), nil
}

func (s *Server) handleSession(ctx context.Context, request mcp.CallToolRequest, args sessionArgs) (*domain.State, error) {
	return s.bot.Session(ctx, args.SessionID)
}

func (s *Server) handleScripts(ctx context.Context, request mcp.CallToolRequest, _ struct{}) (ScriptsResponse, error) {
	return ScriptsResponse{Scripts: s.bot.Scripts()}, nil
}

func (s *Server) handleGraph(ctx context.Context, request mcp.CallToolRequest, args graphArgs) (*mcp.CallToolResult, error) {
	sc, err := s.bot.Registry().Script(args.Script)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("script lookup failed", err), nil
	}

	var overlay *graph.Overlay
	if args.SessionID != "" {
		state, err := s.bot.Session(ctx, args.SessionID)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("session lookup failed", err), nil
		}
		if overlay = graph.OverlayFor(state, sc.ID()); overlay == nil {
			return mcp.NewToolResultError(fmt.Sprintf("session %s is not running %s", args.SessionID, sc.ID())), nil
		}
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(sc, overlay)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(scriptsURI, "Registered scripts",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(ScriptsResponse{Scripts: s.bot.Scripts()})
		if err != nil {
			return nil, fmt.Errorf("failed to encode scripts: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      scriptsURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

func toResponse(res *convo.TurnResult) TurnResponse {
	resp := TurnResponse{Messages: res.Messages, Completed: res.Completed()}
	if resp.Messages == nil {
		resp.Messages = []domain.Message{}
	}
	if res.State != nil {
		active := res.State.Active()
		resp.SessionID = res.State.SessionID
		resp.ScriptID = active.ScriptID
		resp.Outcome = active.Outcome()
		resp.Result = res.Result()
	}
	return resp
}
