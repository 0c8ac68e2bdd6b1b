// Package mcpserver exposes the command-and-file gateway as an MCP (Model
// Context Protocol) server over stdio. Every tool call flows through the
// same services as the HTTP transport, so policy checks and orbit
// containment apply identically on both surfaces.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ruben-marchisio/Cerebro/internal/appctl"
	"github.com/ruben-marchisio/Cerebro/internal/files"
	"github.com/ruben-marchisio/Cerebro/internal/metrics"
	"github.com/ruben-marchisio/Cerebro/internal/sandbox"
	"github.com/ruben-marchisio/Cerebro/internal/sysinfo"
	"github.com/ruben-marchisio/Cerebro/internal/workspace"
)

// Server wires gateway services into MCP tools.
type Server struct {
	mcp       *server.MCPServer
	workspace *workspace.Workspace
	files     *files.Service
	sandbox   *sandbox.Gateway
	usage     *metrics.Log
	appctl    *appctl.Dispatcher
	logger    *slog.Logger
}

// New creates an MCP server over the injected services and registers all
// gateway tools.
func New(
	ws *workspace.Workspace,
	fs *files.Service,
	sb *sandbox.Gateway,
	usage *metrics.Log,
	app *appctl.Dispatcher,
	logger *slog.Logger,
) *Server {
	s := &Server{
		mcp: server.NewMCPServer(
			"cerebro-gateway",
			"0.1.0",
			server.WithToolCapabilities(false),
		),
		workspace: ws,
		files:     fs,
		sandbox:   sb,
		usage:     usage,
		appctl:    app,
		logger:    logger,
	}
	s.registerTools()
	return s
}

// ServeStdio runs the server on stdin/stdout until the stream closes.
func (s *Server) ServeStdio() error {
	s.logger.Info("mcp server starting on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("files_list",
		mcp.WithDescription("List a directory inside the safe orbit. Path is relative to the orbit root; empty lists the root."),
		mcp.WithString("path", mcp.Description("Directory path relative to the orbit root")),
	), s.handleFilesList)

	s.mcp.AddTool(mcp.NewTool("files_read",
		mcp.WithDescription("Read a file inside the safe orbit as UTF-8 text or base64."),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path relative to the orbit root")),
		mcp.WithString("encoding", mcp.Description("\"utf8\" (default) or \"base64\"")),
	), s.handleFilesRead)

	s.mcp.AddTool(mcp.NewTool("files_write",
		mcp.WithDescription("Write a file inside the safe orbit, creating parent directories as needed."),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path relative to the orbit root")),
		mcp.WithString("content", mcp.Required(), mcp.Description("File content, UTF-8 text or base64 per encoding")),
		mcp.WithString("encoding", mcp.Description("\"utf8\" (default) or \"base64\"")),
		mcp.WithBoolean("overwrite", mcp.Description("Replace an existing file (default true)")),
	), s.handleFilesWrite)

	s.mcp.AddTool(mcp.NewTool("files_info",
		mcp.WithDescription("Report the safe orbit root and whether it exists on disk."),
	), s.handleFilesInfo)

	s.mcp.AddTool(mcp.NewTool("git_exec",
		mcp.WithDescription("Run a git subcommand inside the safe orbit. Remote operations (push, pull, fetch, remote, clone) are disabled."),
		mcp.WithString("command", mcp.Required(), mcp.Description("Must be \"git\"")),
		mcp.WithArray("args", mcp.Description("Git subcommand and its arguments")),
		mcp.WithString("cwd", mcp.Description("Working directory relative to the orbit root")),
		mcp.WithObject("env", mcp.Description("Extra environment variables for the child process")),
		mcp.WithNumber("timeoutMs", mcp.Description("Wall-clock timeout in milliseconds (default 60000)")),
	), s.handleGitExec)

	s.mcp.AddTool(mcp.NewTool("git_info",
		mcp.WithDescription("Report the installed git version and the orbit root."),
	), s.handleGitInfo)

	s.mcp.AddTool(mcp.NewTool("shell_exec",
		mcp.WithDescription("Run an allow-listed command inside the safe orbit. Shell metacharacters (&, |, ;) are rejected."),
		mcp.WithString("command", mcp.Required(), mcp.Description("Command name, must be on the allow list")),
		mcp.WithArray("args", mcp.Description("Command arguments")),
		mcp.WithString("cwd", mcp.Description("Working directory relative to the orbit root")),
		mcp.WithObject("env", mcp.Description("Extra environment variables for the child process")),
		mcp.WithNumber("timeoutMs", mcp.Description("Wall-clock timeout in milliseconds (default 60000)")),
	), s.handleShellExec)

	s.mcp.AddTool(mcp.NewTool("shell_capabilities",
		mcp.WithDescription("List the allow-listed commands and the default timeout."),
	), s.handleShellCapabilities)

	s.mcp.AddTool(mcp.NewTool("system_info",
		mcp.WithDescription("Best-effort host telemetry: memory, CPU, uptime, process count."),
	), s.handleSystemInfo)

	s.mcp.AddTool(mcp.NewTool("system_paths",
		mcp.WithDescription("Resolved home directory and safe orbit root."),
	), s.handleSystemPaths)

	s.mcp.AddTool(mcp.NewTool("metrics_append",
		mcp.WithDescription("Append one usage record to the append-only metrics log."),
		mcp.WithString("mode", mcp.Required(), mcp.Description("Interaction mode, e.g. \"chat\"")),
		mcp.WithString("provider", mcp.Required(), mcp.Description("Model provider name")),
		mcp.WithNumber("latencyMs", mcp.Description("Observed latency in milliseconds")),
		mcp.WithNumber("tokensIn", mcp.Description("Input token count")),
		mcp.WithNumber("tokensOut", mcp.Description("Output token count")),
		mcp.WithBoolean("success", mcp.Description("Whether the interaction succeeded (default true)")),
	), s.handleMetricsAppend)

	s.mcp.AddTool(mcp.NewTool("metrics_tail",
		mcp.WithDescription("Read the most recent usage records from the metrics log."),
		mcp.WithNumber("limit", mcp.Description("Maximum records to return (default 20)")),
	), s.handleMetricsTail)

	s.mcp.AddTool(mcp.NewTool("app_exec",
		mcp.WithDescription("Run a window/lifecycle operation on the embedding shell."),
		mcp.WithString("op", mcp.Required(), mcp.Description("One of show_main_window, toggle_devtools, set_always_on_top")),
		mcp.WithBoolean("flag", mcp.Description("Boolean argument for set_always_on_top")),
	), s.handleAppExec)

	s.mcp.AddTool(mcp.NewTool("app_capabilities",
		mcp.WithDescription("List the supported app operations."),
	), s.handleAppCapabilities)
}

// --- Tool handlers ---

func (s *Server) handleFilesList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.files.List(req.GetString("path", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(entries)
}

func (s *Server) handleFilesRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.files.Read(path, req.GetString("encoding", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleFilesWrite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.files.Write(path, content, req.GetString("encoding", ""), req.GetBool("overwrite", true))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleFilesInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{
		"root":   s.workspace.OrbitRoot,
		"exists": s.workspace.OrbitExists(),
	})
}

func (s *Server) handleGitExec(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleExec(ctx, req, s.sandbox.ExecGit)
}

func (s *Server) handleShellExec(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleExec(ctx, req, s.sandbox.ExecShell)
}

func (s *Server) handleExec(ctx context.Context, req mcp.CallToolRequest, run func(ctx context.Context, req sandbox.Request) (*sandbox.Result, error)) (*mcp.CallToolResult, error) {
	command, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := run(ctx, sandbox.Request{
		Command:   command,
		Args:      stringSliceArg(req, "args"),
		Cwd:       req.GetString("cwd", ""),
		Env:       stringMapArg(req, "env"),
		TimeoutMs: int64(req.GetFloat("timeoutMs", 0)),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleGitInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.sandbox.Info(ctx))
}

func (s *Server) handleShellCapabilities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.sandbox.Capabilities())
}

func (s *Server) handleSystemInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(sysinfo.Read(ctx))
}

func (s *Server) handleSystemPaths(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(sysinfo.Paths{
		Home:      s.workspace.Home,
		SafeOrbit: s.workspace.OrbitRoot,
	})
}

func (s *Server) handleMetricsAppend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := req.RequireString("mode")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	provider, err := req.RequireString("provider")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec := metrics.Record{
		Timestamp: time.Now().UnixMilli(),
		Mode:      mode,
		Provider:  provider,
		Success:   req.GetBool("success", true),
	}
	if v, ok := numberArg(req, "latencyMs"); ok {
		latency := int64(v)
		rec.LatencyMs = &latency
	}
	if v, ok := numberArg(req, "tokensIn"); ok {
		tokens := uint32(v)
		rec.TokensIn = &tokens
	}
	if v, ok := numberArg(req, "tokensOut"); ok {
		tokens := uint32(v)
		rec.TokensOut = &tokens
	}

	if err := s.usage.Append(rec); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(`{"status":"ok"}`), nil
}

func (s *Server) handleMetricsTail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := s.usage.Tail(int(req.GetFloat("limit", 0)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(records)
}

func (s *Server) handleAppExec(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	op, err := req.RequireString("op")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	request := appctl.Request{Op: appctl.Op(op)}
	if raw, ok := req.GetArguments()["flag"]; ok {
		if flag, ok := raw.(bool); ok {
			request.Flag = &flag
		}
	}

	if err := s.appctl.Dispatch(ctx, request); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(`{"status":"ok"}`), nil
}

func (s *Server) handleAppCapabilities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.appctl.Capabilities())
}

// --- Helpers ---

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func stringSliceArg(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringMapArg(req mcp.CallToolRequest, key string) map[string]string {
	raw, ok := req.GetArguments()[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func numberArg(req mcp.CallToolRequest, key string) (float64, bool) {
	v, ok := req.GetArguments()[key].(float64)
	return v, ok
}
