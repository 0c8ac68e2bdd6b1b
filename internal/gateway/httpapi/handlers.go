package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jkaninda/okapi"

	"github.com/ruben-marchisio/Cerebro/internal/appctl"
	"github.com/ruben-marchisio/Cerebro/internal/codec"
	"github.com/ruben-marchisio/Cerebro/internal/files"
	"github.com/ruben-marchisio/Cerebro/internal/metrics"
	"github.com/ruben-marchisio/Cerebro/internal/orbit"
	"github.com/ruben-marchisio/Cerebro/internal/sandbox"
	"github.com/ruben-marchisio/Cerebro/internal/sysinfo"
)

// --- Files ---

// FilesListRequest is the JSON body for POST /v1/files/list.
type FilesListRequest struct {
	Path string `json:"path"` // Relative to the orbit root. Empty = root.
}

// FilesListResponse is the JSON response for POST /v1/files/list.
type FilesListResponse struct {
	Path    string        `json:"path"`
	Entries []files.Entry `json:"entries"`
}

// FilesReadRequest is the JSON body for POST /v1/files/read.
type FilesReadRequest struct {
	Path     string `json:"path"`
	Encoding string `json:"encoding,omitempty"` // "utf8" (default) or "base64".
}

// FilesWriteRequest is the JSON body for POST /v1/files/write.
type FilesWriteRequest struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Encoding  string `json:"encoding,omitempty"`
	Overwrite *bool  `json:"overwrite,omitempty"` // Default true.
}

// FilesInfoResponse is the JSON response for GET /v1/files/info.
type FilesInfoResponse struct {
	Root   string `json:"root"`
	Exists bool   `json:"exists"`
}

func (g *Gateway) handleFilesList(c *okapi.Context) error {
	if err := g.rateLimit(c); err != nil {
		return c.AbortTooManyRequests("rate limit exceeded")
	}

	var req FilesListRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}

	entries, err := g.observe(c, "files_list", func() (any, error) {
		list, err := g.files.List(req.Path)
		if err != nil {
			return nil, err
		}
		return FilesListResponse{Path: req.Path, Entries: list}, nil
	})
	if err != nil {
		return g.serviceError(c, err)
	}
	return c.OK(entries)
}

func (g *Gateway) handleFilesRead(c *okapi.Context) error {
	if err := g.rateLimit(c); err != nil {
		return c.AbortTooManyRequests("rate limit exceeded")
	}

	var req FilesReadRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.Path == "" {
		return c.AbortBadRequest("path is required")
	}

	result, err := g.observe(c, "files_read", func() (any, error) {
		return g.files.Read(req.Path, req.Encoding)
	})
	if err != nil {
		return g.serviceError(c, err)
	}
	return c.OK(result)
}

func (g *Gateway) handleFilesWrite(c *okapi.Context) error {
	if err := g.rateLimit(c); err != nil {
		return c.AbortTooManyRequests("rate limit exceeded")
	}

	var req FilesWriteRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.Path == "" {
		return c.AbortBadRequest("path is required")
	}
	overwrite := true
	if req.Overwrite != nil {
		overwrite = *req.Overwrite
	}

	result, err := g.observe(c, "files_write", func() (any, error) {
		return g.files.Write(req.Path, req.Content, req.Encoding, overwrite)
	})
	if err != nil {
		return g.serviceError(c, err)
	}
	return c.OK(result)
}

func (g *Gateway) handleFilesInfo(c *okapi.Context) error {
	return c.OK(FilesInfoResponse{
		Root:   g.workspace.OrbitRoot,
		Exists: g.workspace.OrbitExists(),
	})
}

// --- Exec ---

// ExecRequest is the JSON body for POST /v1/git/exec and /v1/shell/exec.
type ExecRequest struct {
	Command   string            `json:"command"`
	Args      []string          `json:"args,omitempty"`
	Cwd       string            `json:"cwd,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	TimeoutMs int64             `json:"timeoutMs,omitempty"`
}

func (g *Gateway) handleGitExec(c *okapi.Context) error {
	return g.handleExec(c, "git_exec", g.sandbox.ExecGit)
}

func (g *Gateway) handleShellExec(c *okapi.Context) error {
	return g.handleExec(c, "shell_exec", g.sandbox.ExecShell)
}

func (g *Gateway) handleExec(c *okapi.Context, operation string, run func(ctx context.Context, req sandbox.Request) (*sandbox.Result, error)) error {
	if err := g.rateLimit(c); err != nil {
		return c.AbortTooManyRequests("rate limit exceeded")
	}

	var req ExecRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.Command == "" {
		return c.AbortBadRequest("command is required")
	}

	correlationID := newCorrelationID()
	g.logger.Info("exec request",
		slog.String("operation", operation),
		slog.String("correlation_id", correlationID),
		slog.String("command", req.Command),
		slog.String("client_id", c.GetString("clientID")),
	)

	result, err := g.observe(c, operation, func() (any, error) {
		return run(c.Context(), sandbox.Request{
			Command:   req.Command,
			Args:      req.Args,
			Cwd:       req.Cwd,
			Env:       req.Env,
			TimeoutMs: req.TimeoutMs,
		})
	})
	if err != nil {
		g.logger.Warn("exec rejected or failed",
			slog.String("operation", operation),
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		return g.serviceError(c, err)
	}
	return c.OK(result)
}

func (g *Gateway) handleGitInfo(c *okapi.Context) error {
	return c.OK(g.sandbox.Info(c.Context()))
}

func (g *Gateway) handleShellCapabilities(c *okapi.Context) error {
	return c.OK(g.sandbox.Capabilities())
}

// --- System ---

func (g *Gateway) handleSystemInfo(c *okapi.Context) error {
	return c.OK(sysinfo.Read(c.Context()))
}

func (g *Gateway) handleSystemPaths(c *okapi.Context) error {
	return c.OK(sysinfo.Paths{
		Home:      g.workspace.Home,
		SafeOrbit: g.workspace.OrbitRoot,
	})
}

// --- Usage metrics log ---

// MetricsTailResponse is the JSON response for GET /v1/metrics.
type MetricsTailResponse struct {
	Records []metrics.Record `json:"records"`
}

func (g *Gateway) handleMetricsAppend(c *okapi.Context) error {
	if err := g.rateLimit(c); err != nil {
		return c.AbortTooManyRequests("rate limit exceeded")
	}

	var rec metrics.Record
	if err := c.Bind(&rec); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if rec.Mode == "" || rec.Provider == "" {
		return c.AbortBadRequest("mode and provider are required")
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixMilli()
	}

	if _, err := g.observe(c, "metrics_append", func() (any, error) {
		return nil, g.usage.Append(rec)
	}); err != nil {
		return c.AbortInternalServerError("appending metrics record failed")
	}
	return c.OK(map[string]string{"status": "ok"})
}

func (g *Gateway) handleMetricsTail(c *okapi.Context) error {
	limit := 0
	if raw := c.Request().URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return c.AbortBadRequest("limit must be an integer")
		}
		limit = parsed
	}

	records, err := g.usage.Tail(limit)
	if err != nil {
		return c.AbortInternalServerError("reading metrics log failed")
	}
	return c.OK(MetricsTailResponse{Records: records})
}

// --- App control ---

func (g *Gateway) handleAppExec(c *okapi.Context) error {
	if err := g.rateLimit(c); err != nil {
		return c.AbortTooManyRequests("rate limit exceeded")
	}

	var req appctl.Request
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}

	if _, err := g.observe(c, "app_exec", func() (any, error) {
		return nil, g.appctl.Dispatch(c.Context(), req)
	}); err != nil {
		return g.serviceError(c, err)
	}
	return c.OK(map[string]string{"status": "ok"})
}

func (g *Gateway) handleAppCapabilities(c *okapi.Context) error {
	return c.OK(g.appctl.Capabilities())
}

// --- Health ---

// HealthResponse is the JSON response for the liveness probe.
type HealthResponse struct {
	Status string `json:"status"`
}

func (g *Gateway) handleLiveness(c *okapi.Context) error {
	return c.OK(&HealthResponse{Status: "ok"})
}

func (g *Gateway) handleReadiness(c *okapi.Context) error {
	if g.config.HealthChecker == nil {
		return c.OK(&HealthResponse{Status: "ok"})
	}

	status := g.config.HealthChecker.CheckReady(c.Context())
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}

// --- Shared helpers ---

// observe runs fn and records its outcome in the operation metrics.
func (g *Gateway) observe(c *okapi.Context, operation string, fn func() (any, error)) (any, error) {
	start := time.Now()
	result, err := fn()
	status := "success"
	if err != nil {
		status = "error"
	}
	if g.config.Metrics != nil {
		g.config.Metrics.RecordOperation(operation, status, time.Since(start))
	}
	return result, err
}

// serviceError maps service errors to HTTP statuses. Messages pass through
// verbatim so the desktop client can show them unchanged.
func (g *Gateway) serviceError(c *okapi.Context, err error) error {
	switch {
	case errors.Is(err, sandbox.ErrCommandNotAllowed),
		errors.Is(err, sandbox.ErrRemoteOpDisabled),
		errors.Is(err, sandbox.ErrDisallowedToken),
		errors.Is(err, orbit.ErrOutOfOrbit):
		return c.JSON(http.StatusForbidden, ErrorBody{Error: err.Error()})
	case errors.Is(err, files.ErrNotFound),
		errors.Is(err, sandbox.ErrWorkingDirNotFound):
		return c.JSON(http.StatusNotFound, ErrorBody{Error: err.Error()})
	case errors.Is(err, files.ErrExists):
		return c.JSON(http.StatusConflict, ErrorBody{Error: err.Error()})
	case errors.Is(err, sandbox.ErrTimeout):
		return c.JSON(http.StatusGatewayTimeout, ErrorBody{Error: err.Error()})
	case errors.Is(err, files.ErrWrongType),
		errors.Is(err, files.ErrEncoding),
		errors.Is(err, codec.ErrInvalidInput),
		errors.Is(err, orbit.ErrInvalidPath),
		errors.Is(err, appctl.ErrUnknownOp):
		return c.AbortBadRequest(err.Error())
	case errors.Is(err, appctl.ErrNoController):
		return c.AbortServiceUnavailable(err.Error())
	default:
		g.logger.Error("request failed", slog.String("error", err.Error()))
		return c.AbortInternalServerError(err.Error())
	}
}
