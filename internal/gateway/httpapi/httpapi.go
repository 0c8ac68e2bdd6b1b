// Package httpapi exposes the command-and-file gateway over HTTP.
//
// Security:
//   - Optional API key authentication (constant-time comparison). When no
//     keys are configured the gateway trusts the loopback caller, which is
//     the normal desktop deployment.
//   - Per-client rate limiting via token bucket
//   - Request body size limits (default 1 MB)
//   - All requests logged with correlation IDs
//   - TLS expected via reverse proxy (not handled here)
package httpapi

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/google/uuid"
	"github.com/jkaninda/okapi"

	"github.com/ruben-marchisio/Cerebro/internal/appctl"
	"github.com/ruben-marchisio/Cerebro/internal/files"
	"github.com/ruben-marchisio/Cerebro/internal/metrics"
	"github.com/ruben-marchisio/Cerebro/internal/observability"
	"github.com/ruben-marchisio/Cerebro/internal/ratelimit"
	"github.com/ruben-marchisio/Cerebro/internal/sandbox"
	"github.com/ruben-marchisio/Cerebro/internal/workspace"
)

const defaultMaxRequestSize = 1 << 20 // 1 MB

// ErrorBody is the standard error response used in OpenAPI documentation.
type ErrorBody struct {
	Error string `json:"error"`
}

// Config configures the HTTP gateway.
type Config struct {
	ListenAddr     string // e.g., "127.0.0.1:4517"
	EnableDocs     bool
	APIKeys        map[string]string // API key -> client ID. Empty map disables auth.
	MaxRequestSize int64             // Maximum request body in bytes. 0 = 1 MB default.

	// Observability
	MetricsRegistry *prometheus.Registry            // Custom Prometheus registry for /metrics.
	MetricsPath     string                          // Path for metrics endpoint. Default: "/metrics".
	HealthChecker   *observability.HealthChecker    // Health checker for /readyz.
	Metrics         *observability.MetricsCollector // Metrics collector for HTTP middleware.
	Tracer          trace.Tracer                    // OTel tracer for HTTP middleware.
}

// Gateway is the HTTP transport over the gateway services.
type Gateway struct {
	config    Config
	workspace *workspace.Workspace
	files     *files.Service
	sandbox   *sandbox.Gateway
	usage     *metrics.Log
	appctl    *appctl.Dispatcher
	limiter   *ratelimit.Limiter
	logger    *slog.Logger
	server    *http.Server

	okapi *okapi.Okapi
	group *okapi.Group
}

// NewGateway creates an HTTP gateway over the injected services.
func NewGateway(
	cfg Config,
	ws *workspace.Workspace,
	fs *files.Service,
	sb *sandbox.Gateway,
	usage *metrics.Log,
	app *appctl.Dispatcher,
	rl *ratelimit.Limiter,
	logger *slog.Logger,
) *Gateway {
	return &Gateway{
		config:    cfg,
		workspace: ws,
		files:     fs,
		sandbox:   sb,
		usage:     usage,
		appctl:    app,
		limiter:   rl,
		logger:    logger,
		okapi:     okapi.New(okapi.WithMaxMultipartMemory(defaultMaxRequestSize)),
	}
}

// WithOpenAPIDocs enables the generated OpenAPI documentation endpoint.
func (g *Gateway) WithOpenAPIDocs() *Gateway {
	g.okapi.WithOpenAPIDocs(
		okapi.OpenAPI{
			Title:   "Cerebro Gateway",
			Version: "v0.1.0",
		},
	)
	return g
}

// Start launches the HTTP server and blocks until it exits or ctx is canceled.
func (g *Gateway) Start(ctx context.Context) error {
	// Authenticated /v1 group, with request-ID and metrics/tracing middleware.
	g.group = g.okapi.Group("/v1",
		g.requestID,
		g.authenticate,
		observability.MetricsMiddleware(g.config.Metrics, g.config.Tracer),
	)

	// File endpoints.
	g.group.Post("/files/list", g.handleFilesList,
		okapi.DocSummary("List a directory inside the safe orbit"),
		okapi.DocTags("Files"),
		okapi.DocRequestBody(FilesListRequest{}),
		okapi.DocResponse(FilesListResponse{}),
		okapi.DocResponse(http.StatusForbidden, ErrorBody{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Post("/files/read", g.handleFilesRead,
		okapi.DocSummary("Read a file inside the safe orbit"),
		okapi.DocTags("Files"),
		okapi.DocRequestBody(FilesReadRequest{}),
		okapi.DocResponse(files.ReadResult{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
		okapi.DocResponse(http.StatusForbidden, ErrorBody{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Post("/files/write", g.handleFilesWrite,
		okapi.DocSummary("Write a file inside the safe orbit"),
		okapi.DocTags("Files"),
		okapi.DocRequestBody(FilesWriteRequest{}),
		okapi.DocResponse(files.WriteResult{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
		okapi.DocResponse(http.StatusForbidden, ErrorBody{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.group.Get("/files/info", g.handleFilesInfo,
		okapi.DocSummary("Report the safe orbit root and whether it exists"),
		okapi.DocTags("Files"),
		okapi.DocResponse(FilesInfoResponse{}),
	)

	// Process execution endpoints.
	g.group.Post("/git/exec", g.handleGitExec,
		okapi.DocSummary("Run a git subcommand inside the safe orbit"),
		okapi.DocTags("Exec"),
		okapi.DocRequestBody(ExecRequest{}),
		okapi.DocResponse(sandbox.Result{}),
		okapi.DocResponse(http.StatusForbidden, ErrorBody{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
		okapi.DocResponse(http.StatusGatewayTimeout, ErrorBody{}),
	)
	g.group.Get("/git/info", g.handleGitInfo,
		okapi.DocSummary("Report git version and the orbit root"),
		okapi.DocTags("Exec"),
		okapi.DocResponse(sandbox.GitInfo{}),
	)
	g.group.Post("/shell/exec", g.handleShellExec,
		okapi.DocSummary("Run an allow-listed shell command inside the safe orbit"),
		okapi.DocTags("Exec"),
		okapi.DocRequestBody(ExecRequest{}),
		okapi.DocResponse(sandbox.Result{}),
		okapi.DocResponse(http.StatusForbidden, ErrorBody{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
		okapi.DocResponse(http.StatusGatewayTimeout, ErrorBody{}),
	)
	g.group.Get("/shell/capabilities", g.handleShellCapabilities,
		okapi.DocSummary("List allow-listed commands and the default timeout"),
		okapi.DocTags("Exec"),
		okapi.DocResponse(sandbox.Capabilities{}),
	)

	// Host telemetry endpoints.
	g.group.Get("/system/info", g.handleSystemInfo,
		okapi.DocSummary("Best-effort host telemetry snapshot"),
		okapi.DocTags("System"),
	)
	g.group.Get("/system/paths", g.handleSystemPaths,
		okapi.DocSummary("Resolved home directory and orbit root"),
		okapi.DocTags("System"),
	)

	// Usage metrics log endpoints.
	g.group.Post("/metrics", g.handleMetricsAppend,
		okapi.DocSummary("Append one usage record to the metrics log"),
		okapi.DocTags("Metrics"),
		okapi.DocRequestBody(metrics.Record{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
	)
	g.group.Get("/metrics", g.handleMetricsTail,
		okapi.DocSummary("Read the most recent usage records"),
		okapi.DocTags("Metrics"),
		okapi.DocResponse(MetricsTailResponse{}),
	)

	// App control endpoints.
	g.group.Post("/app/exec", g.handleAppExec,
		okapi.DocSummary("Run a window/lifecycle operation on the embedding shell"),
		okapi.DocTags("App"),
		okapi.DocRequestBody(appctl.Request{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
		okapi.DocResponse(http.StatusServiceUnavailable, ErrorBody{}),
	)
	g.group.Get("/app/capabilities", g.handleAppCapabilities,
		okapi.DocSummary("List supported app operations"),
		okapi.DocTags("App"),
		okapi.DocResponse(appctl.Capabilities{}),
	)

	// Observability endpoints (unauthenticated).
	g.okapi.Get("/healthz", g.handleLiveness)
	g.okapi.Get("/readyz", g.handleReadiness)

	if g.config.MetricsRegistry != nil {
		path := g.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		g.okapi.HandleStd("GET", path, promhttp.HandlerFor(g.config.MetricsRegistry, promhttp.HandlerOpts{}).ServeHTTP)
	}
	if g.config.EnableDocs {
		g.WithOpenAPIDocs()
	}

	g.server = &http.Server{
		Addr:              g.config.ListenAddr,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	g.logger.Info("http gateway starting", slog.String("addr", g.config.ListenAddr))

	return g.okapi.StartServer(g.server)
}

// Stop gracefully shuts down the HTTP server.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	g.logger.Info("http gateway stopping")
	return g.okapi.Shutdown(g.server)
}

// requestID tags every request with a unique ID, honoring one supplied by
// the caller, and echoes it back for client-side correlation.
func (g *Gateway) requestID(next okapi.HandlerFunc) okapi.HandlerFunc {
	return func(c *okapi.Context) error {
		id := c.Header("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("requestID", id)
		c.Response().Header().Set("X-Request-Id", id)
		return next(c)
	}
}

// authenticate validates the API key and stores the mapped client ID.
// With no configured keys the caller is treated as the local client.
func (g *Gateway) authenticate(next okapi.HandlerFunc) okapi.HandlerFunc {
	return func(c *okapi.Context) error {
		if len(g.config.APIKeys) == 0 {
			c.Set("clientID", "local")
			return next(c)
		}

		authHeader := c.Header("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.AbortUnauthorized("missing or invalid Authorization header")
		}
		apiKey := strings.TrimPrefix(authHeader, "Bearer ")

		clientID := ""
		for key, id := range g.config.APIKeys {
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
				clientID = id
			}
		}
		if clientID == "" {
			return c.AbortUnauthorized("invalid API key")
		}
		c.Set("clientID", clientID)
		return next(c)
	}
}

// rateLimit applies the per-client token bucket, keyed by client ID.
func (g *Gateway) rateLimit(c *okapi.Context) error {
	if g.limiter == nil {
		return nil
	}
	return g.limiter.Allow(c.GetString("clientID"))
}

func newCorrelationID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
