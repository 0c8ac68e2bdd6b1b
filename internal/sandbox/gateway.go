package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ruben-marchisio/Cerebro/internal/observability"
	"github.com/ruben-marchisio/Cerebro/internal/orbit"
)

// Gateway validates and spawns native processes confined to the safe orbit.
type Gateway struct {
	root           string
	defaultTimeout time.Duration
	logger         *slog.Logger
	metrics        *observability.MetricsCollector // nil = metrics disabled
}

// Config configures the execution gateway.
type Config struct {
	OrbitRoot      string
	DefaultTimeout time.Duration                   // zero = DefaultTimeout
	Metrics        *observability.MetricsCollector // optional
}

// NewGateway creates an execution gateway rooted at the orbit root.
func NewGateway(cfg Config, logger *slog.Logger) *Gateway {
	timeout := cfg.DefaultTimeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{
		root:           cfg.OrbitRoot,
		defaultTimeout: timeout,
		logger:         logger,
		metrics:        cfg.Metrics,
	}
}

// ExecShell runs an allow-listed developer tool. The program must match the
// fixed allow-list case-insensitively and no argument may contain shell
// chaining operators.
func (g *Gateway) ExecShell(ctx context.Context, req Request) (*Result, error) {
	if !isShellCommandAllowed(req.Command) {
		g.metrics.RecordPolicyRejection("shell", "command_not_allowed")
		return nil, fmt.Errorf("%w: %q", ErrCommandNotAllowed, req.Command)
	}
	if err := checkArgs(req.Args); err != nil {
		g.metrics.RecordPolicyRejection("shell", "disallowed_token")
		return nil, err
	}
	return g.run(ctx, "shell", req.Command, req)
}

// ExecGit runs a git subcommand. Only the git executable itself is
// permitted and subcommands that reach the network are rejected before
// anything is spawned.
func (g *Gateway) ExecGit(ctx context.Context, req Request) (*Result, error) {
	if req.Command != "git" && req.Command != "git.exe" {
		g.metrics.RecordPolicyRejection("git", "command_not_allowed")
		return nil, fmt.Errorf("%w: only git may be executed here, got %q", ErrCommandNotAllowed, req.Command)
	}
	if len(req.Args) == 0 {
		return nil, fmt.Errorf("%w: a git subcommand is required", ErrCommandNotAllowed)
	}
	if isGitSubcommandBlocked(req.Args[0]) {
		g.metrics.RecordPolicyRejection("git", "remote_op_disabled")
		return nil, fmt.Errorf("%w: %q", ErrRemoteOpDisabled, strings.ToLower(req.Args[0]))
	}
	return g.run(ctx, "git", "git", req)
}

// Capabilities describes the shell surface: the allow-list and the default
// timeout applied when the caller supplies none.
func (g *Gateway) Capabilities() Capabilities {
	return Capabilities{
		AllowedCommands:  AllowedShellCommands(),
		DefaultTimeoutMs: g.defaultTimeout.Milliseconds(),
	}
}

// Info reports the host git version (best effort, empty when git is
// missing) and the orbit root.
func (g *Gateway) Info(ctx context.Context) *GitInfo {
	info := &GitInfo{Root: strings.ReplaceAll(g.root, "\\", "/")}
	out, err := exec.CommandContext(ctx, "git", "--version").Output()
	if err == nil {
		info.Version = strings.TrimSpace(string(out))
	}
	return info
}

// run is the shared spawn primitive: resolve and verify the working
// directory, spawn, wait, capture. reportedName is the command recorded in
// the result ("git" is normalized even when invoked as git.exe).
func (g *Gateway) run(ctx context.Context, kind, reportedName string, req Request) (*Result, error) {
	workingDir, err := orbit.Build(g.root, req.Cwd)
	if err != nil {
		return nil, err
	}
	if info, statErr := os.Stat(workingDir); statErr != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrWorkingDirNotFound, req.Cwd)
	}

	timeout := g.defaultTimeout
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, req.Command, req.Args...)
	cmd.Dir = workingDir
	cmd.Env = mergeEnv(req.Env)
	configureProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	g.logger.InfoContext(ctx, "executing command",
		slog.String("kind", kind),
		slog.String("command", reportedName),
		slog.Any("args", req.Args),
		slog.String("dir", workingDir),
		slog.Duration("timeout", timeout),
	)

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if runErr != nil {
		if ctx.Err() != nil {
			g.metrics.RecordExec(kind, "timeout", duration)
			return nil, fmt.Errorf("%w: %q exceeded %s", ErrTimeout, reportedName, timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			// -1 when the process was signal-terminated without a code.
			exitCode = exitErr.ExitCode()
		} else {
			g.metrics.RecordExec(kind, "spawn_failure", duration)
			return nil, fmt.Errorf("%w: %v", ErrSpawnFailure, runErr)
		}
	}

	relCwd, err := orbit.Relative(g.root, workingDir)
	if err != nil {
		return nil, err
	}

	status := "ok"
	if exitCode != 0 {
		status = "nonzero_exit"
	}
	g.metrics.RecordExec(kind, status, duration)

	g.logger.InfoContext(ctx, "command completed",
		slog.String("kind", kind),
		slog.String("command", reportedName),
		slog.Int("exit_code", exitCode),
		slog.Duration("duration", duration),
	)

	return &Result{
		Command:    reportedName,
		Args:       req.Args,
		Cwd:        relCwd,
		ExitCode:   exitCode,
		Stdout:     strings.ToValidUTF8(stdout.String(), "�"),
		Stderr:     strings.ToValidUTF8(stderr.String(), "�"),
		DurationMs: duration.Milliseconds(),
	}, nil
}

// mergeEnv appends request overrides to the gateway's own environment; the
// child inherits PATH and locale from the host.
func mergeEnv(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return nil // exec default: inherit
	}
	env := os.Environ()
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}
	return env
}
