package sandbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestGateway(t *testing.T) (*Gateway, string) {
	t.Helper()
	root := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGateway(Config{OrbitRoot: root}, logger), root
}

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func TestExecShellRejectsUnlistedCommand(t *testing.T) {
	gw, _ := newTestGateway(t)
	for _, command := range []string{"curl", "bash", "rm", "ssh"} {
		_, err := gw.ExecShell(context.Background(), Request{Command: command})
		if !errors.Is(err, ErrCommandNotAllowed) {
			t.Errorf("ExecShell(%q) error = %v, want ErrCommandNotAllowed", command, err)
		}
	}
}

func TestExecShellRejectsChainingTokens(t *testing.T) {
	gw, _ := newTestGateway(t)
	_, err := gw.ExecShell(context.Background(), Request{
		Command: "ls",
		Args:    []string{"&&", "rm", "-rf", "/"},
	})
	if !errors.Is(err, ErrDisallowedToken) {
		t.Errorf("error = %v, want ErrDisallowedToken", err)
	}
}

func TestExecShellMissingWorkingDir(t *testing.T) {
	gw, _ := newTestGateway(t)
	_, err := gw.ExecShell(context.Background(), Request{
		Command: "ls",
		Cwd:     "no/such/dir",
	})
	if !errors.Is(err, ErrWorkingDirNotFound) {
		t.Errorf("error = %v, want ErrWorkingDirNotFound", err)
	}
}

func TestExecShellCwdOutsideOrbit(t *testing.T) {
	gw, _ := newTestGateway(t)
	_, err := gw.ExecShell(context.Background(), Request{
		Command: "ls",
		Cwd:     "../..",
	})
	if err == nil {
		t.Fatal("escape via cwd succeeded")
	}
}

func TestExecShellRuns(t *testing.T) {
	requireTool(t, "ls")
	gw, root := newTestGateway(t)
	if err := os.WriteFile(filepath.Join(root, "marker.txt"), []byte("x"), 0640); err != nil {
		t.Fatal(err)
	}

	result, err := gw.ExecShell(context.Background(), Request{Command: "ls"})
	if err != nil {
		t.Fatalf("ExecShell: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0 (stderr: %s)", result.ExitCode, result.Stderr)
	}
	if !strings.Contains(result.Stdout, "marker.txt") {
		t.Errorf("Stdout = %q, want it to contain marker.txt", result.Stdout)
	}
	if result.Cwd != "." {
		t.Errorf("Cwd = %q, want %q", result.Cwd, ".")
	}
	if result.DurationMs < 0 {
		t.Errorf("DurationMs = %d, want >= 0", result.DurationMs)
	}
}

func TestExecShellNonzeroExitIsAResult(t *testing.T) {
	requireTool(t, "ls")
	gw, _ := newTestGateway(t)

	result, err := gw.ExecShell(context.Background(), Request{
		Command: "ls",
		Args:    []string{"definitely-missing-entry"},
	})
	if err != nil {
		t.Fatalf("ExecShell: %v", err)
	}
	if result.ExitCode == 0 {
		t.Error("ExitCode = 0, want nonzero")
	}
	if result.Stderr == "" {
		t.Error("Stderr empty, want diagnostic output")
	}
}

func TestExecShellTimeout(t *testing.T) {
	requireTool(t, "tail")
	gw, _ := newTestGateway(t)

	start := time.Now()
	_, err := gw.ExecShell(context.Background(), Request{
		Command:   "tail",
		Args:      []string{"-f", "/dev/null"},
		TimeoutMs: 150,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %s, watchdog did not fire", elapsed)
	}
}

func TestExecGitOnlyGit(t *testing.T) {
	gw, _ := newTestGateway(t)
	_, err := gw.ExecGit(context.Background(), Request{Command: "ls", Args: []string{"status"}})
	if !errors.Is(err, ErrCommandNotAllowed) {
		t.Errorf("error = %v, want ErrCommandNotAllowed", err)
	}

	_, err = gw.ExecGit(context.Background(), Request{Command: "git"})
	if !errors.Is(err, ErrCommandNotAllowed) {
		t.Errorf("no-subcommand error = %v, want ErrCommandNotAllowed", err)
	}
}

func TestExecGitBlocksRemoteSubcommands(t *testing.T) {
	gw, _ := newTestGateway(t)
	for _, sub := range []string{"push", "PUSH", "Pull", "fetch", "remote", "clone"} {
		_, err := gw.ExecGit(context.Background(), Request{Command: "git", Args: []string{sub}})
		if !errors.Is(err, ErrRemoteOpDisabled) {
			t.Errorf("ExecGit(%q) error = %v, want ErrRemoteOpDisabled", sub, err)
		}
	}
}

func TestExecGitRuns(t *testing.T) {
	requireTool(t, "git")
	gw, _ := newTestGateway(t)

	result, err := gw.ExecGit(context.Background(), Request{Command: "git", Args: []string{"--version"}})
	if err != nil {
		t.Fatalf("ExecGit: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", result.ExitCode)
	}
	if !strings.Contains(result.Stdout, "git version") {
		t.Errorf("Stdout = %q, want git version banner", result.Stdout)
	}
	if result.Command != "git" {
		t.Errorf("Command = %q, want %q", result.Command, "git")
	}
}

func TestExecGitStatusRunsInRepo(t *testing.T) {
	requireTool(t, "git")
	gw, _ := newTestGateway(t)

	initResult, err := gw.ExecGit(context.Background(), Request{Command: "git", Args: []string{"init", "repo"}})
	if err != nil {
		t.Fatalf("ExecGit(init): %v", err)
	}
	if initResult.ExitCode != 0 {
		t.Fatalf("git init exit = %d (stderr: %s)", initResult.ExitCode, initResult.Stderr)
	}

	result, err := gw.ExecGit(context.Background(), Request{
		Command: "git",
		Args:    []string{"status", "--porcelain"},
		Cwd:     "repo",
	})
	if err != nil {
		t.Fatalf("ExecGit(status): %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0 (stderr: %s)", result.ExitCode, result.Stderr)
	}
	if result.Cwd != "repo" {
		t.Errorf("Cwd = %q, want %q", result.Cwd, "repo")
	}
}

func TestConfigureProcessGroupSetsCancel(t *testing.T) {
	cmd := exec.CommandContext(context.Background(), "ls")
	configureProcessGroup(cmd)
	if cmd.Cancel == nil {
		t.Fatal("Cancel not set, timed-out children would linger")
	}
}

func TestCapabilities(t *testing.T) {
	gw, _ := newTestGateway(t)
	caps := gw.Capabilities()
	if caps.DefaultTimeoutMs != DefaultTimeout.Milliseconds() {
		t.Errorf("DefaultTimeoutMs = %d, want %d", caps.DefaultTimeoutMs, DefaultTimeout.Milliseconds())
	}
	if len(caps.AllowedCommands) == 0 {
		t.Error("AllowedCommands empty")
	}
}

func TestInfoReportsRoot(t *testing.T) {
	gw, root := newTestGateway(t)
	info := gw.Info(context.Background())
	if info.Root != strings.ReplaceAll(root, "\\", "/") {
		t.Errorf("Root = %q, want %q", info.Root, root)
	}
}
