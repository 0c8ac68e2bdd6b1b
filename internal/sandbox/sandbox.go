// Package sandbox is the process execution gateway: it validates requested
// programs and arguments against fixed allow and block lists, resolves the
// working directory inside the safe orbit, spawns the native process, and
// captures its output, exit status, and wall-clock duration.
//
// This is allow-listed execution, not OS-level isolation: the spawned
// process runs as the gateway's user. The policy layer exists to stop the
// control plane from assembling arbitrary or remote-network commands, not
// to contain a hostile binary.
package sandbox

import (
	"errors"
	"time"
)

// DefaultTimeout bounds command execution when the caller does not supply
// a timeout of its own.
const DefaultTimeout = 60 * time.Second

var (
	// ErrCommandNotAllowed is returned for programs outside the shell
	// allow-list, or for git entry points invoked with a non-git program.
	ErrCommandNotAllowed = errors.New("command not permitted by security policy")
	// ErrRemoteOpDisabled is returned for git subcommands that reach the
	// network; the gateway operates offline.
	ErrRemoteOpDisabled = errors.New("remote git operations are disabled")
	// ErrDisallowedToken is returned when an argument carries shell
	// chaining metacharacters.
	ErrDisallowedToken = errors.New("argument contains disallowed shell operators")
	// ErrWorkingDirNotFound is returned when the resolved working
	// directory does not exist.
	ErrWorkingDirNotFound = errors.New("working directory does not exist")
	// ErrSpawnFailure is returned when the process could not be started.
	ErrSpawnFailure = errors.New("failed to spawn process")
	// ErrTimeout is returned when the process exceeded its deadline and
	// was killed.
	ErrTimeout = errors.New("command timed out")
)

// Request describes one command execution. Cwd is orbit-relative (empty =
// orbit root); Env entries are appended to the gateway's own environment;
// TimeoutMs of zero uses DefaultTimeout.
type Request struct {
	Command   string
	Args      []string
	Cwd       string
	Env       map[string]string
	TimeoutMs int64
}

// Result captures one completed spawn. ExitCode is -1 when the process was
// terminated by a signal without reporting a code. Stdout and Stderr are
// decoded permissively: invalid byte sequences are replaced, never fatal.
type Result struct {
	Command    string   `json:"command"`
	Args       []string `json:"args"`
	Cwd        string   `json:"cwd,omitempty"` // orbit-relative
	ExitCode   int      `json:"exitCode"`
	Stdout     string   `json:"stdout"`
	Stderr     string   `json:"stderr"`
	DurationMs int64    `json:"durationMs"`
}

// Capabilities describes the shell execution surface to the control plane.
type Capabilities struct {
	AllowedCommands  []string `json:"allowed_commands"`
	DefaultTimeoutMs int64    `json:"defaultTimeoutMs"`
}

// GitInfo reports the host git version (best effort) and the orbit root.
type GitInfo struct {
	Version string `json:"version,omitempty"`
	Root    string `json:"root"`
}
