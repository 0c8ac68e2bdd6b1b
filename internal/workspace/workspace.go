// Package workspace resolves the per-user directories the gateway operates
// on: the safe orbit (the only directory file and exec operations may touch)
// and the metrics log location. Both are resolved once at startup and
// injected into the services that need them, so tests can point everything
// at a temporary root.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// Default locations relative to the user's home directory. These match the
// paths the desktop application has always used, so a rewrite of the
// gateway finds existing user data in place.
const (
	defaultOrbitRelative   = "Documentos/CerebroProjects"
	defaultMetricsRelative = ".cerebro/logs/metrics.jsonl"
)

// ErrHomeUnresolvable means no home directory could be determined. Every
// sandboxed operation is fatal without one.
var ErrHomeUnresolvable = errors.New("cannot resolve the user home directory")

// Workspace holds the resolved gateway directories.
type Workspace struct {
	Home        string // user home directory
	OrbitRoot   string // safe orbit root, created lazily
	MetricsPath string // append-only metrics log file

	mu      sync.Mutex
	created map[string]bool
}

// Options overrides the default locations. Empty fields use defaults.
type Options struct {
	Home        string // override home resolution (tests)
	OrbitRoot   string // absolute, ~-prefixed, or relative to home
	MetricsPath string // absolute, ~-prefixed, or relative to home
}

// New resolves the workspace from the environment and the given overrides.
// Directories are not created here; EnsureOrbit and the metrics log create
// what they need on first use.
func New(opts Options) (*Workspace, error) {
	home := opts.Home
	if home == "" {
		var err error
		home, err = resolveHome()
		if err != nil {
			return nil, err
		}
	}

	return &Workspace{
		Home:        home,
		OrbitRoot:   resolveUnder(home, opts.OrbitRoot, defaultOrbitRelative),
		MetricsPath: resolveUnder(home, opts.MetricsPath, defaultMetricsRelative),
		created:     make(map[string]bool),
	}, nil
}

// EnsureOrbit creates the orbit root if it does not exist and returns it.
// Creation is idempotent and safe under concurrent callers.
func (w *Workspace) EnsureOrbit() (string, error) {
	if err := w.ensureDir(w.OrbitRoot, 0750); err != nil {
		return "", fmt.Errorf("creating orbit root: %w", err)
	}
	return w.OrbitRoot, nil
}

// OrbitExists reports whether the orbit root currently exists on disk.
func (w *Workspace) OrbitExists() bool {
	info, err := os.Stat(w.OrbitRoot)
	return err == nil && info.IsDir()
}

// EnsureMetricsDir creates the metrics log directory and returns the log path.
func (w *Workspace) EnsureMetricsDir() (string, error) {
	if err := w.ensureDir(filepath.Dir(w.MetricsPath), 0750); err != nil {
		return "", fmt.Errorf("creating metrics directory: %w", err)
	}
	return w.MetricsPath, nil
}

// ensureDir creates a directory once per process; MkdirAll keeps it safe
// when multiple processes race on the same path.
func (w *Workspace) ensureDir(path string, perm os.FileMode) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.created[path] {
		return nil
	}
	if err := os.MkdirAll(path, perm); err != nil {
		return err
	}
	w.created[path] = true
	return nil
}

// resolveHome determines the user home directory: $HOME everywhere, falling
// back to %USERPROFILE% on Windows.
func resolveHome() (string, error) {
	if home := os.Getenv("HOME"); home != "" {
		return home, nil
	}
	if runtime.GOOS == "windows" {
		if profile := os.Getenv("USERPROFILE"); profile != "" {
			return profile, nil
		}
	}
	return "", fmt.Errorf("%w: HOME is not set", ErrHomeUnresolvable)
}

// resolveUnder resolves an override (absolute, ~-prefixed, or home-relative)
// or the default home-relative path.
func resolveUnder(home, override, fallback string) string {
	p := override
	if p == "" {
		p = fallback
	}
	if strings.HasPrefix(p, "~/") || p == "~" {
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(home, filepath.FromSlash(p))
	}
	return filepath.Clean(p)
}
