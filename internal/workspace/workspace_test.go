package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	home := t.TempDir()
	ws, err := New(Options{Home: home})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	wantOrbit := filepath.Join(home, "Documentos", "CerebroProjects")
	if ws.OrbitRoot != wantOrbit {
		t.Errorf("OrbitRoot = %q, want %q", ws.OrbitRoot, wantOrbit)
	}
	wantMetrics := filepath.Join(home, ".cerebro", "logs", "metrics.jsonl")
	if ws.MetricsPath != wantMetrics {
		t.Errorf("MetricsPath = %q, want %q", ws.MetricsPath, wantMetrics)
	}
}

func TestNewOverrides(t *testing.T) {
	home := t.TempDir()
	other := t.TempDir()

	tests := []struct {
		name     string
		override string
		want     string
	}{
		{"absolute", other, other},
		{"tilde-prefixed", "~/projects", filepath.Join(home, "projects")},
		{"home-relative", "work/orbit", filepath.Join(home, "work", "orbit")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws, err := New(Options{Home: home, OrbitRoot: tt.override})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if ws.OrbitRoot != tt.want {
				t.Errorf("OrbitRoot = %q, want %q", ws.OrbitRoot, tt.want)
			}
		})
	}
}

func TestNewFailsWithoutHome(t *testing.T) {
	t.Setenv("HOME", "")
	if _, err := New(Options{}); err == nil {
		t.Fatal("New succeeded without a home directory")
	}
}

func TestEnsureOrbit(t *testing.T) {
	home := t.TempDir()
	ws, err := New(Options{Home: home})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if ws.OrbitExists() {
		t.Error("OrbitExists = true before creation")
	}

	got, err := ws.EnsureOrbit()
	if err != nil {
		t.Fatalf("EnsureOrbit: %v", err)
	}
	if got != ws.OrbitRoot {
		t.Errorf("EnsureOrbit = %q, want %q", got, ws.OrbitRoot)
	}
	if !ws.OrbitExists() {
		t.Error("OrbitExists = false after creation")
	}

	// Idempotent.
	if _, err := ws.EnsureOrbit(); err != nil {
		t.Errorf("second EnsureOrbit: %v", err)
	}
}

func TestEnsureMetricsDir(t *testing.T) {
	home := t.TempDir()
	ws, err := New(Options{Home: home})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	path, err := ws.EnsureMetricsDir()
	if err != nil {
		t.Fatalf("EnsureMetricsDir: %v", err)
	}
	if path != ws.MetricsPath {
		t.Errorf("path = %q, want %q", path, ws.MetricsPath)
	}

	info, err := os.Stat(filepath.Dir(ws.MetricsPath))
	if err != nil || !info.IsDir() {
		t.Errorf("metrics directory missing after EnsureMetricsDir: %v", err)
	}
}
