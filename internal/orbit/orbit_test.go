package orbit

import (
	"errors"
	"path/filepath"
	"testing"
)

var root = filepath.Join(string(filepath.Separator), "srv", "orbit")

func TestBuildEmptyPathIsRoot(t *testing.T) {
	got, err := Build(root, "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got != root {
		t.Errorf("Build(root, \"\") = %q, want %q", got, root)
	}
}

func TestContainRelative(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"single component", "docs", filepath.Join(root, "docs")},
		{"nested", "docs/notes/readme.md", filepath.Join(root, "docs", "notes", "readme.md")},
		{"dot is a no-op", "./docs/./readme.md", filepath.Join(root, "docs", "readme.md")},
		{"dot only", ".", root},
		{"parent inside orbit", "docs/../notes", filepath.Join(root, "notes")},
		{"collapses duplicate separators", "docs//readme.md", filepath.Join(root, "docs", "readme.md")},
		{"trailing separator", "docs/", filepath.Join(root, "docs")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Contain(root, tt.path)
			if err != nil {
				t.Fatalf("Contain(%q): %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("Contain(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestContainRejectsEscapes(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"parent of root", ".."},
		{"parent after descend and return", "docs/../.."},
		{"deep traversal", "../../etc/passwd"},
		{"interleaved traversal", "a/../../b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Contain(root, tt.path)
			if !errors.Is(err, ErrOutOfOrbit) {
				t.Errorf("Contain(%q) error = %v, want ErrOutOfOrbit", tt.path, err)
			}
		})
	}
}

func TestContainAbsolute(t *testing.T) {
	inside := filepath.Join(root, "docs", "readme.md")
	got, err := Contain(root, inside)
	if err != nil {
		t.Fatalf("Contain(%q): %v", inside, err)
	}
	if got != inside {
		t.Errorf("Contain(%q) = %q, want identity", inside, got)
	}

	// The root itself is contained.
	got, err = Contain(root, root)
	if err != nil {
		t.Fatalf("Contain(root): %v", err)
	}
	if got != root {
		t.Errorf("Contain(root) = %q, want %q", got, root)
	}
}

func TestContainAbsoluteOutsideRejected(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"unrelated absolute", "/etc/passwd"},
		{"parent of root", filepath.Dir(root)},
		{"sibling sharing a name prefix", root + "2/file.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Contain(root, tt.path)
			if !errors.Is(err, ErrOutOfOrbit) {
				t.Errorf("Contain(%q) error = %v, want ErrOutOfOrbit", tt.path, err)
			}
		})
	}
}

func TestContainAbsoluteTraversalInRemainder(t *testing.T) {
	// An absolute path under root whose remainder climbs back out must
	// still be rejected.
	path := filepath.Join(root, "docs") + "/../.."
	if _, err := Contain(root, path); !errors.Is(err, ErrOutOfOrbit) {
		t.Errorf("Contain(%q) error = %v, want ErrOutOfOrbit", path, err)
	}
}

func TestRelative(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"root maps to dot", root, "."},
		{"single component", filepath.Join(root, "docs"), "docs"},
		{"nested uses forward slashes", filepath.Join(root, "docs", "notes", "a.md"), "docs/notes/a.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Relative(root, tt.target)
			if err != nil {
				t.Fatalf("Relative(%q): %v", tt.target, err)
			}
			if got != tt.want {
				t.Errorf("Relative(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}

func TestRelativeRejectsOutside(t *testing.T) {
	if _, err := Relative(root, "/etc/passwd"); !errors.Is(err, ErrOutOfOrbit) {
		t.Errorf("Relative outside error = %v, want ErrOutOfOrbit", err)
	}
}

func TestContainRelativeRoundTrip(t *testing.T) {
	// Contain then Relative returns the normalized form of the input.
	paths := []string{"docs", "docs/notes/readme.md", "a/./b", "a/../b"}
	for _, p := range paths {
		abs, err := Contain(root, p)
		if err != nil {
			t.Fatalf("Contain(%q): %v", p, err)
		}
		rel, err := Relative(root, abs)
		if err != nil {
			t.Fatalf("Relative(%q): %v", abs, err)
		}
		abs2, err := Contain(root, rel)
		if err != nil {
			t.Fatalf("Contain(%q): %v", rel, err)
		}
		if abs2 != abs {
			t.Errorf("round trip of %q: %q != %q", p, abs2, abs)
		}
	}
}
