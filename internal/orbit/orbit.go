// Package orbit implements the path containment rules for the safe orbit,
// the single directory all file and working-directory operations are
// confined to. Every caller-supplied path is rendered into an absolute
// path provably inside the orbit root, or rejected.
//
// Containment is purely lexical: symlinks are NOT resolved before the
// prefix check. This keeps the check deterministic and free of filesystem
// races, at the cost of not following links that point outside the orbit.
// The embedding application does not create such links.
package orbit

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutOfOrbit is returned for any path that would resolve outside the
// orbit root, including parent traversal past the root floor.
var ErrOutOfOrbit = errors.New("path is outside the safe orbit")

// ErrInvalidPath is returned for paths containing components that cannot
// appear in a relative orbit path (rooted or volume-prefixed components).
var ErrInvalidPath = errors.New("invalid path")

// Build resolves an optional caller path against the orbit root.
// An empty path maps to the root itself.
func Build(root, path string) (string, error) {
	if path == "" {
		return root, nil
	}
	return Contain(root, path)
}

// Contain renders a caller-supplied path into an absolute path inside root.
//
// Absolute inputs must have root as a literal prefix; the remainder is then
// resolved as a relative path. Relative inputs are walked component by
// component: "." is a no-op, named components descend, ".." ascends but is
// rejected once the accumulator sits at the root floor. After the walk the
// result is asserted to still be under root.
func Contain(root, path string) (string, error) {
	if filepath.IsAbs(path) || filepath.VolumeName(path) != "" {
		rel, ok := stripRoot(root, path)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrOutOfOrbit, path)
		}
		if rel == "" {
			return root, nil
		}
		return Contain(root, rel)
	}

	resolved := root
	for _, part := range strings.FieldsFunc(path, isSeparator) {
		switch part {
		case ".":
			// no-op
		case "..":
			if resolved == root {
				return "", fmt.Errorf("%w: %s", ErrOutOfOrbit, path)
			}
			resolved = filepath.Dir(resolved)
		default:
			if filepath.VolumeName(part) != "" {
				return "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
			}
			resolved = filepath.Join(resolved, part)
		}
	}

	// The walk above cannot leave the root, but the guarantee is cheap to
	// re-check and this function is the trust boundary.
	if _, ok := stripRoot(root, resolved); !ok {
		return "", fmt.Errorf("%w: %s", ErrOutOfOrbit, path)
	}

	return resolved, nil
}

// Relative maps a contained absolute path back to its orbit-relative form.
// The root itself maps to "."; separators are normalized to "/".
func Relative(root, target string) (string, error) {
	rel, ok := stripRoot(root, target)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrOutOfOrbit, target)
	}
	if rel == "" {
		return ".", nil
	}
	return strings.ReplaceAll(rel, string(filepath.Separator), "/"), nil
}

// stripRoot removes root as a literal path prefix from target.
// Returns the remainder (without a leading separator) and whether target
// is root itself or a descendant of it.
func stripRoot(root, target string) (string, bool) {
	if target == root {
		return "", true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if !strings.HasPrefix(target, prefix) {
		return "", false
	}
	return target[len(prefix):], true
}

func isSeparator(r rune) bool {
	return r == '/' || r == filepath.Separator
}
