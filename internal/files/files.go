// Package files implements sandboxed file access: directory listing, reads
// and writes, all confined to the safe orbit via the containment rules in
// internal/orbit. Responses always report orbit-relative paths, never
// absolute host paths.
package files

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ruben-marchisio/Cerebro/internal/codec"
	"github.com/ruben-marchisio/Cerebro/internal/orbit"
)

// Encodings accepted by Read and Write. Comparison is case-insensitive.
const (
	EncodingUTF8   = "utf8"
	EncodingBase64 = "base64"
)

var (
	// ErrNotFound is returned when the target path does not exist.
	ErrNotFound = errors.New("path does not exist")
	// ErrWrongType is returned when the target exists but is not the kind
	// of entry the operation requires.
	ErrWrongType = errors.New("path is not of the required type")
	// ErrEncoding is returned for undecodable content or unknown encodings.
	ErrEncoding = errors.New("encoding error")
	// ErrExists is returned by Write when the target exists and
	// overwrite was disabled.
	ErrExists = errors.New("file already exists and overwrite=false")
)

// Entry is one immutable directory-listing entry.
type Entry struct {
	Name       string `json:"name"`
	Path       string `json:"path"` // orbit-relative, "/"-separated
	Type       string `json:"type"` // "file" or "directory"
	Size       int64  `json:"size"` // 0 for directories
	ModifiedAt *int64 `json:"modifiedAt,omitempty"`
}

// ReadResult is the outcome of a Read.
type ReadResult struct {
	Path     string `json:"path"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// WriteResult is the outcome of a Write.
type WriteResult struct {
	Path    string `json:"path"`
	Bytes   int    `json:"bytes"`
	Created bool   `json:"created"`
}

// Service provides sandboxed file operations rooted at the orbit root.
type Service struct {
	root   string
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per contained path, serializes writes
}

// NewService creates a file service confined to the given orbit root.
func NewService(root string, logger *slog.Logger) *Service {
	return &Service{
		root:   root,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// List returns the entries of a directory inside the orbit, sorted
// case-insensitively by name. An empty path lists the orbit root.
func (s *Service) List(path string) ([]Entry, error) {
	target, err := orbit.Build(s.root, path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrWrongType, path)
	}

	dirEntries, err := os.ReadDir(target)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		meta, err := de.Info()
		if err != nil {
			return nil, fmt.Errorf("reading entry %s: %w", de.Name(), err)
		}
		rel, err := orbit.Relative(s.root, filepath.Join(target, de.Name()))
		if err != nil {
			return nil, err
		}

		entry := Entry{
			Name: de.Name(),
			Path: rel,
			Type: "file",
		}
		if meta.IsDir() {
			entry.Type = "directory"
		} else {
			entry.Size = meta.Size()
		}
		if mod := meta.ModTime(); !mod.IsZero() && mod.Unix() > 0 {
			ms := mod.UnixMilli()
			entry.ModifiedAt = &ms
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})

	return entries, nil
}

// Read returns the content of a regular file inside the orbit. With the
// default utf8 encoding the file must be valid UTF-8 text; base64 returns
// the codec-encoded bytes and works for any content.
func (s *Service) Read(path, encoding string) (*ReadResult, error) {
	enc, err := normalizeEncoding(encoding)
	if err != nil {
		return nil, err
	}

	target, err := orbit.Contain(s.root, path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrWrongType, path)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var content string
	if enc == EncodingBase64 {
		content = codec.Encode(data)
	} else {
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%w: %s is not valid UTF-8 text, use base64 encoding", ErrEncoding, path)
		}
		content = string(data)
	}

	rel, err := orbit.Relative(s.root, target)
	if err != nil {
		return nil, err
	}

	s.logger.Info("file read",
		slog.String("path", rel),
		slog.String("encoding", enc),
		slog.Int("bytes", len(data)),
	)

	return &ReadResult{Path: rel, Encoding: enc, Content: content}, nil
}

// Write stores content at a path inside the orbit, creating missing parent
// directories. When overwrite is false an existing target is left untouched
// and ErrExists is returned. Writes to the same contained path are
// serialized so concurrent writers cannot interleave.
func (s *Service) Write(path, content, encoding string, overwrite bool) (*WriteResult, error) {
	enc, err := normalizeEncoding(encoding)
	if err != nil {
		return nil, err
	}

	target, err := orbit.Contain(s.root, path)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if enc == EncodingBase64 {
		payload, err = codec.Decode(content)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
		}
	} else {
		payload = []byte(content)
	}

	unlock := s.lockPath(target)
	defer unlock()

	existed := false
	if _, err := os.Stat(target); err == nil {
		existed = true
	}
	if existed && !overwrite {
		return nil, fmt.Errorf("%w: %s", ErrExists, path)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return nil, fmt.Errorf("creating parent directory for %s: %w", path, err)
	}
	if err := os.WriteFile(target, payload, 0640); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}

	rel, err := orbit.Relative(s.root, target)
	if err != nil {
		return nil, err
	}

	s.logger.Info("file write",
		slog.String("path", rel),
		slog.String("encoding", enc),
		slog.Int("bytes", len(payload)),
		slog.Bool("created", !existed),
	)

	return &WriteResult{Path: rel, Bytes: len(payload), Created: !existed}, nil
}

// lockPath acquires the per-path write lock and returns its release func.
func (s *Service) lockPath(target string) func() {
	s.mu.Lock()
	l, ok := s.locks[target]
	if !ok {
		l = &sync.Mutex{}
		s.locks[target] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func normalizeEncoding(encoding string) (string, error) {
	switch {
	case encoding == "" || strings.EqualFold(encoding, EncodingUTF8):
		return EncodingUTF8, nil
	case strings.EqualFold(encoding, EncodingBase64):
		return EncodingBase64, nil
	default:
		return "", fmt.Errorf("%w: unknown encoding %q", ErrEncoding, encoding)
	}
}
