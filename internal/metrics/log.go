// Package metrics persists usage observations as an append-only JSONL log,
// one record per line. The log is the only state the gateway persists; the
// metrics dashboard consumes it read-only. Records are never rewritten.
package metrics

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultTailLimit is the number of records Tail returns when the caller
// does not specify a limit.
const DefaultTailLimit = 20

// Record is one usage/latency observation.
type Record struct {
	Timestamp int64   `json:"timestamp"` // epoch-ms
	Mode      string  `json:"mode"`
	Provider  string  `json:"provider"`
	LatencyMs *int64  `json:"latencyMs,omitempty"`
	TokensIn  *uint32 `json:"tokensIn,omitempty"`
	TokensOut *uint32 `json:"tokensOut,omitempty"`
	Success   bool    `json:"success"`
}

// Log is an append-only metrics store backed by a single JSONL file.
type Log struct {
	path   string
	logger *slog.Logger
}

// NewLog creates a metrics log at the given file path. The file and its
// directory are created on first append.
func NewLog(path string, logger *slog.Logger) *Log {
	return &Log{path: path, logger: logger}
}

// Path returns the log file location.
func (l *Log) Path() string { return l.path }

// Append serializes one record as a single line and appends it. Existing
// content is never rewritten; small appends are atomic to the extent the
// OS guarantees O_APPEND writes.
func (l *Log) Append(rec Record) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0750); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding metrics record: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("opening metrics log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending metrics record: %w", err)
	}
	return nil
}

// Tail returns up to limit of the most recent records in chronological
// order (oldest kept first). Lines that fail to parse are skipped with a
// diagnostic; they never fail the call. A missing log yields no records.
func (l *Log) Tail(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultTailLimit
	}

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("opening metrics log: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading metrics log: %w", err)
	}

	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}

	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			l.logger.Warn("skipping unparseable metrics line",
				slog.String("error", err.Error()),
			)
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}
