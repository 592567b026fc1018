package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// JobLogPath returns the per-order log file for workID inside dir.
func JobLogPath(dir, workID string) string {
	return filepath.Join(dir, sanitizeFileName(workID)+".log")
}

// OpenJobLogger opens (appending) the per-order log file and returns a logger
// that writes every record both to base and to that file, tagged with the
// work order ID. The caller must Close the returned closer when the job ends.
func OpenJobLogger(base *slog.Logger, dir, format, level, workID string) (*slog.Logger, io.Closer, error) {
	if strings.TrimSpace(dir) == "" {
		return NewComponentLogger(base, "workflow").With(String(FieldWorkID, workID)), multiCloser(nil), nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure job log directory: %w", err)
	}
	handler, closers, err := newHandler(Options{
		Level:       level,
		Format:      format,
		OutputPaths: []string{JobLogPath(dir, workID)},
	})
	if err != nil {
		return nil, nil, err
	}
	logger := TeeLogger(base, handler).With(String(FieldWorkID, workID))
	return logger, multiCloser(closers), nil
}

func sanitizeFileName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, value)
}
