package artifacts

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"vidredact/internal/logging"
)

// Kinds of tracked artifacts.
const (
	KindSource       = "source"
	KindIntermediate = "intermediate"
	KindEncoded      = "encoded"
	KindDetections   = "detections"
	KindFinal        = "final"
)

// Entry is one tracked path. Required entries are expected to exist by the
// time the job ends; a missing required file is logged at debug level only.
type Entry struct {
	Kind     string
	Path     string
	Required bool
}

// Failure pairs a path with the error that kept it on disk.
type Failure struct {
	Kind string
	Path string
	Err  error
}

// Set is the artifact list for a single work order. It is safe for use by
// the worker and the executor goroutine.
type Set struct {
	mu      sync.Mutex
	workID  string
	entries []Entry
	cleaned bool
}

// NewSet returns an empty set for workID.
func NewSet(workID string) *Set {
	return &Set{workID: workID}
}

// Add tracks path. Empty paths and duplicates are ignored.
func (s *Set) Add(kind, path string, required bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Path == path {
			return
		}
	}
	s.entries = append(s.entries, Entry{Kind: kind, Path: path, Required: required})
}

// Entries returns a copy of the tracked entries in insertion order.
func (s *Set) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Cleanup removes every tracked file. Only the first call does any work.
func (s *Set) Cleanup(ctx context.Context, logger *slog.Logger) []Failure {
	s.mu.Lock()
	if s.cleaned {
		s.mu.Unlock()
		return nil
	}
	s.cleaned = true
	entries := append([]Entry(nil), s.entries...)
	s.mu.Unlock()

	logger = logging.WithContext(ctx, logger)
	var failures []Failure
	removed := 0
	for _, entry := range entries {
		err := os.Remove(entry.Path)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, fs.ErrNotExist):
			if entry.Required {
				logger.Debug("tracked artifact already absent",
					logging.String("kind", entry.Kind),
					logging.String("path", entry.Path),
				)
			}
		default:
			failures = append(failures, Failure{Kind: entry.Kind, Path: entry.Path, Err: err})
			logging.WarnWithContext(logger, "artifact removal failed; file remains", "artifact_cleanup_failed",
				logging.String(logging.FieldWorkID, s.workID),
				logging.String("kind", entry.Kind),
				logging.String("path", entry.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check work_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		}
	}
	logger.Debug("artifacts cleaned",
		logging.String(logging.FieldWorkID, s.workID),
		logging.Int("removed", removed),
		logging.Int("failed", len(failures)),
		logging.String(logging.FieldEventType, "artifact_cleanup"),
	)
	return failures
}
