// Package sweep reclaims stale announcement assets.
//
// Synthesized audio outlives its call file: the engine consumes call files
// itself but never touches the sounds directory. The sweeper removes assets
// older than the retention window so the disk does not fill up with one WAV
// per alert ever sent.
package sweep

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sweeper deletes prefixed files older than a retention window.
type Sweeper struct {
	dir    string
	prefix string
	maxAge time.Duration
	clock  func() time.Time
}

// New creates a Sweeper over dir for files whose name starts with prefix.
func New(dir, prefix string, maxAge time.Duration) *Sweeper {
	return &Sweeper{dir: dir, prefix: prefix, maxAge: maxAge, clock: time.Now}
}

// Sweep removes matching regular files whose age strictly exceeds the
// retention window and reports how many went. Per-file errors are skipped;
// only a failed directory scan surfaces, and callers are free to ignore
// even that.
func (s *Sweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("scanning %s: %w", s.dir, err)
	}

	cutoff := s.clock().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasPrefix(entry.Name(), s.prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			slog.Debug("could not stat sweep candidate", "name", entry.Name(), "error", err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			slog.Debug("could not remove stale asset", "path", path, "error", err)
			continue
		}
		slog.Debug("removed stale asset", "path", path, "age", s.clock().Sub(info.ModTime()))
		removed++
	}

	return removed, nil
}
