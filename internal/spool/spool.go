// Package spool publishes call origination files into the Asterisk
// outgoing spool.
//
// The engine scans the pickup directory and originates one call per file
// it finds there. A partially written file must never be visible under
// its final name, so publication stages the content under a ".tmp" suffix
// the engine ignores and renames it into place; within one directory the
// rename is atomic.
package spool

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/axluca/callspool/internal/observability"
)

// FilePrefix starts every published call file name.
const FilePrefix = "akira"

// Artifact describes one call origination request for the engine.
type Artifact struct {
	Technology  string // channel technology, e.g. "PJSIP"
	Destination string // dialed number or extension
	Trunk       string // outbound trunk carrying the call
	Sound       string // announcement asset name, no path, no extension
	CallerID    string // presented identity
	MaxRetries  int    // engine redial attempts after a failed origination
	RetryTime   int    // seconds between redials
	WaitTime    int    // seconds to let the call ring
}

// Render produces the key/value body the engine parses.
func (a Artifact) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Channel: %s/%s@%s\n", a.Technology, a.Destination, a.Trunk)
	b.WriteString("Application: Playback\n")
	fmt.Fprintf(&b, "Data: custom/%s\n", a.Sound)
	fmt.Fprintf(&b, "MaxRetries: %d\n", a.MaxRetries)
	fmt.Fprintf(&b, "RetryTime: %d\n", a.RetryTime)
	fmt.Fprintf(&b, "WaitTime: %d\n", a.WaitTime)
	fmt.Fprintf(&b, "CallerID: %s\n", a.CallerID)
	return b.String()
}

// Writer publishes artifacts into the pickup directory.
type Writer struct {
	dir     string
	owner   string
	metrics *observability.Metrics
}

// NewWriter creates a Writer for the given pickup directory. Published
// files are chowned to owner best-effort; empty owner disables the chown.
func NewWriter(pickupDir, owner string, metrics *observability.Metrics) *Writer {
	return &Writer{dir: pickupDir, owner: owner, metrics: metrics}
}

// Publish writes the artifact under the name derived from uid and
// atomically moves it into the engine's view. It returns the final path.
func (w *Writer) Publish(artifact Artifact, uid string) (string, error) {
	finalPath := filepath.Join(w.dir, FilePrefix+"-"+uid+".call")
	tmpPath := finalPath + ".tmp"

	if err := os.WriteFile(tmpPath, []byte(artifact.Render()), 0o644); err != nil {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			slog.Debug("could not remove temp call file", "path", tmpPath, "error", rmErr)
		}
		return "", fmt.Errorf("writing call file: %w", err)
	}

	// Ownership must be fixed before the engine can see the file.
	if err := Own(tmpPath, w.owner); err != nil {
		w.metrics.ChownFailures.Inc()
		slog.Warn("could not hand call file to engine owner, origination may fail",
			"path", tmpPath, "owner", w.owner, "error", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			slog.Debug("could not remove temp call file", "path", tmpPath, "error", rmErr)
		}
		return "", fmt.Errorf("publishing call file: %w", err)
	}

	return finalPath, nil
}
