// Package tts turns announcement text into telephony-ready audio assets.
//
// Synthesis runs in two stages behind the Provider interface: a renderer
// that produces a raw WAV from text, and a resampler that rewrites it to
// the 8 kHz mono signed 16-bit layout Asterisk plays back without
// transcoding. Each stage is substitutable on its own, which keeps tests
// and dry runs independent of the flite and sox binaries.
package tts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/axluca/callspool/internal/audio"
	"github.com/axluca/callspool/internal/observability"
	"github.com/axluca/callspool/internal/spool"
)

// AssetPrefix starts every synthesized announcement filename. The retention
// sweep keys on it, so renaming it strands previously published assets. The
// trailing separator is part of the key: other recordings in the shared
// sounds directory must never fall inside the sweep.
const AssetPrefix = "akira-alert-"

// telephonyFormat is the only layout the engine plays without transcoding.
var telephonyFormat = audio.Format{SampleRate: 8000, Channels: 1, BitDepth: 16}

// Provider renders announcement text in two substitutable stages.
type Provider interface {
	// Synthesize renders text as a WAV file at rawPath.
	Synthesize(ctx context.Context, text, rawPath string) error

	// Resample rewrites the WAV at rawPath into telephony format at finalPath.
	Resample(ctx context.Context, rawPath, finalPath string) error
}

// Asset is a published announcement recording.
type Asset struct {
	Name string // engine reference, without extension
	Path string // location of the WAV file
}

// Pipeline drives a Provider and owns asset naming, staging, verification,
// and cleanup. The raw intermediate never outlives a run; a failed run
// leaves nothing behind.
type Pipeline struct {
	provider Provider
	dir      string
	owner    string
	metrics  *observability.Metrics
}

// NewPipeline creates a synthesis pipeline writing assets into audioDir.
// Published assets are chowned to owner best-effort; empty owner disables
// the chown.
func NewPipeline(provider Provider, audioDir, owner string, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{provider: provider, dir: audioDir, owner: owner, metrics: metrics}
}

// Synthesize produces the announcement asset for one call. The uid becomes
// part of the asset name, so callers must hand out unique ones.
func (p *Pipeline) Synthesize(ctx context.Context, uid, text string) (Asset, error) {
	if text == "" {
		return Asset{}, fmt.Errorf("empty text for synthesis")
	}

	name := AssetPrefix + uid
	rawPath := filepath.Join(p.dir, name+"-raw.wav")
	finalPath := filepath.Join(p.dir, name+".wav")

	if err := p.provider.Synthesize(ctx, text, rawPath); err != nil {
		p.discard(rawPath)
		return Asset{}, fmt.Errorf("synthesizing speech: %w", err)
	}

	if err := p.provider.Resample(ctx, rawPath, finalPath); err != nil {
		p.discard(rawPath, finalPath)
		return Asset{}, fmt.Errorf("resampling speech: %w", err)
	}

	// The raw intermediate has served its purpose.
	if err := os.Remove(rawPath); err != nil {
		slog.Debug("could not remove raw intermediate", "path", rawPath, "error", err)
	}

	format, err := audio.Probe(finalPath)
	if err != nil {
		p.discard(finalPath)
		return Asset{}, fmt.Errorf("verifying asset: %w", err)
	}
	if format != telephonyFormat {
		p.discard(finalPath)
		return Asset{}, fmt.Errorf("asset %s came out as %s, want %s", name, format, telephonyFormat)
	}

	if err := spool.Own(finalPath, p.owner); err != nil {
		p.metrics.ChownFailures.Inc()
		slog.Warn("could not hand asset to engine owner, playback may fail",
			"path", finalPath, "owner", p.owner, "error", err)
	}

	return Asset{Name: name, Path: finalPath}, nil
}

// discard removes leftovers from a failed run.
func (p *Pipeline) discard(paths ...string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Debug("could not remove leftover", "path", path, "error", err)
		}
	}
}
