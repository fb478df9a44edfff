// Package flite runs the synthesis stages as external commands.
//
// The defaults match a stock FreePBX box: flite renders the announcement
// text and sox resamples it to the telephony layout. Both command lines
// come from config as templates with {text}, {input}, and {output}
// placeholders, so any pair of programs with compatible flags can stand
// in for them.
package flite

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/axluca/callspool/internal/config"
)

// Provider implements tts.Provider by shelling out per stage.
type Provider struct {
	synthesize []string
	resample   []string
	timeout    time.Duration
}

// New parses the configured command templates. Parsing happens once here
// so a malformed template fails at startup, not on the first call.
func New(cfg config.TTSConfig) (*Provider, error) {
	parser := shellwords.NewParser()

	synth, err := parser.Parse(cfg.SynthesizeCommand)
	if err != nil {
		return nil, fmt.Errorf("parsing synthesize command: %w", err)
	}
	if len(synth) == 0 {
		return nil, fmt.Errorf("synthesize command is empty")
	}

	resample, err := parser.Parse(cfg.ResampleCommand)
	if err != nil {
		return nil, fmt.Errorf("parsing resample command: %w", err)
	}
	if len(resample) == 0 {
		return nil, fmt.Errorf("resample command is empty")
	}

	return &Provider{
		synthesize: synth,
		resample:   resample,
		timeout:    time.Duration(cfg.CommandTimeoutSecs) * time.Second,
	}, nil
}

// Synthesize renders text into a WAV file at rawPath.
func (p *Provider) Synthesize(ctx context.Context, text, rawPath string) error {
	args := substitute(p.synthesize, "{text}", text, "{output}", rawPath)
	return p.run(ctx, "synthesize", args)
}

// Resample rewrites the WAV at rawPath into telephony format at finalPath.
func (p *Provider) Resample(ctx context.Context, rawPath, finalPath string) error {
	args := substitute(p.resample, "{input}", rawPath, "{output}", finalPath)
	return p.run(ctx, "resample", args)
}

func (p *Provider) run(ctx context.Context, stage string, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%s command timed out after %s", stage, p.timeout)
		}
		return fmt.Errorf("%s command failed: %w: %s", stage, err, strings.TrimSpace(stderr.String()))
	}

	slog.Debug("stage complete", "stage", stage, "command", args[0], "duration", time.Since(start))
	return nil
}

// substitute replaces placeholder/value pairs in every argument.
func substitute(args []string, pairs ...string) []string {
	r := strings.NewReplacer(pairs...)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}
