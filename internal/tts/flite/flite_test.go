package flite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/axluca/callspool/internal/config"
)

func testConfig(synth, resample string) config.TTSConfig {
	return config.TTSConfig{
		SynthesizeCommand:  synth,
		ResampleCommand:    resample,
		CommandTimeoutSecs: 10,
	}
}

func TestNewRejectsBadTemplates(t *testing.T) {
	if _, err := New(testConfig(`flite -t "{text}`, "sox {input} {output}")); err == nil {
		t.Error("New(unbalanced quote) error = nil, want parse error")
	}
	if _, err := New(testConfig("", "sox {input} {output}")); err == nil {
		t.Error("New(empty synthesize) error = nil, want error")
	}
	if _, err := New(testConfig("flite -t {text} -o {output}", "")); err == nil {
		t.Error("New(empty resample) error = nil, want error")
	}
}

func TestSynthesizeSubstitutesPlaceholders(t *testing.T) {
	out := filepath.Join(t.TempDir(), "raw.wav")

	p, err := New(testConfig(`sh -c "printf %s '{text}' > '{output}'"`, "true"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := p.Synthesize(context.Background(), "hello world", out); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(got) != "hello world" {
		t.Errorf("output = %q, want %q", got, "hello world")
	}
}

func TestResampleSubstitutesPlaceholders(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw.wav")
	final := filepath.Join(dir, "final.wav")
	if err := os.WriteFile(raw, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := New(testConfig("true", "cp {input} {output}"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := p.Resample(context.Background(), raw, final); err != nil {
		t.Fatalf("Resample() error = %v", err)
	}

	got, err := os.ReadFile(final)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("output = %q, want %q", got, "payload")
	}
}

func TestRunFailureCarriesStderr(t *testing.T) {
	p, err := New(testConfig(`sh -c "echo no voice loaded >&2; exit 3"`, "true"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = p.Synthesize(context.Background(), "x", filepath.Join(t.TempDir(), "raw.wav"))
	if err == nil {
		t.Fatal("Synthesize() error = nil, want command failure")
	}
	if !strings.Contains(err.Error(), "synthesize command failed") {
		t.Errorf("error = %q, want stage name", err)
	}
	if !strings.Contains(err.Error(), "no voice loaded") {
		t.Errorf("error = %q, want captured stderr", err)
	}
}

func TestRunTimeoutKillsCommand(t *testing.T) {
	cfg := testConfig("sleep 30", "true")
	cfg.CommandTimeoutSecs = 1

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = p.Synthesize(context.Background(), "x", filepath.Join(t.TempDir(), "raw.wav"))
	if err == nil {
		t.Fatal("Synthesize() error = nil, want timeout")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error = %q, want timeout", err)
	}
}

func TestRunHonorsCallerCancellation(t *testing.T) {
	p, err := New(testConfig("sleep 30", "true"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Synthesize(ctx, "x", filepath.Join(t.TempDir(), "raw.wav")); err == nil {
		t.Fatal("Synthesize(cancelled ctx) error = nil, want error")
	}
}
