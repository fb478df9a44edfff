package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteSilenceAndProbe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silence.wav")

	if err := WriteSilence(path, 8000, 1, 500*time.Millisecond); err != nil {
		t.Fatalf("WriteSilence() error = %v", err)
	}

	got, err := Probe(path)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	want := Format{SampleRate: 8000, Channels: 1, BitDepth: 16}
	if got != want {
		t.Errorf("Probe() = %v, want %v", got, want)
	}
}

func TestWriteSilenceIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")

	if err := WriteSilence(a, 22050, 1, 500*time.Millisecond); err != nil {
		t.Fatalf("WriteSilence(a) error = %v", err)
	}
	if err := WriteSilence(b, 22050, 1, 500*time.Millisecond); err != nil {
		t.Fatalf("WriteSilence(b) error = %v", err)
	}

	sa, err := os.Stat(a)
	if err != nil {
		t.Fatal(err)
	}
	sb, err := os.Stat(b)
	if err != nil {
		t.Fatal(err)
	}
	if sa.Size() != sb.Size() || sa.Size() == 0 {
		t.Errorf("silence sizes = %d and %d, want equal and non-zero", sa.Size(), sb.Size())
	}
}

func TestWriteSilenceRejectsBadFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := WriteSilence(path, 0, 1, time.Second); err == nil {
		t.Error("WriteSilence(rate=0) error = nil, want error")
	}
	if err := WriteSilence(path, 8000, 0, time.Second); err == nil {
		t.Error("WriteSilence(channels=0) error = nil, want error")
	}
}

func TestProbeRejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a.wav")
	if err := os.WriteFile(path, []byte("definitely not RIFF data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Probe(path); err == nil {
		t.Error("Probe(non-wav) error = nil, want error")
	}
}

func TestProbeMissingFile(t *testing.T) {
	if _, err := Probe(filepath.Join(t.TempDir(), "absent.wav")); err == nil {
		t.Error("Probe(missing) error = nil, want error")
	}
}
