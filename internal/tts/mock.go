package tts

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/axluca/callspool/internal/audio"
)

// mockProvider writes short silent WAVs instead of invoking external
// programs. Both stages are deterministic and produce fixed-size files,
// so dry runs and tests never depend on flite or sox being installed.
type mockProvider struct {
	rawRate  int
	duration time.Duration
}

// NewMockProvider returns a Provider that fakes both synthesis stages
// with half a second of silence.
func NewMockProvider() Provider {
	return &mockProvider{rawRate: 22050, duration: 500 * time.Millisecond}
}

func (m *mockProvider) Synthesize(ctx context.Context, text, rawPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if text == "" {
		return fmt.Errorf("empty text for synthesis")
	}
	return audio.WriteSilence(rawPath, m.rawRate, 1, m.duration)
}

func (m *mockProvider) Resample(ctx context.Context, rawPath, finalPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(rawPath); err != nil {
		return fmt.Errorf("raw asset: %w", err)
	}
	return audio.WriteSilence(finalPath, 8000, 1, m.duration)
}
