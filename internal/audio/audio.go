// Package audio provides small WAV helpers for the synthesis pipeline.
package audio

import (
	"fmt"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Format describes the PCM layout of a WAV file.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %d-bit", f.SampleRate, f.Channels, f.BitDepth)
}

// Probe reads the WAV header of the file at path and returns its format.
func Probe(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Format{}, fmt.Errorf("opening wav: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return Format{}, fmt.Errorf("reading wav header: %w", err)
	}
	if d.SampleRate == 0 || d.NumChans == 0 {
		return Format{}, fmt.Errorf("malformed wav header in %s", path)
	}

	return Format{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
	}, nil
}

// WriteSilence writes a signed 16-bit PCM WAV filled with silence. The mock
// synthesis backend uses it to produce deterministic, fixed-size assets.
func WriteSilence(path string, sampleRate, channels int, d time.Duration) error {
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("invalid silence format: %d Hz, %d ch", sampleRate, channels)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating wav: %w", err)
	}

	frames := int(float64(sampleRate) * d.Seconds())
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, frames*channels),
		SourceBitDepth: 16,
	}

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("writing wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("closing wav encoder: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing wav: %w", err)
	}
	return nil
}
