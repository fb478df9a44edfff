package spool

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/axluca/callspool/internal/observability"
)

func testArtifact() Artifact {
	return Artifact{
		Technology:  "PJSIP",
		Destination: "15551234567",
		Trunk:       "voip-out",
		Sound:       "akira-alert-1700000000000",
		CallerID:    "Akira",
		MaxRetries:  2,
		RetryTime:   30,
		WaitTime:    45,
	}
}

func TestArtifactRender(t *testing.T) {
	got := testArtifact().Render()
	want := "Channel: PJSIP/15551234567@voip-out\n" +
		"Application: Playback\n" +
		"Data: custom/akira-alert-1700000000000\n" +
		"MaxRetries: 2\n" +
		"RetryTime: 30\n" +
		"WaitTime: 45\n" +
		"CallerID: Akira\n"

	if got != want {
		t.Errorf("Render() =\n%q\nwant\n%q", got, want)
	}
}

func TestPublishWritesFinalFile(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "", observability.NewMetrics("spool_publish"))

	path, err := w.Publish(testArtifact(), "1700000000000")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	wantPath := filepath.Join(dir, "akira-1700000000000.call")
	if path != wantPath {
		t.Errorf("Publish() path = %q, want %q", path, wantPath)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading call file: %v", err)
	}
	if string(body) != testArtifact().Render() {
		t.Errorf("call file body = %q, want rendered artifact", body)
	}

	// No temp droppings survive a successful publish.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
}

func TestPublishNeverExposesPartialContent(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "", observability.NewMetrics("spool_atomic"))

	artifact := testArtifact()
	wantLen := len(artifact.Render())
	finalPath := filepath.Join(dir, "akira-777.call")

	stop := make(chan struct{})
	var partial atomic.Bool
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		for {
			select {
			case <-stop:
				return
			default:
			}
			// Anything readable under the final name must be complete.
			if data, err := os.ReadFile(finalPath); err == nil && len(data) != wantLen {
				partial.Store(true)
				return
			}
		}
	}()

	for i := 0; i < 50; i++ {
		if _, err := w.Publish(artifact, "777"); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	close(stop)
	<-watched

	if partial.Load() {
		t.Error("observed a partially written call file under its final name")
	}
}

func TestPublishFailsWhenPickupDirMissing(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "absent"), "", observability.NewMetrics("spool_nodir"))

	if _, err := w.Publish(testArtifact(), "1"); err == nil {
		t.Error("Publish() error = nil, want write failure")
	}
}

func TestOwn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Own(path, ""); err != nil {
		t.Errorf("Own(empty owner) error = %v, want nil", err)
	}

	if err := Own(path, "no-such-user-on-this-box"); err == nil {
		t.Error("Own(unknown user) error = nil, want lookup failure")
	}

	me, err := user.Current()
	if err != nil {
		t.Skipf("no current user: %v", err)
	}
	if err := Own(path, me.Username); err != nil {
		t.Errorf("Own(current user) error = %v, want nil", err)
	}
}
