package gstvideo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	scheduler "github.com/hkaya/cortex-scheduler"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		msg   string
		debug string
		want  ErrorCategory
	}{
		{"missing file", "Resource not found.", "gstfilesrc.c: No such file \"/x.mp4\"", ErrCategoryMissingFile},
		{"open for reading", "Could not open resource for reading.", "", ErrCategoryMissingFile},
		{"codec", "Your GStreamer installation is missing a plug-in.", "missing plugin: decoder for video/x-h265", ErrCategoryCodec},
		{"not negotiated", "Internal data stream error.", "streaming stopped, reason not-negotiated (not negotiated)", ErrCategoryCodec},
		{"network", "Could not connect to server", "souphttpsrc: connection refused", ErrCategoryNetwork},
		{"timeout", "Socket timed out", "", ErrCategoryNetwork},
		{"unknown", "Something odd happened", "", ErrCategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.msg, tt.debug); got != tt.want {
				t.Errorf("classify(%q, %q) = %s, want %s", tt.msg, tt.debug, got, tt.want)
			}
		})
	}
}

func TestClassifyNil(t *testing.T) {
	if got := ClassifyGStreamerError(nil); got != ErrCategoryUnknown {
		t.Errorf("ClassifyGStreamerError(nil) = %s, want unknown", got)
	}
}

func TestFileURI(t *testing.T) {
	dir := t.TempDir()
	clip := filepath.Join(dir, "clip one.mp4")
	if err := os.WriteFile(clip, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	uri, err := fileURI(clip)
	if err != nil {
		t.Fatalf("fileURI(existing) failed: %v", err)
	}
	if !strings.HasPrefix(uri, "file://") || !strings.HasSuffix(uri, "clip%20one.mp4") {
		t.Errorf("fileURI = %q, want escaped file:// uri", uri)
	}

	if got, err := fileURI("https://cdn.example.com/a.mp4"); err != nil || got != "https://cdn.example.com/a.mp4" {
		t.Errorf("fileURI(remote) = %q, %v; want passthrough", got, err)
	}

	for _, missing := range []string{"", filepath.Join(dir, "nope.mp4")} {
		if _, err := fileURI(missing); !errors.Is(err, ErrFileNotFound) {
			t.Errorf("fileURI(%q) err=%v, want ErrFileNotFound", missing, err)
		}
	}
}

func TestPlayMissingFileCounts(t *testing.T) {
	p := NewPlayer(Config{})
	err := p.Play(context.Background(), filepath.Join(t.TempDir(), "gone.mp4"), nil, scheduler.VideoSignals{})
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("Play(missing) err=%v, want ErrFileNotFound", err)
	}
	if st := p.Stats(); st.MissingFile != 1 || st.Plays != 0 {
		t.Errorf("stats = %+v, want one missing file and no plays", st)
	}
	p.Stop()
}
