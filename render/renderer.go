package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	scheduler "github.com/hkaya/cortex-scheduler"
)

// ErrNoVideoBackend is returned by InstallVideo when no backend was wired.
var ErrNoVideoBackend = errors.New("render: no video backend configured")

// VideoBackend plays video views for the Renderer.
//
// Play starts playback of file and returns once it is underway; progress is
// reported through signals (Ready on first frame, then End or Error). Stop
// tears down any playback still running; it is called before the surface
// switches to other content.
type VideoBackend interface {
	Play(ctx context.Context, file string, options map[string]any, signals scheduler.VideoSignals) error
	Stop()
}

// Renderer implements scheduler.Renderer on top of a Surface and an optional
// VideoBackend.
type Renderer struct {
	surface *Surface
	video   VideoBackend
	log     *slog.Logger
}

var _ scheduler.Renderer = (*Renderer)(nil)

// NewRenderer composes surface and video. video may be nil when only HTML
// views are submitted; logger defaults to slog.Default().
func NewRenderer(surface *Surface, video VideoBackend, logger *slog.Logger) (*Renderer, error) {
	if surface == nil {
		return nil, errors.New("render: surface is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{surface: surface, video: video, log: logger}, nil
}

// Surface returns the display surface driven by r.
func (r *Renderer) Surface() *Surface { return r.surface }

// TransitionOut stops any running video and fades the surface out.
func (r *Renderer) TransitionOut(ctx context.Context) error {
	if r.video != nil {
		r.video.Stop()
	}
	return r.surface.FadeOut(ctx)
}

// InstallHTML swaps the container content.
func (r *Renderer) InstallHTML(ctx context.Context, content string) error {
	r.surface.SetHTML(content)
	r.log.Debug("render: html installed",
		"bytes", len(content),
		"summary", r.surface.Current(),
	)
	return nil
}

// InstallVideo shows a video element for file and starts playback.
func (r *Renderer) InstallVideo(ctx context.Context, file string, options map[string]any, signals scheduler.VideoSignals) error {
	if r.video == nil {
		return ErrNoVideoBackend
	}
	r.surface.ShowVideo(file)

	if err := r.video.Play(ctx, file, options, signals); err != nil {
		return fmt.Errorf("render: play %q: %w", file, err)
	}
	r.log.Debug("render: video installed", "file", file)
	return nil
}

// TransitionIn fades the surface in.
func (r *Renderer) TransitionIn(ctx context.Context) error {
	return r.surface.FadeIn(ctx)
}
