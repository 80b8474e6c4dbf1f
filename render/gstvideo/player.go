// Package gstvideo plays video views through a GStreamer pipeline and reports
// playback progress through scheduler.VideoSignals.
package gstvideo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	scheduler "github.com/hkaya/cortex-scheduler"
	"github.com/hkaya/cortex-scheduler/render"
)

const (
	// DefaultVideoSink renders to whatever display GStreamer finds.
	DefaultVideoSink = "autovideosink"

	// DefaultPollInterval bounds bus polling latency.
	DefaultPollInterval = 50 * time.Millisecond
)

// Config contains configuration for the player.
type Config struct {
	// VideoSink is the sink element description (e.g. "kmssink",
	// "glimagesink sync=true"). Overridable per view with the "sink" option.
	VideoSink string

	// PollInterval is the bus TimedPop timeout.
	PollInterval time.Duration

	Logger *slog.Logger
}

// Stats holds playback counters.
type Stats struct {
	Plays       uint64 `json:"plays"`
	Ends        uint64 `json:"ends"`
	Network     uint64 `json:"errors_network"`
	Codec       uint64 `json:"errors_codec"`
	MissingFile uint64 `json:"errors_missing_file"`
	Unknown     uint64 `json:"errors_unknown"`
}

// Player implements render.VideoBackend with one pipeline per view:
//
//	uridecodebin → videoconvert → videoscale → <sink>
//
// At most one pipeline exists at a time; Play tears down the previous one.
type Player struct {
	cfg Config
	log *slog.Logger

	mu      sync.Mutex
	current *playback

	plays       atomic.Uint64
	ends        atomic.Uint64
	network     atomic.Uint64
	codec       atomic.Uint64
	missingFile atomic.Uint64
	unknown     atomic.Uint64
}

var _ render.VideoBackend = (*Player)(nil)

type playback struct {
	id       uint64
	file     string
	pipeline *gst.Pipeline
	cancel   context.CancelFunc
	done     chan struct{}
}

var initOnce sync.Once

// NewPlayer creates a player. GStreamer is initialized on first use.
func NewPlayer(cfg Config) *Player {
	if cfg.VideoSink == "" {
		cfg.VideoSink = DefaultVideoSink
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Player{cfg: cfg, log: cfg.Logger}
}

// Play builds a pipeline for file, sets it PLAYING and returns. The bus
// monitor then reports Ready on the PLAYING transition, End on EOS, Error on
// the first pipeline error.
//
// Recognized options:
//   - "sink" (string): video sink description for this view
func (p *Player) Play(ctx context.Context, file string, options map[string]any, signals scheduler.VideoSignals) error {
	p.Stop()

	uri, err := fileURI(file)
	if err != nil {
		p.missingFile.Add(1)
		return err
	}

	sink := p.cfg.VideoSink
	if s, ok := options["sink"].(string); ok && s != "" {
		sink = s
	}

	initOnce.Do(func() { gst.Init(nil) })

	launch := fmt.Sprintf("uridecodebin uri=%q ! videoconvert ! videoscale ! %s", uri, sink)
	pipeline, err := gst.NewPipelineFromString(launch)
	if err != nil {
		return fmt.Errorf("gstvideo: failed to create pipeline: %w", err)
	}

	mctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	pb := &playback{
		id:       p.plays.Add(1),
		file:     file,
		pipeline: pipeline,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	p.mu.Lock()
	p.current = pb
	p.mu.Unlock()

	go p.monitor(mctx, pb, signals)

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		p.Stop()
		return fmt.Errorf("gstvideo: failed to start pipeline: %w", err)
	}

	p.log.Info("gstvideo: playback started",
		"file", file,
		"uri", uri,
		"sink", sink,
		"playback", pb.id,
	)
	return nil
}

// Stop tears down the current pipeline, if any. Idempotent.
func (p *Player) Stop() {
	p.mu.Lock()
	pb := p.current
	p.current = nil
	p.mu.Unlock()

	if pb == nil {
		return
	}

	pb.cancel()
	<-pb.done

	if err := pb.pipeline.SetState(gst.StateNull); err != nil {
		p.log.Warn("gstvideo: failed to stop pipeline", "file", pb.file, "error", err)
	}
	p.log.Debug("gstvideo: playback stopped", "file", pb.file, "playback", pb.id)
}

// Stats returns a snapshot of playback counters.
func (p *Player) Stats() Stats {
	return Stats{
		Plays:       p.plays.Load(),
		Ends:        p.ends.Load(),
		Network:     p.network.Load(),
		Codec:       p.codec.Load(),
		MissingFile: p.missingFile.Load(),
		Unknown:     p.unknown.Load(),
	}
}

// monitor polls the pipeline bus until a terminal message or cancellation.
//
//  1. StateChanged to PLAYING on the pipeline → signals.Ready
//  2. EOS → signals.End
//  3. Error → classify, count, log, signals.Error
func (p *Player) monitor(ctx context.Context, pb *playback, signals scheduler.VideoSignals) {
	defer close(pb.done)

	bus := pb.pipeline.GetPipelineBus()
	started := time.Now()

	for {
		select {
		case <-ctx.Done():
			p.log.Debug("gstvideo: context cancelled, stopping bus monitor", "file", pb.file)
			return

		default:
			msg := bus.TimedPop(p.cfg.PollInterval)
			if msg == nil {
				continue
			}

			switch msg.Type() {
			case gst.MessageEOS:
				p.ends.Add(1)
				p.log.Info("gstvideo: end of stream",
					"file", pb.file,
					"played_for", time.Since(started),
				)
				signal(signals.End)
				return

			case gst.MessageError:
				gerr := msg.ParseError()
				category := ClassifyGStreamerError(gerr)
				p.count(category)

				p.log.Error("gstvideo: pipeline error",
					"error", gerr.Error(),
					"debug", gerr.DebugString(),
					"category", category.String(),
					"file", pb.file,
					"played_for", time.Since(started),
				)
				if signals.Error != nil {
					signals.Error(fmt.Errorf("gstvideo: pipeline error [%s]: %s", category.String(), gerr.Error()))
				}
				return

			case gst.MessageStateChanged:
				if msg.Source() == pb.pipeline.GetName() {
					old, new := msg.ParseStateChanged()
					p.log.Debug("gstvideo: pipeline state changed", "from", old, "to", new)

					if new == gst.StatePlaying {
						signal(signals.Ready)
					}
				}
			}
		}
	}
}

func (p *Player) count(c ErrorCategory) {
	switch c {
	case ErrCategoryNetwork:
		p.network.Add(1)
	case ErrCategoryCodec:
		p.codec.Add(1)
	case ErrCategoryMissingFile:
		p.missingFile.Add(1)
	default:
		p.unknown.Add(1)
	}
}

func signal(fn func()) {
	if fn != nil {
		fn()
	}
}

// fileURI turns file into a URI uridecodebin accepts. URIs pass through;
// local paths are made absolute and must exist.
func fileURI(file string) (string, error) {
	if file == "" {
		return "", fmt.Errorf("%w: empty path", ErrFileNotFound)
	}
	if strings.Contains(file, "://") {
		if _, err := url.Parse(file); err != nil {
			return "", fmt.Errorf("gstvideo: invalid uri %q: %w", file, err)
		}
		return file, nil
	}

	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("gstvideo: resolve %q: %w", file, err)
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, abs)
		}
		return "", fmt.Errorf("gstvideo: stat %q: %w", abs, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}
