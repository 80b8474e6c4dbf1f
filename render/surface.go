// Package render provides the display-side collaborators of the scheduler: an
// in-memory HTML surface with opacity fades, and a Renderer that composes it
// with a pluggable video backend.
package render

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// MainContainerID is the element that receives view content.
	MainContainerID = "__cortex_main"

	// DefaultFadeStep is the opacity change per animation frame.
	DefaultFadeStep = 0.15

	// DefaultFrameInterval approximates one animation frame.
	DefaultFrameInterval = 16 * time.Millisecond

	containerStyle = "position:absolute;top:0;left:0;width:100%;height:100%;background:#000;overflow:hidden;"

	pageTemplate = `<!DOCTYPE html><html><head><meta charset="utf-8"><title>cortex</title></head>` +
		`<body style="margin:0;background:#000"><div id="` + MainContainerID + `"></div></body></html>`
)

// SurfaceConfig tunes the fade animation. Zero fields take defaults.
type SurfaceConfig struct {
	FadeStep      float64
	FrameInterval time.Duration
}

// Surface is the single display surface of one scheduler.
//
// It holds the page document (goquery) whose main container shows the
// current view, and the container opacity driven by the fades. Safe for
// concurrent use: the renderer mutates it while the HTTP API snapshots it.
type Surface struct {
	cfg SurfaceConfig

	mu      sync.RWMutex
	doc     *goquery.Document
	main    *goquery.Selection
	opacity float64
	current string // text summary of the installed content
}

// NewSurface builds an empty, fully visible black surface.
func NewSurface(cfg SurfaceConfig) (*Surface, error) {
	if cfg.FadeStep <= 0 || cfg.FadeStep > 1 {
		cfg.FadeStep = DefaultFadeStep
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageTemplate))
	if err != nil {
		return nil, fmt.Errorf("render: parse page template: %w", err)
	}
	main := doc.Find("#" + MainContainerID)
	if main.Length() != 1 {
		return nil, fmt.Errorf("render: page template has no #%s container", MainContainerID)
	}

	s := &Surface{cfg: cfg, doc: doc, main: main}
	s.setOpacityLocked(1)
	return s, nil
}

// FadeOut lowers the opacity to 0, one step per frame.
func (s *Surface) FadeOut(ctx context.Context) error {
	return s.fade(ctx, 0)
}

// FadeIn raises the opacity to 1, one step per frame.
func (s *Surface) FadeIn(ctx context.Context) error {
	return s.fade(ctx, 1)
}

// fade animates toward target; it returns once the target is reached or ctx
// is done.
func (s *Surface) fade(ctx context.Context, target float64) error {
	ticker := time.NewTicker(s.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		s.mu.Lock()
		o := s.opacity
		switch {
		case o < target:
			o = min(o+s.cfg.FadeStep, target)
		case o > target:
			o = max(o-s.cfg.FadeStep, target)
		}
		s.setOpacityLocked(o)
		s.mu.Unlock()

		if o == target {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("render: fade interrupted: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// SetHTML replaces the container content with an HTML fragment.
func (s *Surface) SetHTML(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.main.SetHtml(content)
	s.current = summarize(s.main)
}

// ShowVideo replaces the container content with a video element for file.
func (s *Surface) ShowVideo(file string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.main.SetHtml(fmt.Sprintf(`<video src="%s" autoplay style="width:100%%;height:100%%;object-fit:contain"></video>`,
		html.EscapeString(file)))
	s.current = "video " + file
}

// Opacity returns the current container opacity in [0, 1].
func (s *Surface) Opacity() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opacity
}

// Current returns a short text summary of the installed content.
func (s *Surface) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Snapshot renders the full page document.
func (s *Surface) Snapshot() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out, err := s.doc.Html()
	if err != nil {
		return "", fmt.Errorf("render: snapshot: %w", err)
	}
	return out, nil
}

func (s *Surface) setOpacityLocked(o float64) {
	s.opacity = o
	s.main.SetAttr("style", fmt.Sprintf("%sopacity:%.2f", containerStyle, o))
}

// summaryLimit caps Summary output for log lines.
const summaryLimit = 80

// Summary extracts the visible text of an HTML fragment, collapsed and
// truncated, for logs.
func Summary(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	return summarize(doc.Selection)
}

// summarize joins every text node under sel with a space, so sibling blocks
// such as <h1>a</h1><p>b</p> read "a b" rather than "ab".
func summarize(sel *goquery.Selection) string {
	var parts []string
	collectText(sel, &parts)

	text := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	if r := []rune(text); len(r) > summaryLimit {
		text = string(r[:summaryLimit]) + "…"
	}
	return text
}

func collectText(sel *goquery.Selection, parts *[]string) {
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			*parts = append(*parts, c.Text())
		case "script", "style", "#comment":
		default:
			collectText(c, parts)
		}
	})
}
