// Package scheduler rotates views through named display slots on a single
// unattended display surface.
//
// # Philosophy
//
// "The screen is never empty." When primary slots run dry the scheduler falls
// back to secondary slots, then to a cached default view, and finally to a
// synthesized black screen, and it reports through CheckHealth when that last
// resort has become the norm.
//
// # Design Principles
//
//  1. One render in flight: cycle N+1 never starts before cycle N completes
//  2. Round-robin primaries: the cursor persists across cycles
//  3. Isolated failures: a bad view reaches its own Error callback, never Start's caller
//  4. Cooperative exit: Exit stops the next cycle, never the current one
//  5. Pull health: CheckHealth is polled, nothing is pushed
//
// # Selection
//
//	primaries (round-robin) → fallbacks (registration order) → default cache → black screen
//
// A Noop view fires Begin and End and yields to the next stage of the same
// cycle without touching the Renderer.
//
// # Default View
//
// SetDefaultView decides the cache mode by registration state:
//
//	SetDefaultView("dv")            // "dv" unregistered → Queue mode
//	s.SubmitView("dv", html, d, cb) // buffered only, FIFO-consumed
//
//	s.Register("news", "")
//	s.SetDefaultView("news")        // registered → Track mode
//	s.SubmitView("news", html, d, cb) // delivered and shadowed, replayed round-robin
//
// # Basic Usage
//
//	s, err := scheduler.New(scheduler.DefaultConfig(), renderer)
//	if err != nil {
//	    return err
//	}
//	_ = s.Register("ads", "promos")
//	_ = s.SubmitView("ads", "<h1>Sale</h1>", 10*time.Second, scheduler.Callbacks{})
//
//	if err := s.Start(ctx); err != nil {
//	    return err
//	}
//	defer s.Stop(context.Background())
//
// # Monitoring
//
//	if h := s.CheckHealth(); !h.Healthy {
//	    slog.Warn("display degraded", "reason", h.Reason)
//	}
//	stats := s.Stats()
//	for name, slot := range stats.Slots {
//	    if slot.IsIdle {
//	        slog.Info("slot idle", "slot", name, "last_rendered_at", slot.LastRenderedAt)
//	    }
//	}
package scheduler
