package detect

import (
	"context"
	"time"
)

// Probe reads the parts of the client environment the engine cannot see
// through events alone.
type Probe interface {
	Fullscreen() bool
	Hidden() bool
}

// RunPollers drives the two periodic checks: a coarse fullscreen re-check
// and a tighter visibility safety net. It blocks until ctx is cancelled or
// the engine terminates; run it on its own goroutine.
func (e *Engine) RunPollers(ctx context.Context, probe Probe) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	if e.state == StateTerminated {
		e.mu.Unlock()
		return
	}
	e.pollCancel = cancel
	e.mu.Unlock()

	fsTick := time.NewTicker(e.cfg.FullscreenPollEvery)
	defer fsTick.Stop()
	visTick := time.NewTicker(e.cfg.VisibilityPollEvery)
	defer visTick.Stop()

	lastFullscreen := probe.Fullscreen()
	lastHidden := probe.Hidden()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fsTick.C:
			fs := probe.Fullscreen()
			if lastFullscreen && !fs {
				e.Observe(ctx, SignalFullscreenExit, "Fullscreen exit detected")
			}
			if !lastFullscreen && fs {
				e.FullscreenRestored()
			}
			lastFullscreen = fs
		case <-visTick.C:
			hidden := probe.Hidden()
			if hidden && !lastHidden {
				e.Observe(ctx, SignalVisibilityPoll, "Tab visibility changed - possible tab switch")
			}
			lastHidden = hidden
		}
	}
}
