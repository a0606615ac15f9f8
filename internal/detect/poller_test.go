package detect

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proctord/internal/domain"
)

type fakeProbe struct {
	mu         sync.Mutex
	fullscreen bool
	hidden     bool
}

func (p *fakeProbe) Fullscreen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fullscreen
}

func (p *fakeProbe) Hidden() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hidden
}

func (p *fakeProbe) set(fullscreen, hidden bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fullscreen = fullscreen
	p.hidden = hidden
}

func pollerConfig() Config {
	return Config{
		DebounceWindow:      5 * time.Millisecond,
		GracePeriod:         time.Hour,
		ReturnWindow:        time.Hour,
		CountdownTick:       time.Hour,
		FullscreenPollEvery: 10 * time.Millisecond,
		VisibilityPollEvery: 10 * time.Millisecond,
	}
}

func TestPollerCatchesFullscreenExit(t *testing.T) {
	h := &harness{
		reporter:  newFakeReporter(),
		presenter: &fakePresenter{},
		submitter: &fakeSubmitter{},
	}
	h.engine = NewEngine(pollerConfig(), Deps{
		Reporter:  h.reporter,
		Presenter: h.presenter,
		Submitter: h.submitter,
	})
	h.engine.arm()
	defer h.engine.Stop()

	probe := &fakeProbe{fullscreen: true}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		h.engine.RunPollers(ctx, probe)
		close(done)
	}()

	probe.set(false, false)
	require.Eventually(t, func() bool {
		return len(h.reporter.reported()) >= 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.EventFullscreenExit, h.reporter.reported()[0].eventType)

	cancel()
	<-done
}

func TestPollerCatchesHiddenTransition(t *testing.T) {
	h := &harness{
		reporter:  newFakeReporter(),
		presenter: &fakePresenter{},
		submitter: &fakeSubmitter{},
	}
	h.engine = NewEngine(pollerConfig(), Deps{
		Reporter:  h.reporter,
		Presenter: h.presenter,
		Submitter: h.submitter,
	})
	h.engine.arm()

	probe := &fakeProbe{fullscreen: true}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		h.engine.RunPollers(ctx, probe)
		close(done)
	}()

	probe.set(true, true)
	require.Eventually(t, func() bool {
		return len(h.reporter.reported()) >= 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.EventVisibilityChange, h.reporter.reported()[0].eventType)

	cancel()
	<-done
}

func TestPollerStopsOnTermination(t *testing.T) {
	h := &harness{
		reporter:  newFakeReporter(),
		presenter: &fakePresenter{},
		submitter: &fakeSubmitter{},
	}
	h.engine = NewEngine(pollerConfig(), Deps{
		Reporter:  h.reporter,
		Presenter: h.presenter,
		Submitter: h.submitter,
	})
	h.engine.arm()
	h.reporter.countOverride = 3

	probe := &fakeProbe{fullscreen: true}
	done := make(chan struct{})
	go func() {
		h.engine.RunPollers(context.Background(), probe)
		close(done)
	}()
	// Let the poller register its cancel before terminating.
	require.Eventually(t, func() bool {
		h.engine.mu.Lock()
		defer h.engine.mu.Unlock()
		return h.engine.pollCancel != nil
	}, 2*time.Second, time.Millisecond)

	h.engine.Observe(context.Background(), SignalWindowBlur, "")
	require.Equal(t, StateTerminated, h.engine.State())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pollers kept running after termination")
	}
}
