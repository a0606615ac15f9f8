// Package detect implements the client-side detection engine: it qualifies
// environment signals, debounces duplicates, reports each confirmed
// violation to the ledger, and drives the visible consequence. Local state
// is a cache with a conservative fallback; a server directive may advance
// it but never retract it.
package detect

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"proctord/internal/domain"
)

// State is the engine's position on the escalation ladder.
type State int

const (
	StateUnarmed State = iota
	StateArmed
	StateWarned1
	StateWarned2
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUnarmed:
		return "unarmed"
	case StateArmed:
		return "armed"
	case StateWarned1:
		return "warned1"
	case StateWarned2:
		return "warned2"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Reporter delivers one event to the violation ledger and returns its
// authoritative directive.
type Reporter interface {
	Report(ctx context.Context, eventType domain.EventType, details string) (domain.Outcome, error)
}

// Presenter renders warnings, the return-window countdown, and the
// termination screen. How they look is up to the host client.
type Presenter interface {
	ShowWarning(level int, message string)
	ShowCountdown(secondsLeft int)
	ClearCountdown()
	ShowTerminated(message string)
	DisableInputs()
}

// Submitter hands the final result to the scoring collaborator.
type Submitter interface {
	Submit(ctx context.Context, res domain.ExamResult) error
}

// Config controls engine timing.
type Config struct {
	// Two qualifying signals inside this window collapse into one.
	DebounceWindow time.Duration
	// Delay between fullscreen entry and arming; entering fullscreen can
	// itself fire blur and visibility events.
	GracePeriod time.Duration
	// How long the user has to return after a fullscreen exit.
	ReturnWindow time.Duration
	// Granularity of the visible countdown.
	CountdownTick time.Duration
	// Poller intervals.
	FullscreenPollEvery time.Duration
	VisibilityPollEvery time.Duration
}

// DefaultConfig returns production timing.
func DefaultConfig() Config {
	return Config{
		DebounceWindow:      2 * time.Second,
		GracePeriod:         2 * time.Second,
		ReturnWindow:        15 * time.Second,
		CountdownTick:       time.Second,
		FullscreenPollEvery: 2 * time.Second,
		VisibilityPollEvery: 200 * time.Millisecond,
	}
}

// Deps are the engine's collaborators, injected by the host client.
type Deps struct {
	Reporter  Reporter
	Presenter Presenter
	Submitter Submitter
	// Now is the injectable clock; defaults to time.Now.
	Now func() time.Time
}

// LogEntry is one line of the engine's in-memory diagnostics log.
// Suppressed duplicates land here and nowhere else.
type LogEntry struct {
	Time       time.Time
	Signal     SignalKind
	Details    string
	Suppressed bool
	Count      int
}

// Engine is the detection state machine. All methods are safe for
// concurrent use; the signal handlers and pollers interleave on it the way
// a single cooperative timeline would.
type Engine struct {
	mu  sync.Mutex
	cfg Config

	reporter  Reporter
	presenter Presenter
	submitter Submitter
	now       func() time.Time

	state         State
	violations    int
	warningLevel  int
	lastViolation time.Time
	logs          []LogEntry

	sessionID      int64
	startedAt      time.Time
	totalQuestions int
	submitted      bool

	armTimer   *time.Timer
	window     *returnWindow
	pollCancel context.CancelFunc
}

func NewEngine(cfg Config, deps Deps) *Engine {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cfg:       cfg,
		reporter:  deps.Reporter,
		presenter: deps.Presenter,
		submitter: deps.Submitter,
		now:       now,
		state:     StateUnarmed,
	}
}

// StartExam is called once the user has voluntarily entered fullscreen.
// It asks the ledger for a clean session and schedules arming after the
// grace period. A failed session start does not block the exam; the
// engine still arms and falls back to local escalation.
func (e *Engine) StartExam(ctx context.Context, totalQuestions int) (domain.Outcome, error) {
	e.mu.Lock()
	e.startedAt = e.now()
	e.totalQuestions = totalQuestions
	e.armTimer = time.AfterFunc(e.cfg.GracePeriod, e.arm)
	e.mu.Unlock()

	out, err := e.reporter.Report(ctx, domain.EventStartSession, "Session started by client")
	if err != nil {
		log.Printf("[detect] start_session failed: %v", err)
		return domain.Outcome{}, err
	}
	e.mu.Lock()
	e.sessionID = out.SessionID
	e.mu.Unlock()
	return out, nil
}

func (e *Engine) arm() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateUnarmed {
		e.state = StateArmed
	}
}

// State returns the engine's current ladder position.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Violations returns the local violation count. Advisory only: the ledger
// is the source of truth while reachable.
func (e *Engine) Violations() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.violations
}

// SessionID returns the server-assigned session id, zero if unknown.
func (e *Engine) SessionID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// Logs returns a copy of the diagnostics log.
func (e *Engine) Logs() []LogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]LogEntry, len(e.logs))
	copy(out, e.logs)
	return out
}

// Observe feeds one raw signal into the engine. Signals before arming and
// after termination are logged but never counted or reported.
func (e *Engine) Observe(ctx context.Context, kind SignalKind, details string) {
	e.mu.Lock()
	if e.state == StateTerminated {
		e.mu.Unlock()
		return
	}
	if e.state == StateUnarmed || kind == SignalContextMenu {
		e.logs = append(e.logs, LogEntry{Time: e.now(), Signal: kind, Details: details, Suppressed: true})
		e.mu.Unlock()
		return
	}
	eventType, ok := kind.EventType()
	if !ok {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	startWindow := eventType == domain.EventFullscreenExit
	e.violation(ctx, kind, eventType, details, startWindow)
}

// FullscreenRestored cancels a pending return window. The exit already on
// the ledger stays; no extra penalty is added.
func (e *Engine) FullscreenRestored() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearWindowLocked()
}

// violation runs the confirmed-violation path: debounce, count, report,
// obey directive, fall back locally when the network fails.
func (e *Engine) violation(ctx context.Context, kind SignalKind, eventType domain.EventType, details string, startWindow bool) {
	e.mu.Lock()
	if e.state == StateTerminated {
		e.mu.Unlock()
		return
	}
	now := e.now()
	if !e.lastViolation.IsZero() && now.Sub(e.lastViolation) < e.cfg.DebounceWindow {
		e.logs = append(e.logs, LogEntry{Time: now, Signal: kind, Details: details, Suppressed: true, Count: e.violations})
		e.mu.Unlock()
		return
	}
	e.lastViolation = now
	e.violations++
	local := e.violations
	e.logs = append(e.logs, LogEntry{Time: now, Signal: kind, Details: details, Count: local})
	if startWindow && e.window == nil && e.state != StateTerminated {
		e.startWindowLocked()
	}
	e.mu.Unlock()

	// The network round trip happens without the lock so further signals
	// can still arrive and be debounced meanwhile.
	out, err := e.reporter.Report(ctx, eventType, details)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateTerminated {
		return
	}
	if err != nil {
		log.Printf("[detect] report failed, using local ladder: %v", err)
		e.escalateLocked(ctx, e.violations, "")
		return
	}
	if out.Violations > e.violations {
		e.violations = out.Violations
	}
	if out.SessionID != 0 {
		e.sessionID = out.SessionID
	}
	if out.Action == domain.ActionEnd {
		e.terminateLocked(ctx, out.Message)
		return
	}
	e.escalateLocked(ctx, e.violations, out.Message)
}

// escalateLocked applies the warn/warn/terminate ladder for count.
func (e *Engine) escalateLocked(ctx context.Context, count int, message string) {
	switch {
	case count >= domain.ViolationThreshold:
		e.terminateLocked(ctx, "Exam terminated due to multiple violations")
	case count == 2:
		if e.state < StateWarned2 {
			e.state = StateWarned2
		}
		e.warnLocked(2, message, "Warning: This is your second violation. One more violation will terminate the exam.")
	case count == 1:
		if e.state < StateWarned1 {
			e.state = StateWarned1
		}
		e.warnLocked(1, message, "Warning: This is your first violation. Two warnings will be shown before termination.")
	}
}

func (e *Engine) warnLocked(level int, message, fallback string) {
	if message == "" {
		message = fallback
	}
	if level > e.warningLevel {
		e.warningLevel = level
	}
	e.presenter.ShowWarning(e.warningLevel, message)
}

// terminateLocked is the single transition into the terminal state. It
// cancels every pending timer and poller, disables input, and submits
// exactly one cheated result.
func (e *Engine) terminateLocked(ctx context.Context, message string) {
	if e.state == StateTerminated {
		return
	}
	e.state = StateTerminated

	if e.armTimer != nil {
		e.armTimer.Stop()
		e.armTimer = nil
	}
	e.clearWindowLocked()
	if e.pollCancel != nil {
		e.pollCancel()
		e.pollCancel = nil
	}

	e.presenter.DisableInputs()
	if message == "" {
		message = "Exam terminated due to multiple violations"
	}
	e.presenter.ShowTerminated(message)
	e.logs = append(e.logs, LogEntry{Time: e.now(), Signal: "terminated", Details: message, Count: e.violations})

	if e.submitted {
		return
	}
	e.submitted = true
	elapsed := 0
	if !e.startedAt.IsZero() {
		elapsed = int(e.now().Sub(e.startedAt) / time.Second)
	}
	res := domain.ExamResult{
		Score:          0,
		TotalQuestions: e.totalQuestions,
		TimeTaken:      elapsed,
		Status:         domain.StatusCheated,
	}
	if err := e.submitter.Submit(ctx, res); err != nil {
		log.Printf("[detect] termination submit failed: %v", err)
	}
}

// Stop cancels timers without terminating, for a clean client shutdown.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.armTimer != nil {
		e.armTimer.Stop()
		e.armTimer = nil
	}
	e.clearWindowLocked()
	if e.pollCancel != nil {
		e.pollCancel()
		e.pollCancel = nil
	}
}

// returnWindow is the countdown opened by a fullscreen exit.
type returnWindow struct {
	stop chan struct{}
}

func (e *Engine) startWindowLocked() {
	ticks := int(e.cfg.ReturnWindow / e.cfg.CountdownTick)
	if ticks < 1 {
		ticks = 1
	}
	secondsPerTick := int(e.cfg.ReturnWindow.Seconds()) / ticks
	if secondsPerTick < 1 {
		secondsPerTick = 1
	}

	w := &returnWindow{stop: make(chan struct{})}
	e.window = w
	e.presenter.ShowCountdown(ticks * secondsPerTick)

	go func() {
		ticker := time.NewTicker(e.cfg.CountdownTick)
		defer ticker.Stop()
		left := ticks
		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				left--
				if e.windowTick(w, left, secondsPerTick) {
					return
				}
			}
		}
	}()
}

// windowTick advances the countdown; returns true when the goroutine
// should exit.
func (e *Engine) windowTick(w *returnWindow, left, secondsPerTick int) bool {
	e.mu.Lock()
	if e.window != w || e.state == StateTerminated {
		e.mu.Unlock()
		return true
	}
	if left > 0 {
		e.presenter.ShowCountdown(left * secondsPerTick)
		e.mu.Unlock()
		return false
	}
	e.clearWindowLocked()
	e.mu.Unlock()

	details := fmt.Sprintf("Failed to return to fullscreen within %d seconds", int(e.cfg.ReturnWindow.Seconds()))
	// The expiry is itself a violation, recorded with no user action and
	// without reopening the window.
	e.violation(context.Background(), SignalFullscreenExit, domain.EventFullscreenExit, details, false)
	return true
}

func (e *Engine) clearWindowLocked() {
	if e.window == nil {
		return
	}
	close(e.window.stop)
	e.window = nil
	e.presenter.ClearCountdown()
}
