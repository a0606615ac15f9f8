// proctor-sim replays a scripted signal sequence through the detection
// engine against an in-memory ledger, printing every directive and
// consequence. Handy for eyeballing the escalation behavior without a
// browser or a database.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"proctord/internal/detect"
	"proctord/internal/domain"
	"proctord/internal/ledger"
)

// localLedger adapts the ledger service to the engine's Reporter without
// going over the network.
type localLedger struct {
	svc    *ledger.Service
	userID int64
	examID int64
}

func (l *localLedger) Report(ctx context.Context, eventType domain.EventType, details string) (domain.Outcome, error) {
	return l.svc.Process(ctx, l.userID, l.examID, eventType, details)
}

type consolePresenter struct{}

func (consolePresenter) ShowWarning(level int, message string) {
	fmt.Printf("  [warning %d] %s\n", level, message)
}
func (consolePresenter) ShowCountdown(secondsLeft int) {
	fmt.Printf("  [countdown] %ds to return to fullscreen\n", secondsLeft)
}
func (consolePresenter) ClearCountdown()    { fmt.Println("  [countdown] cleared") }
func (consolePresenter) DisableInputs()     { fmt.Println("  [ui] inputs disabled") }
func (consolePresenter) ShowTerminated(msg string) {
	fmt.Printf("  [terminated] %s\n", msg)
}

type consoleSubmitter struct{}

func (consoleSubmitter) Submit(ctx context.Context, res domain.ExamResult) error {
	fmt.Printf("  [submit] status=%s score=%d questions=%d time=%ds\n",
		res.Status, res.Score, res.TotalQuestions, res.TimeTaken)
	return nil
}

func main() {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store)

	cfg := detect.DefaultConfig()
	cfg.GracePeriod = 100 * time.Millisecond
	cfg.DebounceWindow = 500 * time.Millisecond
	cfg.ReturnWindow = 3 * time.Second

	engine := detect.NewEngine(cfg, detect.Deps{
		Reporter:  &localLedger{svc: svc, userID: 1, examID: 1},
		Presenter: consolePresenter{},
		Submitter: consoleSubmitter{},
	})

	ctx := context.Background()
	out, err := engine.StartExam(ctx, 10)
	if err != nil {
		log.Fatalf("start exam: %v", err)
	}
	fmt.Printf("session %d started, violations=%d action=%s\n", out.SessionID, out.Violations, out.Action)

	time.Sleep(cfg.GracePeriod + 50*time.Millisecond)

	script := []struct {
		wait    time.Duration
		kind    detect.SignalKind
		details string
	}{
		{0, detect.SignalWindowBlur, "Window blur detected"},
		{200 * time.Millisecond, detect.SignalVisibilityHidden, "Tab switch detected"}, // debounced
		{time.Second, detect.SignalFullscreenExit, "Fullscreen exit detected"},
		{time.Second, detect.SignalDevtoolsShortcut, "Developer tools access attempted"},
	}

	for _, step := range script {
		time.Sleep(step.wait)
		fmt.Printf("signal: %s\n", step.kind)
		engine.Observe(ctx, step.kind, step.details)
		fmt.Printf("  state=%s violations=%d\n", engine.State(), engine.Violations())
	}

	engine.Stop()
	fmt.Println("diagnostics log:")
	for _, entry := range engine.Logs() {
		flag := " "
		if entry.Suppressed {
			flag = "s"
		}
		fmt.Printf("  %s %-18s count=%d %s\n", flag, entry.Signal, entry.Count, entry.Details)
	}
}
