package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/autopilot/internal/presentation/tui"
	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/muesli/termenv"
)

// defaultPollInterval is how often a foreground run samples status.
const defaultPollInterval = 200 * time.Millisecond

// ErrRunFailed is returned when at least one unit (or the run-all sequence) ended in error.
var ErrRunFailed = errors.New("run failed")

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	Units  []string
	All    bool
	Loop   bool
	Speed  float64
	Output io.Writer
	// Live prints a status line every time the state changes.
	Live bool
	// Report prints a markdown summary at the end.
	Report bool
	// PollInterval overrides how often status is sampled.
	PollInterval time.Duration
}

// Run executes units in the foreground: it starts them, follows their status
// until they finish and stops them when ctx is cancelled.
// Named units run one after another; All runs the configured sequence.
func Run(ctx context.Context, app *App, opts RunOptions) error {
	if !opts.All && len(opts.Units) == 0 {
		return fmt.Errorf("no unit given: name one or more units, or pass --all")
	}
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}

	var err error
	if opts.All {
		err = runAll(ctx, app, opts)
	} else {
		err = runUnits(ctx, app, opts)
	}
	app.Autopilot.Wait()

	if opts.Report {
		report(ctx, app, opts)
	}
	return err
}

func runUnits(ctx context.Context, app *App, opts RunOptions) error {
	var failed []string
	for _, id := range opts.Units {
		if ctx.Err() != nil {
			break
		}
		if _, err := app.Autopilot.StartUnit(ctx, id, opts.Loop, opts.Speed); err != nil {
			return fmt.Errorf("failed to start %s: %w", id, err)
		}
		final, err := followUnit(ctx, app, id, opts)
		if err != nil {
			return err
		}
		if final.Status == domain.StatusError {
			failed = append(failed, id)
			if final.Error == domain.FailsafeMessage {
				break
			}
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %v", ErrRunFailed, failed)
	}
	return nil
}

// followUnit polls a unit until it leaves the running state, requesting a
// stop once ctx is cancelled.
func followUnit(ctx context.Context, app *App, id string, opts RunOptions) (domain.ExecutionState, error) {
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	bg := context.WithoutCancel(ctx)
	profile := termenv.ColorProfile()
	var last domain.ExecutionState
	stopping := false

	for {
		st, err := app.Autopilot.UnitStatus(bg, id)
		if err != nil {
			return st, err
		}
		if opts.Live && domain.Diff(&last, &st) != nil {
			fmt.Fprintln(opts.Output, tui.StatusLine(profile, st))
		}
		last = st
		if !st.IsRunning && st.Status.IsTerminal() {
			return st, nil
		}

		select {
		case <-ctx.Done():
			if !stopping {
				stopping = true
				printSystemMessage(opts.Output, "Stopping %s...", id)
				if _, err := app.Autopilot.StopUnit(bg, id); err != nil {
					return st, err
				}
			}
			<-ticker.C
		case <-ticker.C:
		}
	}
}

func runAll(ctx context.Context, app *App, opts RunOptions) error {
	if _, err := app.Autopilot.StartAll(ctx, opts.Loop, opts.Speed); err != nil {
		return fmt.Errorf("failed to start run-all: %w", err)
	}

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	var last domain.MasterState
	for {
		ms := app.Autopilot.AllStatus()
		if opts.Live && ms != last {
			printSystemMessage(opts.Output, "run-all %s %d%% (%d/%d) %s", ms.Status, ms.Progress, ms.UnitsCompleted, ms.TotalUnits, ms.CurrentUnit)
		}
		last = ms
		if !ms.IsRunning {
			if ms.Status == domain.StatusError {
				return fmt.Errorf("%w: %s", ErrRunFailed, ms.Error)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			printSystemMessage(opts.Output, "Stopping all units...")
			if _, err := app.Autopilot.StopAll(context.WithoutCancel(ctx)); err != nil {
				return err
			}
			return nil
		case <-ticker.C:
		}
	}
}

func report(ctx context.Context, app *App, opts RunOptions) {
	states, err := app.Autopilot.Statuses(context.WithoutCancel(ctx))
	if err != nil {
		app.Logger.Warn("Failed to collect statuses", "error", err)
		return
	}
	var master *domain.MasterState
	if opts.All {
		ms := app.Autopilot.AllStatus()
		master = &ms
	}
	PrintReport(opts.Output, states, master)
}

// PrintReport renders unit states (and the run-all state, if given) as
// markdown, styled when stdout is a terminal.
func PrintReport(w io.Writer, states []domain.ExecutionState, master *domain.MasterState) {
	md := tui.StatusMarkdown(states, master)
	out, err := tui.NewRenderer()(md)
	if err != nil {
		out = md
	}
	fmt.Fprint(w, out)
}
