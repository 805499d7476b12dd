package runtime

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/autopilot/internal/logging"
	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/aretw0/autopilot/pkg/ports"
)

// Outcome describes how a single action ended when it did not fail.
type Outcome struct {
	// Skipped is set when the action was deliberately not performed
	// (unset coordinate, out of bounds, template missing or not found).
	Skipped bool
	Reason  string

	// Condition carries the evaluated result of a conditional node.
	Condition *bool
}

func skipped(reason string) Outcome {
	return Outcome{Skipped: true, Reason: reason}
}

// SleepFunc waits for d. Implementations return ctx.Err() if ctx ends first.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Dispatcher maps a node's action kind onto Actuator and ImageMatcher calls.
type Dispatcher struct {
	actuator ports.Actuator
	matcher  ports.ImageMatcher
	logger   *slog.Logger

	sleep          SleepFunc
	random         func() float64
	templateDir    string
	templateExists func(path string) bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger used for skip and failure reports.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithPause replaces the function used for settle pauses, holds and waits.
func WithPause(fn SleepFunc) DispatcherOption {
	return func(d *Dispatcher) {
		if fn != nil {
			d.sleep = fn
		}
	}
}

// WithRandom replaces the jitter source. fn must return values in [0, 1).
func WithRandom(fn func() float64) DispatcherOption {
	return func(d *Dispatcher) {
		if fn != nil {
			d.random = fn
		}
	}
}

// WithTemplateDir resolves relative image paths against dir.
func WithTemplateDir(dir string) DispatcherOption {
	return func(d *Dispatcher) {
		d.templateDir = dir
	}
}

// WithTemplateCheck replaces the template existence check (default: os.Stat).
func WithTemplateCheck(fn func(path string) bool) DispatcherOption {
	return func(d *Dispatcher) {
		if fn != nil {
			d.templateExists = fn
		}
	}
}

// NewDispatcher creates a dispatcher. matcher may be nil, in which case every
// image action is skipped and every image condition evaluates to false.
func NewDispatcher(actuator ports.Actuator, matcher ports.ImageMatcher, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		actuator: actuator,
		matcher:  matcher,
		logger:   logging.NewNop(),
		sleep:    sleepContext,
		random:   rand.Float64,
		templateExists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute performs node's action for unit.
// Expected skip conditions are reported through the Outcome, never as errors.
// Failures are returned as *domain.FailsafeError or *domain.ActionError.
//
// The action runs to completion even if ctx is canceled mid-way.
func (d *Dispatcher) Execute(ctx context.Context, unit domain.Unit, node domain.Node) (Outcome, error) {
	actx := context.WithoutCancel(ctx)
	logger := d.logger.With("node_id", node.ID, "kind", string(node.Kind))

	var (
		out Outcome
		err error
	)
	switch {
	case node.Kind.IsPointer():
		out, err = d.pointer(actx, unit, node)
	case node.Kind.IsImage():
		out, err = d.image(actx, unit, node)
	case node.Kind == domain.ActionKeyboard:
		out, err = d.keyboard(actx, node)
	case node.Kind == domain.ActionWait:
		out, err = d.wait(actx, node)
	case node.Kind == domain.ActionIf:
		out, err = d.condition(actx, unit, node)
	case node.Kind == domain.ActionConnection:
		// Pass-through marker.
	default:
		out = skipped("unknown action type")
	}

	if err != nil {
		if errors.Is(err, domain.ErrFailsafe) {
			logger.Error("actuator failsafe triggered", "error", err)
			return out, &domain.FailsafeError{NodeID: node.ID, Kind: node.Kind, Err: err}
		}
		logger.Error("action failed", "error", err)
		return out, &domain.ActionError{NodeID: node.ID, Kind: node.Kind, Err: err}
	}

	if out.Skipped {
		logger.Warn("action skipped", "reason", out.Reason)
	} else {
		logger.Debug("action executed")
	}
	return out, nil
}

func (d *Dispatcher) wait(ctx context.Context, node domain.Node) (Outcome, error) {
	p := waitParams{Duration: 1.0}
	if err := decodeParams(node.Params, &p); err != nil {
		return Outcome{}, err
	}
	if p.Duration < 0.1 {
		p.Duration = 0.1
	}
	d.pause(ctx, p.Duration)
	return Outcome{}, nil
}

// jitter adds a uniform offset in [-bound, +bound] and truncates toward zero.
func (d *Dispatcher) jitter(v int, bound float64) int {
	if bound <= 0 {
		return v
	}
	return int(float64(v) + (d.random()*2-1)*bound)
}

func (d *Dispatcher) uniform(base, spread float64) float64 {
	return base + (d.random()*2-1)*spread
}

func (d *Dispatcher) pause(ctx context.Context, seconds float64) {
	_ = d.sleep(ctx, secondsToDuration(seconds))
}

func (d *Dispatcher) resolveTemplate(path string) string {
	if path == "" || d.templateDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(d.templateDir, path)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
