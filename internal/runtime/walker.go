package runtime

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/aretw0/autopilot/internal/logging"
	"github.com/aretw0/autopilot/pkg/domain"
)

const (
	// loopPause separates two passes of a looping run.
	loopPause = 500 * time.Millisecond
	// slowMotionUnit is the extra delay per node at speed 0.
	slowMotionUnit = 2 * time.Second
)

// Reporter receives traversal progress for one run.
type Reporter interface {
	// Visit records the node about to execute and the pass progress (0-100).
	Visit(ctx context.Context, nodeID string, progress int) error
}

// Walker traverses a unit's graph and drives the Dispatcher.
type Walker struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	sleep      SleepFunc
}

// NewWalker creates a walker. sleep is used for the slow-motion delay and the
// pause between passes and must honor ctx cancellation.
func NewWalker(dispatcher *Dispatcher, logger *slog.Logger, hooks domain.LifecycleHooks, sleep SleepFunc) *Walker {
	if logger == nil {
		logger = logging.NewNop()
	}
	if sleep == nil {
		sleep = sleepContext
	}
	return &Walker{
		dispatcher: dispatcher,
		logger:     logger,
		hooks:      hooks,
		sleep:      sleep,
	}
}

// frame is a pending visit together with the visited set of the path that reached it.
type frame struct {
	nodeID  string
	visited map[string]struct{}
}

// Walk runs unit until the graph is exhausted (once, or forever when loop is set),
// ctx is canceled, or an action fails. Cancellation is observed before each node,
// before each edge and at loop boundaries; it is not an error.
func (w *Walker) Walk(ctx context.Context, rep Reporter, unit domain.Unit, loop bool, speed float64) error {
	g := unit.Graph()
	roots := g.Roots()
	if len(roots) == 0 {
		return nil
	}

	for pass := 1; ; pass++ {
		executed := 0
		for _, root := range roots {
			if ctx.Err() != nil {
				return nil
			}
			if err := w.walkFrom(ctx, rep, unit, g, root.ID, speed, &executed); err != nil {
				return err
			}
		}

		if !loop || ctx.Err() != nil {
			return nil
		}
		w.logger.Debug("pass finished", "pass", pass, "executed", executed)
		if err := w.sleep(ctx, loopPause); err != nil {
			return nil
		}
	}
}

func (w *Walker) walkFrom(ctx context.Context, rep Reporter, unit domain.Unit, g *domain.Graph, rootID string, speed float64, executed *int) error {
	stack := []frame{{nodeID: rootID, visited: make(map[string]struct{})}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if ctx.Err() != nil {
			return nil
		}
		if _, seen := f.visited[f.nodeID]; seen {
			continue
		}
		f.visited[f.nodeID] = struct{}{}

		node, ok := g.Node(f.nodeID)
		if !ok {
			w.logger.Debug("dangling connection", "node_id", f.nodeID)
			continue
		}

		if err := rep.Visit(ctx, node.ID, progress(*executed, g.Len())); err != nil {
			return err
		}
		// Visit may observe a stop raised elsewhere.
		if ctx.Err() != nil {
			return nil
		}

		outcome, err := w.visit(ctx, unit, node)
		*executed++
		if err != nil {
			return err
		}

		if speed < 1.0 {
			if err := w.sleep(ctx, time.Duration((1.0-speed)*float64(slowMotionUnit))); err != nil {
				return nil
			}
		}

		next := successors(g, node, outcome)
		// Reverse push so the first connection is visited first.
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, frame{nodeID: next[i], visited: cloneSet(f.visited)})
		}
	}
	return nil
}

func (w *Walker) visit(ctx context.Context, unit domain.Unit, node domain.Node) (Outcome, error) {
	runID := runIDFrom(ctx)
	base := func(t domain.EventType) domain.EventBase {
		return domain.EventBase{Timestamp: time.Now(), Type: t, UnitID: unit.ID, RunID: runID}
	}

	if w.hooks.OnNodeEnter != nil {
		w.hooks.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: base(domain.EventNodeEnter), NodeID: node.ID, Kind: node.Kind})
	}

	start := time.Now()
	outcome, err := w.dispatcher.Execute(ctx, unit, node)

	if outcome.Skipped && w.hooks.OnActionSkipped != nil {
		w.hooks.OnActionSkipped(ctx, &domain.SkipEvent{EventBase: base(domain.EventActionSkipped), NodeID: node.ID, Kind: node.Kind, Reason: outcome.Reason})
	}
	if w.hooks.OnNodeLeave != nil {
		w.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
			EventBase: base(domain.EventNodeLeave),
			NodeID:    node.ID,
			Kind:      node.Kind,
			Duration:  time.Since(start),
			Err:       err,
		})
	}
	return outcome, err
}

// successors lists the ids to visit after node, in visiting order.
//
// A conditional with connection nodes (source_id == node) follows those
// instead of Connections: "output" always fires, "true"/"false" fire when
// they match the result. Without them it follows Connections[0] when true
// and Connections[1] when false. Any other node follows all Connections and
// then the targets of its connection nodes.
func successors(g *domain.Graph, node domain.Node, outcome Outcome) []string {
	if node.Kind == domain.ActionConnection {
		var next []string
		if target := node.StringParam(domain.ParamTargetID, ""); target != "" {
			next = append(next, target)
		}
		return append(next, node.Connections...)
	}

	advanced := g.ConnectionsFrom(node.ID)
	if node.Kind != domain.ActionIf {
		next := slices.Clone(node.Connections)
		for _, c := range advanced {
			if target := c.StringParam(domain.ParamTargetID, ""); target != "" {
				next = append(next, target)
			}
		}
		return next
	}

	cond := false
	if outcome.Condition != nil {
		cond = *outcome.Condition
	}

	if len(advanced) > 0 {
		var next []string
		for _, c := range advanced {
			target := c.StringParam(domain.ParamTargetID, "")
			if target == "" {
				continue
			}
			if fires(c.StringParam(domain.ParamOutputType, domain.OutputAny), cond) {
				next = append(next, target)
			}
		}
		return next
	}

	switch {
	case cond && len(node.Connections) > 0:
		return node.Connections[:1]
	case !cond && len(node.Connections) > 1:
		return node.Connections[1:2]
	}
	return nil
}

func fires(outputType string, cond bool) bool {
	switch outputType {
	case domain.OutputAny:
		return true
	case domain.OutputTrue:
		return cond
	case domain.OutputFalse:
		return !cond
	}
	return false
}

// progress is floor(executed/total*100), capped at 100 since shared
// descendants can run more than once per pass.
func progress(executed, total int) int {
	if total <= 0 {
		return 0
	}
	return min(executed*100/total, 100)
}

func cloneSet(s map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(s)+1)
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}
