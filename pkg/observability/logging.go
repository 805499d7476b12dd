package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/autopilot/pkg/domain"
)

// LogHooks returns lifecycle hooks that write one structured line per event.
// Node events are logged at debug level; run outcomes at info.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter",
				"unit_id", e.UnitID,
				"run_id", e.RunID,
				"node_id", e.NodeID,
				"kind", e.Kind,
			)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			args := []any{
				"unit_id", e.UnitID,
				"run_id", e.RunID,
				"node_id", e.NodeID,
				"duration", e.Duration,
			}
			if e.Err != nil {
				args = append(args, "error", e.Err)
			}
			logger.DebugContext(ctx, "node_leave", args...)
		},
		OnActionSkipped: func(ctx context.Context, e *domain.SkipEvent) {
			logger.InfoContext(ctx, "action_skipped",
				"unit_id", e.UnitID,
				"node_id", e.NodeID,
				"reason", e.Reason,
			)
		},
		OnRunFinished: func(ctx context.Context, e *domain.RunEvent) {
			args := []any{
				"unit_id", e.UnitID,
				"run_id", e.RunID,
				"status", e.Status,
			}
			if e.Err != nil {
				args = append(args, "error", e.Err)
			}
			logger.InfoContext(ctx, "run_finished", args...)
		},
	}
}
