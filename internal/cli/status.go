package cli

import (
	"context"
	"fmt"
	"io"
)

// Status prints the state of every unit. With a shared store (file or redis)
// this shows runs owned by other processes too.
func Status(ctx context.Context, app *App, w io.Writer) error {
	states, err := app.Autopilot.Statuses(ctx)
	if err != nil {
		return err
	}
	PrintReport(w, states, nil)
	return nil
}

// Stop requests a stop of the given units. The process that owns a run
// observes the request through the shared store.
func Stop(ctx context.Context, app *App, w io.Writer, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("no unit given")
	}
	for _, id := range ids {
		st, err := app.Autopilot.StopUnit(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to stop %s: %w", id, err)
		}
		if st.IsRunning {
			printSystemMessage(w, "Stop requested for %s", id)
		} else {
			printSystemMessage(w, "%s is not running (%s)", id, st.Status)
		}
	}
	return nil
}
