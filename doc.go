/*
Package autopilot runs desktop automation graphs ("units", a.k.a. drawings).

A unit is a directed graph of action nodes: pointer moves and clicks, keyboard
input, waits, on-screen image searches and conditionals. The engine walks the
graph depth first, performs each action through an Actuator, follows
conditional branches on the result of the previous node and publishes an
observable ExecutionState while it runs. Runs are detached: Start returns
immediately and callers poll status snapshots.

# Concept

The library follows a hexagonal layout. The core (internal/runtime) depends
only on the ports in pkg/ports: a UnitRepository that owns unit definitions,
a StatusStore that holds execution state, an Actuator that drives the pointer
and keyboard, and an ImageMatcher that finds templates on screen. Adapters in
pkg/adapters provide file, memory and Redis storage, a simulated device for
dry runs and tests, and a process-backed device for X11 desktops.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/autopilot"
	)

	func main() {
		// Reads unit files from ./units. Without WithActuator every run is a dry run.
		ap, err := autopilot.New("./units")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		if _, err := ap.StartUnit(ctx, "login", false, 1.0); err != nil {
			log.Fatal(err)
		}
		ap.Wait()

		st, _ := ap.UnitStatus(ctx, "login")
		log.Println(st.Status, st.Progress)
	}
*/
package autopilot
