/*
Package domain contains the core models of the autopilot engine.

It defines the static description of a unit (Nodes, Graph, Boundary) and the
runtime records produced while executing it (ExecutionState, MasterState).
This package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - Node: an atomic action descriptor (pointer, keyboard, wait, image, conditional).
  - Graph: an indexed, ordered view over a unit's nodes used for traversal.
  - Unit: an independently executable graph with an optional Boundary.
  - ExecutionState: the per-unit status snapshot exposed to pollers.
  - MasterState: the aggregate status of a run-all sequence.
*/
package domain
