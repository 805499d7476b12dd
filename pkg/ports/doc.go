/*
Package ports defines the driven ports (interfaces) for the autopilot engine.

These interfaces decouple the execution core from the devices it drives and the
places it keeps data, allowing the engine to run against real input devices, a
simulated desktop, an in-memory status table or a shared Redis instance.

# Key Interfaces

  - Actuator: Drives the pointer and keyboard. May refuse with domain.ErrFailsafe.
  - ImageMatcher: Locates a template image on screen, optionally inside a region.
  - UnitRepository: Reads unit definitions and records when a unit last ran.
  - StatusStore: Holds one ExecutionState per unit with atomic read-modify-write.
*/
package ports
