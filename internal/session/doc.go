// Package session defines the entities and lifecycle state for multi-agent
// discussion sessions, along with the normalization boundary that coerces
// raw wire records into canonical WorldEvents.
//
// A Session is the client-side view of one authoritative server simulation.
// It is mutated exclusively by reducer application of WorldEvents and
// StateSnapshots (see the reduce subpackage), which keeps the live update
// path and offline replay on the same transition logic.
//
// # Session Lifecycle
//
// Sessions move through several statuses:
//   - Pending: The session exists but discussion has not started.
//   - Active: Agents are discussing. Rounds advance while active.
//   - Paused: Discussion is temporarily suspended.
//   - Completed: The simulation terminated. Status never regresses past this.
package session
