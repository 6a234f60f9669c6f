package generator

import (
	"github.com/lawnchairsociety/dungeongen/internal/lattice"
)

// EventKind names a point in the generation of a floor.
type EventKind string

const (
	EventFloorStarted    EventKind = "floor_started"
	EventRefined         EventKind = "refined"
	EventAttemptRejected EventKind = "attempt_rejected"
	EventFloorAccepted   EventKind = "floor_accepted"
)

// Event is reported to the observer as generation progresses. Lattice is
// the attempt's working lattice; observers must not keep or modify it.
type Event struct {
	Kind      EventKind
	Level     int
	Attempt   int
	Iteration int
	Reason    string
	Lattice   *lattice.Lattice
}

// Observer receives generation events. It runs on the generating goroutine.
type Observer func(Event)
