package server

import (
	"errors"

	"github.com/lawnchairsociety/dungeongen/internal/generator"
	"github.com/lawnchairsociety/dungeongen/internal/lattice"
)

var (
	ErrBadRequest      = errors.New("server: bad request")
	ErrTooManyFloors   = errors.New("server: too many floors requested")
	ErrArchiveDisabled = errors.New("server: archive not configured")
)

// Request asks for one dungeon. Zero fields take the server defaults.
type Request struct {
	Seed              string  `json:"seed"`
	Strategy          string  `json:"strategy"`
	Param             int     `json:"param"`
	Floors            int     `json:"floors"`
	Levels            []int   `json:"levels,omitempty"`
	DiversifyFraction float64 `json:"diversify_fraction"`
	CheatMode         bool    `json:"cheat_mode"`
	// Archive stores the accepted dungeon under its run key.
	Archive bool `json:"archive"`
}

// MessageType tags every message the server sends.
type MessageType string

const (
	MessageStarted  MessageType = "started"
	MessageProgress MessageType = "progress"
	MessageResult   MessageType = "result"
	MessageError    MessageType = "error"
)

// Message is one server-to-client frame.
type Message struct {
	Type   MessageType    `json:"type"`
	Seed   string         `json:"seed,omitempty"`
	RunKey string         `json:"run_key,omitempty"`
	Event  *Progress      `json:"event,omitempty"`
	Floors []FloorPayload `json:"floors,omitempty"`
	RunID  string         `json:"run_id,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Progress mirrors a generator event without the working lattice.
type Progress struct {
	Kind      generator.EventKind `json:"kind"`
	Level     int                 `json:"level"`
	Attempt   int                 `json:"attempt"`
	Iteration int                 `json:"iteration,omitempty"`
	Reason    string              `json:"reason,omitempty"`
}

// Cell is a lattice coordinate on the wire.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func cellOf(p lattice.Point) Cell {
	return Cell{X: p.X, Y: p.Y}
}

// FloorPayload is one accepted floor. Bin is the .bin encoding, base64 in
// JSON.
type FloorPayload struct {
	Level      int    `json:"level"`
	Strategy   string `json:"strategy"`
	Seed       string `json:"seed"`
	Attempts   int    `json:"attempts"`
	Iterations int    `json:"iterations"`
	Entry      Cell   `json:"entry"`
	StairsDown Cell   `json:"stairs_down"`
	Digest     string `json:"digest"`
	Bin        []byte `json:"bin"`
}

// LegendEntry is one catalog tile as served by /catalog.
type LegendEntry struct {
	ID       lattice.TileValue `json:"id"`
	Code     string            `json:"code"`
	Name     string            `json:"name"`
	Color    string            `json:"color"`
	Category string            `json:"category,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
}

func progressOf(e generator.Event) *Progress {
	return &Progress{
		Kind:      e.Kind,
		Level:     e.Level,
		Attempt:   e.Attempt,
		Iteration: e.Iteration,
		Reason:    e.Reason,
	}
}
