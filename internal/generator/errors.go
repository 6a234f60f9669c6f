package generator

import (
	"errors"
	"fmt"
)

var (
	// ErrGenerationFailed means a floor exhausted its attempts.
	ErrGenerationFailed = errors.New("generator: generation failed")
	// ErrMissingStairsDown means an accepted floor has no stairs down to
	// chain the next floor from.
	ErrMissingStairsDown = errors.New("generator: floor has no stairs down")
	// ErrInvalidOptions wraps option values generation cannot start with.
	ErrInvalidOptions = errors.New("generator: invalid options")
)

// FloorError reports a fatal failure on one floor.
type FloorError struct {
	Level    int
	Attempts int
	Err      error
}

func (e *FloorError) Error() string {
	return fmt.Sprintf("floor %d after %d attempts: %v", e.Level, e.Attempts, e.Err)
}

func (e *FloorError) Unwrap() error {
	return e.Err
}
