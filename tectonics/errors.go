package tectonics

import (
	"errors"
	"fmt"
)

// Error classes. Every failure in this package wraps one of these.
var (
	// ErrShape reports a buffer whose length disagrees with cellCount or eraCount.
	ErrShape = errors.New("shape mismatch")
	// ErrConfigRange reports a knob outside its declared range.
	ErrConfigRange = errors.New("configuration out of range")
)

// Stage names used in errors, logs and phase timing.
const (
	StageParams     = "params"
	StageInputs     = "inputs"
	StageMembership = "era_membership"
	StageSegments   = "segments"
	StageEvents     = "events"
	StageFields     = "era_fields"
	StageRollups    = "rollups"
	StageTracers    = "tracers"
	StageProvenance = "provenance"
	StageCurrent    = "current"
)

// StageError names the failing stage and the violated invariant.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("tectonics %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func shapeError(stage, buffer string, got, want int) error {
	return &StageError{Stage: stage, Err: fmt.Errorf("%w: %s length %d, expected %d", ErrShape, buffer, got, want)}
}

func rangeError(stage, format string, args ...any) error {
	return &StageError{Stage: stage, Err: fmt.Errorf("%w: %s", ErrConfigRange, fmt.Sprintf(format, args...))}
}

func checkLen(stage, buffer string, got, want int) error {
	if got != want {
		return shapeError(stage, buffer, got, want)
	}
	return nil
}
