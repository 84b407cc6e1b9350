package engine

import (
	"errors"
	"fmt"
)

// ErrElevatorUnavailable is returned when the target elevator is not
// Available at acquisition time, including when a concurrent scheduler won
// the race for it.
var ErrElevatorUnavailable = errors.New("elevator not available")

// ErrInvalidAmount is returned for non-positive stock adjustments.
var ErrInvalidAmount = errors.New("replenish amount must be positive")

// InvalidTransitionError indicates the repair's current status does not
// permit the requested transition.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid repair transition %s -> %s", e.From, e.To)
}

// AssigneeMismatchError indicates the caller is not the mechanic bound to
// the repair.
type AssigneeMismatchError struct{}

func (e AssigneeMismatchError) Error() string {
	return "repair is assigned to a different mechanic"
}
