package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no record matches an id in any store
var ErrNotFound = errors.New("not found")

// ValidationError lists missing or malformed input fields
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("missing or invalid fields: %s", strings.Join(e.Fields, ", "))
}

// CapacityExceededError is returned when the guest count is outside the tour's group size
type CapacityExceededError struct {
	Requested int
	Max       int
}

func (e *CapacityExceededError) Error() string {
	if e.Requested < 1 {
		return "at least 1 guest is required"
	}
	return fmt.Sprintf("maximum group size is %d, requested %d", e.Max, e.Requested)
}

// InvalidTransitionError is returned for a status change the state machine forbids
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}
