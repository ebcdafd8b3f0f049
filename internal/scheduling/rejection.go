package scheduling

import (
	"errors"
	"fmt"
)

// Reason classifies why a candidate was rejected.
type Reason int

const (
	ReasonField Reason = iota + 1
	ReasonTimeRange
	ReasonCapacity
	ReasonRoom
	ReasonStaff
	ReasonClass
)

func (r Reason) String() string {
	switch r {
	case ReasonField:
		return "field"
	case ReasonTimeRange:
		return "time_range"
	case ReasonCapacity:
		return "capacity"
	case ReasonRoom:
		return "room"
	case ReasonStaff:
		return "staff"
	case ReasonClass:
		return "class"
	default:
		return "unknown"
	}
}

// IsResourceConflict reports whether the reason is a double booking rather than bad input.
func (r Reason) IsResourceConflict() bool {
	switch r {
	case ReasonRoom, ReasonStaff, ReasonClass:
		return true
	case ReasonField, ReasonTimeRange, ReasonCapacity:
		return false
	default:
		return false
	}
}

// Rejection is implemented by every expected, user-facing refusal of a candidate.
type Rejection interface {
	error
	Reason() Reason
	BlockingID() string
}

// AsRejection unwraps err into a Rejection.
func AsRejection(err error) (Rejection, bool) {
	var rejection Rejection
	if errors.As(err, &rejection) {
		return rejection, true
	}

	return nil, false
}

// Rule names the validation step that failed.
type Rule int

const (
	RuleRequired Rule = iota + 1
	RuleDateOrDay
	RuleTimeFormat
	RuleTimeOrder
	RuleBusinessHours
	RuleCapacity
)

// ValidationError is returned when a candidate is incomplete or outside permitted hours.
type ValidationError struct {
	Kind    Reason
	Rule    Rule
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Reason() Reason {
	return e.Kind
}

func (e *ValidationError) BlockingID() string {
	return ""
}

func fieldError(rule Rule, field, message string) *ValidationError {
	return &ValidationError{Kind: ReasonField, Rule: rule, Field: field, Message: message}
}

func timeRangeError(rule Rule, field, message string) *ValidationError {
	return &ValidationError{Kind: ReasonTimeRange, Rule: rule, Field: field, Message: message}
}

// CapacityError rejects a candidate whose capacity exceeds what its room can seat.
func CapacityError(room string, requested, limit int) *ValidationError {
	return &ValidationError{
		Kind:    ReasonCapacity,
		Rule:    RuleCapacity,
		Field:   "capacity",
		Message: fmt.Sprintf("%s seats %d, capacity %d requested", room, limit, requested),
	}
}

// Conflict describes the existing booking that blocks a candidate.
type Conflict struct {
	Kind          Reason
	Message       string
	ConflictingID string
	Resource      string
	StartTime     string
	EndTime       string
}

func (c *Conflict) Error() string {
	return c.Message
}

func (c *Conflict) Reason() Reason {
	return c.Kind
}

func (c *Conflict) BlockingID() string {
	return c.ConflictingID
}
