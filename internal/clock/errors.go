package clock

import (
	"errors"
	"fmt"
)

// Code classifies a rejected signing attempt for API clients.
type Code string

const (
	CodeInvalidSequence Code = "INVALID_ACTION_SEQUENCE"
	CodeDuplicate       Code = "DUPLICATE_RECORD"
)

// Denial is a typed rejection carrying the current status and requested
// action so clients can build precise messages. It is never coerced into a
// "closest valid" action.
type Denial struct {
	Code   Code
	Status Status
	Action Action
	Reason string
}

func (d *Denial) Error() string {
	return fmt.Sprintf("%s: %s", d.Code, d.Reason)
}

// AsDenial unwraps a Denial from an error chain.
func AsDenial(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// FieldError is a rejected input field, reported before any state-machine
// evaluation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates field-level input failures.
type ValidationError struct {
	Fields []FieldError
}

func (v *ValidationError) Error() string {
	if len(v.Fields) == 1 {
		return fmt.Sprintf("invalid input: %s %s", v.Fields[0].Field, v.Fields[0].Message)
	}
	return fmt.Sprintf("invalid input: %d fields rejected", len(v.Fields))
}

// AsValidation unwraps a ValidationError from an error chain.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
