package types

import (
	"errors"
	"fmt"
	"strings"
)

// Operational is implemented by errors that represent expected failure modes
// meant to be surfaced to the end user, as opposed to programming errors.
type Operational interface {
	error
	Operational()
}

// IsOperational reports whether any error in err's chain is operational.
func IsOperational(err error) bool {
	var op Operational
	return errors.As(err, &op)
}

// OperationalError is the base for all expected, user-actionable failures.
type OperationalError struct {
	Message string
}

func (e *OperationalError) Error() string { return e.Message }
func (e *OperationalError) Operational()  {}

// NewOperationalError builds a plain operational error with a formatted
// message.
func NewOperationalError(format string, args ...interface{}) *OperationalError {
	return &OperationalError{Message: fmt.Sprintf(format, args...)}
}

// TimeoutError reports that a wait on the remote side expired.
type TimeoutError struct {
	OperationalError
}

func NewTimeoutError(format string, args ...interface{}) *TimeoutError {
	return &TimeoutError{OperationalError{Message: fmt.Sprintf(format, args...)}}
}

// DisconnectedError reports that the channel was lost while an operation was
// waiting on it. It is distinct from TimeoutError so callers can tell "gave
// up" apart from "connection lost".
type DisconnectedError struct {
	OperationalError
}

func NewDisconnectedError(format string, args ...interface{}) *DisconnectedError {
	return &DisconnectedError{OperationalError{Message: fmt.Sprintf(format, args...)}}
}

// RecorderRequiredError reports that an operation needs action recording
// enabled on the session config.
type RecorderRequiredError struct {
	OperationalError
	Operation string
}

func NewRecorderRequiredError(operation string) *RecorderRequiredError {
	return &RecorderRequiredError{
		OperationalError: OperationalError{Message: fmt.Sprintf("%s requires the record option to be enabled on the session", operation)},
		Operation:        operation,
	}
}

// ActionError is the generic failure of a playAction round trip. The concrete
// subtypes below refine it; an unrecognized remote error id surfaces as a bare
// ActionError.
type ActionError struct {
	OperationalError
	Action *Action
}

func NewActionError(action *Action, format string, args ...interface{}) *ActionError {
	return &ActionError{
		OperationalError: OperationalError{Message: fmt.Sprintf(format, args...)},
		Action:           action,
	}
}

// ActionTimeoutError reports that the remote executor never responded within
// the local hard deadline. Never retried.
type ActionTimeoutError struct {
	ActionError
}

func NewActionTimeoutError(action *Action, format string, args ...interface{}) *ActionTimeoutError {
	return &ActionTimeoutError{ActionError{
		OperationalError: OperationalError{Message: fmt.Sprintf(format, args...)},
		Action:           action,
	}}
}

// ActionInternalError reports an internal failure on the remote executor.
// Terminal, never retried.
type ActionInternalError struct {
	ActionError
}

func NewActionInternalError(action *Action, message string) *ActionInternalError {
	return &ActionInternalError{ActionError{
		OperationalError: OperationalError{Message: message},
		Action:           action,
	}}
}

// ActionElementNotFoundError reports that the targeted element did not match
// anything on screen. Retryable within the caller's timeout budget.
type ActionElementNotFoundError struct {
	ActionError
}

func NewActionElementNotFoundError(action *Action) *ActionElementNotFoundError {
	return &ActionElementNotFoundError{ActionError{
		OperationalError: OperationalError{Message: "element could not be found on screen"},
		Action:           action,
	}}
}

// maxEnumeratedMatches caps how many ambiguous matches are spelled out in the
// error message.
const maxEnumeratedMatches = 5

// ActionAmbiguousElementError reports that an element selector matched more
// than one element. Retryable; carries the full set of matches.
type ActionAmbiguousElementError struct {
	ActionError
	Elements []Element
}

func NewActionAmbiguousElementError(action *Action, elements []Element) *ActionAmbiguousElementError {
	var b strings.Builder
	fmt.Fprintf(&b, "element selector matched %d elements:", len(elements))
	for i, el := range elements {
		if i == maxEnumeratedMatches {
			fmt.Fprintf(&b, " ...and %d more", len(elements)-maxEnumeratedMatches)
			break
		}
		fmt.Fprintf(&b, "\n  %s", el.String())
	}
	return &ActionAmbiguousElementError{
		ActionError: ActionError{
			OperationalError: OperationalError{Message: b.String()},
			Action:           action,
		},
		Elements: elements,
	}
}

// ActionInvalidArgumentError reports that the remote executor rejected the
// action's arguments. Terminal, never retried.
type ActionInvalidArgumentError struct {
	ActionError
}

func NewActionInvalidArgumentError(action *Action, message string) *ActionInvalidArgumentError {
	return &ActionInvalidArgumentError{ActionError{
		OperationalError: OperationalError{Message: message},
		Action:           action,
	}}
}
