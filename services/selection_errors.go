package services

import "errors"

// ErrorKind classifies selection failures for the transport layer
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindPrecondition ErrorKind = "precondition"
	KindDependency   ErrorKind = "dependency"
)

// SelectionError is a business rule failure with a stable code the client can render
type SelectionError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *SelectionError) Error() string {
	return e.Message
}

var (
	ErrUniversityNotFound = &SelectionError{
		Kind:    KindNotFound,
		Code:    "UNIVERSITY_NOT_FOUND",
		Message: "University not found",
	}
	ErrAlreadyShortlisted = &SelectionError{
		Kind:    KindConflict,
		Code:    "ALREADY_SHORTLISTED",
		Message: "University is already in your shortlist",
	}
	ErrAlreadyLocked = &SelectionError{
		Kind:    KindConflict,
		Code:    "ALREADY_LOCKED",
		Message: "You already have a locked university. Please unlock it first.",
	}
	ErrNotShortlisted = &SelectionError{
		Kind:    KindPrecondition,
		Code:    "NOT_SHORTLISTED",
		Message: "University is not in your shortlist",
	}
	ErrNotLocked = &SelectionError{
		Kind:    KindPrecondition,
		Code:    "NOT_LOCKED",
		Message: "University is not locked",
	}
	ErrCannotRemoveLocked = &SelectionError{
		Kind:    KindPrecondition,
		Code:    "CANNOT_REMOVE_LOCKED",
		Message: "A locked university cannot be removed. Unlock it first.",
	}
	ErrConfirmationRequired = &SelectionError{
		Kind:    KindPrecondition,
		Code:    "CONFIRMATION_REQUIRED",
		Message: "Unlocking removes all tasks generated for this university. Confirm to continue.",
	}
	ErrTaskGeneration = &SelectionError{
		Kind:    KindDependency,
		Code:    "TASK_GENERATION_FAILED",
		Message: "Task generation is temporarily unavailable",
	}
	ErrTaskNotFound = &SelectionError{
		Kind:    KindNotFound,
		Code:    "TASK_NOT_FOUND",
		Message: "Task not found",
	}
)

// AsSelectionError extracts a SelectionError from err's chain
func AsSelectionError(err error) (*SelectionError, bool) {
	var selErr *SelectionError
	if errors.As(err, &selErr) {
		return selErr, true
	}
	return nil, false
}
