package carbonview

import (
	goerrors "github.com/goliatone/go-errors"
)

const textCodeInvalidTransition = "INVALID_SESSION_TRANSITION"

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid session state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// sessionTransitions is the legal status graph. Idle only ever moves through
// loading; both terminal states can re-enter loading (login, restore) and any
// state may drop to unauthenticated (logout, credential rejection).
var sessionTransitions = map[Status]map[Status]struct{}{
	StatusIdle: {
		StatusLoading:         {},
		StatusUnauthenticated: {},
	},
	StatusLoading: {
		StatusLoading:         {},
		StatusAuthenticated:   {},
		StatusUnauthenticated: {},
	},
	StatusAuthenticated: {
		StatusLoading:         {},
		StatusAuthenticated:   {},
		StatusUnauthenticated: {},
	},
	StatusUnauthenticated: {
		StatusLoading:         {},
		StatusUnauthenticated: {},
	},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	targets, ok := sessionTransitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// Transition validates a status change and returns the new status, or a rich
// error naming both ends of the rejected move.
func Transition(from, to Status) (Status, error) {
	if !CanTransition(from, to) {
		return from, goerrors.New("invalid session state transition", goerrors.CategoryValidation).
			WithTextCode(textCodeInvalidTransition).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{
				"from": string(from),
				"to":   string(to),
			})
	}
	return to, nil
}
