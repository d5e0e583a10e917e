package session

import "errors"

// ErrPreconditionViolation is returned when an operation is called in a
// state that does not satisfy its precondition (e.g. approveSession
// while already connected).
var ErrPreconditionViolation = errors.New("session: precondition violation")
