package service

import (
	"errors"
)

// Error kinds. Every error returned by this package unwraps to exactly one of them.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
)

// Error carries a user-facing message and the kind it belongs to.
type Error struct {
	Kind    error
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Validation builds a validation error with a custom message.
func Validation(msg string) error {
	return newError(ErrValidation, msg)
}

func internal(msg string, cause error) error {
	return &Error{Kind: ErrInternal, Message: msg, cause: cause}
}

// Message returns the user-facing message of err, or fallback when err is
// not a service error or is internal.
func Message(err error, fallback string) string {
	var se *Error
	if errors.As(err, &se) && se.Kind != ErrInternal {
		return se.Message
	}
	return fallback
}

// hire
var (
	ErrInvalidBidID  = newError(ErrValidation, "Invalid bid ID format")
	ErrBidNotFound   = newError(ErrNotFound, "Bid not found")
	ErrGigNotFound   = newError(ErrNotFound, "Gig not found")
	ErrNotGigOwner   = newError(ErrForbidden, "Not authorized to hire for this gig")
	ErrGigNotOpen    = newError(ErrConflict, "This gig is not open for hiring")
	ErrBidNotPending = newError(ErrConflict, "This bid is no longer available for hiring")
)

// chat
var (
	ErrInvalidChatGigID = newError(ErrValidation, "Invalid gig ID")
	ErrChatGigNotFound  = newError(ErrNotFound, "Gig not found")
	ErrChatUnavailable  = newError(ErrConflict, "Gig not available for chat")
	ErrChatForbidden    = newError(ErrForbidden, "Not authorized")
	ErrMessageRequired  = newError(ErrValidation, "Message is required")
	ErrMessageTooLong   = newError(ErrValidation, "Message is too long")
)

// gigs and bids
var (
	ErrInvalidGigID        = newError(ErrValidation, "Invalid gig ID format")
	ErrGigNotAcceptingBids = newError(ErrConflict, "This gig is not accepting bids")
	ErrDuplicateBid        = newError(ErrConflict, "You have already placed a bid on this gig")
	ErrOwnGigBid           = newError(ErrForbidden, "You cannot bid on your own gig")
	ErrNotBidViewer        = newError(ErrForbidden, "Not authorized to view these bids")
)

// auth
var (
	ErrUserExists         = newError(ErrConflict, "User already exists")
	ErrInvalidCredentials = newError(ErrUnauthorized, "Invalid email or password")
	ErrUserNotFound       = newError(ErrNotFound, "User not found")
)
