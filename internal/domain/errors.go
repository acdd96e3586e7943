package domain

import "errors"

var (
	ErrFlightNotFound  = errors.New("flight not found")
	ErrBookingNotFound = errors.New("booking not found")

	ErrNoSeatsAvailable  = errors.New("no seats available")
	ErrBookingNotPending = errors.New("booking is not pending")
	ErrAlreadyCancelled  = errors.New("booking already cancelled")

	// ErrSeatInvariant means a seat count would leave [0, total_seats]. It can
	// only come from a lost invariant elsewhere and must abort the enclosing
	// unit of work.
	ErrSeatInvariant = errors.New("seat count invariant violated")
)

// Conflict reports whether err is a state conflict the caller caused, as
// opposed to a missing resource or an internal defect.
func Conflict(err error) bool {
	return errors.Is(err, ErrNoSeatsAvailable) ||
		errors.Is(err, ErrBookingNotPending) ||
		errors.Is(err, ErrAlreadyCancelled)
}

// NotFound reports whether err means the referenced resource does not exist.
func NotFound(err error) bool {
	return errors.Is(err, ErrFlightNotFound) || errors.Is(err, ErrBookingNotFound)
}
