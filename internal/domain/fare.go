package domain

import "time"

// FareReason tags why a price was quoted.
type FareReason string

const (
	FareReasonListing     FareReason = "listing"
	FareReasonSingleQuote FareReason = "single-quote"
	FareReasonSearch      FareReason = "search"
	FareReasonHold        FareReason = "hold"
	FareReasonSimulation  FareReason = "simulation"
)

// FareEntry is one append-only fare-history record. It is a side-channel log:
// writes are best-effort and never gate the operation that produced them.
type FareEntry struct {
	ID             int64
	FlightID       int64
	BaseFare       float64
	Price          float64
	SeatsAvailable int
	TotalSeats     int
	Reason         FareReason
	RecordedAt     time.Time
}
