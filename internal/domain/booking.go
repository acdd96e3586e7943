package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// Booking holds one seat on one flight. The price is fixed at hold time and
// never recomputed. PNR is set only when the booking is CONFIRMED.
type Booking struct {
	ID            int64
	FlightID      int64
	PassengerID   int64
	SeatLabel     string
	Price         float64
	Status        BookingStatus
	PaymentStatus PaymentStatus
	PNR           string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Passenger struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	CreatedAt time.Time
}
