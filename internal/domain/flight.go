package domain

import "time"

type Flight struct {
	ID             int64
	FlightNumber   string
	Origin         string
	Destination    string
	DepartureTime  time.Time
	ArrivalTime    time.Time
	TotalSeats     int
	AvailableSeats int
	BaseFare       float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Occupancy is the number of seats currently held or sold.
func (f *Flight) Occupancy() int {
	return f.TotalSeats - f.AvailableSeats
}

// SeatRatio is the fraction of seats still available, in [0, 1].
func (f *Flight) SeatRatio() float64 {
	if f.TotalSeats < 1 {
		return 0
	}
	return float64(f.AvailableSeats) / float64(f.TotalSeats)
}
