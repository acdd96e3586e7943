package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/avelinag/skyfare/internal/domain"
	"github.com/stretchr/testify/assert"
)

func seededStore(totalSeats, availableSeats int) *MemoryStore {
	store := NewMemoryStore()
	store.SeedFlights([]domain.Flight{{
		ID:             1,
		FlightNumber:   "SF101",
		Origin:         "SFO",
		Destination:    "JFK",
		DepartureTime:  time.Now().Add(72 * time.Hour),
		ArrivalTime:    time.Now().Add(78 * time.Hour),
		TotalSeats:     totalSeats,
		AvailableSeats: availableSeats,
		BaseFare:       1000,
	}})
	return store
}

func fixedQuote(label string, price float64) QuoteFunc {
	return func(f *domain.Flight) SeatQuote {
		return SeatQuote{SeatLabel: label, Price: price}
	}
}

func TestMemoryStore_CreateHold_DecrementsSeat(t *testing.T) {
	store := seededStore(100, 40)
	ctx := context.Background()

	var seen int
	booking, err := store.CreateHold(ctx, 1, &domain.Passenger{Email: "a@b.c"}, func(f *domain.Flight) SeatQuote {
		seen = f.AvailableSeats
		return SeatQuote{SeatLabel: "61A", Price: 1150}
	})

	assert.NoError(t, err)
	assert.Equal(t, 40, seen, "quote sees the pre-decrement seat count")
	assert.Equal(t, domain.BookingStatusPending, booking.Status)
	assert.Equal(t, domain.PaymentStatusPending, booking.PaymentStatus)
	assert.Equal(t, "61A", booking.SeatLabel)

	flight, err := store.GetByID(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, 39, flight.AvailableSeats)
}

func TestMemoryStore_CreateHold_ReusesPassengerByEmail(t *testing.T) {
	store := seededStore(100, 40)
	ctx := context.Background()

	first, err := store.CreateHold(ctx, 1, &domain.Passenger{Email: "a@b.c"}, fixedQuote("61A", 1150))
	assert.NoError(t, err)
	second, err := store.CreateHold(ctx, 1, &domain.Passenger{Email: "a@b.c"}, fixedQuote("62B", 1150))
	assert.NoError(t, err)

	assert.Equal(t, first.PassengerID, second.PassengerID)

	history, err := store.HistoryByEmail(ctx, "a@b.c")
	assert.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestMemoryStore_CreateHold_UnknownFlight(t *testing.T) {
	store := seededStore(100, 40)

	_, err := store.CreateHold(context.Background(), 99, &domain.Passenger{Email: "a@b.c"}, fixedQuote("1A", 1000))
	assert.ErrorIs(t, err, domain.ErrFlightNotFound)
}

func TestMemoryStore_CreateHold_NoDoubleSell(t *testing.T) {
	const seats = 5
	const contenders = 20

	store := seededStore(seats, seats)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			passenger := &domain.Passenger{Email: fmt.Sprintf("p%d@example.com", i)}
			_, errs[i] = store.CreateHold(ctx, 1, passenger, fixedQuote("1A", 1000))
		}(i)
	}
	wg.Wait()

	var sold, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			sold++
		case assert.ErrorIs(t, err, domain.ErrNoSeatsAvailable):
			rejected++
		}
	}

	assert.Equal(t, seats, sold)
	assert.Equal(t, contenders-seats, rejected)

	flight, err := store.GetByID(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, 0, flight.AvailableSeats)
}

func TestMemoryStore_LedgerReconciles(t *testing.T) {
	const total = 30
	const contenders = 40

	store := seededStore(total, total)
	ctx := context.Background()

	// Concurrent holds, then a mix of confirms, failed payments and cancels.
	var wg sync.WaitGroup
	ids := make([]int64, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			passenger := &domain.Passenger{Email: fmt.Sprintf("p%d@example.com", i)}
			b, err := store.CreateHold(ctx, 1, passenger, fixedQuote("1A", 1000))
			if err == nil {
				ids[i] = b.ID
			}
		}(i)
	}
	wg.Wait()

	for i, id := range ids {
		if id == 0 {
			continue
		}
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			switch i % 3 {
			case 0:
				store.Confirm(ctx, id, fmt.Sprintf("PNR%03d", i))
			case 1:
				store.FailPayment(ctx, id)
			case 2:
				store.Cancel(ctx, id)
			}
		}(i, id)
	}
	wg.Wait()

	flight, err := store.GetByID(ctx, 1)
	assert.NoError(t, err)

	var held int
	for _, id := range ids {
		if id == 0 {
			continue
		}
		b, err := store.GetBookingByID(ctx, id)
		assert.NoError(t, err)
		if b.Status == domain.BookingStatusPending || b.Status == domain.BookingStatusConfirmed {
			held++
		}
	}

	assert.Equal(t, total-held, flight.AvailableSeats, "available seats must equal total minus live bookings")
}

func TestMemoryStore_Confirm_OnlyFromPending(t *testing.T) {
	store := seededStore(10, 10)
	ctx := context.Background()

	b, err := store.CreateHold(ctx, 1, &domain.Passenger{Email: "a@b.c"}, fixedQuote("1A", 1000))
	assert.NoError(t, err)

	confirmed, err := store.Confirm(ctx, b.ID, "A7B9C2")
	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, confirmed.Status)
	assert.Equal(t, domain.PaymentStatusPaid, confirmed.PaymentStatus)
	assert.Equal(t, "A7B9C2", confirmed.PNR)

	// a second settle attempt is a conflict
	_, err = store.Confirm(ctx, b.ID, "ZZZZZZ")
	assert.ErrorIs(t, err, domain.ErrBookingNotPending)
	_, err = store.FailPayment(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrBookingNotPending)

	// confirming keeps the seat out of the pool
	flight, _ := store.GetByID(ctx, 1)
	assert.Equal(t, 9, flight.AvailableSeats)
}

func TestMemoryStore_FailPayment_ReleasesSeat(t *testing.T) {
	store := seededStore(10, 10)
	ctx := context.Background()

	b, err := store.CreateHold(ctx, 1, &domain.Passenger{Email: "a@b.c"}, fixedQuote("1A", 1000))
	assert.NoError(t, err)

	failed, err := store.FailPayment(ctx, b.ID)
	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, failed.Status)
	assert.Equal(t, domain.PaymentStatusFailed, failed.PaymentStatus)

	flight, _ := store.GetByID(ctx, 1)
	assert.Equal(t, 10, flight.AvailableSeats)
}

func TestMemoryStore_Cancel_GuardsSeatInvariant(t *testing.T) {
	store := seededStore(10, 10)
	ctx := context.Background()

	b, err := store.CreateHold(ctx, 1, &domain.Passenger{Email: "a@b.c"}, fixedQuote("1A", 1000))
	assert.NoError(t, err)

	// simulator nudges the seat back while the hold is still live
	_, err = store.NudgeSeats(ctx, 1, +1)
	assert.NoError(t, err)

	// releasing now would push available past total
	_, err = store.Cancel(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrSeatInvariant)
}

func TestMemoryStore_Cancel_Twice(t *testing.T) {
	store := seededStore(10, 10)
	ctx := context.Background()

	b, err := store.CreateHold(ctx, 1, &domain.Passenger{Email: "a@b.c"}, fixedQuote("1A", 1000))
	assert.NoError(t, err)

	_, err = store.Cancel(ctx, b.ID)
	assert.NoError(t, err)
	_, err = store.Cancel(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
}

func TestMemoryStore_NudgeSeats_Clamps(t *testing.T) {
	store := seededStore(10, 2)
	ctx := context.Background()

	flight, err := store.NudgeSeats(ctx, 1, -5)
	assert.NoError(t, err)
	assert.Equal(t, 0, flight.AvailableSeats)

	flight, err = store.NudgeSeats(ctx, 1, 100)
	assert.NoError(t, err)
	assert.Equal(t, 10, flight.AvailableSeats)

	_, err = store.NudgeSeats(ctx, 42, 1)
	assert.ErrorIs(t, err, domain.ErrFlightNotFound)
}

func TestMemoryStore_GetByPNR(t *testing.T) {
	store := seededStore(10, 10)
	ctx := context.Background()

	b, _ := store.CreateHold(ctx, 1, &domain.Passenger{Email: "a@b.c"}, fixedQuote("1A", 1000))
	_, err := store.Confirm(ctx, b.ID, "A7B9C2")
	assert.NoError(t, err)

	found, err := store.GetByPNR(ctx, "A7B9C2")
	assert.NoError(t, err)
	assert.Equal(t, b.ID, found.ID)

	_, err = store.GetByPNR(ctx, "NOPE99")
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)

	// pending bookings have no PNR and must not match the empty string
	store.CreateHold(ctx, 1, &domain.Passenger{Email: "b@b.c"}, fixedQuote("2A", 1000))
	_, err = store.GetByPNR(ctx, "")
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestMemoryStore_Search(t *testing.T) {
	store := NewMemoryStore()
	day := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	store.SeedFlights([]domain.Flight{
		{ID: 1, FlightNumber: "SF101", Origin: "SFO", Destination: "JFK", DepartureTime: day, TotalSeats: 10, AvailableSeats: 10},
		{ID: 2, FlightNumber: "SF102", Origin: "SFO", Destination: "JFK", DepartureTime: day.Add(26 * time.Hour), TotalSeats: 10, AvailableSeats: 10},
		{ID: 3, FlightNumber: "SF103", Origin: "SFO", Destination: "LAX", DepartureTime: day, TotalSeats: 10, AvailableSeats: 10},
	})

	matched, err := store.Search(context.Background(), "SFO", "JFK", day)
	assert.NoError(t, err)
	assert.Len(t, matched, 1)
	assert.Equal(t, "SF101", matched[0].FlightNumber)
}

func TestMemoryStore_FareHistory(t *testing.T) {
	store := seededStore(10, 10)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := store.Append(ctx, &domain.FareEntry{
			FlightID: 1,
			BaseFare: 1000,
			Price:    1000 + float64(i),
			Reason:   domain.FareReasonSimulation,
		})
		assert.NoError(t, err)
	}

	entries, err := store.ListByFlight(ctx, 1, 3)
	assert.NoError(t, err)
	assert.Len(t, entries, 3)
	// newest first
	assert.Equal(t, 1004.0, entries[0].Price)
	assert.Equal(t, 1002.0, entries[2].Price)
}
