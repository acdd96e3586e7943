package booking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/avelinag/skyfare/internal/domain"
	"github.com/avelinag/skyfare/internal/farelog"
	"github.com/avelinag/skyfare/internal/pricing"
	"github.com/avelinag/skyfare/internal/repository"
	"github.com/stretchr/testify/assert"
)

// newLifecycleService wires a BookingService over the in-memory store, the
// way the "memory" backend runs, with kafka and redis left out.
func newLifecycleService(t *testing.T, totalSeats, availableSeats int, baseFare float64) (*BookingService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	store.SeedFlights([]domain.Flight{{
		ID:             1,
		FlightNumber:   "SF101",
		Origin:         "SFO",
		Destination:    "JFK",
		DepartureTime:  time.Now().Add(72 * time.Hour),
		ArrivalTime:    time.Now().Add(78 * time.Hour),
		TotalSeats:     totalSeats,
		AvailableSeats: availableSeats,
		BaseFare:       baseFare,
	}})
	calc := pricing.NewCalculator(nil)
	service := NewBookingService(store, calc, farelog.NewRecorder(store), nil, nil, "")
	return service, store
}

func availableSeats(t *testing.T, store *repository.MemoryStore) int {
	t.Helper()
	flight, err := store.GetByID(context.Background(), 1)
	assert.NoError(t, err)
	return flight.AvailableSeats
}

func TestLifecycle_HoldPayCancel(t *testing.T) {
	service, store := newLifecycleService(t, 2, 2, 3000)
	ctx := context.Background()

	// two holds drain the flight
	first, err := service.StartHold(ctx, StartHoldInput{FlightID: 1, FirstName: "Ada", LastName: "L", Email: "ada@example.com"})
	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, first.Status)
	assert.Equal(t, 1, availableSeats(t, store))

	second, err := service.StartHold(ctx, StartHoldInput{FlightID: 1, FirstName: "Bob", LastName: "M", Email: "bob@example.com"})
	assert.NoError(t, err)
	assert.Equal(t, 0, availableSeats(t, store))

	// a third hold is rejected
	_, err = service.StartHold(ctx, StartHoldInput{FlightID: 1, Email: "carol@example.com"})
	assert.ErrorIs(t, err, domain.ErrNoSeatsAvailable)

	// first payment fails: booking cancelled, seat released
	fail := false
	failed, err := service.Pay(ctx, first.ID, &fail)
	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, failed.Status)
	assert.Equal(t, domain.PaymentStatusFailed, failed.PaymentStatus)
	assert.Equal(t, 1, availableSeats(t, store))

	// second payment succeeds: confirmed with a 6-char PNR, seat stays sold
	succeed := true
	confirmed, err := service.Pay(ctx, second.ID, &succeed)
	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, confirmed.Status)
	assert.Equal(t, domain.PaymentStatusPaid, confirmed.PaymentStatus)
	assert.Len(t, confirmed.PNR, 6)
	assert.Equal(t, 1, availableSeats(t, store))

	// paying again is a conflict
	_, err = service.Pay(ctx, second.ID, &succeed)
	assert.ErrorIs(t, err, domain.ErrBookingNotPending)
	assert.True(t, domain.Conflict(err))

	// cancel by PNR released the seat
	cancelled, err := service.Cancel(ctx, confirmed.PNR)
	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, 2, availableSeats(t, store))

	// cancelling again is a conflict too
	_, err = service.Cancel(ctx, confirmed.PNR)
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
}

func TestLifecycle_RandomPaymentOutcome(t *testing.T) {
	service, store := newLifecycleService(t, 10, 10, 1000)
	ctx := context.Background()

	held, err := service.StartHold(ctx, StartHoldInput{FlightID: 1, Email: "ada@example.com"})
	assert.NoError(t, err)

	settled, err := service.Pay(ctx, held.ID, nil)
	assert.NoError(t, err)

	switch settled.Status {
	case domain.BookingStatusConfirmed:
		assert.Equal(t, domain.PaymentStatusPaid, settled.PaymentStatus)
		assert.Len(t, settled.PNR, 6)
		assert.Equal(t, 9, availableSeats(t, store))
	case domain.BookingStatusCancelled:
		assert.Equal(t, domain.PaymentStatusFailed, settled.PaymentStatus)
		assert.Empty(t, settled.PNR)
		assert.Equal(t, 10, availableSeats(t, store))
	default:
		t.Fatalf("unexpected status after payment: %s", settled.Status)
	}
}

func TestLifecycle_ConcurrentHoldsNeverOversell(t *testing.T) {
	const seats = 5
	const contenders = 20

	service, store := newLifecycleService(t, seats, seats, 1000)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.StartHold(ctx, StartHoldInput{
				FlightID: 1,
				Email:    fmt.Sprintf("p%d@example.com", i),
			})
		}(i)
	}
	wg.Wait()

	var sold int
	for _, err := range errs {
		if err == nil {
			sold++
		} else {
			assert.ErrorIs(t, err, domain.ErrNoSeatsAvailable)
		}
	}
	assert.Equal(t, seats, sold)
	assert.Equal(t, 0, availableSeats(t, store))
}

func TestLifecycle_SeatLabelsFollowOccupancy(t *testing.T) {
	service, _ := newLifecycleService(t, 100, 100, 1000)
	ctx := context.Background()

	first, err := service.StartHold(ctx, StartHoldInput{FlightID: 1, Email: "a@example.com"})
	assert.NoError(t, err)
	assert.Equal(t, "1A", first.SeatLabel)

	second, err := service.StartHold(ctx, StartHoldInput{FlightID: 1, Email: "b@example.com"})
	assert.NoError(t, err)
	assert.Equal(t, "2B", second.SeatLabel)
}

func TestLifecycle_HoldRecordsFareEntry(t *testing.T) {
	service, store := newLifecycleService(t, 100, 100, 1000)
	ctx := context.Background()

	held, err := service.StartHold(ctx, StartHoldInput{FlightID: 1, Email: "a@example.com"})
	assert.NoError(t, err)

	entries, err := store.ListByFlight(ctx, 1, 10)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, domain.FareReasonHold, entries[0].Reason)
	assert.Equal(t, held.Price, entries[0].Price)
	assert.Equal(t, 100, entries[0].SeatsAvailable)
}
