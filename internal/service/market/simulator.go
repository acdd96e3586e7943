package market

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/avelinag/skyfare/internal/domain"
	"github.com/avelinag/skyfare/internal/pricing"
	"github.com/avelinag/skyfare/internal/repository"
)

// DemandPublisher makes the simulator's demand signal visible to quote paths.
type DemandPublisher interface {
	SetDemand(ctx context.Context, flightID int64, demand float64) error
}

type Recorder interface {
	Record(ctx context.Context, entry *domain.FareEntry)
}

// seatDeltas is the churn distribution applied per flight per tick.
var seatDeltas = []int{-3, -2, -1, 0, 1, 2}

// Simulator perturbs seat counts and records illustrative prices on a fixed
// schedule, independent of real bookings. It never creates bookings, so the
// ledger's clamped NudgeSeats is its only seat mutation.
type Simulator struct {
	flights  repository.FlightRepository
	recorder Recorder
	calc     *pricing.Calculator
	demand   DemandPublisher
	interval time.Duration
	now      func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

type SimulatorOption func(*Simulator)

func WithRand(rng *rand.Rand) SimulatorOption {
	return func(s *Simulator) {
		s.rng = rng
	}
}

func WithClock(now func() time.Time) SimulatorOption {
	return func(s *Simulator) {
		s.now = now
	}
}

func NewSimulator(flights repository.FlightRepository, recorder Recorder, calc *pricing.Calculator, demand DemandPublisher, interval time.Duration, opts ...SimulatorOption) *Simulator {
	sim := &Simulator{
		flights:  flights,
		recorder: recorder,
		calc:     calc,
		demand:   demand,
		interval: interval,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(sim)
	}
	return sim
}

// Run ticks until the context is canceled. Tick failures are logged and the
// schedule continues.
func (s *Simulator) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				log.Printf("market tick error: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Tick runs one market pass over every flight: nudge the seat count within
// bounds, draw a fresh demand signal, quote, and append a simulation fare
// entry. One flight's failure never aborts the rest of the tick.
func (s *Simulator) Tick(ctx context.Context) error {
	flights, err := s.flights.List(ctx)
	if err != nil {
		return err
	}

	for i := range flights {
		if err := s.tickFlight(ctx, &flights[i]); err != nil {
			log.Printf("market tick: flight %d skipped: %v", flights[i].ID, err)
		}
	}
	return nil
}

func (s *Simulator) tickFlight(ctx context.Context, f *domain.Flight) error {
	delta, demand := s.draw()

	updated, err := s.flights.NudgeSeats(ctx, f.ID, delta)
	if err != nil {
		return err
	}

	if s.demand != nil {
		if err := s.demand.SetDemand(ctx, f.ID, demand); err != nil {
			log.Printf("WARNING: failed to publish demand for flight %d: %v", f.ID, err)
		}
	}

	price := s.calc.Quote(updated.BaseFare, updated.AvailableSeats, updated.TotalSeats, updated.DepartureTime, s.now(), &demand)
	if s.recorder != nil {
		s.recorder.Record(ctx, &domain.FareEntry{
			FlightID:       updated.ID,
			BaseFare:       updated.BaseFare,
			Price:          price,
			SeatsAvailable: updated.AvailableSeats,
			TotalSeats:     updated.TotalSeats,
			Reason:         domain.FareReasonSimulation,
		})
	}
	return nil
}

func (s *Simulator) draw() (delta int, demand float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delta = seatDeltas[s.rng.Intn(len(seatDeltas))]
	demand = -0.5 + s.rng.Float64()*1.5
	return delta, demand
}
