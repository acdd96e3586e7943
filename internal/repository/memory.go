package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avelinag/skyfare/internal/domain"
)

// MemoryStore implements FlightRepository, BookingRepository and
// FareHistoryRepository without external services. Seat mutations are
// serialized by a per-flight mutex table, so it honors the same ledger
// contract as the Postgres row lock. Used by the concurrency tests and by
// the "memory" storage backend.
type MemoryStore struct {
	mu         sync.RWMutex
	flights    map[int64]*domain.Flight
	bookings   map[int64]*domain.Booking
	passengers map[string]*domain.Passenger
	fares      map[int64][]domain.FareEntry

	nextBookingID   int64
	nextPassengerID int64
	nextFareID      int64

	lockMu      sync.Mutex
	flightLocks map[int64]*sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		flights:     make(map[int64]*domain.Flight),
		bookings:    make(map[int64]*domain.Booking),
		passengers:  make(map[string]*domain.Passenger),
		fares:       make(map[int64][]domain.FareEntry),
		flightLocks: make(map[int64]*sync.Mutex),
	}
}

// SeedFlights loads the given flights, keeping their IDs.
func (s *MemoryStore) SeedFlights(flights []domain.Flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range flights {
		f := flights[i]
		if f.CreatedAt.IsZero() {
			f.CreatedAt = time.Now()
		}
		f.UpdatedAt = f.CreatedAt
		s.flights[f.ID] = &f
	}
}

// flightLock returns the mutex serializing seat mutations for one flight.
// Locks for different flights are independent.
func (s *MemoryStore) flightLock(flightID int64) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.flightLocks[flightID]
	if !ok {
		l = &sync.Mutex{}
		s.flightLocks[flightID] = l
	}
	return l
}

func (s *MemoryStore) List(ctx context.Context) ([]domain.Flight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	flights := make([]domain.Flight, 0, len(s.flights))
	for _, f := range s.flights {
		flights = append(flights, *f)
	}
	sort.Slice(flights, func(i, j int) bool { return flights[i].DepartureTime.Before(flights[j].DepartureTime) })
	return flights, nil
}

func (s *MemoryStore) Search(ctx context.Context, origin, destination string, date time.Time) ([]domain.Flight, error) {
	all, _ := s.List(ctx)
	matched := make([]domain.Flight, 0)
	y, m, d := date.Date()
	for _, f := range all {
		fy, fm, fd := f.DepartureTime.Date()
		if f.Origin == origin && f.Destination == destination && fy == y && fm == m && fd == d {
			matched = append(matched, f)
		}
	}
	return matched, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flights[id]
	if !ok {
		return nil, domain.ErrFlightNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *MemoryStore) NudgeSeats(ctx context.Context, flightID int64, delta int) (*domain.Flight, error) {
	lock := s.flightLock(flightID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flights[flightID]
	if !ok {
		return nil, domain.ErrFlightNotFound
	}
	seats := f.AvailableSeats + delta
	if seats < 0 {
		seats = 0
	}
	if seats > f.TotalSeats {
		seats = f.TotalSeats
	}
	f.AvailableSeats = seats
	f.UpdatedAt = time.Now()
	cp := *f
	return &cp, nil
}

func (s *MemoryStore) CreateHold(ctx context.Context, flightID int64, p *domain.Passenger, quote QuoteFunc) (*domain.Booking, error) {
	lock := s.flightLock(flightID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flights[flightID]
	if !ok {
		return nil, domain.ErrFlightNotFound
	}
	if f.AvailableSeats <= 0 {
		return nil, domain.ErrNoSeatsAvailable
	}

	existing, ok := s.passengers[p.Email]
	if ok {
		p.ID = existing.ID
	} else {
		s.nextPassengerID++
		p.ID = s.nextPassengerID
		cp := *p
		cp.CreatedAt = time.Now()
		s.passengers[p.Email] = &cp
	}

	snapshot := *f
	q := quote(&snapshot)

	s.nextBookingID++
	now := time.Now()
	booking := &domain.Booking{
		ID:            s.nextBookingID,
		FlightID:      flightID,
		PassengerID:   p.ID,
		SeatLabel:     q.SeatLabel,
		Price:         q.Price,
		Status:        domain.BookingStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.bookings[booking.ID] = booking
	f.AvailableSeats--
	f.UpdatedAt = now

	cp := *booking
	return &cp, nil
}

func (s *MemoryStore) GetBookingByID(ctx context.Context, id int64) (*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bookings {
		if b.PNR != "" && b.PNR == pnr {
			cp := *b
			return &cp, nil
		}
	}
	return nil, domain.ErrBookingNotFound
}

func (s *MemoryStore) Confirm(ctx context.Context, bookingID int64, pnr string) (*domain.Booking, error) {
	return s.settle(bookingID, func(b *domain.Booking, f *domain.Flight) error {
		if b.Status != domain.BookingStatusPending {
			return domain.ErrBookingNotPending
		}
		b.Status = domain.BookingStatusConfirmed
		b.PaymentStatus = domain.PaymentStatusPaid
		b.PNR = pnr
		return nil
	})
}

func (s *MemoryStore) FailPayment(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	return s.settle(bookingID, func(b *domain.Booking, f *domain.Flight) error {
		if b.Status != domain.BookingStatusPending {
			return domain.ErrBookingNotPending
		}
		if f.AvailableSeats >= f.TotalSeats {
			return domain.ErrSeatInvariant
		}
		b.Status = domain.BookingStatusCancelled
		b.PaymentStatus = domain.PaymentStatusFailed
		f.AvailableSeats++
		return nil
	})
}

func (s *MemoryStore) Cancel(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	return s.settle(bookingID, func(b *domain.Booking, f *domain.Flight) error {
		if b.Status == domain.BookingStatusCancelled {
			return domain.ErrAlreadyCancelled
		}
		if f.AvailableSeats >= f.TotalSeats {
			return domain.ErrSeatInvariant
		}
		b.Status = domain.BookingStatusCancelled
		f.AvailableSeats++
		return nil
	})
}

// settle applies a status transition and its paired seat mutation under the
// booking's flight lock.
func (s *MemoryStore) settle(bookingID int64, apply func(b *domain.Booking, f *domain.Flight) error) (*domain.Booking, error) {
	s.mu.RLock()
	b, ok := s.bookings[bookingID]
	if !ok {
		s.mu.RUnlock()
		return nil, domain.ErrBookingNotFound
	}
	flightID := b.FlightID
	s.mu.RUnlock()

	lock := s.flightLock(flightID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	b = s.bookings[bookingID]
	f, ok := s.flights[flightID]
	if !ok {
		return nil, domain.ErrFlightNotFound
	}
	if err := apply(b, f); err != nil {
		return nil, err
	}
	now := time.Now()
	b.UpdatedAt = now
	f.UpdatedAt = now
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) HistoryByEmail(ctx context.Context, email string) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.passengers[email]
	if !ok {
		return []domain.Booking{}, nil
	}
	history := make([]domain.Booking, 0)
	for _, b := range s.bookings {
		if b.PassengerID == p.ID {
			history = append(history, *b)
		}
	}
	sort.Slice(history, func(i, j int) bool { return history[i].CreatedAt.After(history[j].CreatedAt) })
	return history, nil
}

func (s *MemoryStore) Append(ctx context.Context, entry *domain.FareEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextFareID++
	entry.ID = s.nextFareID
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}
	s.fares[entry.FlightID] = append(s.fares[entry.FlightID], *entry)
	return nil
}

func (s *MemoryStore) ListByFlight(ctx context.Context, flightID int64, limit int) ([]domain.FareEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.fares[flightID]
	entries := make([]domain.FareEntry, 0, limit)
	for i := len(all) - 1; i >= 0 && len(entries) < limit; i-- {
		entries = append(entries, all[i])
	}
	return entries, nil
}

var (
	_ FlightRepository      = (*MemoryStore)(nil)
	_ BookingRepository     = (*MemoryStore)(nil)
	_ FareHistoryRepository = (*MemoryStore)(nil)
)
