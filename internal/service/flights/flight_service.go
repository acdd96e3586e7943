package flights

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/avelinag/skyfare/internal/domain"
	"github.com/avelinag/skyfare/internal/pricing"
	"github.com/avelinag/skyfare/internal/repository"
)

// ErrBadSort rejects an unknown sort key on search.
var ErrBadSort = errors.New("sort must be 'price' or 'duration'")

const fareHistoryLimit = 50

// FlightQuote is a flight together with the price quoted for it right now.
// Quotes are display-only: the seat count backing them may move the moment
// they are read. The binding price is the one computed at hold time.
type FlightQuote struct {
	Flight       domain.Flight
	DynamicPrice float64
}

type FlightUseCase interface {
	List(ctx context.Context) ([]FlightQuote, error)
	Quote(ctx context.Context, id int64) (*FlightQuote, error)
	Search(ctx context.Context, origin, destination string, date time.Time, sortBy string) ([]FlightQuote, error)
	FareHistory(ctx context.Context, flightID int64) ([]domain.FareEntry, error)
}

// Cache caches the flight list and carries the simulator's demand signal.
type Cache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
	GetDemand(ctx context.Context, flightID int64) (*float64, error)
}

type Recorder interface {
	Record(ctx context.Context, entry *domain.FareEntry)
}

type FlightService struct {
	repo     repository.FlightRepository
	fares    repository.FareHistoryRepository
	calc     *pricing.Calculator
	recorder Recorder
	cache    Cache
	now      func() time.Time
}

type FlightServiceOption func(*FlightService)

func WithClock(now func() time.Time) FlightServiceOption {
	return func(s *FlightService) {
		s.now = now
	}
}

func NewFlightService(repo repository.FlightRepository, fares repository.FareHistoryRepository, calc *pricing.Calculator, recorder Recorder, cache Cache, opts ...FlightServiceOption) *FlightService {
	service := &FlightService{
		repo:     repo,
		fares:    fares,
		calc:     calc,
		recorder: recorder,
		cache:    cache,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *FlightService) List(ctx context.Context) ([]FlightQuote, error) {
	flights, err := s.listFlights(ctx)
	if err != nil {
		return nil, err
	}
	return s.quoteAll(ctx, flights, domain.FareReasonListing), nil
}

func (s *FlightService) Quote(ctx context.Context, id int64) (*FlightQuote, error) {
	flight, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	quote := s.quoteOne(ctx, flight, domain.FareReasonSingleQuote)
	return &quote, nil
}

func (s *FlightService) Search(ctx context.Context, origin, destination string, date time.Time, sortBy string) ([]FlightQuote, error) {
	if sortBy != "" && sortBy != "price" && sortBy != "duration" {
		return nil, ErrBadSort
	}

	flights, err := s.repo.Search(ctx, origin, destination, date)
	if err != nil {
		return nil, err
	}
	quotes := s.quoteAll(ctx, flights, domain.FareReasonSearch)

	switch sortBy {
	case "price":
		sort.Slice(quotes, func(i, j int) bool { return quotes[i].DynamicPrice < quotes[j].DynamicPrice })
	case "duration":
		sort.Slice(quotes, func(i, j int) bool {
			di := quotes[i].Flight.ArrivalTime.Sub(quotes[i].Flight.DepartureTime)
			dj := quotes[j].Flight.ArrivalTime.Sub(quotes[j].Flight.DepartureTime)
			return di < dj
		})
	}
	return quotes, nil
}

func (s *FlightService) FareHistory(ctx context.Context, flightID int64) ([]domain.FareEntry, error) {
	if _, err := s.repo.GetByID(ctx, flightID); err != nil {
		return nil, err
	}
	return s.fares.ListByFlight(ctx, flightID, fareHistoryLimit)
}

func (s *FlightService) listFlights(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetFlights(ctx, flights)
	}
	return flights, nil
}

func (s *FlightService) quoteAll(ctx context.Context, flights []domain.Flight, reason domain.FareReason) []FlightQuote {
	quotes := make([]FlightQuote, 0, len(flights))
	for i := range flights {
		quotes = append(quotes, s.quoteOne(ctx, &flights[i], reason))
	}
	return quotes
}

func (s *FlightService) quoteOne(ctx context.Context, f *domain.Flight, reason domain.FareReason) FlightQuote {
	var demand *float64
	if s.cache != nil {
		if d, err := s.cache.GetDemand(ctx, f.ID); err == nil {
			demand = d
		}
	}
	price := s.calc.Quote(f.BaseFare, f.AvailableSeats, f.TotalSeats, f.DepartureTime, s.now(), demand)

	if s.recorder != nil {
		s.recorder.Record(ctx, &domain.FareEntry{
			FlightID:       f.ID,
			BaseFare:       f.BaseFare,
			Price:          price,
			SeatsAvailable: f.AvailableSeats,
			TotalSeats:     f.TotalSeats,
			Reason:         reason,
		})
	}
	return FlightQuote{Flight: *f, DynamicPrice: price}
}

var _ FlightUseCase = (*FlightService)(nil)
