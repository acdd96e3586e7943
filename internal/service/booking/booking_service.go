package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avelinag/skyfare/internal/domain"
	"github.com/avelinag/skyfare/internal/kafka"
	"github.com/avelinag/skyfare/internal/pricing"
	"github.com/avelinag/skyfare/internal/repository"
	"github.com/google/uuid"
)

type BookingUseCase interface {
	StartHold(ctx context.Context, input StartHoldInput) (*domain.Booking, error)
	Pay(ctx context.Context, bookingID int64, forced *bool) (*domain.Booking, error)
	Cancel(ctx context.Context, code string) (*domain.Booking, error)
	GetByCode(ctx context.Context, code string) (*domain.Booking, error)
	HistoryByEmail(ctx context.Context, email string) ([]domain.Booking, error)
}

// Cache exposes the market demand signal published by the simulator.
type Cache interface {
	GetDemand(ctx context.Context, flightID int64) (*float64, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Recorder is the best-effort fare-history sink.
type Recorder interface {
	Record(ctx context.Context, entry *domain.FareEntry)
}

const (
	pnrAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	pnrLength   = 6

	seatRowLetters = 6
)

type StartHoldInput struct {
	FlightID  int64  `json:"flight_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// BookingService drives the hold -> pay -> confirm/release -> cancel state
// machine. Every transition pairs its booking mutation with its seat-count
// mutation inside the repository's flight-scoped lock.
type BookingService struct {
	bookings           repository.BookingRepository
	calc               *pricing.Calculator
	recorder           Recorder
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string

	now func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

// WithRand injects the random source behind payment outcomes and PNRs.
func WithRand(rng *rand.Rand) BookingServiceOption {
	return func(s *BookingService) {
		s.rng = rng
	}
}

// WithClock injects the time source used for pricing at hold time.
func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	calc *pricing.Calculator,
	recorder Recorder,
	cache Cache,
	producer Producer,
	bookingTopic string,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		calc:         calc,
		recorder:     recorder,
		cache:        cache,
		producer:     producer,
		bookingTopic: bookingTopic,
		now:          time.Now,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// StartHold reserves one seat as a PENDING booking. The seat label and the
// quoted price are computed from the flight row as seen under the flight
// lock, and the booking insert plus seat decrement commit as one unit.
func (s *BookingService) StartHold(ctx context.Context, input StartHoldInput) (*domain.Booking, error) {
	if input.FlightID <= 0 {
		return nil, domain.ErrFlightNotFound
	}
	if input.Email == "" {
		return nil, errors.New("email is required")
	}

	var demand *float64
	if s.cache != nil {
		if d, err := s.cache.GetDemand(ctx, input.FlightID); err == nil {
			demand = d
		}
	}

	passenger := &domain.Passenger{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     strings.ToLower(input.Email),
	}

	var quoted domain.FareEntry
	booking, err := s.bookings.CreateHold(ctx, input.FlightID, passenger, func(f *domain.Flight) repository.SeatQuote {
		price := s.calc.Quote(f.BaseFare, f.AvailableSeats, f.TotalSeats, f.DepartureTime, s.now(), demand)
		quoted = domain.FareEntry{
			FlightID:       f.ID,
			BaseFare:       f.BaseFare,
			Price:          price,
			SeatsAvailable: f.AvailableSeats,
			TotalSeats:     f.TotalSeats,
			Reason:         domain.FareReasonHold,
		}
		return repository.SeatQuote{SeatLabel: seatLabel(f.Occupancy()), Price: price}
	})
	if err != nil {
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.Record(ctx, &quoted)
	}
	s.publish(ctx, "booking_created", booking, passenger.Email, "")
	return booking, nil
}

// Pay settles a PENDING booking. A nil forced outcome draws from a
// success-biased distribution (two in three succeed). Success issues a PNR
// and confirms; failure cancels the booking and releases its seat.
func (s *BookingService) Pay(ctx context.Context, bookingID int64, forced *bool) (*domain.Booking, error) {
	current, err := s.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.BookingStatusPending {
		return nil, fmt.Errorf("%w (current: %s)", domain.ErrBookingNotPending, current.Status)
	}

	success := s.drawOutcome(forced)
	if success {
		updated, err := s.bookings.Confirm(ctx, bookingID, s.generatePNR())
		if err != nil {
			return nil, err
		}
		s.publish(ctx, "booking_confirmed", updated, "", uuid.NewString())
		return updated, nil
	}

	updated, err := s.bookings.FailPayment(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "payment_failed", updated, "", uuid.NewString())
	return updated, nil
}

// Cancel cancels a booking by PNR, falling back to a raw numeric booking id.
// Payment status is left as it was; the held seat goes back to the pool.
func (s *BookingService) Cancel(ctx context.Context, code string) (*domain.Booking, error) {
	current, err := s.bookings.GetByPNR(ctx, code)
	if errors.Is(err, domain.ErrBookingNotFound) {
		if id, perr := strconv.ParseInt(code, 10, 64); perr == nil {
			current, err = s.bookings.GetBookingByID(ctx, id)
		}
	}
	if err != nil {
		return nil, err
	}
	if current.Status == domain.BookingStatusCancelled {
		return nil, domain.ErrAlreadyCancelled
	}

	updated, err := s.bookings.Cancel(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "booking_cancelled", updated, "", "")
	return updated, nil
}

func (s *BookingService) GetByCode(ctx context.Context, code string) (*domain.Booking, error) {
	return s.bookings.GetByPNR(ctx, code)
}

func (s *BookingService) HistoryByEmail(ctx context.Context, email string) ([]domain.Booking, error) {
	return s.bookings.HistoryByEmail(ctx, strings.ToLower(email))
}

func (s *BookingService) drawOutcome(forced *bool) bool {
	if forced != nil {
		return *forced
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(3) > 0
}

func (s *BookingService) generatePNR() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for i := 0; i < pnrLength; i++ {
		b.WriteByte(pnrAlphabet[s.rng.Intn(len(pnrAlphabet))])
	}
	return b.String()
}

// seatLabel derives the label from the occupancy count at hold time: the
// occupancy-th seat, cycling row letters A-F. Labels are not tracked
// individually, so after a release the same label can be issued again.
func seatLabel(occupancy int) string {
	row := occupancy + 1
	letter := rune('A' + (row-1)%seatRowLetters)
	return fmt.Sprintf("%d%c", row, letter)
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking, email, paymentRef string) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:          eventType,
		BookingID:     booking.ID,
		FlightID:      booking.FlightID,
		SeatLabel:     booking.SeatLabel,
		PNR:           booking.PNR,
		Email:         email,
		Status:        string(booking.Status),
		PaymentStatus: string(booking.PaymentStatus),
		Price:         booking.Price,
		PaymentRef:    paymentRef,
	}
	key := strconv.FormatInt(booking.ID, 10)
	if err := s.producer.Publish(ctx, s.bookingTopic, key, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for booking %d: %v", eventType, booking.ID, err)
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, key, event); err != nil {
			log.Printf("WARNING: failed to publish %s notification for booking %d: %v", eventType, booking.ID, err)
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
