package repository

import (
	"context"
	"errors"

	"github.com/avelinag/skyfare/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SeatQuote is what the caller computes under the flight lock at hold time.
type SeatQuote struct {
	SeatLabel string
	Price     float64
}

// QuoteFunc is invoked with the flight row as seen under the exclusive
// per-flight lock, so the seat label and price derive from the exact seat
// count the decrement will act on.
type QuoteFunc func(f *domain.Flight) SeatQuote

type BookingRepository interface {
	// CreateHold atomically resolves the passenger, quotes the seat, inserts
	// a PENDING booking and decrements the flight's seat count. Either all of
	// it happens or none of it does.
	CreateHold(ctx context.Context, flightID int64, p *domain.Passenger, quote QuoteFunc) (*domain.Booking, error)
	GetBookingByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error)
	// Confirm moves a PENDING booking to CONFIRMED/PAID with the given PNR.
	Confirm(ctx context.Context, bookingID int64, pnr string) (*domain.Booking, error)
	// FailPayment moves a PENDING booking to CANCELLED/FAILED and releases
	// its seat.
	FailPayment(ctx context.Context, bookingID int64) (*domain.Booking, error)
	// Cancel moves a not-yet-cancelled booking to CANCELLED (payment status
	// untouched) and releases its seat.
	Cancel(ctx context.Context, bookingID int64) (*domain.Booking, error)
	HistoryByEmail(ctx context.Context, email string) ([]domain.Booking, error)
}

const bookingColumns = `id, flight_id, passenger_id, seat_label, price, status, payment_status, COALESCE(pnr, ''), created_at, updated_at`

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) CreateHold(ctx context.Context, flightID int64, p *domain.Passenger, quote QuoteFunc) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1 FOR UPDATE`, flightID)
	flight, err := scanFlight(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFlightNotFound
		}
		return nil, err
	}
	if flight.AvailableSeats <= 0 {
		return nil, domain.ErrNoSeatsAvailable
	}

	if err := tx.QueryRow(ctx, `INSERT INTO passengers (first_name, last_name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id`, p.FirstName, p.LastName, p.Email).Scan(&p.ID); err != nil {
		return nil, err
	}

	q := quote(flight)
	booking := &domain.Booking{
		FlightID:      flightID,
		PassengerID:   p.ID,
		SeatLabel:     q.SeatLabel,
		Price:         q.Price,
		Status:        domain.BookingStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
	}
	if err := tx.QueryRow(ctx, `INSERT INTO bookings (flight_id, passenger_id, seat_label, price, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		booking.FlightID, booking.PassengerID, booking.SeatLabel, booking.Price, booking.Status, booking.PaymentStatus).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `UPDATE flights SET available_seats = available_seats - 1, updated_at = now() WHERE id=$1 AND available_seats > 0`, flightID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrNoSeatsAvailable
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return booking, nil
}

func (r *PGBookingRepository) GetBookingByID(ctx context.Context, id int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
	return scanBookingOr(row, domain.ErrBookingNotFound)
}

func (r *PGBookingRepository) GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE pnr=$1`, pnr)
	return scanBookingOr(row, domain.ErrBookingNotFound)
}

func (r *PGBookingRepository) Confirm(ctx context.Context, bookingID int64, pnr string) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := lockBookingFlight(ctx, tx, bookingID); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `UPDATE bookings
		SET status=$2, payment_status=$3, pnr=$4, updated_at=now()
		WHERE id=$1 AND status=$5
		RETURNING `+bookingColumns,
		bookingID, domain.BookingStatusConfirmed, domain.PaymentStatusPaid, pnr, domain.BookingStatusPending)
	booking, err := scanBookingOr(row, domain.ErrBookingNotPending)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return booking, nil
}

func (r *PGBookingRepository) FailPayment(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := lockBookingFlight(ctx, tx, bookingID); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `UPDATE bookings
		SET status=$2, payment_status=$3, updated_at=now()
		WHERE id=$1 AND status=$4
		RETURNING `+bookingColumns,
		bookingID, domain.BookingStatusCancelled, domain.PaymentStatusFailed, domain.BookingStatusPending)
	booking, err := scanBookingOr(row, domain.ErrBookingNotPending)
	if err != nil {
		return nil, err
	}

	if err := releaseSeat(ctx, tx, booking.FlightID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return booking, nil
}

func (r *PGBookingRepository) Cancel(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := lockBookingFlight(ctx, tx, bookingID); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `UPDATE bookings
		SET status=$2, updated_at=now()
		WHERE id=$1 AND status <> $2
		RETURNING `+bookingColumns,
		bookingID, domain.BookingStatusCancelled)
	booking, err := scanBookingOr(row, domain.ErrAlreadyCancelled)
	if err != nil {
		return nil, err
	}

	if err := releaseSeat(ctx, tx, booking.FlightID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return booking, nil
}

func (r *PGBookingRepository) HistoryByEmail(ctx context.Context, email string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT b.id, b.flight_id, b.passenger_id, b.seat_label, b.price, b.status, b.payment_status, COALESCE(b.pnr, ''), b.created_at, b.updated_at
		FROM bookings b
		JOIN passengers p ON b.passenger_id = p.id
		WHERE p.email=$1
		ORDER BY b.created_at DESC`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.FlightID, &b.PassengerID, &b.SeatLabel, &b.Price, &b.Status, &b.PaymentStatus, &b.PNR, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// lockBookingFlight takes the exclusive lock on the booking's flight row so a
// settlement cannot interleave with a concurrent hold or cancel on the same
// flight.
func lockBookingFlight(ctx context.Context, tx pgx.Tx, bookingID int64) error {
	var flightID int64
	if err := tx.QueryRow(ctx, `SELECT flight_id FROM bookings WHERE id=$1`, bookingID).Scan(&flightID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrBookingNotFound
		}
		return err
	}
	_, err := tx.Exec(ctx, `SELECT id FROM flights WHERE id=$1 FOR UPDATE`, flightID)
	return err
}

// releaseSeat returns one seat to the pool. The guard against exceeding
// total_seats can only trip if the ledger invariant was already lost, so it
// surfaces as a defect rather than a user error.
func releaseSeat(ctx context.Context, tx pgx.Tx, flightID int64) error {
	tag, err := tx.Exec(ctx, `UPDATE flights SET available_seats = available_seats + 1, updated_at = now() WHERE id=$1 AND available_seats < total_seats`, flightID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSeatInvariant
	}
	return nil
}

func scanBookingOr(row pgx.Row, notFound error) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.FlightID, &b.PassengerID, &b.SeatLabel, &b.Price, &b.Status, &b.PaymentStatus, &b.PNR, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, err
	}
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
