package repository

import (
	"context"
	"errors"
	"time"

	"github.com/avelinag/skyfare/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightRepository interface {
	List(ctx context.Context) ([]domain.Flight, error)
	Search(ctx context.Context, origin, destination string, date time.Time) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	// NudgeSeats shifts available_seats by delta, clamped to [0, total_seats],
	// and returns the flight as it stands after the shift. Used only by the
	// market simulator; bookings go through BookingRepository.
	NudgeSeats(ctx context.Context, flightID int64, delta int) (*domain.Flight, error)
}

const flightColumns = `id, flight_number, origin, destination, departure_time, arrival_time, total_seats, available_seats, base_fare, created_at, updated_at`

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFlights(rows)
}

func (r *PGFlightRepository) Search(ctx context.Context, origin, destination string, date time.Time) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights
		WHERE origin=$1 AND destination=$2 AND departure_time::date = $3::date
		ORDER BY departure_time`, origin, destination, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFlights(rows)
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id)
	f, err := scanFlight(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFlightNotFound
		}
		return nil, err
	}
	return f, nil
}

func (r *PGFlightRepository) NudgeSeats(ctx context.Context, flightID int64, delta int) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `UPDATE flights
		SET available_seats = LEAST(total_seats, GREATEST(0, available_seats + $2)), updated_at = now()
		WHERE id=$1
		RETURNING `+flightColumns, flightID, delta)
	f, err := scanFlight(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFlightNotFound
		}
		return nil, err
	}
	return f, nil
}

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FlightNumber, &f.Origin, &f.Destination, &f.DepartureTime, &f.ArrivalTime, &f.TotalSeats, &f.AvailableSeats, &f.BaseFare, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func scanFlights(rows pgx.Rows) ([]domain.Flight, error) {
	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

var _ FlightRepository = (*PGFlightRepository)(nil)
