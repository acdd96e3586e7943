package repository

import (
	"context"

	"github.com/avelinag/skyfare/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FareHistoryRepository interface {
	Append(ctx context.Context, entry *domain.FareEntry) error
	ListByFlight(ctx context.Context, flightID int64, limit int) ([]domain.FareEntry, error)
}

type PGFareHistoryRepository struct {
	db *pgxpool.Pool
}

func NewFareHistoryRepository(db *pgxpool.Pool) FareHistoryRepository {
	return &PGFareHistoryRepository{db: db}
}

func (r *PGFareHistoryRepository) Append(ctx context.Context, entry *domain.FareEntry) error {
	return r.db.QueryRow(ctx, `INSERT INTO fare_history (flight_id, base_fare, price, seats_available, total_seats, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, recorded_at`,
		entry.FlightID, entry.BaseFare, entry.Price, entry.SeatsAvailable, entry.TotalSeats, entry.Reason).
		Scan(&entry.ID, &entry.RecordedAt)
}

func (r *PGFareHistoryRepository) ListByFlight(ctx context.Context, flightID int64, limit int) ([]domain.FareEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT id, flight_id, base_fare, price, seats_available, total_seats, reason, recorded_at
		FROM fare_history WHERE flight_id=$1 ORDER BY recorded_at DESC LIMIT $2`, flightID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.FareEntry, 0)
	for rows.Next() {
		var e domain.FareEntry
		if err := rows.Scan(&e.ID, &e.FlightID, &e.BaseFare, &e.Price, &e.SeatsAvailable, &e.TotalSeats, &e.Reason, &e.RecordedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ FareHistoryRepository = (*PGFareHistoryRepository)(nil)
