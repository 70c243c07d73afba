package repository

import (
	"context"

	"github.com/Domenick1991/airport/internal/domain"
	"github.com/jackc/pgx/v5"
)

const flightColumns = `id, company, flight_date, departure_time, arrival_time, max_seats, free_seats, delay_minutes, status, gate, direction, city, created_at, updated_at`

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.Company, &f.Date, &f.DepartureTime, &f.ArrivalTime, &f.MaxSeats, &f.FreeSeats, &f.DelayMinutes, &f.Status, &f.Gate, &f.Direction, &f.City, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func (t *pgTx) InsertFlight(ctx context.Context, f *domain.Flight) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO flights (id, company, flight_date, departure_time, arrival_time, max_seats, free_seats, delay_minutes, status, gate, direction, city)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		f.ID, f.Company, f.Date, f.DepartureTime, f.ArrivalTime, f.MaxSeats, f.FreeSeats, f.DelayMinutes, f.Status, f.Gate, f.Direction, f.City).
		Scan(&f.CreatedAt, &f.UpdatedAt)
	return translate(err)
}

func (t *pgTx) LockFlight(ctx context.Context, id string) (*domain.Flight, error) {
	f, err := scanFlight(t.tx.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "flight %s not found", id)
	}
	return f, nil
}

func (t *pgTx) UpdateFlight(ctx context.Context, f *domain.Flight) error {
	err := t.tx.QueryRow(ctx, `UPDATE flights
		SET free_seats=$2, delay_minutes=$3, status=$4, gate=$5, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`, f.ID, f.FreeSeats, f.DelayMinutes, f.Status, f.Gate).
		Scan(&f.UpdatedAt)
	if err != nil {
		return notFound(err, "flight %s not found", f.ID)
	}
	return nil
}

func (t *pgTx) LockGates(ctx context.Context) error {
	return translate(t.advisoryLock(ctx, gateLockKey))
}

func (t *pgTx) HeldGates(ctx context.Context) (map[int]string, error) {
	rows, err := t.tx.Query(ctx, `SELECT gate, id FROM flights WHERE gate IS NOT NULL AND status <> $1`, domain.FlightStatusCancelled)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	held := make(map[int]string)
	for rows.Next() {
		var gate int
		var flightID string
		if err := rows.Scan(&gate, &flightID); err != nil {
			return nil, err
		}
		held[gate] = flightID
	}
	return held, rows.Err()
}
