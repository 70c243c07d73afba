package repository

import (
	"context"

	"github.com/Domenick1991/airport/internal/domain"
	"github.com/jackc/pgx/v5"
)

const luggageColumns = `id, type, status, ticket_id, tracking_id`

func scanLuggage(row pgx.Row) (*domain.Luggage, error) {
	var l domain.Luggage
	if err := row.Scan(&l.ID, &l.Type, &l.Status, &l.TicketID, &l.TrackingID); err != nil {
		return nil, err
	}
	return &l, nil
}

func (t *pgTx) InsertLuggage(ctx context.Context, l *domain.Luggage) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO luggage (type, status, ticket_id, tracking_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, l.Type, l.Status, l.TicketID, l.TrackingID).
		Scan(&l.ID)
	return translate(err)
}

func (t *pgTx) LuggageByTicket(ctx context.Context, ticketID string) ([]domain.Luggage, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+luggageColumns+` FROM luggage WHERE ticket_id=$1 ORDER BY id FOR UPDATE`, ticketID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	items := make([]domain.Luggage, 0)
	for rows.Next() {
		l, err := scanLuggage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *l)
	}
	return items, rows.Err()
}

func (t *pgTx) DeleteLuggageByTicket(ctx context.Context, ticketID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM luggage WHERE ticket_id=$1`, ticketID)
	return translate(err)
}

func (t *pgTx) LockLuggage(ctx context.Context, id int64) (*domain.Luggage, error) {
	l, err := scanLuggage(t.tx.QueryRow(ctx, `SELECT `+luggageColumns+` FROM luggage WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "luggage %d not found", id)
	}
	return l, nil
}

func (t *pgTx) LockLuggageByTracking(ctx context.Context, trackingID string) (*domain.Luggage, error) {
	l, err := scanLuggage(t.tx.QueryRow(ctx, `SELECT `+luggageColumns+` FROM luggage WHERE tracking_id=$1 FOR UPDATE`, trackingID))
	if err != nil {
		return nil, notFound(err, "luggage with tracking id %s not found", trackingID)
	}
	return l, nil
}

func (t *pgTx) UpdateLuggage(ctx context.Context, l *domain.Luggage) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE luggage SET status=$2, tracking_id=$3 WHERE id=$1`, l.ID, l.Status, l.TrackingID)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFoundf("luggage %d not found", l.ID)
	}
	return nil
}

func (t *pgTx) MoveFlightLuggage(ctx context.Context, flightID string, from, to domain.LuggageStatus) (int64, error) {
	cmd, err := t.tx.Exec(ctx, `UPDATE luggage l SET status=$3
		FROM tickets t
		WHERE l.ticket_id = t.id AND t.flight_id=$1 AND l.status=$2`, flightID, from, to)
	if err != nil {
		return 0, translate(err)
	}
	return cmd.RowsAffected(), nil
}
