package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sort"

	"github.com/Domenick1991/airport/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Advisory lock keys taken with pg_advisory_xact_lock.
const (
	gateLockKey     int64 = 0x6761746573   // "gates"
	sequenceLockKey int64 = 0x7469636b6574 // "ticket"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		sql, err := migrations.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

// SeedTicketSequence sets the starting ticket number unless one is already stored.
func SeedTicketSequence(ctx context.Context, db *pgxpool.Pool, seed string) error {
	if !domain.IsTicketNumber(seed) {
		return domain.Validationf("ticket seed %q is not a %d-digit ticket number", seed, domain.TicketNumberDigits)
	}
	_, err := db.Exec(ctx, `INSERT INTO ticket_sequence (id, last_value) VALUES (1, $1)
		ON CONFLICT (id) DO NOTHING`, seed)
	return translate(err)
}

func (s *PGStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	return translate(tx.Commit(ctx))
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) advisoryLock(ctx context.Context, key int64) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, key)
	return err
}

// translate maps pgx errors onto the domain taxonomy. Unknown errors are
// returned unchanged and become transaction failures in the service layer.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFoundf("row not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return &domain.Error{Kind: domain.KindConflict, Msg: "unique constraint " + pgErr.ConstraintName + " violated", Err: err}
		case "23503":
			return &domain.Error{Kind: domain.KindNotFound, Msg: "referenced row missing (" + pgErr.ConstraintName + ")", Err: err}
		case "23514":
			return &domain.Error{Kind: domain.KindConflict, Msg: "check constraint " + pgErr.ConstraintName + " violated", Err: err}
		case "40001", "40P01":
			return &domain.Error{Kind: domain.KindTransaction, Msg: "transaction aborted by concurrent update", Err: err}
		}
	}
	return err
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFoundf(format, args...)
	}
	return translate(err)
}

var _ Store = (*PGStore)(nil)
var _ Tx = (*pgTx)(nil)
