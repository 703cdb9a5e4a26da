package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reservationColumns = `id, field_id, holder_user_id, starts_at, ends_at, status, deposit_cents, created_at, updated_at`

// PostgresStore is the production Store. Writers on one field are serialized
// with a transaction-scoped advisory lock keyed by the field ID; the schema's
// exclusion constraint backstops the overlap invariant.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func scanReservation(row pgx.Row, res *Reservation) error {
	return row.Scan(
		&res.ID,
		&res.FieldID,
		&res.HolderUserID,
		&res.StartsAt,
		&res.EndsAt,
		&res.Status,
		&res.DepositCents,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
}

func (s *PostgresStore) Create(ctx context.Context, res *Reservation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Serialize creates per field. The lock is released on commit/rollback.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, res.FieldID); err != nil {
		return fmt.Errorf("failed to take field lock: %w", err)
	}

	var conflict Reservation
	err = tx.QueryRow(ctx, `
		SELECT id, field_id, starts_at, ends_at
		FROM reservations
		WHERE field_id = $1
		  AND status <> 'CANCELLED'
		  AND starts_at < $3
		  AND ends_at > $2
		ORDER BY starts_at
		LIMIT 1
	`, res.FieldID, res.StartsAt, res.EndsAt).Scan(
		&conflict.ID, &conflict.FieldID, &conflict.StartsAt, &conflict.EndsAt,
	)
	if err == nil {
		return &ConflictError{
			FieldID:       conflict.FieldID,
			ReservationID: conflict.ID,
			StartsAt:      conflict.StartsAt,
			EndsAt:        conflict.EndsAt,
		}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to check overlap: %w", err)
	}

	err = scanReservation(tx.QueryRow(ctx, `
		INSERT INTO reservations (id, field_id, holder_user_id, starts_at, ends_at, status, deposit_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+reservationColumns,
		res.ID, res.FieldID, res.HolderUserID, res.StartsAt, res.EndsAt, res.Status, res.DepositCents,
	), res)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23P01: exclusion constraint violation. Should be unreachable under
		// the advisory lock; treated as a conflict rather than a fault.
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
			return &ConflictError{FieldID: res.FieldID, StartsAt: res.StartsAt, EndsAt: res.EndsAt}
		}
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	var res Reservation
	err := scanReservation(s.pool.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE id = $1
	`, id), &res)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &res, nil
}

func (s *PostgresStore) Confirm(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	return s.transition(ctx, id, func(current Status) (Status, error) {
		switch current {
		case StatusCancelled:
			return "", ErrAlreadyCancelled
		case StatusConfirmed:
			return StatusConfirmed, nil
		default:
			return StatusConfirmed, nil
		}
	})
}

func (s *PostgresStore) Cancel(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	return s.transition(ctx, id, func(current Status) (Status, error) {
		return StatusCancelled, nil
	})
}

// transition loads the row FOR UPDATE, asks decide for the target status and
// applies it. decide returning the current status makes the call a no-op.
func (s *PostgresStore) transition(ctx context.Context, id uuid.UUID, decide func(Status) (Status, error)) (*Reservation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var res Reservation
	err = scanReservation(tx.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE id = $1
		FOR UPDATE
	`, id), &res)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}

	target, err := decide(res.Status)
	if err != nil {
		return nil, err
	}

	if target != res.Status {
		err = scanReservation(tx.QueryRow(ctx, `
			UPDATE reservations
			SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+reservationColumns,
			id, target,
		), &res)
		if err != nil {
			return nil, fmt.Errorf("failed to update reservation: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &res, nil
}

func (s *PostgresStore) ListByHolder(ctx context.Context, holderID uuid.UUID) ([]Reservation, error) {
	return s.list(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE holder_user_id = $1
		ORDER BY created_at DESC
	`, holderID)
}

func (s *PostgresStore) ListByField(ctx context.Context, fieldID uuid.UUID) ([]Reservation, error) {
	return s.list(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE field_id = $1
		ORDER BY starts_at
	`, fieldID)
}

func (s *PostgresStore) ListActiveInWindow(ctx context.Context, fieldID uuid.UUID, from, to time.Time) ([]Reservation, error) {
	return s.list(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE field_id = $1
		  AND status <> 'CANCELLED'
		  AND starts_at < $3
		  AND ends_at > $2
		ORDER BY starts_at
	`, fieldID, from, to)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]Reservation, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	var result []Reservation
	for rows.Next() {
		var res Reservation
		if err := scanReservation(rows, &res); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservations: %w", err)
	}

	return result, nil
}
