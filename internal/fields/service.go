package fields

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pitchside/pitchside/internal/validation"
)

var (
	// ErrFieldNotFound is returned when a field does not exist
	ErrFieldNotFound = errors.New("field not found")

	// ErrSlugConflict is returned when a field slug already exists
	ErrSlugConflict = errors.New("field slug already exists")
)

// Service provides field catalog operations.
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates a new field service
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// Create registers a new field owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, name, slug, sport string) (*Field, error) {
	name = strings.TrimSpace(name)
	sport = strings.ToLower(strings.TrimSpace(sport))

	slug = validation.NormalizeSlug(slug)
	if err := validation.ValidateSlug(slug); err != nil {
		return nil, err
	}

	var field Field
	err := s.pool.QueryRow(ctx, `
		INSERT INTO fields (name, slug, sport, owner_user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, slug, sport, owner_user_id, created_at, updated_at
	`, name, slug, sport, ownerID).Scan(
		&field.ID,
		&field.Name,
		&field.Slug,
		&field.Sport,
		&field.OwnerUserID,
		&field.CreatedAt,
		&field.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlugConflict
		}
		return nil, fmt.Errorf("failed to create field: %w", err)
	}

	return &field, nil
}

// GetByID retrieves a field by ID
func (s *Service) GetByID(ctx context.Context, fieldID uuid.UUID) (*Field, error) {
	var field Field

	err := s.pool.QueryRow(ctx, `
		SELECT id, name, slug, sport, owner_user_id, created_at, updated_at
		FROM fields
		WHERE id = $1
	`, fieldID).Scan(
		&field.ID,
		&field.Name,
		&field.Slug,
		&field.Sport,
		&field.OwnerUserID,
		&field.CreatedAt,
		&field.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFieldNotFound
		}
		return nil, fmt.Errorf("failed to get field: %w", err)
	}

	return &field, nil
}

// Owner returns the owning user of a field.
func (s *Service) Owner(ctx context.Context, fieldID uuid.UUID) (uuid.UUID, error) {
	var ownerID uuid.UUID
	err := s.pool.QueryRow(ctx, `SELECT owner_user_id FROM fields WHERE id = $1`, fieldID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrFieldNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to get field owner: %w", err)
	}
	return ownerID, nil
}

// List returns all fields, newest first.
func (s *Service) List(ctx context.Context) ([]Field, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, slug, sport, owner_user_id, created_at, updated_at
		FROM fields
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	defer rows.Close()

	var result []Field
	for rows.Next() {
		var field Field
		if err := rows.Scan(
			&field.ID,
			&field.Name,
			&field.Slug,
			&field.Sport,
			&field.OwnerUserID,
			&field.CreatedAt,
			&field.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		result = append(result, field)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fields: %w", err)
	}

	return result, nil
}
