package matchposts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postColumns = `id, reservation_id, field_id, owner_user_id, content, max_participants, current_participants, orphaned_at, created_at, updated_at`

const invitationColumns = `post_id, candidate_user_id, status, origin, invited_at, responded_at`

// PostgresStore is the production Store. Invitation writes lock the post row
// FOR UPDATE, so the capacity check, the counter increment and the status
// flip commit as one unit; the counter CHECK constraint backstops the
// capacity invariant.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func scanPost(row pgx.Row, post *MatchPost) error {
	return row.Scan(
		&post.ID,
		&post.ReservationID,
		&post.FieldID,
		&post.OwnerUserID,
		&post.Content,
		&post.MaxParticipants,
		&post.CurrentParticipants,
		&post.OrphanedAt,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
}

func scanInvitation(row pgx.Row, inv *Invitation) error {
	return row.Scan(
		&inv.PostID,
		&inv.CandidateUserID,
		&inv.Status,
		&inv.Origin,
		&inv.InvitedAt,
		&inv.RespondedAt,
	)
}

func (s *PostgresStore) CreatePost(ctx context.Context, post *MatchPost) error {
	err := scanPost(s.pool.QueryRow(ctx, `
		INSERT INTO match_posts (id, reservation_id, field_id, owner_user_id, content, max_participants, current_participants)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+postColumns,
		post.ID, post.ReservationID, post.FieldID, post.OwnerUserID, post.Content, post.MaxParticipants, post.CurrentParticipants,
	), post)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 on the reservation_id unique constraint: the 1:1 binding.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrPostExists
		}
		return fmt.Errorf("failed to insert match post: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPost(ctx context.Context, id uuid.UUID) (*MatchPost, error) {
	var post MatchPost
	err := scanPost(s.pool.QueryRow(ctx, `
		SELECT `+postColumns+`
		FROM match_posts
		WHERE id = $1
	`, id), &post)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get match post: %w", err)
	}
	return &post, nil
}

// lockPost loads the post row FOR UPDATE, serializing invitation writers on
// the post for the remainder of the transaction.
func lockPost(ctx context.Context, tx pgx.Tx, postID uuid.UUID) (*MatchPost, error) {
	var post MatchPost
	err := scanPost(tx.QueryRow(ctx, `
		SELECT `+postColumns+`
		FROM match_posts
		WHERE id = $1
		FOR UPDATE
	`, postID), &post)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to load match post: %w", err)
	}
	return &post, nil
}

func (s *PostgresStore) AddInvitation(ctx context.Context, postID, candidateID uuid.UUID, origin Origin) (*Invitation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	post, err := lockPost(ctx, tx, postID)
	if err != nil {
		return nil, err
	}
	if post.Orphaned() {
		return nil, ErrPostOrphaned
	}
	if post.Full() {
		return nil, &CapacityError{PostID: postID, MaxParticipants: post.MaxParticipants}
	}

	var inv Invitation
	err = scanInvitation(tx.QueryRow(ctx, `
		INSERT INTO invitations (post_id, candidate_user_id, status, origin)
		VALUES ($1, $2, 'PENDING', $3)
		RETURNING `+invitationColumns,
		postID, candidateID, origin,
	), &inv)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateInvitation
		}
		return nil, fmt.Errorf("failed to insert invitation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &inv, nil
}

func (s *PostgresStore) Accept(ctx context.Context, postID, candidateID uuid.UUID) (*Invitation, *MatchPost, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	post, err := lockPost(ctx, tx, postID)
	if err != nil {
		return nil, nil, err
	}

	var inv Invitation
	err = scanInvitation(tx.QueryRow(ctx, `
		SELECT `+invitationColumns+`
		FROM invitations
		WHERE post_id = $1 AND candidate_user_id = $2
	`, postID, candidateID), &inv)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrInvitationNotFound
		}
		return nil, nil, fmt.Errorf("failed to load invitation: %w", err)
	}

	switch inv.Status {
	case InviteStatusAccepted:
		return &inv, post, nil
	case InviteStatusRejected:
		return nil, nil, ErrInvitationResolved
	}

	if post.Orphaned() {
		return nil, nil, ErrPostOrphaned
	}
	if post.Full() {
		// Invitation stays PENDING; the loser of a last-seat race is told,
		// not retried.
		return nil, nil, &CapacityError{PostID: postID, MaxParticipants: post.MaxParticipants, AtAccept: true}
	}

	err = scanInvitation(tx.QueryRow(ctx, `
		UPDATE invitations
		SET status = 'ACCEPTED', responded_at = NOW()
		WHERE post_id = $1 AND candidate_user_id = $2
		RETURNING `+invitationColumns,
		postID, candidateID,
	), &inv)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to accept invitation: %w", err)
	}

	err = scanPost(tx.QueryRow(ctx, `
		UPDATE match_posts
		SET current_participants = current_participants + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING `+postColumns,
		postID,
	), post)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to increment participants: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &inv, post, nil
}

func (s *PostgresStore) Reject(ctx context.Context, postID, candidateID uuid.UUID) (*Invitation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := lockPost(ctx, tx, postID); err != nil {
		return nil, err
	}

	var inv Invitation
	err = scanInvitation(tx.QueryRow(ctx, `
		SELECT `+invitationColumns+`
		FROM invitations
		WHERE post_id = $1 AND candidate_user_id = $2
	`, postID, candidateID), &inv)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}

	switch inv.Status {
	case InviteStatusRejected:
		return &inv, nil
	case InviteStatusAccepted:
		return nil, ErrInvitationResolved
	}

	err = scanInvitation(tx.QueryRow(ctx, `
		UPDATE invitations
		SET status = 'REJECTED', responded_at = NOW()
		WHERE post_id = $1 AND candidate_user_id = $2
		RETURNING `+invitationColumns,
		postID, candidateID,
	), &inv)
	if err != nil {
		return nil, fmt.Errorf("failed to reject invitation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &inv, nil
}

func (s *PostgresStore) ListInvitations(ctx context.Context, postID uuid.UUID) ([]Invitation, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+invitationColumns+`
		FROM invitations
		WHERE post_id = $1
		ORDER BY invited_at, candidate_user_id
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var result []Invitation
	for rows.Next() {
		var inv Invitation
		if err := scanInvitation(rows, &inv); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		result = append(result, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invitations: %w", err)
	}

	return result, nil
}

func (s *PostgresStore) OrphanByReservation(ctx context.Context, reservationID uuid.UUID) (uuid.UUID, bool, error) {
	var postID uuid.UUID
	err := s.pool.QueryRow(ctx, `
		UPDATE match_posts
		SET orphaned_at = NOW(), updated_at = NOW()
		WHERE reservation_id = $1 AND orphaned_at IS NULL
		RETURNING id
	`, reservationID).Scan(&postID)
	if err == nil {
		return postID, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, fmt.Errorf("failed to orphan match post: %w", err)
	}

	// Either no post is bound or it was already orphaned.
	err = s.pool.QueryRow(ctx, `
		SELECT id FROM match_posts WHERE reservation_id = $1
	`, reservationID).Scan(&postID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("failed to look up match post: %w", err)
	}
	return postID, true, nil
}
