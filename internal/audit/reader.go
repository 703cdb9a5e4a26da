package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const maxPageSize = 200

// Reader provides read access to the audit log.
type Reader struct {
	pool *pgxpool.Pool
}

func NewReader(pool *pgxpool.Pool) *Reader {
	return &Reader{pool: pool}
}

// ListByField returns the most recent audit events for a field, newest first.
func (r *Reader) ListByField(ctx context.Context, fieldID uuid.UUID, limit int) ([]Event, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, field_id, post_id, actor_user_id, action, meta, created_at
		FROM audit_log
		WHERE field_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, fieldID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var metaJSON []byte
		if err := rows.Scan(&ev.ID, &ev.FieldID, &ev.PostID, &ev.ActorUserID, &ev.Action, &metaJSON, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &ev.Meta); err != nil {
				return nil, fmt.Errorf("failed to decode audit meta: %w", err)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}

	return events, nil
}
