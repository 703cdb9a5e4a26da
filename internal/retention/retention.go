package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// RunRetentionJob deletes audit log entries older than retentionDays.
// Reservations, posts and invitations are never purged; they are the
// availability history and roster record.
func RunRetentionJob(ctx context.Context, pool *pgxpool.Pool, retentionDays int) error {
	start := time.Now()
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	tag, err := pool.Exec(ctx, `DELETE FROM audit_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge audit log: %w", err)
	}

	log.Info().
		Int64("deleted", tag.RowsAffected()).
		Time("cutoff", cutoff).
		Dur("duration", time.Since(start)).
		Msg("Audit retention job completed")

	return nil
}
