package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"pigmap/internal/model"
)

type upvoteRepository struct {
	db *sqlx.DB
}

func NewUpvoteRepository(db *sqlx.DB) UpvoteRepository {
	return &upvoteRepository{db: db}
}

// Add records an upvote. The marker update runs first and only matches live
// markers, so an upvote racing the archive sweep either extends the marker
// before the sweep sees it or fails with model.ErrMarkerNotFound.
func (r *upvoteRepository) Add(ctx context.Context, upvote *model.Upvote, extension time.Duration) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var total int
	switch upvote.Kind {
	case model.UpvoteOngoing:
		err = tx.GetContext(ctx, &total, `
			UPDATE markers
			SET expires_at = GREATEST(expires_at, NOW() + make_interval(secs => $2))
			WHERE id = $1 AND NOT archived
			RETURNING upvote_count
		`, upvote.MarkerID, extension.Seconds())
	default:
		err = tx.GetContext(ctx, &total, `
			UPDATE markers
			SET upvote_count = upvote_count + 1
			WHERE id = $1 AND NOT archived
			RETURNING upvote_count
		`, upvote.MarkerID)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrMarkerNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("update marker for upvote: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO upvotes (id, marker_id, voter_id, kind, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, upvote.ID, upvote.MarkerID, upvote.VoterID, upvote.Kind, upvote.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert upvote: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return total, nil
}
