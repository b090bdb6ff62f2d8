package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"pigmap/internal/model"
)

// foreign_key_violation
const pqForeignKeyViolation = "23503"

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts a comment. Unknown markers surface as model.ErrMarkerNotFound.
func (r *commentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return insertComment(ctx, r.db, comment)
}

// CreateWithPseudonym binds magicCode to candidate unless it already has a
// name, sets the comment's author to that name and inserts the comment, all
// in one transaction. A failed insert leaves no pseudonym behind.
func (r *commentRepository) CreateWithPseudonym(ctx context.Context, comment *model.Comment, magicCode, candidate string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	name, err := bindPseudonym(ctx, tx, magicCode, candidate)
	if err != nil {
		return err
	}
	comment.Author = name

	if err := insertComment(ctx, tx, comment); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertComment(ctx context.Context, db sqlx.ExecerContext, comment *model.Comment) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO comments (id, marker_id, text, author, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, comment.ID, comment.MarkerID, comment.Text, comment.Author, comment.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
		return model.ErrMarkerNotFound
	}
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// ListByMarker returns a marker's comments, newest first.
func (r *commentRepository) ListByMarker(ctx context.Context, markerID string) ([]model.Comment, error) {
	comments := []model.Comment{}
	err := r.db.SelectContext(ctx, &comments, `
		SELECT id, marker_id, text, author, created_at
		FROM comments
		WHERE marker_id = $1
		ORDER BY created_at DESC
	`, markerID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}
