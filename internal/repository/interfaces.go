package repository

import (
	"context"
	"time"

	"pigmap/internal/model"
)

type MarkerRepository interface {
	// Create inserts the marker and its media in one transaction.
	Create(ctx context.Context, marker *model.Marker) error
	GetByID(ctx context.Context, id string) (*model.Marker, error)
	// List returns visible markers, newest first, with media attached.
	// Archived markers are included only when includeArchived is set.
	List(ctx context.Context, includeArchived bool, limit int) ([]model.Marker, error)
	// Delete removes the marker (media, comments and upvotes cascade) and
	// returns the media rows it owned.
	Delete(ctx context.Context, id string) ([]model.Media, error)
	// IncrementReports adds one report and recomputes hidden in one statement.
	IncrementReports(ctx context.Context, id string, threshold int) (bool, error)
	// ArchiveExpired flags every live marker whose expiration has passed.
	ArchiveExpired(ctx context.Context) (int64, error)
}

type UpvoteRepository interface {
	// Add records an upvote and returns the marker's regular upvote total.
	// Ongoing upvotes push expires_at to at least now+extension.
	Add(ctx context.Context, upvote *model.Upvote, extension time.Duration) (int, error)
}

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	// CreateWithPseudonym sets comment.Author to the name bound to magicCode,
	// binding candidate if none exists, and inserts the comment atomically.
	CreateWithPseudonym(ctx context.Context, comment *model.Comment, magicCode, candidate string) error
	ListByMarker(ctx context.Context, markerID string) ([]model.Comment, error)
}
