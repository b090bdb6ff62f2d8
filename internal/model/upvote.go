package model

import "time"

// Upvote kinds. An ongoing upvote also pushes the marker's expiration forward.
const (
	UpvoteRegular = "regular"
	UpvoteOngoing = "ongoing"
)

// Upvote is a single corroboration of a marker.
type Upvote struct {
	ID        string    `db:"id" json:"id"`
	MarkerID  string    `db:"marker_id" json:"markerId"`
	VoterID   string    `db:"voter_id" json:"-"`
	Kind      string    `db:"kind" json:"type"`
	CreatedAt time.Time `db:"created_at" json:"timestamp"`
}

// UpvoteRequest is the request body for POST /api/upvotes/:markerId.
type UpvoteRequest struct {
	Type      string `json:"type"`
	MagicCode string `json:"magicCode"`
}

// UpvoteResponse carries the marker's regular upvote total after the vote.
type UpvoteResponse struct {
	Message string `json:"message"`
	Upvotes int    `json:"upvotes"`
}

// ReportRequest is the request body for POST /api/markers/:id/report.
type ReportRequest struct {
	MagicCode string `json:"magicCode"`
}

// ReportResponse carries the marker's hidden state after the report.
type ReportResponse struct {
	Success bool `json:"success"`
	Hidden  bool `json:"hidden"`
}

const (
	// IdempotencyTTL bounds how long a report or upvote is remembered per identifier.
	IdempotencyTTL = 24 * time.Hour
	// OngoingExtension is how far past now an ongoing upvote pushes expiration.
	OngoingExtension = 24 * time.Hour
)

// IsValidUpvoteKind reports whether kind is a known upvote kind.
func IsValidUpvoteKind(kind string) bool {
	return kind == UpvoteRegular || kind == UpvoteOngoing
}
