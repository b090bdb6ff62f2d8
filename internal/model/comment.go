package model

import (
	"time"
)

// Comment represents a comment on a marker.
type Comment struct {
	ID        string    `db:"id" json:"id"`
	MarkerID  string    `db:"marker_id" json:"markerId"`
	Text      string    `db:"text" json:"text"`
	Author    string    `db:"author" json:"author"`
	CreatedAt time.Time `db:"created_at" json:"timestamp"`
}

// CreateCommentRequest is the request body for POST /api/comments.
// Either Author or MagicCode identifies the commenter; with neither a
// magic code and pseudonym are issued.
type CreateCommentRequest struct {
	MarkerID  string `json:"markerId" validate:"required,max=64"`
	Text      string `json:"text" validate:"required,max=500"`
	Author    string `json:"author" validate:"max=50"`
	MagicCode string `json:"magicCode" validate:"max=64"`
}

// CreateCommentResponse is returned with 201 on success.
// MagicCode is set only when the server issued a new one.
type CreateCommentResponse struct {
	Success   bool     `json:"success"`
	ID        string   `json:"id"`
	Comment   *Comment `json:"comment"`
	MagicCode string   `json:"magicCode,omitempty"`
}

// Pseudonym binds a generated display name to a magic code.
type Pseudonym struct {
	MagicCode string    `db:"magic_code"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// Comment constraints
const (
	MaxCommentLength = 500
	MaxAuthorLength  = 50
)
