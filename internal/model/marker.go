package model

import (
	"time"
)

// Marker types accepted on creation.
const (
	MarkerTypeICE        = "ICE"
	MarkerTypePIG        = "PIG"
	MarkerTypeCheckpoint = "CHECKPOINT"
	MarkerTypeRaid       = "RAID"
	MarkerTypeOther      = "OTHER"
)

// Marker is a single geotagged incident report.
type Marker struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Type        string    `db:"type" json:"type"`
	Description string    `db:"description" json:"description"`
	Latitude    float64   `db:"latitude" json:"-"`
	Longitude   float64   `db:"longitude" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"timestamp"`
	ExpiresAt   time.Time `db:"expires_at" json:"expiresAt"`
	MagicCode   string    `db:"magic_code" json:"magicCode,omitempty"`
	ReportCount int       `db:"report_count" json:"reportCount"`
	UpvoteCount int       `db:"upvote_count" json:"upvotes"`
	Hidden      bool      `db:"hidden" json:"hidden"`
	Archived    bool      `db:"archived" json:"archived"`

	// Joined / derived fields (not in markers table)
	Coords     [2]float64 `db:"-" json:"coords"` // [lng, lat]
	Media      []Media    `db:"-" json:"media"`
	UpvoteType *string    `db:"upvote_type" json:"upvoteType,omitempty"`
}

// SetCoords fills Coords from the stored latitude/longitude.
func (m *Marker) SetCoords() {
	m.Coords = [2]float64{m.Longitude, m.Latitude}
}

// Public returns a copy safe to hand to anyone but the creator.
func (m Marker) Public() Marker {
	m.MagicCode = ""
	return m
}

// CreateMarkerRequest is the request body for POST /api/markers.
type CreateMarkerRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Type        string    `json:"type" validate:"required,oneof=ICE PIG CHECKPOINT RAID OTHER"`
	Description string    `json:"description" validate:"max=1000"`
	Coords      []float64 `json:"coords" validate:"lnglat"` // [lng, lat]
	Media       []string  `json:"media" validate:"max=10,dive,required,url"`
	MagicCode   string    `json:"magicCode" validate:"max=64"`
}

// CreateMarkerResponse is returned with 201 on successful creation.
type CreateMarkerResponse struct {
	Success bool    `json:"success"`
	ID      string  `json:"id"`
	Marker  *Marker `json:"marker"`
}

// Listing filters
const (
	FilterActive = "active"
	FilterAll    = "all"
)

// Marker constants
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
	MaxMarkerMedia       = 10
	MaxListedMarkers     = 200
	DefaultMarkerTTL     = 7 * 24 * time.Hour
	MagicCodeLength      = 10
)
