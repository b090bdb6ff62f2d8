package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"pigmap/internal/model"
)

type markerRepository struct {
	db *sqlx.DB
}

func NewMarkerRepository(db *sqlx.DB) MarkerRepository {
	return &markerRepository{db: db}
}

const markerColumns = `m.id, m.title, m.type, m.description, m.latitude, m.longitude,
	m.created_at, m.expires_at, m.report_count, m.upvote_count, m.hidden, m.archived`

// Create inserts a new marker and its media in a transaction.
func (r *markerRepository) Create(ctx context.Context, marker *model.Marker) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO markers (id, title, type, description, latitude, longitude, created_at, expires_at, magic_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, marker.ID, marker.Title, marker.Type, marker.Description, marker.Latitude, marker.Longitude,
		marker.CreatedAt, marker.ExpiresAt, marker.MagicCode)
	if err != nil {
		return fmt.Errorf("insert marker: %w", err)
	}

	for i, media := range marker.Media {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO media (id, marker_id, url, kind) VALUES ($1, $2, $3, $4)
		`, media.ID, marker.ID, media.URL, media.Kind)
		if err != nil {
			return fmt.Errorf("insert media %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a marker, including hidden and archived ones, with its capability token.
func (r *markerRepository) GetByID(ctx context.Context, id string) (*model.Marker, error) {
	var marker model.Marker
	err := r.db.GetContext(ctx, &marker, `
		SELECT `+markerColumns+`, m.magic_code
		FROM markers m
		WHERE m.id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrMarkerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get marker: %w", err)
	}

	media, err := r.getMedia(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	marker.Media = media[id]
	marker.SetCoords()
	return &marker, nil
}

func (r *markerRepository) List(ctx context.Context, includeArchived bool, limit int) ([]model.Marker, error) {
	var markers []model.Marker
	err := r.db.SelectContext(ctx, &markers, `
		SELECT `+markerColumns+`,
			(SELECT u.kind FROM upvotes u WHERE u.marker_id = m.id ORDER BY u.created_at DESC LIMIT 1) AS upvote_type
		FROM markers m
		WHERE NOT m.hidden AND ($1 OR NOT m.archived)
		ORDER BY m.created_at DESC
		LIMIT $2
	`, includeArchived, limit)
	if err != nil {
		return nil, fmt.Errorf("list markers: %w", err)
	}
	if len(markers) == 0 {
		return []model.Marker{}, nil
	}

	ids := make([]string, len(markers))
	for i := range markers {
		ids[i] = markers[i].ID
	}
	media, err := r.getMedia(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range markers {
		markers[i].Media = media[markers[i].ID]
		markers[i].SetCoords()
	}
	return markers, nil
}

// Delete removes a marker. Returns model.ErrMarkerNotFound when it is already gone.
func (r *markerRepository) Delete(ctx context.Context, id string) ([]model.Media, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var media []model.Media
	err = tx.SelectContext(ctx, &media, `SELECT id, marker_id, url, kind FROM media WHERE marker_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get media: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM markers WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete marker: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, model.ErrMarkerNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return media, nil
}

// IncrementReports adds a report and recomputes hidden from the pre-update
// counters in the same statement, so concurrent reports cannot be lost.
func (r *markerRepository) IncrementReports(ctx context.Context, id string, threshold int) (bool, error) {
	var hidden bool
	err := r.db.GetContext(ctx, &hidden, `
		UPDATE markers
		SET report_count = report_count + 1,
			hidden = (report_count + 1 >= $1 AND report_count + 1 > 2 * upvote_count)
		WHERE id = $2 AND NOT hidden
		RETURNING hidden
	`, threshold, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, model.ErrMarkerNotFound
	}
	if err != nil {
		return false, fmt.Errorf("increment reports: %w", err)
	}
	return hidden, nil
}

func (r *markerRepository) ArchiveExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE markers SET archived = TRUE
		WHERE NOT archived AND expires_at <= NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("archive expired: %w", err)
	}
	return result.RowsAffected()
}

// getMedia fetches media for the given markers keyed by marker id.
func (r *markerRepository) getMedia(ctx context.Context, markerIDs []string) (map[string][]model.Media, error) {
	var rows []model.Media
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, marker_id, url, kind FROM media
		WHERE marker_id = ANY($1)
		ORDER BY marker_id, id
	`, pq.Array(markerIDs))
	if err != nil {
		return nil, fmt.Errorf("get media: %w", err)
	}

	out := make(map[string][]model.Media, len(markerIDs))
	for _, m := range rows {
		out[m.MarkerID] = append(out[m.MarkerID], m)
	}
	for _, id := range markerIDs {
		if out[id] == nil {
			out[id] = []model.Media{}
		}
	}
	return out, nil
}
