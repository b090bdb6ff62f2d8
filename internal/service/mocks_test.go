package service

import (
	"context"
	"sync"
	"time"

	"pigmap/internal/model"
)

// =============================================================================
// MOCK REPOSITORIES
// =============================================================================

type mockMarkerRepository struct {
	createFn         func(ctx context.Context, marker *model.Marker) error
	getByIDFn        func(ctx context.Context, id string) (*model.Marker, error)
	listFn           func(ctx context.Context, includeArchived bool, limit int) ([]model.Marker, error)
	deleteFn         func(ctx context.Context, id string) ([]model.Media, error)
	incrementFn      func(ctx context.Context, id string, threshold int) (bool, error)
	archiveExpiredFn func(ctx context.Context) (int64, error)

	createCalls []*model.Marker
	deleteCalls []string
}

func (m *mockMarkerRepository) Create(ctx context.Context, marker *model.Marker) error {
	m.createCalls = append(m.createCalls, marker)
	if m.createFn != nil {
		return m.createFn(ctx, marker)
	}
	return nil
}

func (m *mockMarkerRepository) GetByID(ctx context.Context, id string) (*model.Marker, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrMarkerNotFound
}

func (m *mockMarkerRepository) List(ctx context.Context, includeArchived bool, limit int) ([]model.Marker, error) {
	if m.listFn != nil {
		return m.listFn(ctx, includeArchived, limit)
	}
	return nil, nil
}

func (m *mockMarkerRepository) Delete(ctx context.Context, id string) ([]model.Media, error) {
	m.deleteCalls = append(m.deleteCalls, id)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil, nil
}

func (m *mockMarkerRepository) IncrementReports(ctx context.Context, id string, threshold int) (bool, error) {
	if m.incrementFn != nil {
		return m.incrementFn(ctx, id, threshold)
	}
	return false, nil
}

func (m *mockMarkerRepository) ArchiveExpired(ctx context.Context) (int64, error) {
	if m.archiveExpiredFn != nil {
		return m.archiveExpiredFn(ctx)
	}
	return 0, nil
}

type mockUpvoteRepository struct {
	addFn func(ctx context.Context, upvote *model.Upvote, extension time.Duration) (int, error)

	addCalls []*model.Upvote
}

func (m *mockUpvoteRepository) Add(ctx context.Context, upvote *model.Upvote, extension time.Duration) (int, error) {
	m.addCalls = append(m.addCalls, upvote)
	if m.addFn != nil {
		return m.addFn(ctx, upvote, extension)
	}
	return 1, nil
}

// mockCommentRepository binds the first candidate seen for each code and
// keeps the binding only when the comment is stored.
type mockCommentRepository struct {
	createFn       func(ctx context.Context, comment *model.Comment) error
	listByMarkerFn func(ctx context.Context, markerID string) ([]model.Comment, error)

	pseudonyms  map[string]string
	createCalls []*model.Comment
}

func (m *mockCommentRepository) Create(ctx context.Context, comment *model.Comment) error {
	m.createCalls = append(m.createCalls, comment)
	if m.createFn != nil {
		return m.createFn(ctx, comment)
	}
	return nil
}

func (m *mockCommentRepository) CreateWithPseudonym(ctx context.Context, comment *model.Comment, magicCode, candidate string) error {
	name, ok := m.pseudonyms[magicCode]
	if !ok {
		name = candidate
	}
	comment.Author = name

	if err := m.Create(ctx, comment); err != nil {
		return err
	}
	if m.pseudonyms == nil {
		m.pseudonyms = map[string]string{}
	}
	m.pseudonyms[magicCode] = name
	return nil
}

func (m *mockCommentRepository) ListByMarker(ctx context.Context, markerID string) ([]model.Comment, error) {
	if m.listByMarkerFn != nil {
		return m.listByMarkerFn(ctx, markerID)
	}
	return nil, nil
}

// =============================================================================
// MOCK COLLABORATORS
// =============================================================================

type mockBroadcaster struct {
	mu      sync.Mutex
	markers []model.Marker
}

func (m *mockBroadcaster) MarkerAdded(marker model.Marker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markers = append(m.markers, marker)
}

type mockCleaner struct {
	urls []string
	err  error
}

func (m *mockCleaner) DeleteByURL(ctx context.Context, url string) error {
	m.urls = append(m.urls, url)
	return m.err
}

// mockGuard is an in-memory ActionGuard.
type mockGuard struct {
	claimed  map[string]bool
	claimErr error
	released []string
}

func (m *mockGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if m.claimErr != nil {
		return false, m.claimErr
	}
	if m.claimed == nil {
		m.claimed = map[string]bool{}
	}
	if m.claimed[key] {
		return false, nil
	}
	m.claimed[key] = true
	return true, nil
}

func (m *mockGuard) Release(ctx context.Context, key string) error {
	m.released = append(m.released, key)
	delete(m.claimed, key)
	return nil
}
