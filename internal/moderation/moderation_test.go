package moderation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pigmap/internal/model"
)

// fakeStore mirrors the conditional UPDATE in the repository.
type fakeStore struct {
	mu      sync.Mutex
	reports map[string]int
	upvotes map[string]int
	hidden  map[string]bool
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reports: make(map[string]int),
		upvotes: make(map[string]int),
		hidden:  make(map[string]bool),
	}
}

func (s *fakeStore) add(id string, upvotes int) {
	s.reports[id] = 0
	s.upvotes[id] = upvotes
}

func (s *fakeStore) IncrementReports(ctx context.Context, id string, threshold int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	n, ok := s.reports[id]
	if !ok || s.hidden[id] {
		return false, model.ErrMarkerNotFound
	}
	n++
	s.reports[id] = n
	s.hidden[id] = ShouldHide(n, s.upvotes[id], threshold)
	return s.hidden[id], nil
}

type fakeGuard struct {
	mu      sync.Mutex
	keys    map[string]bool
	err     error
	release []string
}

func newFakeGuard() *fakeGuard { return &fakeGuard{keys: make(map[string]bool)} }

func (g *fakeGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	if g.keys[key] {
		return false, nil
	}
	g.keys[key] = true
	return true, nil
}

func (g *fakeGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	g.release = append(g.release, key)
	return nil
}

func TestShouldHide(t *testing.T) {
	tests := []struct {
		name    string
		reports int
		upvotes int
		want    bool
	}{
		{"below threshold", 4, 0, false},
		{"at threshold no upvotes", 5, 0, true},
		{"at threshold outweighed by upvotes", 5, 3, false},
		{"exactly twice upvotes is not enough", 6, 3, false},
		{"more than twice upvotes", 7, 3, true},
		{"zero", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldHide(tt.reports, tt.upvotes, DefaultThreshold))
		})
	}
}

func TestModerator_HidesAtThreshold(t *testing.T) {
	store := newFakeStore()
	store.add("m1", 0)
	mod := NewModerator(store, newFakeGuard(), 5)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		hidden, err := mod.Report(ctx, "m1", "reporter-"+string(rune('a'+i)))
		require.NoError(t, err)
		assert.False(t, hidden)
	}

	hidden, err := mod.Report(ctx, "m1", "reporter-z")
	require.NoError(t, err)
	assert.True(t, hidden)

	_, err = mod.Report(ctx, "m1", "reporter-y")
	assert.ErrorIs(t, err, model.ErrMarkerNotFound, "hidden markers cannot be reported")
}

func TestModerator_UpvotesProtect(t *testing.T) {
	store := newFakeStore()
	store.add("m1", 3)
	mod := NewModerator(store, newFakeGuard(), 5)

	var hidden bool
	var err error
	for i := 0; i < 5; i++ {
		hidden, err = mod.Report(context.Background(), "m1", "reporter-"+string(rune('a'+i)))
		require.NoError(t, err)
	}
	assert.False(t, hidden)
	assert.Equal(t, 5, store.reports["m1"])
}

func TestModerator_DuplicateReport(t *testing.T) {
	store := newFakeStore()
	store.add("m1", 0)
	mod := NewModerator(store, newFakeGuard(), 5)
	ctx := context.Background()

	_, err := mod.Report(ctx, "m1", "code-a")
	require.NoError(t, err)

	_, err = mod.Report(ctx, "m1", "code-a")
	assert.ErrorIs(t, err, model.ErrAlreadyReported)
	assert.Equal(t, 1, store.reports["m1"], "duplicate must not increment")
}

func TestModerator_ConcurrentDuplicates(t *testing.T) {
	store := newFakeStore()
	store.add("m1", 0)
	mod := NewModerator(store, newFakeGuard(), 5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok int
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := mod.Report(context.Background(), "m1", "code-a"); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, store.reports["m1"])
}

func TestModerator_NotFoundReleasesKey(t *testing.T) {
	guard := newFakeGuard()
	mod := NewModerator(newFakeStore(), guard, 5)

	_, err := mod.Report(context.Background(), "missing", "code-a")
	assert.ErrorIs(t, err, model.ErrMarkerNotFound)
	assert.Len(t, guard.release, 1)
	assert.Empty(t, guard.keys)
}

func TestModerator_RequiresReporter(t *testing.T) {
	mod := NewModerator(newFakeStore(), newFakeGuard(), 5)

	_, err := mod.Report(context.Background(), "m1", "  ")
	assert.ErrorIs(t, err, model.ErrMagicCodeRequired)
}

func TestModerator_GuardDown(t *testing.T) {
	guard := newFakeGuard()
	guard.err = errors.New("connection refused")
	store := newFakeStore()
	store.add("m1", 0)
	mod := NewModerator(store, guard, 5)

	_, err := mod.Report(context.Background(), "m1", "code-a")
	assert.ErrorIs(t, err, model.ErrServiceUnavailable)
	assert.Equal(t, 0, store.reports["m1"])
}
