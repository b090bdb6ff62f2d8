package http_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pigmap/internal/cache"
	"pigmap/internal/handler"
	"pigmap/internal/model"
	"pigmap/internal/moderation"
	"pigmap/internal/ratelimit"
	"pigmap/internal/realtime"
	"pigmap/internal/service"
	transport "pigmap/internal/transport/http"
)

// =============================================================================
// IN-MEMORY REPOSITORIES
// =============================================================================

type memStore struct {
	mu         sync.Mutex
	markers    map[string]*model.Marker
	comments   []model.Comment
	pseudonyms map[string]string
}

func newMemStore() *memStore {
	return &memStore{markers: map[string]*model.Marker{}, pseudonyms: map[string]string{}}
}

func (s *memStore) Create(ctx context.Context, m *model.Marker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.markers[m.ID] = &cp
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*model.Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markers[id]
	if !ok {
		return nil, model.ErrMarkerNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) List(ctx context.Context, includeArchived bool, limit int) ([]model.Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Marker{}
	for _, m := range s.markers {
		if m.Hidden || (m.Archived && !includeArchived) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) Delete(ctx context.Context, id string) ([]model.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markers[id]
	if !ok {
		return nil, model.ErrMarkerNotFound
	}
	delete(s.markers, id)
	return m.Media, nil
}

func (s *memStore) IncrementReports(ctx context.Context, id string, threshold int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markers[id]
	if !ok || m.Hidden {
		return false, model.ErrMarkerNotFound
	}
	m.ReportCount++
	m.Hidden = moderation.ShouldHide(m.ReportCount, m.UpvoteCount, threshold)
	return m.Hidden, nil
}

func (s *memStore) ArchiveExpired(ctx context.Context) (int64, error) { return 0, nil }

func (s *memStore) Add(ctx context.Context, u *model.Upvote, extension time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markers[u.MarkerID]
	if !ok || m.Archived {
		return 0, model.ErrMarkerNotFound
	}
	if u.Kind == model.UpvoteRegular {
		m.UpvoteCount++
	}
	return m.UpvoteCount, nil
}

type memComments struct{ s *memStore }

func (c memComments) Create(ctx context.Context, cm *model.Comment) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, ok := c.s.markers[cm.MarkerID]; !ok {
		return model.ErrMarkerNotFound
	}
	c.s.comments = append(c.s.comments, *cm)
	return nil
}

func (c memComments) CreateWithPseudonym(ctx context.Context, cm *model.Comment, code, candidate string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, ok := c.s.markers[cm.MarkerID]; !ok {
		return model.ErrMarkerNotFound
	}
	name, ok := c.s.pseudonyms[code]
	if !ok {
		name = candidate
		c.s.pseudonyms[code] = name
	}
	cm.Author = name
	c.s.comments = append(c.s.comments, *cm)
	return nil
}

func (c memComments) ListByMarker(ctx context.Context, markerID string) ([]model.Comment, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	var out []model.Comment
	for i := len(c.s.comments) - 1; i >= 0; i-- {
		if c.s.comments[i].MarkerID == markerID {
			out = append(out, c.s.comments[i])
		}
	}
	return out, nil
}

// =============================================================================
// HARNESS
// =============================================================================

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	router http.Handler
	store  *memStore
	redis  *miniredis.Miniredis
	clock  *testClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := newMemStore()
	guard := cache.NewActionGuard(client)
	limiter := ratelimit.NewLimiter(client, nil, ratelimit.WithClock(clock.Now))

	registry := realtime.NewRegistry(realtime.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = registry.Serve(ctx) }()
	t.Cleanup(cancel)

	markerService := service.NewMarkerService(store, registry, nil, 0)
	router := transport.NewRouter(transport.RouterConfig{
		MarkerHandler:   handler.NewMarkerHandler(markerService, moderation.NewModerator(store, guard, 2)),
		UpvoteHandler:   handler.NewUpvoteHandler(service.NewUpvoteService(store, guard)),
		CommentHandler:  handler.NewCommentHandler(service.NewCommentService(memComments{store})),
		MediaHandler:    handler.NewMediaHandler(nil),
		SearchHandler:   handler.NewSearchHandler(service.NewSearchService("http://127.0.0.1:1", "test", nil)),
		RealtimeHandler: handler.NewRealtimeHandler(registry),
		Limiter:         limiter,
		IdentityPolicy:  ratelimit.PolicyMagicCode,
		AllowedOrigins:  []string{"*"},
	})

	return &harness{router: router, store: store, redis: mr, clock: clock}
}

func (h *harness) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func markerBody(code string) map[string]interface{} {
	return map[string]interface{}{
		"title":       "Checkpoint",
		"type":        model.MarkerTypeCheckpoint,
		"description": "Two vehicles",
		"coords":      []float64{-122.41, 37.77},
		"magicCode":   code,
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeBody(t, rec, &resp)
	return resp.Error.Code
}

// =============================================================================
// TESTS
// =============================================================================

func TestCreateThenList(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/markers", markerBody(""), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created model.CreateMarkerResponse
	decodeBody(t, rec, &created)
	assert.True(t, created.Success)
	require.NotEmpty(t, created.ID)
	assert.Len(t, created.Marker.MagicCode, model.MagicCodeLength)

	rec = h.do(t, http.MethodGet, "/api/markers", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []map[string]interface{}
	decodeBody(t, rec, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0]["id"])
	assert.NotContains(t, listed[0], "magicCode")
}

func TestCreate_EscapesMarkup(t *testing.T) {
	h := newHarness(t)

	body := markerBody("")
	body["title"] = "<script>alert('x')</script>"
	rec := h.do(t, http.MethodPost, "/api/markers", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created model.CreateMarkerResponse
	decodeBody(t, rec, &created)
	assert.Equal(t, "&lt;script&gt;alert(&#x27;x&#x27;)&lt;&#x2F;script&gt;", created.Marker.Title)
}

func TestCreate_ValidationError(t *testing.T) {
	h := newHarness(t)

	body := markerBody("")
	body["coords"] = []float64{0, 95}
	rec := h.do(t, http.MethodPost, "/api/markers", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/markers", nil, nil)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestCreate_RateLimitedAfterFive(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 5; i++ {
		rec := h.do(t, http.MethodPost, "/api/markers", markerBody("samecode"), nil)
		require.Equal(t, http.StatusCreated, rec.Code, "request %d", i+1)
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := h.do(t, http.MethodPost, "/api/markers", markerBody("samecode"), nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, model.CodeRateLimited, errorCode(t, rec))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different code has its own bucket.
	rec = h.do(t, http.MethodPost, "/api/markers", markerBody("othercode"), nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	h.clock.Advance(time.Hour + time.Second)
	rec = h.do(t, http.MethodPost, "/api/markers", markerBody("samecode"), nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreate_LimiterStoreDown(t *testing.T) {
	h := newHarness(t)
	h.redis.Close()

	rec := h.do(t, http.MethodPost, "/api/markers", markerBody("code"), nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, model.CodeServiceUnavailable, errorCode(t, rec))
	assert.Empty(t, h.store.markers)
}

func TestDelete_TwiceThenNotFound(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/markers", markerBody("owner12345"), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.CreateMarkerResponse
	decodeBody(t, rec, &created)

	rec = h.do(t, http.MethodDelete, "/api/markers/"+created.ID, nil, map[string]string{"X-Magic-Code": "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodDelete, "/api/markers/"+created.ID, nil, map[string]string{"X-Magic-Code": "owner12345"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = h.do(t, http.MethodDelete, "/api/markers/"+created.ID, nil, map[string]string{"X-Magic-Code": "owner12345"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReport_DuplicateAndHide(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/markers", markerBody(""), nil)
	var created model.CreateMarkerResponse
	decodeBody(t, rec, &created)
	path := "/api/markers/" + created.ID + "/report"

	rec = h.do(t, http.MethodPost, path, map[string]string{"magicCode": "reporter1"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"hidden":false}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, path, map[string]string{"magicCode": "reporter1"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, model.CodeAlreadyReported, errorCode(t, rec))

	// Threshold is 2 in the harness.
	rec = h.do(t, http.MethodPost, path, map[string]string{"magicCode": "reporter2"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"hidden":true}`, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/api/markers", nil, nil)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = h.do(t, http.MethodPost, path, map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpvote_DuplicateIs429(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/markers", markerBody(""), nil)
	var created model.CreateMarkerResponse
	decodeBody(t, rec, &created)
	path := "/api/upvotes/" + created.ID

	rec = h.do(t, http.MethodPost, path, map[string]string{"type": "regular", "magicCode": "voter"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Upvoted successfully","upvotes":1}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, path, map[string]string{"type": "regular", "magicCode": "voter"}, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, model.CodeAlreadyUpvoted, errorCode(t, rec))

	rec = h.do(t, http.MethodPost, path, map[string]string{"magicCode": "voter"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComments_CreateAndList(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/markers", markerBody(""), nil)
	var created model.CreateMarkerResponse
	decodeBody(t, rec, &created)

	rec = h.do(t, http.MethodPost, "/api/comments", map[string]string{"markerId": created.ID, "text": "still there"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp model.CreateCommentResponse
	decodeBody(t, rec, &resp)
	assert.Len(t, resp.MagicCode, model.MagicCodeLength)

	rec = h.do(t, http.MethodPost, "/api/comments", map[string]string{"markerId": "missing", "text": "hi", "author": "Sam"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/comments/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var comments []model.Comment
	decodeBody(t, rec, &comments)
	require.Len(t, comments, 1)
	assert.Equal(t, "still there", comments[0].Text)
}

func TestComments_MarkupIsEscaped(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/markers", markerBody(""), nil)
	var created model.CreateMarkerResponse
	decodeBody(t, rec, &created)

	rec = h.do(t, http.MethodPost, "/api/comments", map[string]string{
		"markerId": created.ID,
		"text":     "<script>alert('x')</script>",
		"author":   "<img src=x>",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/api/comments/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var comments []model.Comment
	decodeBody(t, rec, &comments)
	require.Len(t, comments, 1)
	assert.Equal(t, "&lt;script&gt;alert(&#x27;x&#x27;)&lt;&#x2F;script&gt;", comments[0].Text)
	assert.Equal(t, "&lt;img src=x&gt;", comments[0].Author)
	assert.NotContains(t, rec.Body.String(), "<script>")
}

func TestUploadURL_DisabledWithoutBlobStore(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/upload-url", map[string]interface{}{
		"filename": "a.jpg", "contentType": "image/jpeg", "contentLength": 100,
	}, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, model.CodeServiceUnavailable, errorCode(t, rec))
}

func TestSearch_MissingQuery(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/search", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthStatsAndHeaders(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	rec = h.do(t, http.MethodGet, "/api/stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"activeSessions":0}`, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
