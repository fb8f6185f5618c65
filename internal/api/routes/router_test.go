package routes_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingufactory/moodboard/backend/internal/adapters/events"
	"github.com/wingufactory/moodboard/backend/internal/api/handlers"
	"github.com/wingufactory/moodboard/backend/internal/api/middleware"
	"github.com/wingufactory/moodboard/backend/internal/api/routes"
	"github.com/wingufactory/moodboard/backend/internal/application/services"
	"github.com/wingufactory/moodboard/backend/internal/domain/entities"
	"github.com/wingufactory/moodboard/backend/internal/domain/providers"
	"github.com/wingufactory/moodboard/backend/pkg/config"
)

type memoryFeedbackRepo struct {
	mu        sync.Mutex
	items     []*entities.Feedback
	findCalls int
}

func (r *memoryFeedbackRepo) FindAll(ctx context.Context) ([]*entities.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	out := make([]*entities.Feedback, len(r.items))
	copy(out, r.items)
	return out, nil
}

func (r *memoryFeedbackRepo) Create(ctx context.Context, feedback *entities.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, feedback)
	return nil
}

func (r *memoryFeedbackRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findCalls
}

type countingSearch struct {
	mu    sync.Mutex
	count int
}

func (s *countingSearch) Index(ctx context.Context, feedback *entities.Feedback) error { return nil }

func (s *countingSearch) Search(ctx context.Context, query string, limit int) ([]*entities.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return []*entities.Feedback{{ID: "1", UserName: "Alice", Comments: "Super !", Rating: 5}}, nil
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.data[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return value, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = append([]byte(nil), value...)
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *memoryCache) Incr(ctx context.Context, key string, expirationSeconds int) (int64, error) {
	return 1, nil
}

func (c *memoryCache) SetNX(ctx context.Context, key string, value []byte, expirationSeconds int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; ok {
		return false, nil
	}
	c.data[key] = value
	return true, nil
}

func newTestHandler(t *testing.T, repo *memoryFeedbackRepo, search *countingSearch) http.Handler {
	t.Helper()
	bus := events.NewMemoryEventBus()
	t.Cleanup(func() { bus.Close() })

	cache := newMemoryCache()
	service := services.NewFeedbackService(repo, services.WithSearch(search), services.WithEventBus(bus))
	guard := handlers.NewSubmissionGuard(cache, config.FeedbackConfig{
		RateLimit:   5,
		RateWindow:  time.Hour,
		DedupWindow: time.Hour,
	})

	router := routes.NewRouter(
		handlers.NewFeedbackHandler(service, guard),
		handlers.NewHealthHandler(nil),
		handlers.NewSSEHandler(bus),
		middleware.NewCacheMiddleware(cache, nil),
		nil,
		[]string{"http://localhost:3000"},
	)
	return router.SetupRoutes()
}

func TestRouter_ListFeedbackReadsStorageEveryTime(t *testing.T) {
	repo := &memoryFeedbackRepo{items: []*entities.Feedback{
		{ID: "1", UserName: "Alice", Comments: "Super !", Rating: 5},
		{ID: "2", UserName: "Bob", Comments: "Great !", Rating: 4},
	}}
	handler := newTestHandler(t, repo, &countingSearch{})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/feedback", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-Cache"))
		assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

		var items []entities.Feedback
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
		require.Len(t, items, 2)
		assert.Equal(t, "Alice", items[0].UserName)
		assert.Equal(t, "Bob", items[1].UserName)
	}

	assert.Equal(t, 2, repo.calls())
}

func TestRouter_SubmitThenList(t *testing.T) {
	repo := &memoryFeedbackRepo{}
	handler := newTestHandler(t, repo, &countingSearch{})

	req := httptest.NewRequest(http.MethodPost, "/api/feedback",
		strings.NewReader(`{"userName":"Carol","comments":"Nice board","rating":3}`))
	req.RemoteAddr = "10.0.0.7:5555"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/feedback", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var items []entities.Feedback
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Carol", items[0].UserName)
	assert.Equal(t, 3, items[0].Rating)
}

func TestRouter_SearchIsCached(t *testing.T) {
	search := &countingSearch{}
	handler := newTestHandler(t, &memoryFeedbackRepo{}, search)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/feedback/search?q=super", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/feedback/search?q=super", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Contains(t, w.Body.String(), "Alice")

	assert.Equal(t, 1, search.count)
}

func TestRouter_Preflight(t *testing.T) {
	handler := newTestHandler(t, &memoryFeedbackRepo{}, &countingSearch{})

	req := httptest.NewRequest(http.MethodOptions, "/api/feedback", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_Health(t *testing.T) {
	handler := newTestHandler(t, &memoryFeedbackRepo{}, &countingSearch{})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

// readEvent reads one server-sent event and returns its name and data.
func readEvent(t *testing.T, reader *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestRouter_SubmittedFeedbackIsStreamed(t *testing.T) {
	server := httptest.NewServer(newTestHandler(t, &memoryFeedbackRepo{}, &countingSearch{}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/stream/feedback", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	name, _ := readEvent(t, reader)
	require.Equal(t, "connected", name)

	post, err := server.Client().Post(server.URL+"/api/feedback", "application/json",
		strings.NewReader(`{"userName":"Carol","comments":"Nice board","rating":3}`))
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusCreated, post.StatusCode)

	name, data := readEvent(t, reader)
	assert.Equal(t, string(entities.FeedbackEventTypeCreated), name)

	var event entities.FeedbackEvent
	require.NoError(t, json.Unmarshal([]byte(data), &event))
	require.NotNil(t, event.Feedback)
	assert.Equal(t, "Carol", event.Feedback.UserName)
	assert.Equal(t, 3, event.Feedback.Rating)
}

func TestSetupStreamRoutes_Stats(t *testing.T) {
	bus := events.NewMemoryEventBus()
	defer bus.Close()

	handler := routes.SetupStreamRoutes(handlers.NewSSEHandler(bus), handlers.NewHealthHandler(nil), nil)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stream/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "connected_clients")
}
