package handlers

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/wingufactory/moodboard/backend/pkg/config"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	return m.Called(ctx, key, value, expirationSeconds).Error(0)
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockCache) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockCache) Incr(ctx context.Context, key string, expirationSeconds int) (int64, error) {
	args := m.Called(ctx, key, expirationSeconds)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCache) SetNX(ctx context.Context, key string, value []byte, expirationSeconds int) (bool, error) {
	args := m.Called(ctx, key, value, expirationSeconds)
	return args.Bool(0), args.Error(1)
}

var guardConfig = config.FeedbackConfig{RateLimit: 2, RateWindow: time.Hour, DedupWindow: 24 * time.Hour}

func TestSubmissionGuard_AllowUsesCacheCounter(t *testing.T) {
	cache := new(mockCache)
	guard := NewSubmissionGuard(cache, guardConfig)

	cache.On("Incr", mock.Anything, "feedback:rate:10.0.0.1", 3600).Return(int64(2), nil).Once()
	cache.On("Incr", mock.Anything, "feedback:rate:10.0.0.1", 3600).Return(int64(3), nil).Once()

	allowed, _ := guard.Allow(context.Background(), "10.0.0.1")
	assert.True(t, allowed)

	allowed, retryAfter := guard.Allow(context.Background(), "10.0.0.1")
	assert.False(t, allowed)
	assert.Equal(t, time.Hour, retryAfter)
	cache.AssertExpectations(t)
}

func TestSubmissionGuard_FallsBackWhenCacheFails(t *testing.T) {
	cache := new(mockCache)
	guard := NewSubmissionGuard(cache, guardConfig)

	cache.On("Incr", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("redis down"))
	cache.On("SetNX", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))

	for i := 0; i < 2; i++ {
		allowed, _ := guard.Allow(context.Background(), "10.0.0.1")
		assert.True(t, allowed)
	}
	allowed, _ := guard.Allow(context.Background(), "10.0.0.1")
	assert.False(t, allowed)

	assert.False(t, guard.Duplicate(context.Background(), "abc"))
	assert.True(t, guard.Duplicate(context.Background(), "abc"))
}

func TestSubmissionGuard_DuplicateUsesSetNX(t *testing.T) {
	cache := new(mockCache)
	guard := NewSubmissionGuard(cache, guardConfig)

	cache.On("SetNX", mock.Anything, "feedback:dup:abc", []byte("1"), 86400).Return(true, nil).Once()
	cache.On("SetNX", mock.Anything, "feedback:dup:abc", []byte("1"), 86400).Return(false, nil).Once()

	assert.False(t, guard.Duplicate(context.Background(), "abc"))
	assert.True(t, guard.Duplicate(context.Background(), "abc"))
}

func TestLocalDeduper_ExpiresEntries(t *testing.T) {
	d := newLocalDeduper()

	assert.False(t, d.seen("k", time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	assert.False(t, d.seen("k", time.Hour))
	assert.True(t, d.seen("k", time.Hour))
}

func TestLocalRateLimiter_SweepsExpiredWindows(t *testing.T) {
	l := newLocalRateLimiter()

	for _, ip := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		allowed, _ := l.allow("feedback:rate:"+ip, 5, time.Millisecond)
		assert.True(t, allowed)
	}
	time.Sleep(5 * time.Millisecond)

	allowed, _ := l.allow("feedback:rate:198.51.100.7", 5, time.Hour)
	assert.True(t, allowed)

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.states, 1)
	assert.Contains(t, l.states, "feedback:rate:198.51.100.7")
}

func TestLocalRateLimiter_BlocksAfterLimit(t *testing.T) {
	l := newLocalRateLimiter()

	for i := 0; i < 2; i++ {
		allowed, _ := l.allow("k", 2, time.Hour)
		assert.True(t, allowed)
	}
	allowed, retryAfter := l.allow("k", 2, time.Hour)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/feedback", nil)
	req.RemoteAddr = "192.168.1.10:5555"
	assert.Equal(t, "192.168.1.10", clientIP(req))

	req.Header.Set("X-Real-IP", "172.16.0.2")
	assert.Equal(t, "172.16.0.2", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))
}

func TestFeedbackFingerprint_NormalizesText(t *testing.T) {
	a := feedbackFingerprint(feedbackRequest{UserName: "Alice", Comments: "Super  !", Rating: 5}, "1.1.1.1")
	b := feedbackFingerprint(feedbackRequest{UserName: " alice", Comments: "super !", Rating: 5}, "1.1.1.1")
	c := feedbackFingerprint(feedbackRequest{UserName: "Alice", Comments: "Super !", Rating: 4}, "1.1.1.1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
