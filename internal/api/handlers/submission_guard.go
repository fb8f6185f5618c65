package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wingufactory/moodboard/backend/internal/domain/providers"
	"github.com/wingufactory/moodboard/backend/pkg/config"
)

// SubmissionGuard limits how often one client may post feedback and
// suppresses repeated identical submissions. It uses the shared cache when
// available and falls back to process-local state otherwise.
type SubmissionGuard struct {
	cache       providers.CacheProvider
	limit       int
	rateWindow  time.Duration
	dedupWindow time.Duration
	local       *localRateLimiter
	deduper     *localDeduper
}

// NewSubmissionGuard creates a guard. cache may be nil.
func NewSubmissionGuard(cache providers.CacheProvider, cfg config.FeedbackConfig) *SubmissionGuard {
	return &SubmissionGuard{
		cache:       cache,
		limit:       cfg.RateLimit,
		rateWindow:  cfg.RateWindow,
		dedupWindow: cfg.DedupWindow,
		local:       newLocalRateLimiter(),
		deduper:     newLocalDeduper(),
	}
}

// Allow reports whether the client identified by ip may submit now, and
// how long to wait otherwise.
func (g *SubmissionGuard) Allow(ctx context.Context, ip string) (bool, time.Duration) {
	key := "feedback:rate:" + ip
	if g.cache == nil {
		return g.local.allow(key, g.limit, g.rateWindow)
	}

	count, err := g.cache.Incr(ctx, key, int(g.rateWindow.Seconds()))
	if err != nil {
		log.Warn().Err(err).Msg("rate limit cache unavailable, using local limiter")
		return g.local.allow(key, g.limit, g.rateWindow)
	}
	if count > int64(g.limit) {
		return false, g.rateWindow
	}
	return true, 0
}

// Duplicate reports whether fingerprint was already seen inside the dedup
// window, recording it otherwise.
func (g *SubmissionGuard) Duplicate(ctx context.Context, fingerprint string) bool {
	key := "feedback:dup:" + fingerprint
	if g.cache == nil {
		return g.deduper.seen(key, g.dedupWindow)
	}

	stored, err := g.cache.SetNX(ctx, key, []byte("1"), int(g.dedupWindow.Seconds()))
	if err != nil {
		log.Warn().Err(err).Msg("dedup cache unavailable, using local deduper")
		return g.deduper.seen(key, g.dedupWindow)
	}
	return !stored
}

type localRateLimiter struct {
	mu     sync.Mutex
	states map[string]*localRateState
}

type localRateState struct {
	count   int
	resetAt time.Time
}

func newLocalRateLimiter() *localRateLimiter {
	return &localRateLimiter{
		states: make(map[string]*localRateState),
	}
}

func (l *localRateLimiter) allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.states[key]
	if !ok || now.After(state.resetAt) {
		// sweep expired windows before opening a new one
		for k, s := range l.states {
			if now.After(s.resetAt) {
				delete(l.states, k)
			}
		}
		state = &localRateState{resetAt: now.Add(window)}
		l.states[key] = state
	}

	if state.count >= limit {
		retryAfter := state.resetAt.Sub(now)
		if retryAfter <= 0 {
			retryAfter = window
		}
		return false, retryAfter
	}

	state.count++
	return true, 0
}

type localDeduper struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func newLocalDeduper() *localDeduper {
	return &localDeduper{
		entries: make(map[string]time.Time),
	}
}

func (d *localDeduper) seen(key string, window time.Duration) bool {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if expiresAt, ok := d.entries[key]; ok && now.Before(expiresAt) {
		return true
	}

	// sweep expired entries while we hold the lock
	for k, expiresAt := range d.entries {
		if !now.Before(expiresAt) {
			delete(d.entries, k)
		}
	}

	d.entries[key] = now.Add(window)
	return false
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func feedbackFingerprint(payload feedbackRequest, ip string) string {
	normalized := []string{
		strconv.Itoa(payload.Rating),
		normalizeText(payload.UserName),
		normalizeText(payload.Comments),
		ip,
	}

	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}

func normalizeText(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}
