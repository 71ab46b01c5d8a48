package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/civiport/civiport/infrastructure/service/logger"
)

type countingLimiter struct {
	counts     map[string]int
	blocked    map[string]bool
	increments int
}

func newCountingLimiter() *countingLimiter {
	return &countingLimiter{
		counts:  make(map[string]int),
		blocked: make(map[string]bool),
	}
}

func (l *countingLimiter) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return l.counts[key] < limit, nil
}

func (l *countingLimiter) Increment(ctx context.Context, key string, window time.Duration) error {
	l.counts[key]++
	l.increments++
	return nil
}

func (l *countingLimiter) Block(ctx context.Context, key string, duration time.Duration, reason string) error {
	l.blocked[key] = true
	return nil
}

func (l *countingLimiter) IsBlocked(ctx context.Context, key string) (bool, error) {
	return l.blocked[key], nil
}

func (l *countingLimiter) GetAttempts(ctx context.Context, key string) (int, error) {
	return l.counts[key], nil
}

type noopLogger struct{}

func (l *noopLogger) Info(ctx context.Context, message string, fields map[string]interface{}) {}
func (l *noopLogger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
}
func (l *noopLogger) Warn(ctx context.Context, message string, fields map[string]interface{})  {}
func (l *noopLogger) Debug(ctx context.Context, message string, fields map[string]interface{}) {}
func (l *noopLogger) WithFields(fields map[string]interface{}) logger.Logger                   { return l }

func TestRateLimitEngages(t *testing.T) {
	limiter := newCountingLimiter()
	m := NewRateLimitMiddleware(limiter, &noopLogger{})

	handler := m.RateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", nil)
		req.RemoteAddr = "203.0.113.7:4411"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// Register allows 5 per window from one IP.
	for i := 0; i < 5; i++ {
		if code := send(); code != http.StatusCreated {
			t.Fatalf("Request %d should pass, got %d", i+1, code)
		}
	}
	if limiter.increments != 5 {
		t.Errorf("Expected 5 counter increments, got %d", limiter.increments)
	}

	if code := send(); code != http.StatusTooManyRequests {
		t.Errorf("Request over the limit should get 429, got %d", code)
	}
	if !limiter.blocked["register:ip:203.0.113.7"] {
		t.Error("Exceeding the limit should block the key")
	}

	// Blocked keys stay rejected without reaching the handler.
	if code := send(); code != http.StatusTooManyRequests {
		t.Errorf("Blocked IP should get 429, got %d", code)
	}
	if limiter.increments != 5 {
		t.Errorf("Rejected requests should not increment the counter, got %d", limiter.increments)
	}
}

func TestRateLimitSeparatesClients(t *testing.T) {
	limiter := newCountingLimiter()
	m := NewRateLimitMiddleware(limiter, &noopLogger{})

	handler := m.RateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", nil)
		req.RemoteAddr = ip + ":4411"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 6; i++ {
		send("203.0.113.7")
	}
	if code := send("203.0.113.8"); code != http.StatusOK {
		t.Errorf("A different IP should not share the exhausted limit, got %d", code)
	}
}
