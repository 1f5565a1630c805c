package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)          {}
func (m *mockLogger) Info(msg string, args ...any)           {}
func (m *mockLogger) Warn(msg string, args ...any)           {}
func (m *mockLogger) Error(msg string, args ...any)          {}
func (m *mockLogger) With(args ...any) types.Logger          { return m }
func (m *mockLogger) WithError(err error) types.Logger       { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

// countingLimiter allows the first limit calls per key.
type countingLimiter struct {
	limit int
	seen  map[string]int
	err   error
}

func newCountingLimiter(limit int) *countingLimiter {
	return &countingLimiter{limit: limit, seen: make(map[string]int)}
}

func (l *countingLimiter) Allow(_ context.Context, key string) (*Result, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.seen[key]++
	n := l.seen[key]
	if n > l.limit {
		return &Result{Allowed: false, ResetAt: time.Now().Add(time.Minute), RetryAfter: 30 * time.Second}, nil
	}
	return &Result{Allowed: true, Remaining: l.limit - n, ResetAt: time.Now().Add(time.Minute)}, nil
}

func (l *countingLimiter) Limit() int { return l.limit }

func headerKey(c *fiber.Ctx) string { return c.Get("X-Actor") }

func newTestApp(limiter Limiter) *fiber.App {
	app := fiber.New()
	app.Post("/claim", Handler(limiter, headerKey, &mockLogger{}), func(c *fiber.Ctx) error {
		return c.SendString("claimed")
	})
	return app
}

func TestHandler_LimitsPerKey(t *testing.T) {
	app := newTestApp(newCountingLimiter(2))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/claim", nil)
		req.Header.Set("X-Actor", "m1")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if resp.StatusCode != 200 {
			t.Errorf("Attempt %d: expected status 200, got %d", i+1, resp.StatusCode)
		}
		if got := resp.Header.Get("X-RateLimit-Limit"); got != "2" {
			t.Errorf("Expected X-RateLimit-Limit=2, got %s", got)
		}
	}

	req := httptest.NewRequest("POST", "/claim", nil)
	req.Header.Set("X-Actor", "m1")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("Expected status 429, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Retry-After"); got != "30" {
		t.Errorf("Expected Retry-After=30, got %q", got)
	}

	body, _ := io.ReadAll(resp.Body)
	var payload map[string]string
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("429 body is not JSON: %s", body)
	}
	if payload["error"] != "rate_limited" {
		t.Errorf("Expected error=rate_limited, got %q", payload["error"])
	}

	req = httptest.NewRequest("POST", "/claim", nil)
	req.Header.Set("X-Actor", "m2")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Another actor should not be limited, got %d", resp.StatusCode)
	}
}

func TestHandler_FailsOpen(t *testing.T) {
	limiter := newCountingLimiter(1)
	limiter.err = errors.New("connection refused")
	app := newTestApp(limiter)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/claim", nil)
		req.Header.Set("X-Actor", "m1")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if resp.StatusCode != 200 {
			t.Errorf("Limiter failure should let the request through, got %d", resp.StatusCode)
		}
	}
}

func TestHandler_NilLimiterIsDisabled(t *testing.T) {
	app := newTestApp(nil)

	req := httptest.NewRequest("POST", "/claim", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-RateLimit-Limit") != "" {
		t.Error("Disabled limiter should not set headers")
	}
}

func TestHandler_EmptyKeyFallsBackToIP(t *testing.T) {
	limiter := newCountingLimiter(5)
	app := newTestApp(limiter)

	req := httptest.NewRequest("POST", "/claim", nil)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(limiter.seen) != 1 {
		t.Fatalf("Expected one key, got %v", limiter.seen)
	}
	for key := range limiter.seen {
		if key == "" {
			t.Error("Empty key should have been replaced by the client IP")
		}
	}
}

func TestModule_DisabledWithoutAddr(t *testing.T) {
	m := NewModule("", Config{}, &mockLogger{})
	ctx := context.Background()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop(ctx)

	if m.Enabled() {
		t.Error("module should be disabled")
	}
	if m.ClaimLimiter() != nil {
		t.Error("ClaimLimiter should be nil when disabled")
	}
	if m.Storage() != nil {
		t.Error("Storage should be nil when disabled")
	}
	if !m.Health(ctx).Healthy {
		t.Error("disabled module should report healthy")
	}
}
