// Package ratelimit throttles claim attempts and public auth calls using Redis.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	fiberredis "github.com/gofiber/storage/redis/v3"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "incident-desk:ratelimit:"

// Module owns the Redis connections used for rate limiting. With an empty
// address it starts disabled and every limiter it hands out is nil.
type Module struct {
	redisAddr   string
	claimConfig Config
	client      *redis.Client
	storage     *fiberredis.Storage
	claim       *SlidingWindowLimiter
	logger      types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a rate limiting module. claimConfig bounds claim attempts
// per mediator.
func NewModule(redisAddr string, claimConfig Config, logger types.Logger) *Module {
	if claimConfig.RequestsPerWindow <= 0 {
		claimConfig.RequestsPerWindow = 10
	}
	if claimConfig.WindowSize <= 0 {
		claimConfig.WindowSize = time.Minute
	}
	return &Module{
		redisAddr:   redisAddr,
		claimConfig: claimConfig,
		logger:      logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "rate-limiter"
}

// Enabled reports whether a Redis address was configured.
func (m *Module) Enabled() bool {
	return m.redisAddr != ""
}

// Start connects to Redis.
func (m *Module) Start(ctx context.Context) error {
	if !m.Enabled() {
		m.logger.Info("Rate limiting disabled (REDIS_ADDR not set)")
		return nil
	}

	m.client = redis.NewClient(&redis.Options{Addr: m.redisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.client.Ping(pingCtx).Err(); err != nil {
		_ = m.client.Close()
		m.client = nil
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	host, port := parseRedisAddr(m.redisAddr)
	m.storage = fiberredis.New(fiberredis.Config{
		Host:     host,
		Port:     port,
		PoolSize: 10,
	})
	m.claim = NewSlidingWindowLimiter(m.client, m.claimConfig, keyPrefix+"claim:")

	m.logger.Info("Rate limiter connected", "addr", m.redisAddr,
		"claim_limit", m.claimConfig.RequestsPerWindow, "window", m.claimConfig.WindowSize)
	return nil
}

// Stop closes the Redis connections.
func (m *Module) Stop(_ context.Context) error {
	if m.storage != nil {
		if err := m.storage.Close(); err != nil {
			m.logger.Error("Error closing limiter storage", "error", err)
		}
	}
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			m.logger.Error("Error closing Redis connection", "error", err)
		}
	}
	m.logger.Info("Rate limiter stopped")
	return nil
}

// Health pings Redis when enabled.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if !m.Enabled() {
		return mono.HealthStatus{Healthy: true, Message: "disabled"}
	}
	if m.client == nil {
		return mono.HealthStatus{Healthy: false, Message: "Redis client not initialized"}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := m.client.Ping(pingCtx).Err(); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("Redis ping failed: %v", err)}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"addr": m.redisAddr},
	}
}

// ClaimLimiter returns the per-mediator claim limiter, or nil when disabled.
func (m *Module) ClaimLimiter() Limiter {
	if m.claim == nil {
		return nil
	}
	return m.claim
}

// Storage returns the Redis storage for Fiber's limiter middleware, or nil
// when disabled.
func (m *Module) Storage() *fiberredis.Storage {
	return m.storage
}

func parseRedisAddr(addr string) (string, int) {
	const defaultHost = "127.0.0.1"
	const defaultPort = 6379

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return defaultHost, defaultPort
	}
	if host == "" {
		host = defaultHost
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = defaultPort
	}
	return host, port
}
