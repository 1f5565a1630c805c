// Package api is the HTTP driving adapter of the incident desk.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/example/incident-desk/clock"
	"github.com/example/incident-desk/domain/casework"
	"github.com/example/incident-desk/modules/account"
	"github.com/example/incident-desk/modules/audit"
	"github.com/example/incident-desk/modules/lifecycle"
	"github.com/example/incident-desk/modules/ratelimit"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	nanoid "github.com/jaevor/go-nanoid"
)

// Config holds the HTTP server settings.
type Config struct {
	Port           int
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// RouteLimits are the throttling handlers placed in front of the public auth
// routes and the claim route. Nil entries disable throttling.
type RouteLimits struct {
	Auth  fiber.Handler
	Claim fiber.Handler
}

// APIModule serves the REST API. It reaches the other modules only through
// their ports.
type APIModule struct {
	config   Config
	clock    clock.Clock
	loc      *time.Location
	limits   *ratelimit.Module
	app      *fiber.App
	tasks    lifecycle.LifecyclePort
	accounts account.AccountPort
	trail    audit.AuditPort
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule. limits may be nil, in which case the auth
// routes use Fiber's in-memory limiter and claims are not throttled.
func NewModule(config Config, clk clock.Clock, loc *time.Location, limits *ratelimit.Module, logger types.Logger) *APIModule {
	if config.Port == 0 {
		config.Port = 3000
	}
	if config.AuthRateWindow <= 0 {
		config.AuthRateWindow = time.Minute
	}
	return &APIModule{
		config: config,
		clock:  clk,
		loc:    loc,
		limits: limits,
		logger: logger,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"account", "lifecycle", "audit"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "account":
		m.accounts = account.NewAccountAdapter(container)
	case "lifecycle":
		m.tasks = lifecycle.NewLifecycleAdapter(container)
	case "audit":
		m.trail = audit.NewAuditAdapter(container)
	}
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.accounts == nil || m.tasks == nil || m.trail == nil {
		return fmt.Errorf("api dependencies not set")
	}

	handlers := NewHandlers(m.tasks, m.accounts, m.trail, m.clock, m.loc, m.logger)
	m.app = newApp(handlers, m.accounts, m.routeLimits())

	addr := fmt.Sprintf(":%d", m.config.Port)
	go func() {
		if err := m.app.Listen(addr); err != nil {
			m.logger.Error("HTTP server error", "error", err)
		}
	}()

	m.logger.Info("HTTP server started", "addr", addr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(_ context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server...")
	return m.app.Shutdown()
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	if m.app == nil {
		return mono.HealthStatus{Healthy: false, Message: "server not started"}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"port": m.config.Port,
		},
	}
}

func (m *APIModule) routeLimits() RouteLimits {
	var limits RouteLimits

	if m.config.AuthRateLimit > 0 {
		cfg := limiter.Config{
			Max:               m.config.AuthRateLimit,
			Expiration:        m.config.AuthRateWindow,
			LimiterMiddleware: limiter.SlidingWindow{},
			KeyGenerator: func(c *fiber.Ctx) string {
				return "auth:" + c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
					Error:   "rate_limited",
					Message: "Too many authentication attempts, try again later",
				})
			},
		}
		if m.limits != nil {
			if storage := m.limits.Storage(); storage != nil {
				cfg.Storage = storage
			}
		}
		limits.Auth = limiter.New(cfg)
	}

	if m.limits != nil {
		if claimLimiter := m.limits.ClaimLimiter(); claimLimiter != nil {
			limits.Claim = ratelimit.Handler(claimLimiter, actorKey, m.logger)
		}
	}
	return limits
}

// newApp builds the Fiber application with its middleware and routes.
func newApp(h *Handlers, accounts account.AccountPort, limits RouteLimits) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: newRequestIDGenerator(),
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path} ${locals:requestid}\n",
	}))
	app.Use(cors.New())

	setupRoutes(app, h, accounts, limits)
	return app
}

// setupRoutes configures all API routes.
func setupRoutes(app *fiber.App, h *Handlers, accounts account.AccountPort, limits RouteLimits) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(HealthResponse{
			Status:  "healthy",
			Details: map[string]any{"module": "api"},
		})
	})

	v1 := app.Group("/api/v1")

	// Public auth routes
	authRoutes := v1.Group("/auth", passThrough(limits.Auth))
	authRoutes.Post("/register", h.Register)
	authRoutes.Post("/login", h.Login)
	authRoutes.Post("/refresh", h.Refresh)

	requester := RequireRole(casework.RoleRequester)
	mediator := RequireRole(casework.RoleMediator)

	protected := v1.Group("", AuthMiddleware(accounts))
	protected.Get("/me", h.Me)
	protected.Get("/mediators", h.Mediators)
	protected.Get("/active-case", h.ActiveCase)
	protected.Get("/queue", mediator, h.Queue)

	protected.Post("/tasks", requester, h.CreateTask)
	protected.Get("/tasks/mine", h.MyTasks)
	protected.Get("/tasks/:id", h.GetTask)
	protected.Post("/tasks/:id/claim", mediator, passThrough(limits.Claim), h.ClaimTask)
	protected.Post("/tasks/:id/resolve", mediator, h.ResolveTask)
	protected.Post("/tasks/:id/complete", requester, h.CompleteTask)

	admin := protected.Group("/admin", RequireRole(casework.RoleAdmin))
	admin.Get("/integrity", h.Integrity)
	admin.Get("/audit", h.Audit)
}

func passThrough(h fiber.Handler) fiber.Handler {
	if h != nil {
		return h
	}
	return func(c *fiber.Ctx) error { return c.Next() }
}

// newRequestIDGenerator returns a nanoid generator, falling back to Fiber's
// UUID generator if the alphabet setup fails.
func newRequestIDGenerator() func() string {
	gen, err := nanoid.Standard(21)
	if err != nil {
		return requestid.ConfigDefault.Generator
	}
	return gen
}
