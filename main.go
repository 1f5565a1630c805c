// Incident Desk - a task assignment service for reported incidents.
//
// Requesters file incidents, mediators claim them from a FIFO queue and
// resolve them, and requesters close them with a final note. Every actor
// holds at most one active case at a time.
package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/example/incident-desk/clock"
	"github.com/example/incident-desk/modules/account"
	"github.com/example/incident-desk/modules/api"
	"github.com/example/incident-desk/modules/audit"
	"github.com/example/incident-desk/modules/lifecycle"
	"github.com/example/incident-desk/modules/ratelimit"
	"github.com/example/incident-desk/modules/storage"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	httpPort := getEnvInt("HTTP_PORT", 3000)
	storeDriver := getEnv("STORE_DRIVER", storage.DriverSQLite)
	storeTimeout := getEnvDuration("STORE_TIMEOUT", lifecycle.DefaultStoreTimeout)
	zone := getEnv("TIMEZONE", clock.DefaultZone)
	redisAddr := getEnv("REDIS_ADDR", "")

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	clk, ok := clock.NewLocal(zone)
	if !ok {
		logger.Warn("Time zone not found, using fixed UTC-6", "zone", zone)
	}

	jwtConfig := account.DefaultJWTConfig()
	jwtConfig.SecretKey = getEnv("JWT_SECRET_KEY", jwtConfig.SecretKey)
	jwtConfig.Issuer = getEnv("JWT_ISSUER", jwtConfig.Issuer)
	jwtConfig.AccessTokenDuration = time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute
	if os.Getenv("JWT_SECRET_KEY") == "" {
		logger.Warn("JWT_SECRET_KEY not set, using the development secret")
	}

	// Create modules
	storageModule := storage.NewModule(storage.Config{
		Driver:      storeDriver,
		Path:        getEnv("DATABASE_PATH", "incident_desk.db"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Debug:       getEnvBool("DB_DEBUG", false),
	}, logger)
	accountModule := account.NewModule(account.Config{
		JWT:      jwtConfig,
		SeedFile: getEnv("SEED_FILE", ""),
		SeedDemo: getEnvBool("SEED_DEMO", false),
	}, storageModule, clk, logger)
	lifecycleModule := lifecycle.NewModule(storageModule, clk, storeTimeout, logger)
	auditModule := audit.NewModule(getEnvInt("AUDIT_MAX_ENTRIES", audit.DefaultMaxEntries), logger)
	rateLimitModule := ratelimit.NewModule(redisAddr, ratelimit.Config{
		RequestsPerWindow: getEnvInt("CLAIM_RATE_LIMIT", 10),
		WindowSize:        time.Minute,
	}, logger)
	apiModule := api.NewModule(api.Config{
		Port:           httpPort,
		AuthRateLimit:  getEnvInt("LOGIN_RATE_LIMIT", 20),
		AuthRateWindow: time.Minute,
	}, clk, clk.Location(), rateLimitModule, logger)

	// Register modules (order matters: storage and rate limiter are injected
	// by pointer and must start first)
	app.Register(storageModule)
	app.Register(rateLimitModule)
	app.Register(accountModule)
	app.Register(lifecycleModule)
	app.Register(auditModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	logger.Info("Configuration",
		"http_port", httpPort,
		"store_driver", storeDriver,
		"store_timeout", storeTimeout,
		"timezone", clk.Location().String(),
		"rate_limiting", redisAddr != "")
	printStartupInfo(httpPort)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				logger.Info("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(port int) {
	log.Println("")
	log.Println("Incident Desk started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%d):", port)
	log.Println("  GET  /health                         - Health check")
	log.Println("  POST /api/v1/auth/register           - Open a requester account")
	log.Println("  POST /api/v1/auth/login              - Exchange code and password for tokens")
	log.Println("  POST /api/v1/auth/refresh            - Renew a token pair")
	log.Println("  GET  /api/v1/me                      - Current actor profile")
	log.Println("  GET  /api/v1/mediators               - List mediators")
	log.Println("  POST /api/v1/tasks                   - File an incident (requester)")
	log.Println("  GET  /api/v1/tasks/mine              - Own tasks, ?state=&limit=&offset=")
	log.Println("  GET  /api/v1/tasks/:id               - Task detail")
	log.Println("  GET  /api/v1/queue                   - Open tasks, oldest first (mediator)")
	log.Println("  POST /api/v1/tasks/:id/claim         - Claim an open task (mediator)")
	log.Println("  POST /api/v1/tasks/:id/resolve       - Resolve a claimed task (mediator)")
	log.Println("  POST /api/v1/tasks/:id/complete      - Close a resolved task (requester)")
	log.Println("  GET  /api/v1/active-case             - The task you currently hold")
	log.Println("  GET  /api/v1/admin/integrity         - Active-case consistency report (admin)")
	log.Println("  GET  /api/v1/admin/audit             - Recent lifecycle events (admin)")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default value.
// Logs a warning if the value cannot be parsed as an integer.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
		log.Printf("Warning: invalid integer value for %s: %q, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration parses values like "5s" or "250ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if result, err := time.ParseDuration(value); err == nil && result > 0 {
			return result
		}
		log.Printf("Warning: invalid duration value for %s: %q, using default %s", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseBool(value); err == nil {
			return result
		}
		log.Printf("Warning: invalid boolean value for %s: %q, using default %t", key, value, defaultValue)
	}
	return defaultValue
}
