// Package storage owns the connection to the casework store and hands it to
// the modules that need it.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/example/incident-desk/domain/casework"
	"github.com/example/incident-desk/modules/storage/pgstore"
	"github.com/example/incident-desk/modules/storage/sqlstore"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and locates the store backend.
type Config struct {
	Driver      string
	Path        string
	DatabaseURL string
	Debug       bool
}

// StorageModule opens the configured store on Start and closes it on Stop.
type StorageModule struct {
	config Config
	store  casework.Store
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*StorageModule)(nil)
var _ mono.HealthCheckableModule = (*StorageModule)(nil)

// NewModule creates a StorageModule for config.
func NewModule(config Config, logger types.Logger) *StorageModule {
	if config.Driver == "" {
		config.Driver = DriverSQLite
	}
	if config.Path == "" {
		config.Path = "incident_desk.db"
	}
	return &StorageModule{config: config, logger: logger}
}

// NewModuleWithStore wraps an already open store.
func NewModuleWithStore(store casework.Store, logger types.Logger) *StorageModule {
	return &StorageModule{config: Config{Driver: "injected"}, store: store, logger: logger}
}

func (m *StorageModule) Name() string {
	return "storage"
}

// Store returns the open store, or nil before Start.
func (m *StorageModule) Store() casework.Store {
	return m.store
}

func (m *StorageModule) Start(ctx context.Context) error {
	if m.store != nil {
		m.logger.Info("Storage module started with injected store")
		return nil
	}

	switch m.config.Driver {
	case DriverSQLite:
		s, err := sqlstore.Open(m.config.Path, m.config.Debug)
		if err != nil {
			return err
		}
		m.store = s
		m.logger.Info("Storage module started", "driver", DriverSQLite, "path", m.config.Path)
	case DriverPostgres:
		if m.config.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s driver", DriverPostgres)
		}
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		s, err := pgstore.Open(openCtx, m.config.DatabaseURL)
		if err != nil {
			return err
		}
		m.store = s
		m.logger.Info("Storage module started", "driver", DriverPostgres)
	default:
		return fmt.Errorf("unknown store driver %q", m.config.Driver)
	}
	return nil
}

func (m *StorageModule) Stop(_ context.Context) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.Close(); err != nil {
		m.logger.Error("Failed to close store", "error", err)
		return fmt.Errorf("failed to close store: %w", err)
	}
	m.logger.Info("Storage module stopped")
	return nil
}

// Health pings the store.
func (m *StorageModule) Health(ctx context.Context) mono.HealthStatus {
	if m.store == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "store not initialized",
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := m.store.Ping(pingCtx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("store ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": m.config.Driver,
		},
	}
}
