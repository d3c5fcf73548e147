// Package storage selects the repository.Store implementation from configuration.
package storage

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/xchicks/internal/config"
	"github.com/mamadbah2/xchicks/internal/repository"
	"github.com/mamadbah2/xchicks/internal/repository/memory"
	"github.com/mamadbah2/xchicks/internal/repository/sqlstore"
)

// Open returns the configured store and a function releasing its resources.
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (repository.Store, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case "memory":
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.New(memory.WithLockTimeout(cfg.LockTimeout)), func() error { return nil }, nil
	case sqlstore.DriverSQLite, sqlstore.DriverPostgres:
		store, err := sqlstore.Open(sqlstore.Config{
			Driver:      cfg.Driver,
			DSN:         cfg.DSN,
			LockTimeout: cfg.LockTimeout,
			AutoMigrate: cfg.AutoMigrate,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
