// Package sqlstore implements repository.Store on top of gorm for PostgreSQL and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/repository"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config describes how to reach the database.
type Config struct {
	Driver      string
	DSN         string
	LockTimeout time.Duration
	AutoMigrate bool
}

var _ repository.Store = (*Store)(nil)

// Store wraps a gorm connection pool.
type Store struct {
	db          *gorm.DB
	driver      string
	lockTimeout time.Duration
	logger      *zap.Logger
	// slot serializes SQLite units of work over its single connection.
	slot chan struct{}
}

// Open connects to the configured database and optionally migrates the schema.
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case DriverSQLite:
		dialector = sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: cfg.DSN})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite pool: %w", err)
		}
		// SQLite allows a single writer; one connection also keeps :memory: databases alive.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetConnMaxLifetime(0)
	}

	s := &Store{
		db:          db,
		driver:      cfg.Driver,
		lockTimeout: cfg.LockTimeout,
		logger:      logger.Named("sqlstore"),
	}
	if cfg.Driver == DriverSQLite {
		s.slot = make(chan struct{}, 1)
	}

	if cfg.AutoMigrate {
		if err := s.Migrate(); err != nil {
			return nil, err
		}
	}

	s.logger.Info("database ready", zap.String("driver", cfg.Driver), zap.Duration("lock_timeout", cfg.LockTimeout))
	return s, nil
}

// Migrate creates or updates every table.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(
		&models.Farmer{},
		&models.ChickStockBatch{},
		&models.FeedStockBatch{},
		&models.ChickRequest{},
		&models.ChickAllocationLine{},
		&models.FeedAllocation{},
		&models.Sale{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithinTx runs fn inside a database transaction. On PostgreSQL row locks wait
// at most the configured lock timeout.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	err = s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if s.driver == DriverPostgres && s.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := db.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(&gormTx{gormReader: gormReader{db: db}, locking: s.driver == DriverPostgres})
	})
	return translate(err)
}

// View runs fn inside a read-only transaction so every read sees one snapshot.
func (s *Store) View(ctx context.Context, fn func(r repository.Reader) error) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	var opts []*sql.TxOptions
	if s.driver == DriverPostgres {
		opts = append(opts, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	}
	err = s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(gormReader{db: db})
	}, opts...)
	return translate(err)
}

// acquire takes the SQLite connection slot, waiting at most the lock timeout.
// PostgreSQL has no slot and relies on lock_timeout instead.
func (s *Store) acquire(ctx context.Context) (func(), error) {
	if s.slot == nil {
		return func() {}, nil
	}

	var expired <-chan time.Time
	if s.lockTimeout > 0 {
		timer := time.NewTimer(s.lockTimeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case s.slot <- struct{}{}:
		return func() { <-s.slot }, nil
	case <-expired:
		return nil, fmt.Errorf("%w: sqlite connection wait exceeded %s", models.ErrContention, s.lockTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PostgreSQL error codes mapped to contention.
const (
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

func translate(err error) error {
	if err == nil || models.IsDomainError(err) {
		return err
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.Invalid("unique", "record already exists")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %s", models.ErrContention, pgErr.Message)
		case pgUniqueViolation:
			return models.Invalid("unique", "%s", pgErr.Detail)
		}
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "SQLITE_BUSY"):
		return fmt.Errorf("%w: %s", models.ErrContention, msg)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return models.Invalid("unique", "%s", msg)
	}
	return err
}
