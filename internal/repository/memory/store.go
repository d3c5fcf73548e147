// Package memory provides an in-process repository.Store used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/repository"
)

// DefaultLockTimeout bounds how long a unit of work waits for the write lock.
const DefaultLockTimeout = 5 * time.Second

var _ repository.Store = (*Store)(nil)

// Store keeps committed state behind a read-write mutex. Units of work are
// serialized through a single-slot semaphore, mutate a private clone, and
// swap it in on success.
type Store struct {
	mu          sync.RWMutex
	state       *state
	sem         chan struct{}
	lockTimeout time.Duration
	now         func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithLockTimeout overrides DefaultLockTimeout.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		state:       newState(),
		sem:         make(chan struct{}, 1),
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithinTx runs fn against a private copy of the state and commits it when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer func() { <-s.sem }()

	s.mu.RLock()
	working := s.state.clone()
	s.mu.RUnlock()

	tx := &memTx{reader: reader{st: working}, now: s.now}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = working
	s.mu.Unlock()
	return nil
}

// View runs fn against the last committed state. Committed state is never
// mutated in place, so no copy is needed.
func (s *Store) View(ctx context.Context, fn func(r repository.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snapshot := s.state
	s.mu.RUnlock()
	return fn(reader{st: snapshot})
}

func (s *Store) acquire(ctx context.Context) error {
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: lock wait exceeded %s", models.ErrContention, s.lockTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
