// Package allocation approves and rejects chick requests and feed allocations,
// deducting inventory atomically, and records deliveries and payments.
package allocation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/metrics"
	"github.com/mamadbah2/xchicks/internal/repository"
)

// Notifier delivers a short text to a phone number.
type Notifier interface {
	Notify(ctx context.Context, to, message string) error
}

// SalesLedger mirrors recorded sales to an external ledger.
type SalesLedger interface {
	RecordSale(ctx context.Context, sale models.Sale, req models.ChickRequest, farmer models.Farmer) error
}

// Service is the allocation engine. Every operation is a single unit of work;
// side effects run after commit and never fail the operation.
type Service struct {
	store    repository.Store
	logger   *zap.Logger
	notifier Notifier
	ledger   SalesLedger
	metrics  metrics.Recorder
	now      func() time.Time
}

// Option customizes the Service.
type Option func(*Service)

// WithNotifier sends farmer notifications after approvals and rejections.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithSalesLedger mirrors sales recorded on delivery.
func WithSalesLedger(l SalesLedger) Option {
	return func(s *Service) { s.ledger = l }
}

// WithMetrics records operation outcomes.
func WithMetrics(r metrics.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires an allocation engine over store.
func NewService(store repository.Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:   store,
		logger:  logger,
		metrics: metrics.Nop{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func authorize(actor models.Actor, c models.Capability) error {
	if !actor.Valid() || !actor.Can(c) {
		return fmt.Errorf("%w: %s may not %s", models.ErrForbidden, actor.Role, c)
	}
	return nil
}

func (s *Service) finish(op string, started time.Time, err error, fields ...zap.Field) {
	kind := models.KindOf(err)
	s.metrics.Observe(op, kind, s.now().Sub(started))
	if err == nil {
		return
	}
	fields = append(fields, zap.String("operation", op), zap.String("error_kind", string(kind)), zap.Error(err))
	if kind == models.KindInternal {
		s.logger.Error("allocation operation failed", fields...)
		return
	}
	s.logger.Warn("allocation operation refused", fields...)
}

func (s *Service) notify(ctx context.Context, to, message string) {
	if s.notifier == nil || to == "" {
		return
	}
	if err := s.notifier.Notify(ctx, to, message); err != nil {
		s.logger.Warn("farmer notification failed", zap.String("to", to), zap.Error(err))
	}
}

// farmerOf loads the owner of a request for notifications. A missing farmer is
// not an error at this point.
func farmerOf(ctx context.Context, r repository.Reader, farmerID string) (models.Farmer, error) {
	farmer, err := r.GetFarmer(ctx, farmerID)
	if err != nil && models.KindOf(err) == models.KindNotFound {
		return models.Farmer{}, nil
	}
	return farmer, err
}

func invalidState(kind, ref string, status models.RequestStatus, want string) error {
	return fmt.Errorf("%w: %s %s is %s, expected %s", models.ErrInvalidState, kind, ref, status, want)
}
