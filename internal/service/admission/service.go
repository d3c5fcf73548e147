// Package admission validates new chick requests and feed allocations before
// they enter the ledger as pending.
package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/repository"
)

// Policy holds the admission constants.
type Policy struct {
	StarterCap      int
	ReturningCap    int
	FrequencyWindow time.Duration
	FeedPaymentTerm time.Duration
	DefaultFeedBags int
}

// DefaultPolicy mirrors the farm's standing rules.
func DefaultPolicy() Policy {
	return Policy{
		StarterCap:      100,
		ReturningCap:    500,
		FrequencyWindow: 120 * 24 * time.Hour,
		FeedPaymentTerm: 60 * 24 * time.Hour,
		DefaultFeedBags: 2,
	}
}

// Cap returns the per-request chick quota for a farmer type.
func (p Policy) Cap(t models.FarmerType) int {
	if t == models.FarmerStarter {
		return p.StarterCap
	}
	return p.ReturningCap
}

// ChickRequestInput carries the agent-entered fields of a chick request.
type ChickRequestInput struct {
	RequestCode     string              `json:"request_code"`
	FarmerID        string              `json:"farmer_id" binding:"required"`
	ChickType       models.ChickType    `json:"chick_type"`
	ChickBreed      models.ChickBreed   `json:"chick_breed"`
	Quantity        int                 `json:"quantity"`
	ChickPeriod     int                 `json:"chick_period"`
	FeedTaken       *bool               `json:"feed_taken"`
	PaymentTerms    models.PaymentTerms `json:"payment_terms"`
	ReceivedThrough models.Channel      `json:"received_through"`
}

// FeedAllocationInput carries the agent-entered fields of a feed allocation.
type FeedAllocationInput struct {
	RequestCode    string     `json:"request_code"`
	ChickRequestID string     `json:"chick_request_id" binding:"required"`
	FeedBatchID    string     `json:"feed_batch_id" binding:"required"`
	Bags           int        `json:"bags"`
	PaymentDueDate *time.Time `json:"payment_due_date"`
}

// Service admits requests into the ledger.
type Service struct {
	store  repository.Store
	policy Policy
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires an admission service. Zero policy fields fall back to DefaultPolicy.
func NewService(store repository.Store, policy Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultPolicy()
	if policy.StarterCap <= 0 {
		policy.StarterCap = def.StarterCap
	}
	if policy.ReturningCap <= 0 {
		policy.ReturningCap = def.ReturningCap
	}
	if policy.FrequencyWindow <= 0 {
		policy.FrequencyWindow = def.FrequencyWindow
	}
	if policy.FeedPaymentTerm <= 0 {
		policy.FeedPaymentTerm = def.FeedPaymentTerm
	}
	if policy.DefaultFeedBags <= 0 {
		policy.DefaultFeedBags = def.DefaultFeedBags
	}
	return &Service{store: store, policy: policy, logger: logger, now: time.Now}
}

// SetClock overrides the time source, mainly for tests.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func checkRequestCode(code string) error {
	if len(code) > models.MaxRequestCodeLen {
		return models.Invalid("fields", "request code %q is longer than %d characters", code, models.MaxRequestCodeLen)
	}
	return nil
}

func checkChickFields(in ChickRequestInput) error {
	if err := checkRequestCode(in.RequestCode); err != nil {
		return err
	}
	switch {
	case in.FarmerID == "":
		return models.Invalid("fields", "farmer is required")
	case !in.ChickType.Valid():
		return models.Invalid("fields", "unknown chick type %q", in.ChickType)
	case !in.ChickBreed.Valid():
		return models.Invalid("fields", "unknown chick breed %q", in.ChickBreed)
	case in.Quantity < 1:
		return models.Invalid("fields", "quantity must be at least 1")
	case in.ChickPeriod < 1:
		return models.Invalid("fields", "chick period must be at least 1 week")
	case !in.PaymentTerms.Valid():
		return models.Invalid("fields", "unknown payment terms %q", in.PaymentTerms)
	case !in.ReceivedThrough.Valid():
		return models.Invalid("fields", "unknown channel %q", in.ReceivedThrough)
	}
	return nil
}

// SubmitChickRequest checks quota, request frequency and stock, then stores the
// request as pending. A stock shortfall is advisory: the request is stored and
// a warning returned.
func (s *Service) SubmitChickRequest(ctx context.Context, actor models.Actor, in ChickRequestInput) (models.ChickRequest, []string, error) {
	if !actor.Valid() || !actor.Can(models.CapSubmitRequest) {
		return models.ChickRequest{}, nil, fmt.Errorf("%w: %s may not submit requests", models.ErrForbidden, actor.Role)
	}
	if err := checkChickFields(in); err != nil {
		return models.ChickRequest{}, nil, err
	}

	var (
		req      models.ChickRequest
		warnings []string
	)
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		// Locking the farmer serializes concurrent submissions for the same farmer.
		farmer, err := tx.LockFarmer(ctx, in.FarmerID)
		if err != nil {
			return err
		}

		if limit := s.policy.Cap(farmer.Type); in.Quantity > limit {
			return models.Invalid("quota", "%s farmers may request at most %d chicks, got %d", farmer.Type, limit, in.Quantity)
		}

		now := s.now().UTC()
		since := now.Add(-s.policy.FrequencyWindow)
		prior, err := tx.ListChickRequests(ctx, repository.RequestFilter{FarmerID: farmer.ID, CreatedSince: since})
		if err != nil {
			return fmt.Errorf("list prior requests: %w", err)
		}
		if len(prior) > 0 {
			last := prior[len(prior)-1]
			next := last.CreatedAt.Add(s.policy.FrequencyWindow)
			return models.Invalid("frequency", "farmer %s already requested chicks on %s; next request allowed from %s",
				farmer.FarmerID, last.CreatedAt.Format("2006-01-02"), next.Format("2006-01-02"))
		}

		batches, err := tx.ListChickBatches(ctx, repository.ChickBatchFilter{ChickType: in.ChickType, ChickBreed: in.ChickBreed, InStock: true})
		if err != nil {
			return fmt.Errorf("list stock: %w", err)
		}
		available := 0
		for _, b := range batches {
			available += b.Quantity
		}
		if available < in.Quantity {
			warnings = append(warnings, fmt.Sprintf("only %d %s %s chicks in stock for %d requested; approval will fail unless stock is replenished",
				available, in.ChickBreed, in.ChickType, in.Quantity))
		}

		feedTaken := true
		if in.FeedTaken != nil {
			feedTaken = *in.FeedTaken
		}
		code := in.RequestCode
		if code == "" {
			code = repository.NewCode("CR")
		}

		req = models.ChickRequest{
			RequestCode:     code,
			FarmerID:        farmer.ID,
			FarmerType:      farmer.Type,
			ChickType:       in.ChickType,
			ChickBreed:      in.ChickBreed,
			Quantity:        in.Quantity,
			ChickPeriod:     in.ChickPeriod,
			FeedTaken:       feedTaken,
			PaymentTerms:    in.PaymentTerms,
			ReceivedThrough: in.ReceivedThrough,
			Status:          models.StatusPending,
			CreatedBy:       actor.ID,
			CreatedAt:       now,
		}
		return tx.CreateChickRequest(ctx, &req)
	})
	if err != nil {
		s.logger.Info("chick request refused", zap.String("farmer", in.FarmerID), zap.String("rule", models.ViolatedRule(err)), zap.Error(err))
		return models.ChickRequest{}, nil, err
	}

	s.logger.Info("chick request admitted",
		zap.String("request", req.RequestCode),
		zap.String("farmer", in.FarmerID),
		zap.Int("quantity", req.Quantity),
		zap.Strings("warnings", warnings),
	)
	return req, warnings, nil
}

// SubmitFeedAllocation reserves bags from one feed batch against an existing
// chick request. The amount due is priced at the batch selling price.
func (s *Service) SubmitFeedAllocation(ctx context.Context, actor models.Actor, in FeedAllocationInput) (models.FeedAllocation, []string, error) {
	if !actor.Valid() || !actor.Can(models.CapSubmitRequest) {
		return models.FeedAllocation{}, nil, fmt.Errorf("%w: %s may not submit requests", models.ErrForbidden, actor.Role)
	}

	if err := checkRequestCode(in.RequestCode); err != nil {
		return models.FeedAllocation{}, nil, err
	}

	bags := in.Bags
	if bags == 0 {
		bags = s.policy.DefaultFeedBags
	}
	if bags < 1 {
		return models.FeedAllocation{}, nil, models.Invalid("fields", "bags must be at least 1")
	}

	now := s.now().UTC()
	due := models.StartOfDay(now).Add(s.policy.FeedPaymentTerm)
	if in.PaymentDueDate != nil {
		due = in.PaymentDueDate.UTC()
		if due.Before(models.StartOfDay(now)) {
			return models.FeedAllocation{}, nil, models.Invalid("fields", "payment due date %s is in the past", due.Format("2006-01-02"))
		}
	}

	var (
		alloc    models.FeedAllocation
		warnings []string
	)
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		req, err := tx.GetChickRequest(ctx, in.ChickRequestID)
		if err != nil {
			return err
		}
		if req.Status == models.StatusRejected {
			return models.Invalid("request", "chick request %s was rejected", req.RequestCode)
		}

		batch, err := tx.GetFeedBatch(ctx, in.FeedBatchID)
		if err != nil {
			return err
		}
		if batch.Expired(now) {
			return models.Invalid("expired", "feed batch %s expired on %s", batch.StockName, batch.ExpiryDate.Format("2006-01-02"))
		}
		if batch.Quantity < bags {
			warnings = append(warnings, fmt.Sprintf("only %d bags of %s in stock for %d requested", batch.Quantity, batch.StockName, bags))
		}

		code := in.RequestCode
		if code == "" {
			code = repository.NewCode("FA")
		}
		alloc = models.FeedAllocation{
			RequestCode:    code,
			ChickRequestID: req.ID,
			FeedBatchID:    batch.ID,
			FeedName:       batch.FeedName,
			FeedType:       batch.FeedType,
			FeedBrand:      batch.FeedBrand,
			BagsAllocated:  bags,
			AmountDue:      batch.SellingPrice.Mul(decimal.NewFromInt(int64(bags))),
			PaymentDueDate: due,
			PaymentStatus:  models.PaymentPending,
			Status:         models.StatusPending,
			CreatedBy:      actor.ID,
			CreatedAt:      now,
		}
		return tx.CreateFeedAllocation(ctx, &alloc)
	})
	if err != nil {
		s.logger.Info("feed allocation refused", zap.String("chick_request", in.ChickRequestID), zap.Error(err))
		return models.FeedAllocation{}, nil, err
	}

	s.logger.Info("feed allocation admitted",
		zap.String("allocation", alloc.RequestCode),
		zap.Int("bags", alloc.BagsAllocated),
		zap.String("amount_due", alloc.AmountDue.StringFixed(2)),
	)
	return alloc, warnings, nil
}
