package allocation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/repository"
)

// feedUpdate locks an allocation, applies mutate and persists the result.
// mutate receives the transaction for any further reads or writes it needs.
func (s *Service) feedUpdate(ctx context.Context, op, allocID string, actor models.Actor, c models.Capability,
	mutate func(tx repository.Tx, alloc *models.FeedAllocation) error) (models.FeedAllocation, models.Farmer, error) {
	started := s.now()

	var (
		alloc  models.FeedAllocation
		farmer models.Farmer
	)

	err := authorize(actor, c)
	if err == nil {
		err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
			var err error
			alloc, err = tx.LockFeedAllocation(ctx, allocID)
			if err != nil {
				return err
			}
			if err := mutate(tx, &alloc); err != nil {
				return err
			}
			if err := tx.UpdateFeedAllocation(ctx, &alloc); err != nil {
				return fmt.Errorf("update feed allocation: %w", err)
			}

			req, err := tx.GetChickRequest(ctx, alloc.ChickRequestID)
			if err != nil {
				if models.KindOf(err) == models.KindNotFound {
					return nil
				}
				return err
			}
			farmer, err = farmerOf(ctx, tx, req.FarmerID)
			return err
		})
	}

	s.finish(op, started, err, zap.String("allocation", allocID), zap.String("actor", actor.ID))
	if err != nil {
		return models.FeedAllocation{}, models.Farmer{}, err
	}
	return alloc, farmer, nil
}

// ApproveFeedRequest deducts the allocated bags from the single linked feed batch.
func (s *Service) ApproveFeedRequest(ctx context.Context, allocID string, actor models.Actor) (models.FeedAllocation, error) {
	alloc, farmer, err := s.feedUpdate(ctx, "approve_feed_request", allocID, actor, models.CapDecideRequest,
		func(tx repository.Tx, alloc *models.FeedAllocation) error {
			batch, err := tx.LockFeedBatch(ctx, alloc.FeedBatchID)
			if err != nil {
				return err
			}
			if alloc.Status != models.StatusPending {
				return invalidState("feed allocation", alloc.RequestCode, alloc.Status, "pending")
			}
			if batch.Quantity < alloc.BagsAllocated {
				return fmt.Errorf("%w: %d bags of %s requested, %d available",
					models.ErrInsufficientStock, alloc.BagsAllocated, batch.StockName, batch.Quantity)
			}

			batch.Quantity -= alloc.BagsAllocated
			if err := tx.UpdateFeedBatch(ctx, &batch); err != nil {
				return fmt.Errorf("deduct feed batch %s: %w", batch.StockName, err)
			}

			now := s.now().UTC()
			alloc.Status = models.StatusApproved
			alloc.DecidedAt = &now
			alloc.DecidedBy = actor.ID
			return nil
		})
	if err != nil {
		return models.FeedAllocation{}, err
	}

	s.metrics.FeedBagsAllocated(alloc.BagsAllocated)
	s.logger.Info("feed allocation approved",
		zap.String("allocation", alloc.RequestCode),
		zap.Int("bags", alloc.BagsAllocated),
		zap.String("actor", actor.ID),
	)
	s.notify(ctx, farmer.Phone, fmt.Sprintf("Hello %s, %d bags of %s (%s) have been approved. Amount due %s by %s.",
		farmer.Name, alloc.BagsAllocated, alloc.FeedName, alloc.RequestCode,
		alloc.AmountDue.StringFixed(2), alloc.PaymentDueDate.Format("2006-01-02")))

	return alloc, nil
}

// RejectFeedRequest rejects a pending allocation and its payment together.
func (s *Service) RejectFeedRequest(ctx context.Context, allocID string, actor models.Actor) (models.FeedAllocation, error) {
	alloc, _, err := s.feedUpdate(ctx, "reject_feed_request", allocID, actor, models.CapDecideRequest,
		func(_ repository.Tx, alloc *models.FeedAllocation) error {
			if alloc.Status != models.StatusPending {
				return invalidState("feed allocation", alloc.RequestCode, alloc.Status, "pending")
			}
			now := s.now().UTC()
			alloc.Status = models.StatusRejected
			alloc.PaymentStatus = models.PaymentRejected
			alloc.DecidedAt = &now
			alloc.DecidedBy = actor.ID
			return nil
		})
	if err != nil {
		return models.FeedAllocation{}, err
	}

	s.logger.Info("feed allocation rejected", zap.String("allocation", alloc.RequestCode), zap.String("actor", actor.ID))
	return alloc, nil
}

// MarkFeedDelivered flags an approved allocation as handed over.
func (s *Service) MarkFeedDelivered(ctx context.Context, allocID string, actor models.Actor) (models.FeedAllocation, error) {
	alloc, _, err := s.feedUpdate(ctx, "deliver_feed_request", allocID, actor, models.CapRecordDelivery,
		func(_ repository.Tx, alloc *models.FeedAllocation) error {
			if alloc.Status != models.StatusApproved {
				return invalidState("feed allocation", alloc.RequestCode, alloc.Status, "approved")
			}
			if alloc.Delivered {
				return fmt.Errorf("%w: feed allocation %s already delivered", models.ErrInvalidState, alloc.RequestCode)
			}
			alloc.Delivered = true
			return nil
		})
	if err != nil {
		return models.FeedAllocation{}, err
	}

	s.logger.Info("feed allocation delivered", zap.String("allocation", alloc.RequestCode), zap.String("actor", actor.ID))
	return alloc, nil
}

// MarkFeedPaid settles the payment of an approved allocation.
func (s *Service) MarkFeedPaid(ctx context.Context, allocID string, actor models.Actor) (models.FeedAllocation, error) {
	alloc, farmer, err := s.feedUpdate(ctx, "pay_feed_request", allocID, actor, models.CapRecordPayment,
		func(_ repository.Tx, alloc *models.FeedAllocation) error {
			if alloc.Status != models.StatusApproved {
				return invalidState("feed allocation", alloc.RequestCode, alloc.Status, "approved")
			}
			if alloc.PaymentStatus != models.PaymentPending {
				return fmt.Errorf("%w: payment for %s is %s", models.ErrInvalidState, alloc.RequestCode, alloc.PaymentStatus)
			}
			alloc.PaymentStatus = models.PaymentPaid
			return nil
		})
	if err != nil {
		return models.FeedAllocation{}, err
	}

	s.logger.Info("feed allocation paid",
		zap.String("allocation", alloc.RequestCode),
		zap.String("amount", alloc.AmountDue.StringFixed(2)),
		zap.String("actor", actor.ID),
	)
	s.notify(ctx, farmer.Phone, fmt.Sprintf("Thank you %s, payment of %s for %s has been received.",
		farmer.Name, alloc.AmountDue.StringFixed(2), alloc.RequestCode))
	return alloc, nil
}
