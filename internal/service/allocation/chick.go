package allocation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/repository"
)

type deduction struct {
	batch models.ChickStockBatch
	take  int
}

// planDeduction walks batches in order taking min(remaining, batch quantity)
// until quantity is covered. Callers have already checked the total suffices.
func planDeduction(batches []models.ChickStockBatch, quantity int) []deduction {
	remaining := quantity
	var plan []deduction
	for _, b := range batches {
		if remaining == 0 {
			break
		}
		if b.Quantity <= 0 {
			continue
		}
		take := min(remaining, b.Quantity)
		plan = append(plan, deduction{batch: b, take: take})
		remaining -= take
	}
	return plan
}

func totalQuantity(batches []models.ChickStockBatch) int {
	total := 0
	for _, b := range batches {
		total += b.Quantity
	}
	return total
}

// ApproveChickRequest deducts the requested quantity across matching batches
// and marks the request approved. Nothing changes unless the full quantity is
// available.
func (s *Service) ApproveChickRequest(ctx context.Context, requestID string, actor models.Actor) (models.ChickApproval, error) {
	const op = "approve_chick_request"
	started := s.now()

	var (
		approval models.ChickApproval
		farmer   models.Farmer
	)

	err := authorize(actor, models.CapDecideRequest)
	if err == nil {
		err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
			req, err := tx.LockChickRequest(ctx, requestID)
			if err != nil {
				return err
			}
			if req.Status != models.StatusPending {
				return invalidState("chick request", req.RequestCode, req.Status, "pending")
			}

			batches, err := tx.LockChickBatches(ctx, req.ChickType, req.ChickBreed)
			if err != nil {
				return fmt.Errorf("lock %s %s batches: %w", req.ChickType, req.ChickBreed, err)
			}
			if available := totalQuantity(batches); available < req.Quantity {
				return fmt.Errorf("%w: %d %s %s chicks requested, %d available",
					models.ErrInsufficientStock, req.Quantity, req.ChickBreed, req.ChickType, available)
			}

			now := s.now().UTC()
			lines := make([]models.ChickAllocationLine, 0, len(batches))
			for _, d := range planDeduction(batches, req.Quantity) {
				batch := d.batch
				batch.Quantity -= d.take
				if err := tx.UpdateChickBatch(ctx, &batch); err != nil {
					return fmt.Errorf("deduct batch %s: %w", batch.BatchName, err)
				}
				lines = append(lines, models.ChickAllocationLine{
					RequestID: req.ID,
					BatchID:   batch.ID,
					BatchName: batch.BatchName,
					Quantity:  d.take,
					UnitPrice: batch.UnitPrice,
					CreatedAt: now,
				})
			}
			if err := tx.CreateAllocationLines(ctx, lines); err != nil {
				return fmt.Errorf("record allocation lines: %w", err)
			}

			req.Status = models.StatusApproved
			req.ApprovedOn = &now
			req.DecidedAt = &now
			req.DecidedBy = actor.ID
			if err := tx.UpdateChickRequest(ctx, &req); err != nil {
				return fmt.Errorf("update chick request: %w", err)
			}

			approval = models.ChickApproval{Request: req, Lines: lines}
			farmer, err = farmerOf(ctx, tx, req.FarmerID)
			return err
		})
	}

	s.finish(op, started, err, zap.String("request", requestID), zap.String("actor", actor.ID))
	if err != nil {
		return models.ChickApproval{}, err
	}

	req := approval.Request
	s.metrics.ChicksAllocated(approval.Deducted())
	s.logger.Info("chick request approved",
		zap.String("request", req.RequestCode),
		zap.Int("quantity", req.Quantity),
		zap.Int("batches", len(approval.Lines)),
		zap.String("actor", actor.ID),
	)
	s.notify(ctx, farmer.Phone, fmt.Sprintf("Hello %s, your request %s for %d %s %s chicks has been approved.",
		farmer.Name, req.RequestCode, req.Quantity, req.ChickBreed, req.ChickType))

	return approval, nil
}

// RejectChickRequest marks a pending request rejected together with its pending
// feed allocations. Inventory is not touched.
func (s *Service) RejectChickRequest(ctx context.Context, requestID string, actor models.Actor, reason string) (models.ChickRequest, error) {
	const op = "reject_chick_request"
	started := s.now()

	var (
		req      models.ChickRequest
		farmer   models.Farmer
		cascaded int
	)

	err := authorize(actor, models.CapDecideRequest)
	if err == nil {
		err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
			var err error
			req, err = tx.LockChickRequest(ctx, requestID)
			if err != nil {
				return err
			}
			if req.Status != models.StatusPending {
				return invalidState("chick request", req.RequestCode, req.Status, "pending")
			}

			now := s.now().UTC()
			req.Status = models.StatusRejected
			req.DecidedAt = &now
			req.DecidedBy = actor.ID
			req.RejectionReason = reason
			if err := tx.UpdateChickRequest(ctx, &req); err != nil {
				return fmt.Errorf("update chick request: %w", err)
			}

			pending, err := tx.ListFeedAllocations(ctx, repository.AllocationFilter{
				ChickRequestID: req.ID,
				Statuses:       []models.RequestStatus{models.StatusPending},
			})
			if err != nil {
				return fmt.Errorf("list feed allocations: %w", err)
			}
			for _, a := range pending {
				alloc, err := tx.LockFeedAllocation(ctx, a.ID)
				if err != nil {
					return err
				}
				alloc.Status = models.StatusRejected
				alloc.PaymentStatus = models.PaymentRejected
				alloc.DecidedAt = &now
				alloc.DecidedBy = actor.ID
				if err := tx.UpdateFeedAllocation(ctx, &alloc); err != nil {
					return fmt.Errorf("reject feed allocation %s: %w", alloc.RequestCode, err)
				}
				cascaded++
			}

			farmer, err = farmerOf(ctx, tx, req.FarmerID)
			return err
		})
	}

	s.finish(op, started, err, zap.String("request", requestID), zap.String("actor", actor.ID))
	if err != nil {
		return models.ChickRequest{}, err
	}

	s.logger.Info("chick request rejected",
		zap.String("request", req.RequestCode),
		zap.Int("feed_allocations_rejected", cascaded),
		zap.String("actor", actor.ID),
	)
	msg := fmt.Sprintf("Hello %s, your request %s was not approved.", farmer.Name, req.RequestCode)
	if reason != "" {
		msg += " Reason: " + reason
	}
	s.notify(ctx, farmer.Phone, msg)

	return req, nil
}

// MarkChickDelivered completes an approved request and records its sale at the
// prices captured on approval.
func (s *Service) MarkChickDelivered(ctx context.Context, requestID string, actor models.Actor) (models.Sale, error) {
	const op = "deliver_chick_request"
	started := s.now()

	var (
		sale   models.Sale
		req    models.ChickRequest
		farmer models.Farmer
	)

	err := authorize(actor, models.CapRecordDelivery)
	if err == nil {
		err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
			var err error
			req, err = tx.LockChickRequest(ctx, requestID)
			if err != nil {
				return err
			}
			if req.Status != models.StatusApproved {
				return invalidState("chick request", req.RequestCode, req.Status, "approved")
			}

			lines, err := tx.ListAllocationLines(ctx, req.ID)
			if err != nil {
				return fmt.Errorf("list allocation lines: %w", err)
			}
			total := decimal.Zero
			for _, l := range lines {
				total = total.Add(l.Amount())
			}

			req.Delivered = true
			req.Status = models.StatusCompleted
			if err := tx.UpdateChickRequest(ctx, &req); err != nil {
				return fmt.Errorf("update chick request: %w", err)
			}

			sale = models.Sale{
				ChickRequestID: req.ID,
				TotalAmount:    total,
				RecordedBy:     actor.ID,
				CreatedAt:      s.now().UTC(),
			}
			if err := tx.CreateSale(ctx, &sale); err != nil {
				return fmt.Errorf("record sale: %w", err)
			}

			farmer, err = farmerOf(ctx, tx, req.FarmerID)
			return err
		})
	}

	s.finish(op, started, err, zap.String("request", requestID), zap.String("actor", actor.ID))
	if err != nil {
		return models.Sale{}, err
	}

	s.logger.Info("chick request delivered",
		zap.String("request", req.RequestCode),
		zap.String("total", sale.TotalAmount.StringFixed(2)),
		zap.String("actor", actor.ID),
	)
	if s.ledger != nil {
		if err := s.ledger.RecordSale(ctx, sale, req, farmer); err != nil {
			s.logger.Warn("sales ledger mirror failed", zap.String("request", req.RequestCode), zap.Error(err))
		}
	}

	return sale, nil
}
