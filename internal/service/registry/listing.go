package registry

import (
	"context"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/repository"
)

// ListFarmers returns the farmers visible to actor. Agents see the farmers they registered.
func (s *Service) ListFarmers(ctx context.Context, actor models.Actor) ([]models.Farmer, error) {
	if err := require(actor, models.CapViewRequests); err != nil {
		return nil, err
	}
	var out []models.Farmer
	err := s.store.View(ctx, func(r repository.Reader) error {
		all, err := r.ListFarmers(ctx)
		if err != nil {
			return err
		}
		for _, f := range all {
			if actor.Can(models.CapViewAllRequests) || f.RegisteredBy == actor.ID {
				out = append(out, f)
			}
		}
		return nil
	})
	return out, err
}

// GetFarmer returns one farmer by id or farmer id.
func (s *Service) GetFarmer(ctx context.Context, actor models.Actor, ref string) (models.Farmer, error) {
	if err := require(actor, models.CapViewRequests); err != nil {
		return models.Farmer{}, err
	}
	var farmer models.Farmer
	err := s.store.View(ctx, func(r repository.Reader) error {
		var err error
		farmer, err = r.GetFarmer(ctx, ref)
		return err
	})
	return farmer, err
}

// ListChickBatches returns chick batches matching filter.
func (s *Service) ListChickBatches(ctx context.Context, actor models.Actor, filter repository.ChickBatchFilter) ([]models.ChickStockBatch, error) {
	if err := require(actor, models.CapViewStock); err != nil {
		return nil, err
	}
	var out []models.ChickStockBatch
	err := s.store.View(ctx, func(r repository.Reader) error {
		var err error
		out, err = r.ListChickBatches(ctx, filter)
		return err
	})
	return out, err
}

// ListFeedBatches returns every feed batch.
func (s *Service) ListFeedBatches(ctx context.Context, actor models.Actor) ([]models.FeedStockBatch, error) {
	if err := require(actor, models.CapViewStock); err != nil {
		return nil, err
	}
	var out []models.FeedStockBatch
	err := s.store.View(ctx, func(r repository.Reader) error {
		var err error
		out, err = r.ListFeedBatches(ctx)
		return err
	})
	return out, err
}

// ListChickRequests returns requests by status. Agents only see their own.
func (s *Service) ListChickRequests(ctx context.Context, actor models.Actor, statuses ...models.RequestStatus) ([]models.ChickRequest, error) {
	if err := require(actor, models.CapViewRequests); err != nil {
		return nil, err
	}
	filter := repository.RequestFilter{Statuses: statuses}
	if !actor.Can(models.CapViewAllRequests) {
		filter.CreatedBy = actor.ID
	}
	var out []models.ChickRequest
	err := s.store.View(ctx, func(r repository.Reader) error {
		var err error
		out, err = r.ListChickRequests(ctx, filter)
		return err
	})
	return out, err
}

// ListFeedAllocations returns feed allocations, optionally for one chick request.
// Agents only see their own.
func (s *Service) ListFeedAllocations(ctx context.Context, actor models.Actor, chickRequestID string, statuses ...models.RequestStatus) ([]models.FeedAllocation, error) {
	if err := require(actor, models.CapViewRequests); err != nil {
		return nil, err
	}
	filter := repository.AllocationFilter{ChickRequestID: chickRequestID, Statuses: statuses}
	if !actor.Can(models.CapViewAllRequests) {
		filter.CreatedBy = actor.ID
	}
	var out []models.FeedAllocation
	err := s.store.View(ctx, func(r repository.Reader) error {
		var err error
		out, err = r.ListFeedAllocations(ctx, filter)
		return err
	})
	return out, err
}
