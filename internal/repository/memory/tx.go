package memory

import (
	"context"
	"time"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/repository"
)

var _ repository.Tx = (*memTx)(nil)

// memTx holds the store semaphore for its whole lifetime, so Lock* calls are plain reads.
type memTx struct {
	reader
	now func() time.Time
}

func duplicate(kind, field, value string) error {
	return models.Invalid("unique", "%s with %s %q already exists", kind, field, value)
}

func (t *memTx) stamp(id *string, created *time.Time) {
	if *id == "" {
		*id = repository.NewID()
	}
	if created.IsZero() {
		*created = t.now().UTC()
	}
}

func (t *memTx) LockFarmer(ctx context.Context, id string) (models.Farmer, error) {
	return t.GetFarmer(ctx, id)
}

func (t *memTx) LockChickRequest(ctx context.Context, id string) (models.ChickRequest, error) {
	return t.GetChickRequest(ctx, id)
}

func (t *memTx) LockChickBatches(ctx context.Context, chickType models.ChickType, breed models.ChickBreed) ([]models.ChickStockBatch, error) {
	batches, err := t.ListChickBatches(ctx, repository.ChickBatchFilter{ChickType: chickType, ChickBreed: breed, InStock: true})
	if err != nil {
		return nil, err
	}
	repository.SortBatchesForAllocation(batches)
	return batches, nil
}

func (t *memTx) LockChickBatch(_ context.Context, id string) (models.ChickStockBatch, error) {
	return t.getChickBatch(id)
}

func (t *memTx) LockFeedAllocation(ctx context.Context, id string) (models.FeedAllocation, error) {
	return t.GetFeedAllocation(ctx, id)
}

func (t *memTx) LockFeedBatch(ctx context.Context, id string) (models.FeedStockBatch, error) {
	return t.GetFeedBatch(ctx, id)
}

func (t *memTx) CreateFarmer(_ context.Context, farmer *models.Farmer) error {
	for _, f := range t.st.farmers {
		if f.FarmerID == farmer.FarmerID {
			return duplicate("farmer", "farmer_id", farmer.FarmerID)
		}
		if f.NIN == farmer.NIN {
			return duplicate("farmer", "nin", farmer.NIN)
		}
	}
	t.stamp(&farmer.ID, &farmer.RegisteredAt)
	t.st.farmers[farmer.ID] = *farmer
	return nil
}

func (t *memTx) CreateChickBatch(_ context.Context, batch *models.ChickStockBatch) error {
	for _, b := range t.st.chickBatches {
		if b.BatchName == batch.BatchName {
			return duplicate("chick batch", "name", batch.BatchName)
		}
	}
	t.stamp(&batch.ID, &batch.CreatedAt)
	batch.UpdatedAt = batch.CreatedAt
	t.st.chickBatches[batch.ID] = *batch
	return nil
}

func (t *memTx) UpdateChickBatch(_ context.Context, batch *models.ChickStockBatch) error {
	if _, ok := t.st.chickBatches[batch.ID]; !ok {
		return notFound("chick batch", batch.ID)
	}
	batch.UpdatedAt = t.now().UTC()
	t.st.chickBatches[batch.ID] = *batch
	return nil
}

func (t *memTx) CreateFeedBatch(_ context.Context, batch *models.FeedStockBatch) error {
	for _, b := range t.st.feedBatches {
		if b.StockName == batch.StockName {
			return duplicate("feed batch", "name", batch.StockName)
		}
	}
	t.stamp(&batch.ID, &batch.CreatedAt)
	batch.UpdatedAt = batch.CreatedAt
	t.st.feedBatches[batch.ID] = *batch
	return nil
}

func (t *memTx) UpdateFeedBatch(_ context.Context, batch *models.FeedStockBatch) error {
	if _, ok := t.st.feedBatches[batch.ID]; !ok {
		return notFound("feed batch", batch.ID)
	}
	batch.UpdatedAt = t.now().UTC()
	t.st.feedBatches[batch.ID] = *batch
	return nil
}

func (t *memTx) CreateChickRequest(_ context.Context, req *models.ChickRequest) error {
	for _, r := range t.st.requests {
		if r.RequestCode == req.RequestCode {
			return duplicate("chick request", "code", req.RequestCode)
		}
	}
	t.stamp(&req.ID, &req.CreatedAt)
	req.UpdatedAt = req.CreatedAt
	t.st.requests[req.ID] = *req
	return nil
}

func (t *memTx) UpdateChickRequest(_ context.Context, req *models.ChickRequest) error {
	if _, ok := t.st.requests[req.ID]; !ok {
		return notFound("chick request", req.ID)
	}
	req.UpdatedAt = t.now().UTC()
	t.st.requests[req.ID] = *req
	return nil
}

func (t *memTx) CreateAllocationLines(_ context.Context, lines []models.ChickAllocationLine) error {
	for i := range lines {
		t.stamp(&lines[i].ID, &lines[i].CreatedAt)
	}
	t.st.lines = append(t.st.lines, lines...)
	return nil
}

func (t *memTx) CreateFeedAllocation(_ context.Context, alloc *models.FeedAllocation) error {
	for _, a := range t.st.allocations {
		if a.RequestCode == alloc.RequestCode {
			return duplicate("feed allocation", "code", alloc.RequestCode)
		}
	}
	t.stamp(&alloc.ID, &alloc.CreatedAt)
	alloc.UpdatedAt = alloc.CreatedAt
	t.st.allocations[alloc.ID] = *alloc
	return nil
}

func (t *memTx) UpdateFeedAllocation(_ context.Context, alloc *models.FeedAllocation) error {
	if _, ok := t.st.allocations[alloc.ID]; !ok {
		return notFound("feed allocation", alloc.ID)
	}
	alloc.UpdatedAt = t.now().UTC()
	t.st.allocations[alloc.ID] = *alloc
	return nil
}

func (t *memTx) CreateSale(_ context.Context, sale *models.Sale) error {
	for _, s := range t.st.sales {
		if s.ChickRequestID == sale.ChickRequestID {
			return duplicate("sale", "chick_request_id", sale.ChickRequestID)
		}
	}
	t.stamp(&sale.ID, &sale.CreatedAt)
	t.st.sales = append(t.st.sales, *sale)
	return nil
}
