package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/repository"
)

type gormReader struct {
	db *gorm.DB
}

func lookup(err error, kind, ref string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %q: %w", kind, ref, models.ErrNotFound)
	}
	return err
}

func (r gormReader) GetFarmer(ctx context.Context, id string) (models.Farmer, error) {
	var f models.Farmer
	err := r.db.WithContext(ctx).Where("id = ? OR farmer_id = ?", id, id).First(&f).Error
	return f, lookup(err, "farmer", id)
}

func (r gormReader) ListFarmers(ctx context.Context) ([]models.Farmer, error) {
	var out []models.Farmer
	err := r.db.WithContext(ctx).Order("farmer_id").Find(&out).Error
	return out, err
}

func (r gormReader) GetChickBatchByName(ctx context.Context, name string) (models.ChickStockBatch, error) {
	var b models.ChickStockBatch
	err := r.db.WithContext(ctx).Where("batch_name = ?", name).First(&b).Error
	return b, lookup(err, "chick batch", name)
}

func (r gormReader) chickBatchQuery(ctx context.Context, filter repository.ChickBatchFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.ChickStockBatch{})
	if filter.ChickType != "" {
		q = q.Where("chick_type = ?", filter.ChickType)
	}
	if filter.ChickBreed != "" {
		q = q.Where("chick_breed = ?", filter.ChickBreed)
	}
	if filter.InStock {
		q = q.Where("quantity > 0")
	}
	return q
}

func (r gormReader) ListChickBatches(ctx context.Context, filter repository.ChickBatchFilter) ([]models.ChickStockBatch, error) {
	var out []models.ChickStockBatch
	err := r.chickBatchQuery(ctx, filter).Order("batch_name").Find(&out).Error
	return out, err
}

func (r gormReader) GetFeedBatch(ctx context.Context, id string) (models.FeedStockBatch, error) {
	var b models.FeedStockBatch
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	return b, lookup(err, "feed batch", id)
}

func (r gormReader) GetFeedBatchByName(ctx context.Context, name string) (models.FeedStockBatch, error) {
	var b models.FeedStockBatch
	err := r.db.WithContext(ctx).Where("stock_name = ?", name).First(&b).Error
	return b, lookup(err, "feed batch", name)
}

func (r gormReader) ListFeedBatches(ctx context.Context) ([]models.FeedStockBatch, error) {
	var out []models.FeedStockBatch
	err := r.db.WithContext(ctx).Order("stock_name").Find(&out).Error
	return out, err
}

func (r gormReader) GetChickRequest(ctx context.Context, ref string) (models.ChickRequest, error) {
	var req models.ChickRequest
	err := r.db.WithContext(ctx).Where("id = ? OR request_code = ?", ref, ref).First(&req).Error
	return req, lookup(err, "chick request", ref)
}

func (r gormReader) ListChickRequests(ctx context.Context, filter repository.RequestFilter) ([]models.ChickRequest, error) {
	q := r.db.WithContext(ctx).Model(&models.ChickRequest{})
	if filter.FarmerID != "" {
		q = q.Where("farmer_id = ?", filter.FarmerID)
	}
	if filter.CreatedBy != "" {
		q = q.Where("created_by = ?", filter.CreatedBy)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if !filter.CreatedSince.IsZero() {
		q = q.Where("created_at >= ?", filter.CreatedSince)
	}
	var out []models.ChickRequest
	err := q.Order("created_at, id").Find(&out).Error
	return out, err
}

func (r gormReader) ListAllocationLines(ctx context.Context, requestID string) ([]models.ChickAllocationLine, error) {
	var out []models.ChickAllocationLine
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).Order("created_at, batch_name").Find(&out).Error
	return out, err
}

func (r gormReader) GetFeedAllocation(ctx context.Context, ref string) (models.FeedAllocation, error) {
	var a models.FeedAllocation
	err := r.db.WithContext(ctx).Where("id = ? OR request_code = ?", ref, ref).First(&a).Error
	return a, lookup(err, "feed allocation", ref)
}

func (r gormReader) ListFeedAllocations(ctx context.Context, filter repository.AllocationFilter) ([]models.FeedAllocation, error) {
	q := r.db.WithContext(ctx).Model(&models.FeedAllocation{})
	if filter.ChickRequestID != "" {
		q = q.Where("chick_request_id = ?", filter.ChickRequestID)
	}
	if filter.CreatedBy != "" {
		q = q.Where("created_by = ?", filter.CreatedBy)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	var out []models.FeedAllocation
	err := q.Order("created_at, id").Find(&out).Error
	return out, err
}

func (r gormReader) ListSales(ctx context.Context) ([]models.Sale, error) {
	var out []models.Sale
	err := r.db.WithContext(ctx).Order("created_at").Find(&out).Error
	return out, err
}

var _ repository.Tx = (*gormTx)(nil)

type gormTx struct {
	gormReader
	locking bool
}

// forUpdate adds SELECT ... FOR UPDATE where the dialect supports row locks.
func (t *gormTx) forUpdate(ctx context.Context) *gorm.DB {
	q := t.db.WithContext(ctx)
	if t.locking {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (t *gormTx) LockFarmer(ctx context.Context, id string) (models.Farmer, error) {
	var f models.Farmer
	err := t.forUpdate(ctx).Where("id = ? OR farmer_id = ?", id, id).First(&f).Error
	return f, lookup(err, "farmer", id)
}

func (t *gormTx) LockChickRequest(ctx context.Context, ref string) (models.ChickRequest, error) {
	var req models.ChickRequest
	err := t.forUpdate(ctx).Where("id = ? OR request_code = ?", ref, ref).First(&req).Error
	return req, lookup(err, "chick request", ref)
}

// LockChickBatches locks rows in id order so concurrent approvals acquire them
// in the same sequence, then re-sorts for allocation.
func (t *gormTx) LockChickBatches(ctx context.Context, chickType models.ChickType, breed models.ChickBreed) ([]models.ChickStockBatch, error) {
	var out []models.ChickStockBatch
	err := t.forUpdate(ctx).
		Where("chick_type = ? AND chick_breed = ? AND quantity > 0", chickType, breed).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	repository.SortBatchesForAllocation(out)
	return out, nil
}

func (t *gormTx) LockChickBatch(ctx context.Context, id string) (models.ChickStockBatch, error) {
	var b models.ChickStockBatch
	err := t.forUpdate(ctx).Where("id = ?", id).First(&b).Error
	return b, lookup(err, "chick batch", id)
}

func (t *gormTx) LockFeedAllocation(ctx context.Context, ref string) (models.FeedAllocation, error) {
	var a models.FeedAllocation
	err := t.forUpdate(ctx).Where("id = ? OR request_code = ?", ref, ref).First(&a).Error
	return a, lookup(err, "feed allocation", ref)
}

func (t *gormTx) LockFeedBatch(ctx context.Context, id string) (models.FeedStockBatch, error) {
	var b models.FeedStockBatch
	err := t.forUpdate(ctx).Where("id = ?", id).First(&b).Error
	return b, lookup(err, "feed batch", id)
}

func ensureID(id *string) {
	if *id == "" {
		*id = repository.NewID()
	}
}

func (t *gormTx) create(ctx context.Context, value any) error {
	return translate(t.db.WithContext(ctx).Create(value).Error)
}

// save updates every column of an existing row and fails when the row is gone.
func (t *gormTx) save(ctx context.Context, value any, kind, id string) error {
	res := t.db.WithContext(ctx).Select("*").Updates(value)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %q: %w", kind, id, models.ErrNotFound)
	}
	return nil
}

func (t *gormTx) CreateFarmer(ctx context.Context, farmer *models.Farmer) error {
	ensureID(&farmer.ID)
	if farmer.RegisteredAt.IsZero() {
		farmer.RegisteredAt = time.Now().UTC()
	}
	return t.create(ctx, farmer)
}

func (t *gormTx) CreateChickBatch(ctx context.Context, batch *models.ChickStockBatch) error {
	ensureID(&batch.ID)
	return t.create(ctx, batch)
}

func (t *gormTx) UpdateChickBatch(ctx context.Context, batch *models.ChickStockBatch) error {
	return t.save(ctx, batch, "chick batch", batch.ID)
}

func (t *gormTx) CreateFeedBatch(ctx context.Context, batch *models.FeedStockBatch) error {
	ensureID(&batch.ID)
	return t.create(ctx, batch)
}

func (t *gormTx) UpdateFeedBatch(ctx context.Context, batch *models.FeedStockBatch) error {
	return t.save(ctx, batch, "feed batch", batch.ID)
}

func (t *gormTx) CreateChickRequest(ctx context.Context, req *models.ChickRequest) error {
	ensureID(&req.ID)
	return t.create(ctx, req)
}

func (t *gormTx) UpdateChickRequest(ctx context.Context, req *models.ChickRequest) error {
	return t.save(ctx, req, "chick request", req.ID)
}

func (t *gormTx) CreateAllocationLines(ctx context.Context, lines []models.ChickAllocationLine) error {
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		ensureID(&lines[i].ID)
	}
	return t.create(ctx, &lines)
}

func (t *gormTx) CreateFeedAllocation(ctx context.Context, alloc *models.FeedAllocation) error {
	ensureID(&alloc.ID)
	return t.create(ctx, alloc)
}

func (t *gormTx) UpdateFeedAllocation(ctx context.Context, alloc *models.FeedAllocation) error {
	return t.save(ctx, alloc, "feed allocation", alloc.ID)
}

func (t *gormTx) CreateSale(ctx context.Context, sale *models.Sale) error {
	ensureID(&sale.ID)
	return t.create(ctx, sale)
}
