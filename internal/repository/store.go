// Package repository defines the persistence contracts of the inventory store
// and the request ledger. Implementations live in the sqlstore and memory
// sub-packages.
package repository

import (
	"context"
	"time"

	"github.com/mamadbah2/xchicks/internal/domain/models"
)

// Store runs units of work against the inventory and request ledger.
type Store interface {
	// WithinTx executes fn atomically. Every write performed through tx commits
	// together when fn returns nil and is discarded otherwise. Lock conflicts
	// surface as models.ErrContention.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	// View executes fn against a consistent read-only view.
	View(ctx context.Context, fn func(r Reader) error) error
}

// ChickBatchFilter narrows chick batch listings. Zero values match everything.
type ChickBatchFilter struct {
	ChickType  models.ChickType
	ChickBreed models.ChickBreed
	InStock    bool
}

// RequestFilter narrows chick request listings.
type RequestFilter struct {
	FarmerID  string
	CreatedBy string
	Statuses  []models.RequestStatus
	// CreatedSince includes requests created at or after this instant.
	CreatedSince time.Time
}

// AllocationFilter narrows feed allocation listings.
type AllocationFilter struct {
	ChickRequestID string
	CreatedBy      string
	Statuses       []models.RequestStatus
}

// Reader exposes read operations. Missing records wrap models.ErrNotFound.
// Farmers may be referenced by id or farmer id, chick requests and feed
// allocations by id or request code.
type Reader interface {
	GetFarmer(ctx context.Context, id string) (models.Farmer, error)
	ListFarmers(ctx context.Context) ([]models.Farmer, error)

	GetChickBatchByName(ctx context.Context, name string) (models.ChickStockBatch, error)
	ListChickBatches(ctx context.Context, filter ChickBatchFilter) ([]models.ChickStockBatch, error)

	GetFeedBatch(ctx context.Context, id string) (models.FeedStockBatch, error)
	GetFeedBatchByName(ctx context.Context, name string) (models.FeedStockBatch, error)
	ListFeedBatches(ctx context.Context) ([]models.FeedStockBatch, error)

	GetChickRequest(ctx context.Context, id string) (models.ChickRequest, error)
	ListChickRequests(ctx context.Context, filter RequestFilter) ([]models.ChickRequest, error)
	ListAllocationLines(ctx context.Context, requestID string) ([]models.ChickAllocationLine, error)

	GetFeedAllocation(ctx context.Context, id string) (models.FeedAllocation, error)
	ListFeedAllocations(ctx context.Context, filter AllocationFilter) ([]models.FeedAllocation, error)

	ListSales(ctx context.Context) ([]models.Sale, error)
}

// Tx is a unit of work. Lock* methods take row locks held until the unit ends.
type Tx interface {
	Reader

	LockFarmer(ctx context.Context, id string) (models.Farmer, error)
	LockChickRequest(ctx context.Context, id string) (models.ChickRequest, error)
	// LockChickBatches returns the in-stock batches matching type and breed,
	// ordered by quantity descending then batch name ascending.
	LockChickBatches(ctx context.Context, chickType models.ChickType, breed models.ChickBreed) ([]models.ChickStockBatch, error)
	LockChickBatch(ctx context.Context, id string) (models.ChickStockBatch, error)
	LockFeedAllocation(ctx context.Context, id string) (models.FeedAllocation, error)
	LockFeedBatch(ctx context.Context, id string) (models.FeedStockBatch, error)

	CreateFarmer(ctx context.Context, farmer *models.Farmer) error
	CreateChickBatch(ctx context.Context, batch *models.ChickStockBatch) error
	UpdateChickBatch(ctx context.Context, batch *models.ChickStockBatch) error
	CreateFeedBatch(ctx context.Context, batch *models.FeedStockBatch) error
	UpdateFeedBatch(ctx context.Context, batch *models.FeedStockBatch) error
	CreateChickRequest(ctx context.Context, req *models.ChickRequest) error
	UpdateChickRequest(ctx context.Context, req *models.ChickRequest) error
	CreateAllocationLines(ctx context.Context, lines []models.ChickAllocationLine) error
	CreateFeedAllocation(ctx context.Context, alloc *models.FeedAllocation) error
	UpdateFeedAllocation(ctx context.Context, alloc *models.FeedAllocation) error
	CreateSale(ctx context.Context, sale *models.Sale) error
}

// SortBatchesForAllocation orders batches largest first, breaking ties by name,
// so the fewest batches are touched and the order is deterministic.
func SortBatchesForAllocation(batches []models.ChickStockBatch) {
	sortBatches(batches)
}
