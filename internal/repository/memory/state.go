package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/repository"
)

type state struct {
	farmers      map[string]models.Farmer
	chickBatches map[string]models.ChickStockBatch
	feedBatches  map[string]models.FeedStockBatch
	requests     map[string]models.ChickRequest
	lines        []models.ChickAllocationLine
	allocations  map[string]models.FeedAllocation
	sales        []models.Sale
}

func newState() *state {
	return &state{
		farmers:      map[string]models.Farmer{},
		chickBatches: map[string]models.ChickStockBatch{},
		feedBatches:  map[string]models.FeedStockBatch{},
		requests:     map[string]models.ChickRequest{},
		allocations:  map[string]models.FeedAllocation{},
	}
}

func cloneMap[V any](src map[string]V) map[string]V {
	out := make(map[string]V, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		farmers:      cloneMap(s.farmers),
		chickBatches: cloneMap(s.chickBatches),
		feedBatches:  cloneMap(s.feedBatches),
		requests:     cloneMap(s.requests),
		lines:        append([]models.ChickAllocationLine(nil), s.lines...),
		allocations:  cloneMap(s.allocations),
		sales:        append([]models.Sale(nil), s.sales...),
	}
}

type reader struct {
	st *state
}

func notFound(kind, ref string) error {
	return fmt.Errorf("%s %q: %w", kind, ref, models.ErrNotFound)
}

func (r reader) GetFarmer(_ context.Context, id string) (models.Farmer, error) {
	if f, ok := r.st.farmers[id]; ok {
		return f, nil
	}
	for _, f := range r.st.farmers {
		if f.FarmerID == id {
			return f, nil
		}
	}
	return models.Farmer{}, notFound("farmer", id)
}

func (r reader) ListFarmers(context.Context) ([]models.Farmer, error) {
	out := make([]models.Farmer, 0, len(r.st.farmers))
	for _, f := range r.st.farmers {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FarmerID < out[j].FarmerID })
	return out, nil
}

func (r reader) getChickBatch(id string) (models.ChickStockBatch, error) {
	if b, ok := r.st.chickBatches[id]; ok {
		return b, nil
	}
	return models.ChickStockBatch{}, notFound("chick batch", id)
}

func (r reader) GetChickBatchByName(_ context.Context, name string) (models.ChickStockBatch, error) {
	for _, b := range r.st.chickBatches {
		if b.BatchName == name {
			return b, nil
		}
	}
	return models.ChickStockBatch{}, notFound("chick batch", name)
}

func (r reader) ListChickBatches(_ context.Context, filter repository.ChickBatchFilter) ([]models.ChickStockBatch, error) {
	out := make([]models.ChickStockBatch, 0, len(r.st.chickBatches))
	for _, b := range r.st.chickBatches {
		if filter.ChickType != "" && b.ChickType != filter.ChickType {
			continue
		}
		if filter.ChickBreed != "" && b.ChickBreed != filter.ChickBreed {
			continue
		}
		if filter.InStock && b.Quantity <= 0 {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchName < out[j].BatchName })
	return out, nil
}

func (r reader) GetFeedBatch(_ context.Context, id string) (models.FeedStockBatch, error) {
	if b, ok := r.st.feedBatches[id]; ok {
		return b, nil
	}
	return models.FeedStockBatch{}, notFound("feed batch", id)
}

func (r reader) GetFeedBatchByName(_ context.Context, name string) (models.FeedStockBatch, error) {
	for _, b := range r.st.feedBatches {
		if b.StockName == name {
			return b, nil
		}
	}
	return models.FeedStockBatch{}, notFound("feed batch", name)
}

func (r reader) ListFeedBatches(context.Context) ([]models.FeedStockBatch, error) {
	out := make([]models.FeedStockBatch, 0, len(r.st.feedBatches))
	for _, b := range r.st.feedBatches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StockName < out[j].StockName })
	return out, nil
}

func (r reader) GetChickRequest(_ context.Context, ref string) (models.ChickRequest, error) {
	if req, ok := r.st.requests[ref]; ok {
		return req, nil
	}
	for _, req := range r.st.requests {
		if req.RequestCode == ref {
			return req, nil
		}
	}
	return models.ChickRequest{}, notFound("chick request", ref)
}

func (r reader) ListChickRequests(_ context.Context, filter repository.RequestFilter) ([]models.ChickRequest, error) {
	out := make([]models.ChickRequest, 0)
	for _, req := range r.st.requests {
		if filter.FarmerID != "" && req.FarmerID != filter.FarmerID {
			continue
		}
		if filter.CreatedBy != "" && req.CreatedBy != filter.CreatedBy {
			continue
		}
		if !repository.HasStatus(filter.Statuses, req.Status) {
			continue
		}
		if !filter.CreatedSince.IsZero() && req.CreatedAt.Before(filter.CreatedSince) {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r reader) ListAllocationLines(_ context.Context, requestID string) ([]models.ChickAllocationLine, error) {
	out := make([]models.ChickAllocationLine, 0)
	for _, l := range r.st.lines {
		if l.RequestID == requestID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r reader) GetFeedAllocation(_ context.Context, ref string) (models.FeedAllocation, error) {
	if a, ok := r.st.allocations[ref]; ok {
		return a, nil
	}
	for _, a := range r.st.allocations {
		if a.RequestCode == ref {
			return a, nil
		}
	}
	return models.FeedAllocation{}, notFound("feed allocation", ref)
}

func (r reader) ListFeedAllocations(_ context.Context, filter repository.AllocationFilter) ([]models.FeedAllocation, error) {
	out := make([]models.FeedAllocation, 0)
	for _, a := range r.st.allocations {
		if filter.ChickRequestID != "" && a.ChickRequestID != filter.ChickRequestID {
			continue
		}
		if filter.CreatedBy != "" && a.CreatedBy != filter.CreatedBy {
			continue
		}
		if !repository.HasStatus(filter.Statuses, a.Status) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r reader) ListSales(context.Context) ([]models.Sale, error) {
	return append([]models.Sale(nil), r.st.sales...), nil
}
