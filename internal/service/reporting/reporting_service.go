package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/repository"
)

const dateLayout = "2006-01-02"

// Service computes sales and stock figures from the ledger. Figures are never
// cached: each call reads current prices.
type Service struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new reporting service instance.
func NewService(store repository.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// SetClock overrides the time source, mainly for tests.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

type chickKey struct {
	t     models.ChickType
	breed models.ChickBreed
}

// livePrices picks, per type and breed, the unit price of the most recently
// updated batch. Ties go to the later batch name.
func livePrices(batches []models.ChickStockBatch) map[chickKey]decimal.Decimal {
	latest := make(map[chickKey]models.ChickStockBatch, len(batches))
	for _, b := range batches {
		k := chickKey{b.ChickType, b.ChickBreed}
		cur, ok := latest[k]
		if !ok || b.UpdatedAt.After(cur.UpdatedAt) || (b.UpdatedAt.Equal(cur.UpdatedAt) && b.BatchName > cur.BatchName) {
			latest[k] = b
		}
	}
	prices := make(map[chickKey]decimal.Decimal, len(latest))
	for k, b := range latest {
		prices[k] = b.UnitPrice
	}
	return prices
}

// SalesSummary totals approved feed allocations and approved or completed chick
// requests at current stock prices, alongside the totals recorded at delivery.
func (s *Service) SalesSummary(ctx context.Context) (models.SalesSummary, error) {
	var summary models.SalesSummary
	err := s.store.View(ctx, func(r repository.Reader) error {
		var err error
		summary, err = s.salesSummary(ctx, r)
		return err
	})
	if err != nil {
		return models.SalesSummary{}, fmt.Errorf("sales summary: %w", err)
	}
	return summary, nil
}

func (s *Service) salesSummary(ctx context.Context, r repository.Reader) (models.SalesSummary, error) {
	summary := models.SalesSummary{
		ChickSalesTotal:    decimal.Zero,
		FeedSalesTotal:     decimal.Zero,
		RecordedSalesTotal: decimal.Zero,
		ComputedAt:         s.now().UTC(),
	}

	allocs, err := r.ListFeedAllocations(ctx, repository.AllocationFilter{Statuses: []models.RequestStatus{models.StatusApproved}})
	if err != nil {
		return summary, fmt.Errorf("list feed allocations: %w", err)
	}
	feedPrices := map[string]decimal.Decimal{}
	for _, a := range allocs {
		price, ok := feedPrices[a.FeedBatchID]
		if !ok {
			batch, err := r.GetFeedBatch(ctx, a.FeedBatchID)
			switch {
			case err == nil:
				price = batch.SellingPrice
			case models.KindOf(err) == models.KindNotFound:
				s.logger.Debug("feed allocation references missing batch", zap.String("allocation", a.RequestCode))
				price = decimal.Zero
			default:
				return summary, err
			}
			feedPrices[a.FeedBatchID] = price
		}
		summary.FeedSalesTotal = summary.FeedSalesTotal.Add(price.Mul(decimal.NewFromInt(int64(a.BagsAllocated))))
		summary.FeedAllocations++
		summary.FeedBagsSold += a.BagsAllocated
	}

	batches, err := r.ListChickBatches(ctx, repository.ChickBatchFilter{})
	if err != nil {
		return summary, fmt.Errorf("list chick batches: %w", err)
	}
	prices := livePrices(batches)

	reqs, err := r.ListChickRequests(ctx, repository.RequestFilter{
		Statuses: []models.RequestStatus{models.StatusApproved, models.StatusCompleted},
	})
	if err != nil {
		return summary, fmt.Errorf("list chick requests: %w", err)
	}
	for _, req := range reqs {
		price, ok := prices[chickKey{req.ChickType, req.ChickBreed}]
		if ok {
			summary.ChickSalesTotal = summary.ChickSalesTotal.Add(price.Mul(decimal.NewFromInt(int64(req.Quantity))))
		}
		summary.ChickRequests++
		summary.ChicksSold += req.Quantity
	}

	sales, err := r.ListSales(ctx)
	if err != nil {
		return summary, fmt.Errorf("list sales: %w", err)
	}
	for _, sale := range sales {
		summary.RecordedSalesTotal = summary.RecordedSalesTotal.Add(sale.TotalAmount)
		summary.Sales++
	}

	summary.Total = summary.ChickSalesTotal.Add(summary.FeedSalesTotal)
	return summary, nil
}

// StockSummary reports available chicks per type and breed and bags per feed batch.
func (s *Service) StockSummary(ctx context.Context) (models.StockSummary, error) {
	now := s.now()
	summary := models.StockSummary{FeedBags: map[string]int{}, ComputedAt: now.UTC()}
	err := s.store.View(ctx, func(r repository.Reader) error {
		batches, err := r.ListChickBatches(ctx, repository.ChickBatchFilter{})
		if err != nil {
			return err
		}
		levels := map[chickKey]*models.StockLevel{}
		for _, b := range batches {
			k := chickKey{b.ChickType, b.ChickBreed}
			lvl, ok := levels[k]
			if !ok {
				lvl = &models.StockLevel{ChickType: b.ChickType, ChickBreed: b.ChickBreed}
				levels[k] = lvl
			}
			lvl.Quantity += b.Quantity
			if b.Quantity > 0 {
				lvl.Batches++
			}
		}
		for _, lvl := range levels {
			summary.Chicks = append(summary.Chicks, *lvl)
		}
		sort.Slice(summary.Chicks, func(i, j int) bool {
			if summary.Chicks[i].ChickType != summary.Chicks[j].ChickType {
				return summary.Chicks[i].ChickType < summary.Chicks[j].ChickType
			}
			return summary.Chicks[i].ChickBreed < summary.Chicks[j].ChickBreed
		})

		feed, err := r.ListFeedBatches(ctx)
		if err != nil {
			return err
		}
		for _, b := range feed {
			summary.FeedBags[b.StockName] = b.Quantity
			if b.Expired(now) {
				summary.ExpiredFeed = append(summary.ExpiredFeed, b.StockName)
			}
		}
		return nil
	})
	if err != nil {
		return models.StockSummary{}, fmt.Errorf("stock summary: %w", err)
	}
	return summary, nil
}

func within(t *time.Time, start, end time.Time) bool {
	return t != nil && !t.Before(start) && t.Before(end)
}

// DailyReport summarizes activity during the calendar day containing day, in day's location.
func (s *Service) DailyReport(ctx context.Context, day time.Time) (models.DailyReport, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	report := models.DailyReport{Date: start.UTC(), CreatedAt: s.now().UTC()}
	err := s.store.View(ctx, func(r repository.Reader) error {
		reqs, err := r.ListChickRequests(ctx, repository.RequestFilter{})
		if err != nil {
			return err
		}
		for _, req := range reqs {
			created := req.CreatedAt
			if within(&created, start, end) {
				report.RequestsSubmitted++
			}
			if within(req.ApprovedOn, start, end) {
				report.RequestsApproved++
				report.ChicksAllocated += req.Quantity
			}
			if req.Status == models.StatusRejected && within(req.DecidedAt, start, end) {
				report.RequestsRejected++
			}
		}

		allocs, err := r.ListFeedAllocations(ctx, repository.AllocationFilter{Statuses: []models.RequestStatus{models.StatusApproved}})
		if err != nil {
			return err
		}
		for _, a := range allocs {
			if within(a.DecidedAt, start, end) {
				report.FeedBagsAllocated += a.BagsAllocated
			}
		}

		sales, err := r.ListSales(ctx)
		if err != nil {
			return err
		}
		recorded := decimal.Zero
		for _, sale := range sales {
			created := sale.CreatedAt
			if within(&created, start, end) {
				recorded = recorded.Add(sale.TotalAmount)
			}
		}
		report.RecordedTotal = recorded.StringFixed(2)

		summary, err := s.salesSummary(ctx, r)
		if err != nil {
			return err
		}
		report.SalesTotal = summary.Total.StringFixed(2)
		return nil
	})
	if err != nil {
		return models.DailyReport{}, fmt.Errorf("daily report %s: %w", start.Format(dateLayout), err)
	}
	return report, nil
}

// OverduePayments lists approved, unpaid feed allocations whose due date has passed asOf.
func (s *Service) OverduePayments(ctx context.Context, asOf time.Time) ([]models.OverduePayment, error) {
	var out []models.OverduePayment
	err := s.store.View(ctx, func(r repository.Reader) error {
		allocs, err := r.ListFeedAllocations(ctx, repository.AllocationFilter{Statuses: []models.RequestStatus{models.StatusApproved}})
		if err != nil {
			return err
		}
		for _, a := range allocs {
			if a.PaymentStatus != models.PaymentPending || !a.PaymentDueDate.Before(asOf) {
				continue
			}
			item := models.OverduePayment{
				Allocation: a,
				DaysLate:   int(asOf.Sub(a.PaymentDueDate).Hours() / 24),
			}
			if req, err := r.GetChickRequest(ctx, a.ChickRequestID); err == nil {
				if farmer, err := r.GetFarmer(ctx, req.FarmerID); err == nil {
					item.Farmer = farmer
				}
			}
			out = append(out, item)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("overdue payments: %w", err)
	}
	return out, nil
}
