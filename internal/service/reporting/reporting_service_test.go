package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/repository"
	"github.com/mamadbah2/xchicks/internal/repository/memory"
	"github.com/mamadbah2/xchicks/internal/repository/repotest"
)

type ledger struct {
	store   repository.Store
	svc     *Service
	farmer  models.Farmer
	latest  models.ChickStockBatch
	feed    models.FeedStockBatch
	overdue models.FeedAllocation
}

func seedLedger(t *testing.T) *ledger {
	t.Helper()
	store := memory.New(memory.WithClock(repotest.Clock()))
	l := &ledger{store: store, farmer: repotest.Farmer("F001", models.FarmerReturning)}

	old := repotest.ChickBatch("A", models.ChickLayer, models.BreedLocal, 100)
	old.CreatedAt = repotest.Day.AddDate(0, 0, -10)
	l.latest = repotest.ChickBatch("B", models.ChickLayer, models.BreedLocal, 100)
	l.latest.UnitPrice = decimal.NewFromInt(2000)
	l.latest.CreatedAt = repotest.Day.AddDate(0, 0, -1)
	l.feed = repotest.FeedBatch("MASH", 50, 95000)

	approvedOn := repotest.Day
	repotest.Seed(t, store, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.CreateFarmer(ctx, &l.farmer); err != nil {
			return err
		}
		for _, b := range []*models.ChickStockBatch{&old, &l.latest} {
			if err := tx.CreateChickBatch(ctx, b); err != nil {
				return err
			}
		}
		if err := tx.CreateFeedBatch(ctx, &l.feed); err != nil {
			return err
		}

		approved := repotest.PendingRequest("CR-1", l.farmer, models.ChickLayer, models.BreedLocal, 40)
		approved.Status = models.StatusApproved
		approved.ApprovedOn = &approvedOn
		completed := repotest.PendingRequest("CR-2", l.farmer, models.ChickLayer, models.BreedLocal, 10)
		completed.Status = models.StatusCompleted
		completed.CreatedAt = repotest.Day.AddDate(0, 0, -30)
		pending := repotest.PendingRequest("CR-3", l.farmer, models.ChickLayer, models.BreedLocal, 100)
		rejected := repotest.PendingRequest("CR-4", l.farmer, models.ChickLayer, models.BreedLocal, 100)
		rejected.Status = models.StatusRejected
		rejected.DecidedAt = &approvedOn
		unpriced := repotest.PendingRequest("CR-5", l.farmer, models.ChickBroiler, models.BreedExotic, 5)
		unpriced.Status = models.StatusApproved
		for _, r := range []*models.ChickRequest{&approved, &completed, &pending, &rejected, &unpriced} {
			if err := tx.CreateChickRequest(ctx, r); err != nil {
				return err
			}
		}

		sale := models.Sale{ChickRequestID: completed.ID, TotalAmount: decimal.NewFromInt(16500), RecordedBy: repotest.Manager.ID, CreatedAt: repotest.Day}
		if err := tx.CreateSale(ctx, &sale); err != nil {
			return err
		}

		decided := repotest.Day
		feedApproved := repotest.PendingFeed("FA-1", approved, l.feed, 2)
		feedApproved.Status = models.StatusApproved
		feedApproved.DecidedAt = &decided
		l.overdue = repotest.PendingFeed("FA-2", completed, l.feed, 1)
		l.overdue.Status = models.StatusApproved
		l.overdue.PaymentDueDate = repotest.Day.AddDate(0, 0, -5)
		feedPending := repotest.PendingFeed("FA-3", pending, l.feed, 4)
		for _, a := range []*models.FeedAllocation{&feedApproved, &l.overdue, &feedPending} {
			if err := tx.CreateFeedAllocation(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})

	l.svc = NewService(store, zaptest.NewLogger(t))
	l.svc.SetClock(repotest.Clock())
	return l
}

func TestSalesSummaryUsesLivePrices(t *testing.T) {
	l := seedLedger(t)

	summary, err := l.svc.SalesSummary(context.Background())
	if err != nil {
		t.Fatalf("sales summary: %v", err)
	}

	// 50 approved/completed layer-local chicks at the latest batch price, broiler-exotic has no batch.
	if want := decimal.NewFromInt(50 * 2000); !summary.ChickSalesTotal.Equal(want) {
		t.Fatalf("chick total = %s, want %s", summary.ChickSalesTotal, want)
	}
	if want := decimal.NewFromInt(3 * 95000); !summary.FeedSalesTotal.Equal(want) {
		t.Fatalf("feed total = %s, want %s", summary.FeedSalesTotal, want)
	}
	if want := decimal.NewFromInt(50*2000 + 3*95000); !summary.Total.Equal(want) {
		t.Fatalf("total = %s, want %s", summary.Total, want)
	}
	if !summary.RecordedSalesTotal.Equal(decimal.NewFromInt(16500)) || summary.Sales != 1 {
		t.Fatalf("recorded = %s over %d sales", summary.RecordedSalesTotal, summary.Sales)
	}
	if summary.ChickRequests != 3 || summary.ChicksSold != 55 || summary.FeedBagsSold != 3 {
		t.Fatalf("unexpected counts %+v", summary)
	}

	// Repricing the feed batch moves the total on the next read.
	repotest.Seed(t, l.store, func(ctx context.Context, tx repository.Tx) error {
		b, err := tx.LockFeedBatch(ctx, l.feed.ID)
		if err != nil {
			return err
		}
		b.SellingPrice = decimal.NewFromInt(100000)
		return tx.UpdateFeedBatch(ctx, &b)
	})
	summary, err = l.svc.SalesSummary(context.Background())
	if err != nil {
		t.Fatalf("sales summary: %v", err)
	}
	if want := decimal.NewFromInt(300000); !summary.FeedSalesTotal.Equal(want) {
		t.Fatalf("feed total after reprice = %s, want %s", summary.FeedSalesTotal, want)
	}
}

func TestStockSummary(t *testing.T) {
	l := seedLedger(t)
	summary, err := l.svc.StockSummary(context.Background())
	if err != nil {
		t.Fatalf("stock summary: %v", err)
	}
	if len(summary.Chicks) != 1 || summary.Chicks[0].Quantity != 200 || summary.Chicks[0].Batches != 2 {
		t.Fatalf("unexpected chick levels %+v", summary.Chicks)
	}
	if summary.FeedBags["MASH"] != 50 {
		t.Fatalf("feed bags = %v", summary.FeedBags)
	}
	if text := FormatStock(summary); !strings.Contains(text, "local layer: 200 chicks in 2 batches") {
		t.Fatalf("unexpected stock text %q", text)
	}
}

func TestDailyReport(t *testing.T) {
	l := seedLedger(t)
	report, err := l.svc.DailyReport(context.Background(), repotest.Day)
	if err != nil {
		t.Fatalf("daily report: %v", err)
	}

	if report.RequestsSubmitted != 4 {
		t.Fatalf("submitted = %d, want 4", report.RequestsSubmitted)
	}
	if report.RequestsApproved != 1 || report.ChicksAllocated != 40 {
		t.Fatalf("approved = %d chicks = %d", report.RequestsApproved, report.ChicksAllocated)
	}
	if report.RequestsRejected != 1 {
		t.Fatalf("rejected = %d, want 1", report.RequestsRejected)
	}
	if report.FeedBagsAllocated != 2 {
		t.Fatalf("feed bags = %d, want 2", report.FeedBagsAllocated)
	}
	if report.RecordedTotal != "16500.00" {
		t.Fatalf("recorded total = %s", report.RecordedTotal)
	}
	if !strings.Contains(FormatDaily(report), "4 submitted") {
		t.Fatalf("unexpected daily text %q", FormatDaily(report))
	}

	quiet, err := l.svc.DailyReport(context.Background(), repotest.Day.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("daily report: %v", err)
	}
	if quiet.RequestsSubmitted != 0 || quiet.RecordedTotal != "0.00" {
		t.Fatalf("expected a quiet day, got %+v", quiet)
	}
}

func TestOverduePayments(t *testing.T) {
	l := seedLedger(t)
	overdue, err := l.svc.OverduePayments(context.Background(), repotest.Day)
	if err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if len(overdue) != 1 {
		t.Fatalf("overdue = %+v, want one", overdue)
	}
	item := overdue[0]
	if item.Allocation.RequestCode != "FA-2" || item.Farmer.FarmerID != "F001" || item.DaysLate != 5 {
		t.Fatalf("unexpected overdue item %+v", item)
	}
	if !strings.Contains(FormatReminder(item), "FA-2") {
		t.Fatalf("reminder missing code: %q", FormatReminder(item))
	}

	none, _ := l.svc.OverduePayments(context.Background(), repotest.Day.Add(-7*24*time.Hour))
	if len(none) != 0 {
		t.Fatalf("nothing should be overdue a week earlier, got %d", len(none))
	}
}
