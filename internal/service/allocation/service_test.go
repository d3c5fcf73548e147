package allocation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/repository"
	"github.com/mamadbah2/xchicks/internal/repository/memory"
	"github.com/mamadbah2/xchicks/internal/repository/repotest"
	"github.com/mamadbah2/xchicks/internal/repository/sqlstore"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, to, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, to+": "+message)
	return n.err
}

type recordingLedger struct {
	sales []models.Sale
}

func (l *recordingLedger) RecordSale(_ context.Context, sale models.Sale, _ models.ChickRequest, _ models.Farmer) error {
	l.sales = append(l.sales, sale)
	return nil
}

type fixture struct {
	store    repository.Store
	svc      *Service
	farmer   models.Farmer
	notifier *recordingNotifier
	ledger   *recordingLedger
}

func newFixture(t *testing.T, store repository.Store) *fixture {
	t.Helper()
	f := &fixture{
		store:    store,
		farmer:   repotest.Farmer("F001", models.FarmerReturning),
		notifier: &recordingNotifier{},
		ledger:   &recordingLedger{},
	}
	repotest.Seed(t, store, func(ctx context.Context, tx repository.Tx) error {
		return tx.CreateFarmer(ctx, &f.farmer)
	})
	f.svc = NewService(store, zaptest.NewLogger(t),
		WithClock(repotest.Clock()),
		WithNotifier(f.notifier),
		WithSalesLedger(f.ledger),
	)
	return f
}

func (f *fixture) batches(t *testing.T, batches ...models.ChickStockBatch) {
	t.Helper()
	repotest.Seed(t, f.store, func(ctx context.Context, tx repository.Tx) error {
		for i := range batches {
			if err := tx.CreateChickBatch(ctx, &batches[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (f *fixture) request(t *testing.T, code string, typ models.ChickType, breed models.ChickBreed, qty int) models.ChickRequest {
	t.Helper()
	req := repotest.PendingRequest(code, f.farmer, typ, breed, qty)
	repotest.Seed(t, f.store, func(ctx context.Context, tx repository.Tx) error {
		return tx.CreateChickRequest(ctx, &req)
	})
	return req
}

func (f *fixture) status(t *testing.T, id string) models.ChickRequest {
	t.Helper()
	var req models.ChickRequest
	err := f.store.View(context.Background(), func(r repository.Reader) error {
		var err error
		req, err = r.GetChickRequest(context.Background(), id)
		return err
	})
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	return req
}

func stores(t *testing.T) map[string]func(t *testing.T) repository.Store {
	return map[string]func(t *testing.T) repository.Store{
		"memory": func(*testing.T) repository.Store { return memory.New() },
		"sqlite": func(t *testing.T) repository.Store {
			s, err := sqlstore.Open(sqlstore.Config{Driver: sqlstore.DriverSQLite, DSN: ":memory:", AutoMigrate: true}, zaptest.NewLogger(t))
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestPlanDeduction(t *testing.T) {
	batches := []models.ChickStockBatch{
		{BatchName: "B", Quantity: 80},
		{BatchName: "A", Quantity: 30},
	}
	plan := planDeduction(batches, 100)
	if len(plan) != 2 || plan[0].take != 80 || plan[1].take != 20 {
		t.Fatalf("unexpected plan %+v", plan)
	}

	plan = planDeduction(batches, 50)
	if len(plan) != 1 || plan[0].batch.BatchName != "B" || plan[0].take != 50 {
		t.Fatalf("unexpected plan %+v", plan)
	}
}

func TestApproveChickRequestSpreadsAcrossBatches(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, open(t))
			f.batches(t,
				repotest.ChickBatch("A", models.ChickBroiler, models.BreedExotic, 30),
				repotest.ChickBatch("B", models.ChickBroiler, models.BreedExotic, 80),
			)
			req := f.request(t, "CR-1", models.ChickBroiler, models.BreedExotic, 100)

			approval, err := f.svc.ApproveChickRequest(context.Background(), req.ID, repotest.Manager)
			if err != nil {
				t.Fatalf("approve: %v", err)
			}
			if approval.Deducted() != 100 {
				t.Fatalf("deducted %d, want 100", approval.Deducted())
			}
			if got := repotest.BatchQuantity(t, f.store, "A"); got != 10 {
				t.Fatalf("batch A = %d, want 10", got)
			}
			if got := repotest.BatchQuantity(t, f.store, "B"); got != 0 {
				t.Fatalf("batch B = %d, want 0", got)
			}

			stored := f.status(t, req.ID)
			if stored.Status != models.StatusApproved || stored.ApprovedOn == nil || stored.DecidedBy != repotest.Manager.ID {
				t.Fatalf("unexpected stored request %+v", stored)
			}
			if len(f.notifier.sent) != 1 {
				t.Fatalf("expected one farmer notification, got %v", f.notifier.sent)
			}
		})
	}
}

func TestApproveChickRequestInsufficientStockChangesNothing(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, open(t))
			f.batches(t,
				repotest.ChickBatch("A", models.ChickLayer, models.BreedLocal, 20),
				repotest.ChickBatch("B", models.ChickLayer, models.BreedLocal, 30),
				repotest.ChickBatch("X", models.ChickLayer, models.BreedExotic, 500),
			)
			req := f.request(t, "CR-1", models.ChickLayer, models.BreedLocal, 60)

			_, err := f.svc.ApproveChickRequest(context.Background(), req.ID, repotest.Manager)
			if !errors.Is(err, models.ErrInsufficientStock) {
				t.Fatalf("expected ErrInsufficientStock, got %v", err)
			}
			if a, b := repotest.BatchQuantity(t, f.store, "A"), repotest.BatchQuantity(t, f.store, "B"); a != 20 || b != 30 {
				t.Fatalf("stock changed: A=%d B=%d", a, b)
			}
			if got := f.status(t, req.ID).Status; got != models.StatusPending {
				t.Fatalf("status = %s, want pending", got)
			}
		})
	}
}

func TestApproveChickRequestTwiceIsInvalidState(t *testing.T) {
	f := newFixture(t, memory.New())
	f.batches(t, repotest.ChickBatch("A", models.ChickLayer, models.BreedLocal, 100))
	req := f.request(t, "CR-1", models.ChickLayer, models.BreedLocal, 40)

	if _, err := f.svc.ApproveChickRequest(context.Background(), req.ID, repotest.Manager); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	_, err := f.svc.ApproveChickRequest(context.Background(), req.RequestCode, repotest.Manager)
	if !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if got := repotest.BatchQuantity(t, f.store, "A"); got != 60 {
		t.Fatalf("batch A = %d, want 60", got)
	}
}

func TestApproveChickRequestUnknownAndForbidden(t *testing.T) {
	f := newFixture(t, memory.New())

	if _, err := f.svc.ApproveChickRequest(context.Background(), "nope", repotest.Manager); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.ApproveChickRequest(context.Background(), "nope", repotest.Agent); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestConcurrentApprovalsNeverOversell(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, open(t))
			f.batches(t, repotest.ChickBatch("A", models.ChickLayer, models.BreedLocal, 100))

			second := repotest.Farmer("F002", models.FarmerReturning)
			repotest.Seed(t, f.store, func(ctx context.Context, tx repository.Tx) error {
				return tx.CreateFarmer(ctx, &second)
			})
			r1 := f.request(t, "CR-1", models.ChickLayer, models.BreedLocal, 80)
			r2 := repotest.PendingRequest("CR-2", second, models.ChickLayer, models.BreedLocal, 80)
			repotest.Seed(t, f.store, func(ctx context.Context, tx repository.Tx) error {
				return tx.CreateChickRequest(ctx, &r2)
			})

			var wg sync.WaitGroup
			errs := make([]error, 2)
			for i, id := range []string{r1.ID, r2.ID} {
				wg.Add(1)
				go func(i int, id string) {
					defer wg.Done()
					_, errs[i] = f.svc.ApproveChickRequest(context.Background(), id, repotest.Manager)
				}(i, id)
			}
			wg.Wait()

			succeeded := 0
			for _, err := range errs {
				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, models.ErrInsufficientStock), errors.Is(err, models.ErrContention):
				default:
					t.Fatalf("unexpected error %v", err)
				}
			}
			if succeeded != 1 {
				t.Fatalf("succeeded = %d, want 1 (errs %v)", succeeded, errs)
			}
			if got := repotest.BatchQuantity(t, f.store, "A"); got != 20 {
				t.Fatalf("batch A = %d, want 20", got)
			}
		})
	}
}

func TestRejectChickRequestCascadesToPendingFeed(t *testing.T) {
	f := newFixture(t, memory.New())
	req := f.request(t, "CR-1", models.ChickLayer, models.BreedLocal, 40)
	feed := repotest.FeedBatch("FEED-1", 10, 95000)
	var alloc models.FeedAllocation
	repotest.Seed(t, f.store, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.CreateFeedBatch(ctx, &feed); err != nil {
			return err
		}
		alloc = repotest.PendingFeed("FA-1", req, feed, 2)
		return tx.CreateFeedAllocation(ctx, &alloc)
	})

	rejected, err := f.svc.RejectChickRequest(context.Background(), req.ID, repotest.Manager, "duplicate order")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != models.StatusRejected || rejected.RejectionReason != "duplicate order" {
		t.Fatalf("unexpected request %+v", rejected)
	}

	err = f.store.View(context.Background(), func(r repository.Reader) error {
		got, err := r.GetFeedAllocation(context.Background(), alloc.ID)
		if err != nil {
			return err
		}
		if got.Status != models.StatusRejected || got.PaymentStatus != models.PaymentRejected {
			t.Fatalf("feed allocation not rejected: %+v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}

	if _, err := f.svc.RejectChickRequest(context.Background(), req.ID, repotest.Manager, ""); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("second reject: expected ErrInvalidState, got %v", err)
	}
}

func TestRejectAfterApproveIsInvalidState(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, open(t))
			f.batches(t,
				repotest.ChickBatch("A", models.ChickLayer, models.BreedLocal, 30),
				repotest.ChickBatch("B", models.ChickLayer, models.BreedLocal, 20),
			)
			req := f.request(t, "CR-1", models.ChickLayer, models.BreedLocal, 40)

			if _, err := f.svc.ApproveChickRequest(context.Background(), req.ID, repotest.Manager); err != nil {
				t.Fatalf("approve: %v", err)
			}
			a, b := repotest.BatchQuantity(t, f.store, "A"), repotest.BatchQuantity(t, f.store, "B")

			if _, err := f.svc.RejectChickRequest(context.Background(), req.ID, repotest.Manager, "changed mind"); !errors.Is(err, models.ErrInvalidState) {
				t.Fatalf("reject after approval: expected ErrInvalidState, got %v", err)
			}
			got := f.status(t, req.ID)
			if got.Status != models.StatusApproved || got.RejectionReason != "" {
				t.Fatalf("approved request changed: %+v", got)
			}
			if qa, qb := repotest.BatchQuantity(t, f.store, "A"), repotest.BatchQuantity(t, f.store, "B"); qa != a || qb != b {
				t.Fatalf("stock moved after rejected reject: A %d->%d, B %d->%d", a, qa, b, qb)
			}
		})
	}
}

func TestMarkChickDeliveredRecordsSaleAtApprovalPrices(t *testing.T) {
	f := newFixture(t, memory.New())
	cheap := repotest.ChickBatch("A", models.ChickLayer, models.BreedLocal, 10)
	cheap.UnitPrice = decimal.NewFromInt(1500)
	f.batches(t, cheap, repotest.ChickBatch("B", models.ChickLayer, models.BreedLocal, 30))
	req := f.request(t, "CR-1", models.ChickLayer, models.BreedLocal, 35)

	if _, err := f.svc.MarkChickDelivered(context.Background(), req.ID, repotest.Manager); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("deliver before approval: expected ErrInvalidState, got %v", err)
	}
	if _, err := f.svc.ApproveChickRequest(context.Background(), req.ID, repotest.Manager); err != nil {
		t.Fatalf("approve: %v", err)
	}

	sale, err := f.svc.MarkChickDelivered(context.Background(), req.ID, repotest.Manager)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	// 30 x 1650 from B, 5 x 1500 from A.
	want := decimal.NewFromInt(30*1650 + 5*1500)
	if !sale.TotalAmount.Equal(want) {
		t.Fatalf("sale total = %s, want %s", sale.TotalAmount, want)
	}
	if len(f.ledger.sales) != 1 {
		t.Fatalf("ledger got %d sales", len(f.ledger.sales))
	}
	stored := f.status(t, req.ID)
	if stored.Status != models.StatusCompleted || !stored.Delivered {
		t.Fatalf("unexpected stored request %+v", stored)
	}

	if _, err := f.svc.MarkChickDelivered(context.Background(), req.ID, repotest.Manager); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("second delivery: expected ErrInvalidState, got %v", err)
	}
}

func TestNotificationFailureDoesNotFailApproval(t *testing.T) {
	f := newFixture(t, memory.New())
	f.notifier.err = errors.New("whatsapp down")
	f.batches(t, repotest.ChickBatch("A", models.ChickLayer, models.BreedLocal, 10))
	req := f.request(t, "CR-1", models.ChickLayer, models.BreedLocal, 10)

	if _, err := f.svc.ApproveChickRequest(context.Background(), req.ID, repotest.Manager); err != nil {
		t.Fatalf("approve: %v", err)
	}
}
