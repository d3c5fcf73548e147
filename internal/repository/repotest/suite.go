package repotest

import (
	"context"
	"errors"
	"testing"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/repository"
)

// RunStoreSuite exercises the repository contracts against stores built by open.
func RunStoreSuite(t *testing.T, open func(t *testing.T) repository.Store) {
	t.Run("farmer lookup by id and farmer id", func(t *testing.T) {
		store := open(t)
		farmer := Farmer("F001", models.FarmerStarter)
		Seed(t, store, func(ctx context.Context, tx repository.Tx) error {
			return tx.CreateFarmer(ctx, &farmer)
		})
		if farmer.ID == "" {
			t.Fatal("expected id to be assigned on create")
		}

		err := store.View(context.Background(), func(r repository.Reader) error {
			for _, ref := range []string{farmer.ID, "F001"} {
				got, err := r.GetFarmer(context.Background(), ref)
				if err != nil {
					return err
				}
				if got.NIN != farmer.NIN {
					t.Fatalf("GetFarmer(%s) NIN = %s, want %s", ref, got.NIN, farmer.NIN)
				}
			}
			_, err := r.GetFarmer(context.Background(), "missing")
			if !errors.Is(err, models.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("view: %v", err)
		}
	})

	t.Run("duplicate farmer is a validation failure", func(t *testing.T) {
		store := open(t)
		first := Farmer("F001", models.FarmerStarter)
		Seed(t, store, func(ctx context.Context, tx repository.Tx) error {
			return tx.CreateFarmer(ctx, &first)
		})

		dup := Farmer("F001", models.FarmerReturning)
		err := store.WithinTx(context.Background(), func(tx repository.Tx) error {
			return tx.CreateFarmer(context.Background(), &dup)
		})
		if models.KindOf(err) != models.KindValidationFailed || models.ViolatedRule(err) != "unique" {
			t.Fatalf("expected unique violation, got %v", err)
		}
	})

	t.Run("failed unit of work leaves no trace", func(t *testing.T) {
		store := open(t)
		batch := ChickBatch("A", models.ChickLayer, models.BreedLocal, 10)
		Seed(t, store, func(ctx context.Context, tx repository.Tx) error {
			return tx.CreateChickBatch(ctx, &batch)
		})

		boom := errors.New("boom")
		err := store.WithinTx(context.Background(), func(tx repository.Tx) error {
			b, err := tx.LockChickBatch(context.Background(), batch.ID)
			if err != nil {
				return err
			}
			b.Quantity = 0
			if err := tx.UpdateChickBatch(context.Background(), &b); err != nil {
				return err
			}
			extra := ChickBatch("B", models.ChickLayer, models.BreedLocal, 5)
			if err := tx.CreateChickBatch(context.Background(), &extra); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}

		if got := BatchQuantity(t, store, "A"); got != 10 {
			t.Fatalf("batch A quantity = %d, want 10", got)
		}
		_ = store.View(context.Background(), func(r repository.Reader) error {
			if _, err := r.GetChickBatchByName(context.Background(), "B"); !errors.Is(err, models.ErrNotFound) {
				t.Fatalf("batch B should not exist, got %v", err)
			}
			return nil
		})
	})

	t.Run("matching batches are ordered for allocation", func(t *testing.T) {
		store := open(t)
		Seed(t, store, func(ctx context.Context, tx repository.Tx) error {
			for _, b := range []models.ChickStockBatch{
				ChickBatch("A", models.ChickBroiler, models.BreedExotic, 30),
				ChickBatch("C", models.ChickBroiler, models.BreedExotic, 80),
				ChickBatch("B", models.ChickBroiler, models.BreedExotic, 80),
				ChickBatch("EMPTY", models.ChickBroiler, models.BreedExotic, 0),
				ChickBatch("OTHER", models.ChickLayer, models.BreedExotic, 500),
			} {
				b := b
				if err := tx.CreateChickBatch(ctx, &b); err != nil {
					return err
				}
			}
			return nil
		})

		var names []string
		err := store.WithinTx(context.Background(), func(tx repository.Tx) error {
			batches, err := tx.LockChickBatches(context.Background(), models.ChickBroiler, models.BreedExotic)
			for _, b := range batches {
				names = append(names, b.BatchName)
			}
			return err
		})
		if err != nil {
			t.Fatalf("lock batches: %v", err)
		}
		want := []string{"B", "C", "A"}
		if len(names) != len(want) {
			t.Fatalf("batches = %v, want %v", names, want)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Fatalf("batches = %v, want %v", names, want)
			}
		}
	})

	t.Run("request listing filters", func(t *testing.T) {
		store := open(t)
		farmer := Farmer("F001", models.FarmerReturning)
		Seed(t, store, func(ctx context.Context, tx repository.Tx) error {
			if err := tx.CreateFarmer(ctx, &farmer); err != nil {
				return err
			}
			old := PendingRequest("CR-OLD", farmer, models.ChickLayer, models.BreedLocal, 50)
			old.CreatedAt = Day.AddDate(0, 0, -200)
			old.Status = models.StatusApproved
			recent := PendingRequest("CR-NEW", farmer, models.ChickLayer, models.BreedLocal, 50)
			if err := tx.CreateChickRequest(ctx, &old); err != nil {
				return err
			}
			return tx.CreateChickRequest(ctx, &recent)
		})

		err := store.View(context.Background(), func(r repository.Reader) error {
			ctx := context.Background()
			all, err := r.ListChickRequests(ctx, repository.RequestFilter{FarmerID: farmer.ID})
			if err != nil {
				return err
			}
			if len(all) != 2 || all[0].RequestCode != "CR-OLD" {
				t.Fatalf("unexpected listing %+v", all)
			}

			recent, err := r.ListChickRequests(ctx, repository.RequestFilter{
				FarmerID:     farmer.ID,
				CreatedSince: Day.AddDate(0, 0, -120),
			})
			if err != nil {
				return err
			}
			if len(recent) != 1 || recent[0].RequestCode != "CR-NEW" {
				t.Fatalf("window listing = %+v", recent)
			}

			approved, err := r.ListChickRequests(ctx, repository.RequestFilter{Statuses: []models.RequestStatus{models.StatusApproved}})
			if err != nil {
				return err
			}
			if len(approved) != 1 || approved[0].RequestCode != "CR-OLD" {
				t.Fatalf("status listing = %+v", approved)
			}

			byCode, err := r.GetChickRequest(ctx, "CR-NEW")
			if err != nil {
				return err
			}
			if byCode.Quantity != 50 {
				t.Fatalf("lookup by code returned %+v", byCode)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("view: %v", err)
		}
	})

	t.Run("updating a missing row is not found", func(t *testing.T) {
		store := open(t)
		err := store.WithinTx(context.Background(), func(tx repository.Tx) error {
			ghost := ChickBatch("GHOST", models.ChickLayer, models.BreedLocal, 1)
			ghost.ID = "does-not-exist"
			return tx.UpdateChickBatch(context.Background(), &ghost)
		})
		if !errors.Is(err, models.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
