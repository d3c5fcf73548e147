package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/repository"
	"github.com/mamadbah2/xchicks/internal/repository/repotest"
)

func TestStoreContract(t *testing.T) {
	repotest.RunStoreSuite(t, func(*testing.T) repository.Store {
		return New(WithClock(repotest.Clock()))
	})
}

func TestLockWaitTimesOutAsContention(t *testing.T) {
	store := New(WithLockTimeout(20 * time.Millisecond))

	holding := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- store.WithinTx(context.Background(), func(repository.Tx) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	err := store.WithinTx(context.Background(), func(repository.Tx) error { return nil })
	close(release)

	if !errors.Is(err, models.ErrContention) {
		t.Fatalf("expected ErrContention, got %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("holder failed: %v", err)
	}
}

func TestViewSeesOnlyCommittedState(t *testing.T) {
	store := New()
	batch := repotest.ChickBatch("A", models.ChickLayer, models.BreedLocal, 10)
	repotest.Seed(t, store, func(ctx context.Context, tx repository.Tx) error {
		return tx.CreateChickBatch(ctx, &batch)
	})

	err := store.WithinTx(context.Background(), func(tx repository.Tx) error {
		b, err := tx.LockChickBatch(context.Background(), batch.ID)
		if err != nil {
			return err
		}
		b.Quantity = 3
		if err := tx.UpdateChickBatch(context.Background(), &b); err != nil {
			return err
		}
		if got := repotest.BatchQuantity(t, store, "A"); got != 10 {
			t.Errorf("uncommitted write visible: quantity %d", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	if got := repotest.BatchQuantity(t, store, "A"); got != 3 {
		t.Fatalf("quantity after commit = %d, want 3", got)
	}
}
