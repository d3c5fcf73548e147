// Package repotest holds fixtures and a behavioural suite shared by the
// repository.Store implementations and the services built on them.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/repository"
)

// Day is the fixed "today" used by fixtures.
var Day = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

// Clock returns a time source frozen at Day.
func Clock() func() time.Time {
	return func() time.Time { return Day }
}

// Agent and Manager are ready-made actors.
var (
	Agent   = models.Actor{ID: "agent-1", Role: models.RoleSalesAgent}
	Manager = models.Actor{ID: "manager-1", Role: models.RoleManager}
)

// Seed runs fn in a committed unit of work and fails the test on error.
func Seed(t testing.TB, store repository.Store, fn func(ctx context.Context, tx repository.Tx) error) {
	t.Helper()
	ctx := context.Background()
	if err := store.WithinTx(ctx, func(tx repository.Tx) error { return fn(ctx, tx) }); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

// ChickBatch builds a batch priced at the default unit price.
func ChickBatch(name string, t models.ChickType, breed models.ChickBreed, qty int) models.ChickStockBatch {
	return models.ChickStockBatch{
		BatchName:  name,
		ChickType:  t,
		ChickBreed: breed,
		ChickAge:   2,
		UnitPrice:  models.DefaultChickPrice,
		Quantity:   qty,
	}
}

// FeedBatch builds a batch of bags selling at price, expiring a year after Day.
func FeedBatch(name string, qty int, price int64) models.FeedStockBatch {
	return models.FeedStockBatch{
		StockName:     name,
		FeedName:      "Chick Mash",
		FeedType:      "starter",
		FeedBrand:     "Ugachick",
		PurchasePrice: decimal.NewFromInt(price - 10000),
		SellingPrice:  decimal.NewFromInt(price),
		Quantity:      qty,
		ExpiryDate:    Day.AddDate(1, 0, 0),
		Supplier:      "Ugachick Ltd",
	}
}

// Farmer builds a valid farmer of the given type.
func Farmer(farmerID string, typ models.FarmerType) models.Farmer {
	return models.Farmer{
		FarmerID:     farmerID,
		Name:         "Farmer " + farmerID,
		Type:         typ,
		DateOfBirth:  Day.AddDate(-25, 0, 0),
		Age:          25,
		Gender:       "F",
		Location:     "Mukono",
		NIN:          "CF" + padNIN(farmerID),
		Phone:        "+256700000001",
		RegisteredBy: Agent.ID,
		RegisteredAt: Day,
	}
}

func padNIN(s string) string {
	const width = 12
	out := []rune("000000000000")
	src := []rune(s)
	for i := 0; i < len(src) && i < width; i++ {
		out[width-len(src)+i] = src[i]
	}
	return string(out)
}

// PendingRequest builds a pending chick request for farmer.
func PendingRequest(code string, farmer models.Farmer, t models.ChickType, breed models.ChickBreed, qty int) models.ChickRequest {
	return models.ChickRequest{
		RequestCode:     code,
		FarmerID:        farmer.ID,
		FarmerType:      farmer.Type,
		ChickType:       t,
		ChickBreed:      breed,
		Quantity:        qty,
		ChickPeriod:     1,
		FeedTaken:       true,
		PaymentTerms:    models.PaymentCash,
		ReceivedThrough: models.ChannelWalkIn,
		Status:          models.StatusPending,
		CreatedBy:       Agent.ID,
		CreatedAt:       Day,
	}
}

// PendingFeed builds a pending feed allocation of bags from batch against req.
func PendingFeed(code string, req models.ChickRequest, batch models.FeedStockBatch, bags int) models.FeedAllocation {
	return models.FeedAllocation{
		RequestCode:    code,
		ChickRequestID: req.ID,
		FeedBatchID:    batch.ID,
		FeedName:       batch.FeedName,
		FeedType:       batch.FeedType,
		FeedBrand:      batch.FeedBrand,
		BagsAllocated:  bags,
		AmountDue:      batch.SellingPrice.Mul(decimal.NewFromInt(int64(bags))),
		PaymentDueDate: Day.AddDate(0, 0, 60),
		PaymentStatus:  models.PaymentPending,
		Status:         models.StatusPending,
		CreatedBy:      Agent.ID,
		CreatedAt:      Day,
	}
}

// BatchQuantity reads the current quantity of a chick batch by name.
func BatchQuantity(t testing.TB, store repository.Store, name string) int {
	t.Helper()
	var qty int
	err := store.View(context.Background(), func(r repository.Reader) error {
		b, err := r.GetChickBatchByName(context.Background(), name)
		qty = b.Quantity
		return err
	})
	if err != nil {
		t.Fatalf("read batch %s: %v", name, err)
	}
	return qty
}
