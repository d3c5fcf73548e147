// Package registry maintains farmers and stock batches and serves the listings
// agents and managers browse.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/repository"
)

// FarmerInput is the registration form for a farmer.
type FarmerInput struct {
	FarmerID        string            `json:"farmer_id" validate:"required,alphanum,max=15"`
	Name            string            `json:"name" validate:"required,max=50"`
	Type            models.FarmerType `json:"type" validate:"required,oneof=starter returning"`
	DateOfBirth     time.Time         `json:"date_of_birth" validate:"required"`
	Age             int               `json:"age" validate:"gte=20,lte=30"`
	Gender          string            `json:"gender" validate:"required,oneof=M F"`
	Location        string            `json:"location" validate:"required,max=30"`
	NIN             string            `json:"nin" validate:"required,nin"`
	Phone           string            `json:"phone" validate:"required,phone"`
	RecommenderName string            `json:"recommender_name" validate:"max=50"`
	RecommenderNIN  string            `json:"recommender_nin" validate:"omitempty,nin"`
	RecommenderTel  string            `json:"recommender_tel" validate:"omitempty,phone"`
}

// ChickBatchInput creates a chick batch. A nil UnitPrice means the default price.
type ChickBatchInput struct {
	BatchName  string           `json:"batch_name" validate:"required,max=25"`
	ChickType  models.ChickType  `json:"chick_type" validate:"required,oneof=layer broiler"`
	ChickBreed models.ChickBreed `json:"chick_breed" validate:"required,oneof=local exotic"`
	ChickAge   int              `json:"chick_age" validate:"gte=1"`
	UnitPrice  *decimal.Decimal `json:"unit_price"`
	Quantity   int              `json:"quantity" validate:"gte=0"`
}

// FeedBatchInput creates a feed batch.
type FeedBatchInput struct {
	StockName       string          `json:"stock_name" validate:"required,max=25"`
	FeedName        string          `json:"feed_name" validate:"required,max=25"`
	FeedType        string          `json:"feed_type" validate:"required,max=25"`
	FeedBrand       string          `json:"feed_brand" validate:"required,max=25"`
	PurchasePrice   decimal.Decimal `json:"purchase_price"`
	SellingPrice    decimal.Decimal `json:"selling_price"`
	Quantity        int             `json:"quantity" validate:"gte=0"`
	ExpiryDate      time.Time       `json:"expiry_date" validate:"required"`
	Supplier        string          `json:"supplier" validate:"max=100"`
	SupplierContact string          `json:"supplier_contact" validate:"omitempty,phone"`
}

// RestockInput adds units to a batch and optionally changes its price.
type RestockInput struct {
	Quantity int              `json:"quantity" validate:"gte=0"`
	Price    *decimal.Decimal `json:"price"`
}

// Service is the registry of farmers and stock.
type Service struct {
	store    repository.Store
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a registry over store.
func NewService(store repository.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, validate: newValidator(), logger: logger, now: time.Now}
}

// SetClock overrides the time source, mainly for tests.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func require(actor models.Actor, c models.Capability) error {
	if !actor.Valid() || !actor.Can(c) {
		return fmt.Errorf("%w: %s lacks %s", models.ErrForbidden, actor.Role, c)
	}
	return nil
}

func (s *Service) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return toDomain(err)
	}
	return nil
}

// RegisterFarmer stores a new farmer owned by the registering actor.
func (s *Service) RegisterFarmer(ctx context.Context, actor models.Actor, in FarmerInput) (models.Farmer, error) {
	if err := require(actor, models.CapRegisterFarmer); err != nil {
		return models.Farmer{}, err
	}
	if err := s.check(in); err != nil {
		return models.Farmer{}, err
	}

	now := s.now().UTC()
	if got := models.YearsBetween(in.DateOfBirth, now); got != in.Age {
		return models.Farmer{}, models.Invalid("fields", "age %d does not match date of birth (%d years)", in.Age, got)
	}

	farmer := models.Farmer{
		FarmerID:        in.FarmerID,
		Name:            in.Name,
		Type:            in.Type,
		DateOfBirth:     in.DateOfBirth.UTC(),
		Age:             in.Age,
		Gender:          in.Gender,
		Location:        in.Location,
		NIN:             in.NIN,
		Phone:           in.Phone,
		RecommenderName: in.RecommenderName,
		RecommenderNIN:  in.RecommenderNIN,
		RecommenderTel:  in.RecommenderTel,
		RegisteredBy:    actor.ID,
		RegisteredAt:    now,
	}
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.CreateFarmer(ctx, &farmer)
	})
	if err != nil {
		return models.Farmer{}, err
	}

	s.logger.Info("farmer registered", zap.String("farmer", farmer.FarmerID), zap.String("type", string(farmer.Type)), zap.String("agent", actor.ID))
	return farmer, nil
}

// CreateChickBatch adds a new chick batch to inventory.
func (s *Service) CreateChickBatch(ctx context.Context, actor models.Actor, in ChickBatchInput) (models.ChickStockBatch, error) {
	if err := require(actor, models.CapManageStock); err != nil {
		return models.ChickStockBatch{}, err
	}
	if err := s.check(in); err != nil {
		return models.ChickStockBatch{}, err
	}

	price := models.DefaultChickPrice
	if in.UnitPrice != nil {
		if !in.UnitPrice.IsPositive() {
			return models.ChickStockBatch{}, models.Invalid("fields", "unit_price must be positive")
		}
		price = *in.UnitPrice
	}

	batch := models.ChickStockBatch{
		BatchName:  in.BatchName,
		ChickType:  in.ChickType,
		ChickBreed: in.ChickBreed,
		ChickAge:   in.ChickAge,
		UnitPrice:  price,
		Quantity:   in.Quantity,
	}
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.CreateChickBatch(ctx, &batch)
	})
	if err != nil {
		return models.ChickStockBatch{}, err
	}

	s.logger.Info("chick batch created", zap.String("batch", batch.BatchName), zap.Int("quantity", batch.Quantity))
	return batch, nil
}

// RestockChickBatch adds units to a named batch and optionally reprices it.
func (s *Service) RestockChickBatch(ctx context.Context, actor models.Actor, name string, in RestockInput) (models.ChickStockBatch, error) {
	if err := s.checkRestock(actor, in); err != nil {
		return models.ChickStockBatch{}, err
	}

	var batch models.ChickStockBatch
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		found, err := tx.GetChickBatchByName(ctx, name)
		if err != nil {
			return err
		}
		batch, err = tx.LockChickBatch(ctx, found.ID)
		if err != nil {
			return err
		}
		batch.Quantity += in.Quantity
		if in.Price != nil {
			batch.UnitPrice = *in.Price
		}
		return tx.UpdateChickBatch(ctx, &batch)
	})
	if err != nil {
		return models.ChickStockBatch{}, err
	}

	s.logger.Info("chick batch restocked", zap.String("batch", name), zap.Int("added", in.Quantity), zap.Int("quantity", batch.Quantity))
	return batch, nil
}

// CreateFeedBatch adds a new feed batch. Expired stock is refused.
func (s *Service) CreateFeedBatch(ctx context.Context, actor models.Actor, in FeedBatchInput) (models.FeedStockBatch, error) {
	if err := require(actor, models.CapManageStock); err != nil {
		return models.FeedStockBatch{}, err
	}
	if err := s.check(in); err != nil {
		return models.FeedStockBatch{}, err
	}
	if !in.SellingPrice.IsPositive() || in.PurchasePrice.IsNegative() {
		return models.FeedStockBatch{}, models.Invalid("fields", "prices must not be negative and selling_price must be positive")
	}

	batch := models.FeedStockBatch{
		StockName:       in.StockName,
		FeedName:        in.FeedName,
		FeedType:        in.FeedType,
		FeedBrand:       in.FeedBrand,
		PurchasePrice:   in.PurchasePrice,
		SellingPrice:    in.SellingPrice,
		Quantity:        in.Quantity,
		ExpiryDate:      in.ExpiryDate.UTC(),
		Supplier:        in.Supplier,
		SupplierContact: in.SupplierContact,
	}
	if batch.Expired(s.now()) {
		return models.FeedStockBatch{}, models.Invalid("expired", "expiry date %s is in the past", batch.ExpiryDate.Format("2006-01-02"))
	}

	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.CreateFeedBatch(ctx, &batch)
	})
	if err != nil {
		return models.FeedStockBatch{}, err
	}

	s.logger.Info("feed batch created", zap.String("batch", batch.StockName), zap.Int("bags", batch.Quantity))
	return batch, nil
}

// RestockFeedBatch adds bags to a named feed batch and optionally reprices it.
func (s *Service) RestockFeedBatch(ctx context.Context, actor models.Actor, name string, in RestockInput) (models.FeedStockBatch, error) {
	if err := s.checkRestock(actor, in); err != nil {
		return models.FeedStockBatch{}, err
	}

	var batch models.FeedStockBatch
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		found, err := tx.GetFeedBatchByName(ctx, name)
		if err != nil {
			return err
		}
		batch, err = tx.LockFeedBatch(ctx, found.ID)
		if err != nil {
			return err
		}
		batch.Quantity += in.Quantity
		if in.Price != nil {
			batch.SellingPrice = *in.Price
		}
		return tx.UpdateFeedBatch(ctx, &batch)
	})
	if err != nil {
		return models.FeedStockBatch{}, err
	}

	s.logger.Info("feed batch restocked", zap.String("batch", name), zap.Int("added", in.Quantity), zap.Int("bags", batch.Quantity))
	return batch, nil
}

func (s *Service) checkRestock(actor models.Actor, in RestockInput) error {
	if err := require(actor, models.CapManageStock); err != nil {
		return err
	}
	if err := s.check(in); err != nil {
		return err
	}
	if in.Quantity == 0 && in.Price == nil {
		return models.Invalid("fields", "nothing to change: give a quantity or a price")
	}
	if in.Price != nil && !in.Price.IsPositive() {
		return models.Invalid("fields", "price must be positive")
	}
	return nil
}
