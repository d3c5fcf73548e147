package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChickType enumerates the supported chick production types.
type ChickType string

const (
	ChickLayer   ChickType = "layer"
	ChickBroiler ChickType = "broiler"
)

// Valid reports whether t is a known chick type.
func (t ChickType) Valid() bool {
	return t == ChickLayer || t == ChickBroiler
}

// ChickBreed enumerates the supported breeds.
type ChickBreed string

const (
	BreedLocal  ChickBreed = "local"
	BreedExotic ChickBreed = "exotic"
)

// Valid reports whether b is a known breed.
func (b ChickBreed) Valid() bool {
	return b == BreedLocal || b == BreedExotic
}

// DefaultChickPrice is the unit price applied when a batch is created without one.
var DefaultChickPrice = decimal.NewFromInt(1650)

// ChickStockBatch is a named lot of chicks of one type and breed.
type ChickStockBatch struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	BatchName  string          `gorm:"size:25;uniqueIndex;not null" json:"batch_name"`
	ChickType  ChickType       `gorm:"size:15;index:idx_chick_batch_match;not null" json:"chick_type"`
	ChickBreed ChickBreed      `gorm:"size:15;index:idx_chick_batch_match;not null" json:"chick_breed"`
	ChickAge   int             `gorm:"not null" json:"chick_age"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Quantity   int             `gorm:"not null;default:0" json:"quantity"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// TableName pins the table name.
func (ChickStockBatch) TableName() string { return "chick_stock_batches" }

// FeedStockBatch is a named lot of feed bags.
type FeedStockBatch struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	StockName       string          `gorm:"size:25;uniqueIndex;not null" json:"stock_name"`
	FeedName        string          `gorm:"size:25;not null" json:"feed_name"`
	FeedType        string          `gorm:"size:25;not null" json:"feed_type"`
	FeedBrand       string          `gorm:"size:25;not null" json:"feed_brand"`
	PurchasePrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"purchase_price"`
	SellingPrice    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"selling_price"`
	Quantity        int             `gorm:"not null;default:0" json:"quantity"`
	ExpiryDate      time.Time       `gorm:"not null" json:"expiry_date"`
	Supplier        string          `gorm:"size:100" json:"supplier"`
	SupplierContact string          `gorm:"size:15" json:"supplier_contact"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName pins the table name.
func (FeedStockBatch) TableName() string { return "feed_stock_batches" }

// Expired reports whether the batch is past its expiry date on the day of now.
func (b FeedStockBatch) Expired(now time.Time) bool {
	return b.ExpiryDate.Before(StartOfDay(now))
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
