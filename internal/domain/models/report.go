package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesSummary is recomputed on every read from current stock prices.
type SalesSummary struct {
	ChickSalesTotal    decimal.Decimal `json:"chick_sales_total"`
	FeedSalesTotal     decimal.Decimal `json:"feed_sales_total"`
	Total              decimal.Decimal `json:"total"`
	RecordedSalesTotal decimal.Decimal `json:"recorded_total"`
	ChickRequests      int             `json:"chick_requests"`
	ChicksSold         int             `json:"chicks_sold"`
	FeedAllocations    int             `json:"feed_allocations"`
	FeedBagsSold       int             `json:"feed_bags_sold"`
	Sales              int             `json:"sales"`
	ComputedAt         time.Time       `json:"computed_at"`
}

// StockLevel is the available chick quantity for one type and breed.
type StockLevel struct {
	ChickType  ChickType  `json:"chick_type"`
	ChickBreed ChickBreed `json:"chick_breed"`
	Quantity   int        `json:"quantity"`
	Batches    int        `json:"batches"`
}

// StockSummary aggregates current inventory.
type StockSummary struct {
	Chicks      []StockLevel   `json:"chicks"`
	FeedBags    map[string]int `json:"feed_bags"`
	ExpiredFeed []string       `json:"expired_feed"`
	ComputedAt  time.Time      `json:"computed_at"`
}

// DailyReport is the end-of-day activity snapshot archived in MongoDB.
type DailyReport struct {
	Date              time.Time `bson:"date" json:"date"`
	RequestsSubmitted int       `bson:"requests_submitted" json:"requests_submitted"`
	RequestsApproved  int       `bson:"requests_approved" json:"requests_approved"`
	RequestsRejected  int       `bson:"requests_rejected" json:"requests_rejected"`
	ChicksAllocated   int       `bson:"chicks_allocated" json:"chicks_allocated"`
	FeedBagsAllocated int       `bson:"feed_bags_allocated" json:"feed_bags_allocated"`
	SalesTotal        string    `bson:"sales_total" json:"sales_total"`
	RecordedTotal     string    `bson:"recorded_total" json:"recorded_total"`
	CreatedAt         time.Time `bson:"created_at" json:"created_at"`
}

// OverduePayment pairs an unpaid approved feed allocation with the farmer who owes it.
type OverduePayment struct {
	Allocation FeedAllocation `json:"allocation"`
	Farmer     Farmer         `json:"farmer"`
	DaysLate   int            `json:"days_late"`
}
