package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus tracks a chick request or feed allocation through its lifecycle.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCompleted RequestStatus = "completed"
)

// PaymentStatus tracks payment of a feed allocation.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRejected PaymentStatus = "rejected"
)

// PaymentTerms enumerates how a farmer pays.
type PaymentTerms string

const (
	PaymentMobileMoney PaymentTerms = "mobile_money"
	PaymentVisa        PaymentTerms = "visa"
	PaymentCash        PaymentTerms = "cash"
)

// Valid reports whether p is a known payment term.
func (p PaymentTerms) Valid() bool {
	switch p {
	case PaymentMobileMoney, PaymentVisa, PaymentCash:
		return true
	}
	return false
}

// Channel records how a request reached the agent.
type Channel string

const (
	ChannelWalkIn    Channel = "walk-in"
	ChannelPhoneCall Channel = "phonecall"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	return c == ChannelWalkIn || c == ChannelPhoneCall
}

// MaxRequestCodeLen bounds chick request and feed allocation codes.
const MaxRequestCodeLen = 15

// ChickRequest is a farmer's request for chicks, queued pending manager approval.
type ChickRequest struct {
	ID              string        `gorm:"primaryKey;size:36" json:"id"`
	RequestCode     string        `gorm:"size:15;uniqueIndex;not null" json:"request_code"`
	FarmerID        string        `gorm:"size:36;index;not null" json:"farmer_id"`
	FarmerType      FarmerType    `gorm:"size:10;not null" json:"farmer_type"`
	ChickType       ChickType     `gorm:"size:15;not null" json:"chick_type"`
	ChickBreed      ChickBreed    `gorm:"size:15;not null" json:"chick_breed"`
	Quantity        int           `gorm:"not null" json:"quantity"`
	ChickPeriod     int           `gorm:"not null" json:"chick_period"`
	FeedTaken       bool          `gorm:"not null" json:"feed_taken"`
	PaymentTerms    PaymentTerms  `gorm:"size:20;not null" json:"payment_terms"`
	ReceivedThrough Channel       `gorm:"size:10;not null" json:"received_through"`
	Status          RequestStatus `gorm:"size:20;index;not null" json:"status"`
	Delivered       bool          `gorm:"not null" json:"delivered"`
	ApprovedOn      *time.Time    `json:"approved_on,omitempty"`
	DecidedAt       *time.Time    `json:"decided_at,omitempty"`
	DecidedBy       string        `gorm:"size:64" json:"decided_by,omitempty"`
	RejectionReason string        `gorm:"size:255" json:"rejection_reason,omitempty"`
	CreatedBy       string        `gorm:"size:64;index" json:"created_by"`
	CreatedAt       time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// TableName pins the table name.
func (ChickRequest) TableName() string { return "chick_requests" }

// ChickAllocationLine records one batch deduction performed when a request was approved.
type ChickAllocationLine struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`
	RequestID string          `gorm:"size:36;index;not null" json:"request_id"`
	BatchID   string          `gorm:"size:36;not null" json:"batch_id"`
	BatchName string          `gorm:"size:25;not null" json:"batch_name"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	CreatedAt time.Time       `json:"created_at"`
}

// TableName pins the table name.
func (ChickAllocationLine) TableName() string { return "chick_allocation_lines" }

// Amount is the line value at the approval-time price.
func (l ChickAllocationLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// FeedAllocation reserves bags from a single feed batch against a chick request.
type FeedAllocation struct {
	ID             string          `gorm:"primaryKey;size:36" json:"id"`
	RequestCode    string          `gorm:"size:15;uniqueIndex;not null" json:"request_code"`
	ChickRequestID string          `gorm:"size:36;index;not null" json:"chick_request_id"`
	FeedBatchID    string          `gorm:"size:36;index;not null" json:"feed_batch_id"`
	FeedName       string          `gorm:"size:25" json:"feed_name"`
	FeedType       string          `gorm:"size:25" json:"feed_type"`
	FeedBrand      string          `gorm:"size:25" json:"feed_brand"`
	BagsAllocated  int             `gorm:"not null" json:"bags_allocated"`
	AmountDue      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount_due"`
	PaymentDueDate time.Time       `json:"payment_due_date"`
	PaymentStatus  PaymentStatus   `gorm:"size:20;not null" json:"payment_status"`
	Status         RequestStatus   `gorm:"size:20;index;not null" json:"status"`
	Delivered      bool            `gorm:"not null" json:"delivered"`
	DecidedAt      *time.Time      `json:"decided_at,omitempty"`
	DecidedBy      string          `gorm:"size:64" json:"decided_by,omitempty"`
	CreatedBy      string          `gorm:"size:64;index" json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName pins the table name.
func (FeedAllocation) TableName() string { return "feed_allocations" }

// Sale ties a completed chick request to its recorded total. It is never updated.
type Sale struct {
	ID             string          `gorm:"primaryKey;size:36" json:"id"`
	ChickRequestID string          `gorm:"size:36;uniqueIndex;not null" json:"chick_request_id"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	RecordedBy     string          `gorm:"size:64" json:"recorded_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TableName pins the table name.
func (Sale) TableName() string { return "sales" }

// ChickApproval is the outcome of a successful chick request approval.
type ChickApproval struct {
	Request ChickRequest          `json:"request"`
	Lines   []ChickAllocationLine `json:"lines"`
}

// Deducted sums the quantities taken across all lines.
func (a ChickApproval) Deducted() int {
	total := 0
	for _, l := range a.Lines {
		total += l.Quantity
	}
	return total
}
