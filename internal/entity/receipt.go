package entity

import (
	"time"

	"github.com/google/uuid"
)

// ParsedReceipt is the structured output of the extraction pipeline.
// MerchantName is never empty ("Unknown" is a valid value) and
// TotalAmount is never negative (0.0 means "not found").
type ParsedReceipt struct {
	PurchasedAt  *time.Time `json:"purchased_at"`
	MerchantName string     `json:"merchant_name"`
	TotalAmount  float64    `json:"total_amount"`
}

// Receipt is a persisted ParsedReceipt linked back to its source file.
type Receipt struct {
	ID           uuid.UUID
	PurchasedAt  *time.Time
	MerchantName string
	TotalAmount  float64
	FilePath     string
	CreatedAt    time.Time
}

// ReceiptFile is an uploaded source document awaiting validation and
// processing.
type ReceiptFile struct {
	ID            uuid.UUID
	FileName      string
	FilePath      string
	ContentHash   string // sha-256, hex
	IsValid       bool
	InvalidReason *string
	IsProcessed   bool
	UploadedAt    time.Time
}
