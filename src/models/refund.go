package models

import (
	"ticketing/src/types"
	"time"

	"github.com/shopspring/decimal"
)

// Refund is created when a refund is approved. Amount is fixed at creation.
type Refund struct {
	ID                uint                `gorm:"primarykey" json:"id"`
	UserID            uint                `gorm:"index;not null" json:"user_id"`
	TicketID          uint                `gorm:"index;not null" json:"ticket_id"`
	PurchaseID        *uint               `gorm:"index" json:"purchase_id,omitempty"`
	PaymentID         *uint               `gorm:"index" json:"payment_id,omitempty"`
	PaymentMethodType types.PaymentMethod `gorm:"size:20" json:"payment_method_type"`
	Amount            decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status            types.RefundStatus  `gorm:"size:20;index;not null" json:"status"`
	ReferenceID       string              `gorm:"uniqueIndex;size:64;not null" json:"reference_id"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty"`

	types.Timestamps
}
