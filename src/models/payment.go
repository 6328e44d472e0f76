package models

import (
	"ticketing/src/types"
	"time"

	"github.com/shopspring/decimal"
)

// Payment records one charge. Rows are immutable once written.
type Payment struct {
	ID              uint                `gorm:"primarykey" json:"id"`
	UserID          uint                `gorm:"index;not null" json:"user_id"`
	Amount          decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency        string              `gorm:"size:3;not null" json:"currency"`
	PaymentMethod   types.PaymentMethod `gorm:"size:20;not null" json:"payment_method"`
	PaymentMethodID *uint               `json:"payment_method_id,omitempty"`
	TransactionID   string              `gorm:"uniqueIndex;size:64;not null" json:"transaction_id"`
	Status          types.PaymentStatus `gorm:"size:30;not null" json:"status"`
	Description     string              `json:"description,omitempty"`

	types.Timestamps
}

// PaymentTicket links a ticket to the payment that bought it. The unique
// index on ticket_id keeps it at one payment per ticket.
type PaymentTicket struct {
	ID        uint `gorm:"primarykey"`
	PaymentID uint `gorm:"index;not null"`
	TicketID  uint `gorm:"uniqueIndex;not null"`

	CreatedAt time.Time
}
