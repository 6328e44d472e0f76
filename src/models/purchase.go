package models

import (
	"ticketing/src/types"

	"github.com/shopspring/decimal"
)

// Purchase groups one checkout (or one priced exchange) for reporting and
// refund linkage.
type Purchase struct {
	ID            uint                `gorm:"primarykey" json:"id"`
	UserID        uint                `gorm:"index;not null" json:"user_id"`
	OrderRef      string              `gorm:"uniqueIndex;size:96;not null" json:"order_number"`
	Subtotal      decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	Discounts     decimal.Decimal     `gorm:"type:numeric(12,2);not null;default:0" json:"discounts"`
	Total         decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"total"`
	PaymentMethod types.PaymentMethod `gorm:"size:20" json:"payment_method"`
	PaymentStatus types.PaymentStatus `gorm:"size:30" json:"payment_status"`
	PaymentID     *uint               `gorm:"index" json:"payment_id,omitempty"`

	Items   []PurchaseItem `json:"items,omitempty"`
	Tickets []Ticket       `gorm:"foreignKey:PurchaseID" json:"tickets,omitempty"`

	types.Timestamps
}

type PurchaseItem struct {
	ID           uint            `gorm:"primarykey" json:"id"`
	PurchaseID   uint            `gorm:"index;not null" json:"purchase_id"`
	TicketTypeID uint            `gorm:"not null" json:"ticket_type_id"`
	TicketID     *uint           `gorm:"index" json:"ticket_id,omitempty"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
}
