package models

import (
	"ticketing/src/types"

	"github.com/shopspring/decimal"
)

// TicketType is a priced admission category. AvailableQuantity is a hot
// counter owned by services.InventoryLedger.
type TicketType struct {
	ID                uint            `gorm:"primarykey" json:"id"`
	EventID           uint            `gorm:"index;not null" json:"event_id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Currency          string          `gorm:"size:3;default:'USD'" json:"currency,omitempty"`
	TotalQuantity     int             `gorm:"not null" json:"total_quantity"`
	AvailableQuantity int             `gorm:"not null" json:"available_quantity"`

	Event *Event `json:"event,omitempty"`

	types.Timestamps
}
