package models

import (
	"ticketing/src/types"

	"github.com/shopspring/decimal"
)

// User is the purchaser. Credits is the materialized store-credit balance and
// must only be written by services.CreditLedger.
type User struct {
	ID      uint            `gorm:"primarykey" json:"id"`
	Name    string          `json:"name,omitempty"`
	Email   string          `gorm:"uniqueIndex;size:255" json:"email,omitempty"`
	Role    types.Role      `gorm:"size:20;default:'customer'" json:"role,omitempty"`
	Credits decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"credits"`

	types.Timestamps
}
