package models

import "ticketing/src/types"

// SavedPaymentMethod is a tokenized card. The full card number is never stored.
type SavedPaymentMethod struct {
	ID         uint   `gorm:"primarykey" json:"id"`
	UserID     uint   `gorm:"index;not null" json:"-"`
	Token      string `gorm:"uniqueIndex;size:64;not null" json:"-"`
	Brand      string `gorm:"size:20" json:"brand"`
	Last4      string `gorm:"size:4" json:"last4"`
	HolderName string `json:"holder_name"`
	ExpMonth   int    `json:"exp_month"`
	ExpYear    int    `json:"exp_year"`

	types.Timestamps
}
