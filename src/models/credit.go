package models

import (
	"encoding/json"
	"ticketing/src/types"
	"time"

	"github.com/shopspring/decimal"
)

type CreditReferenceType string

const (
	REF_PAYMENT         CreditReferenceType = "payment"
	REF_REFUND          CreditReferenceType = "refund"
	REF_EXCHANGE_TICKET CreditReferenceType = "exchange_ticket"
)

// CreditReference points a ledger row at the record that caused it. The zero
// value means no reference.
type CreditReference struct {
	Type CreditReferenceType `gorm:"size:32"`
	ID   uint
}

func PaymentRef(id uint) CreditReference { return CreditReference{Type: REF_PAYMENT, ID: id} }

func RefundRef(id uint) CreditReference { return CreditReference{Type: REF_REFUND, ID: id} }

func ExchangeTicketRef(id uint) CreditReference {
	return CreditReference{Type: REF_EXCHANGE_TICKET, ID: id}
}

func (r CreditReference) IsZero() bool { return r.Type == "" }

func (r CreditReference) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		Type CreditReferenceType `json:"type"`
		ID   uint                `json:"id"`
	}{r.Type, r.ID})
}

// CreditTransaction is an append-only ledger row. Amount is signed: negative
// for spends, positive for credits.
type CreditTransaction struct {
	ID          uint                        `gorm:"primarykey" json:"id"`
	UserID      uint                        `gorm:"index;not null" json:"user_id"`
	Amount      decimal.Decimal             `gorm:"type:numeric(12,2);not null" json:"amount"`
	Type        types.CreditTransactionType `gorm:"size:32;not null" json:"type"`
	Description string                      `json:"description,omitempty"`
	Reference   CreditReference             `gorm:"embedded;embeddedPrefix:reference_" json:"reference"`
	CreatedAt   time.Time                   `gorm:"autoCreateTime;index" json:"created_at"`
}
