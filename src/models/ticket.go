package models

import (
	"ticketing/src/types"
	"time"

	"github.com/shopspring/decimal"
)

type Ticket struct {
	ID            uint               `gorm:"primarykey" json:"id"`
	TicketTypeID  uint               `gorm:"index;not null" json:"ticket_type_id"`
	UserID        uint               `gorm:"index;not null" json:"user_id"`
	EventID       uint               `gorm:"index;not null" json:"event_id"`
	Price         decimal.Decimal    `gorm:"type:numeric(12,2);not null" json:"price"`
	Status        types.TicketStatus `gorm:"size:20;index;not null" json:"status"`
	CheckedIn     bool               `gorm:"not null;default:false" json:"checked_in"`
	RefundStatus  types.RefundStatus `gorm:"size:20;index" json:"refund_status,omitempty"`
	PurchaseID    *uint              `gorm:"index" json:"purchase_id,omitempty"`
	QRPayload     string             `gorm:"type:text" json:"qr_code,omitempty"`
	ReservedUntil *time.Time         `gorm:"index" json:"reserved_until,omitempty"`
	PurchaseDate  *time.Time         `json:"purchase_date,omitempty"`
	CancelledAt   *time.Time         `gorm:"index" json:"cancelled_at,omitempty"`
	CancelReason  string             `json:"cancel_reason,omitempty"`
	CheckedInAt   *time.Time         `json:"checked_in_at,omitempty"`

	TicketType *TicketType `json:"ticket_type,omitempty"`
	Event      *Event      `json:"event,omitempty"`
	User       *User       `json:"-"`

	types.Timestamps
}
