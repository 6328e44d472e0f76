package types

import (
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type TicketStatus string

const (
	TICKET_RESERVED  TicketStatus = "reserved"
	TICKET_PURCHASED TicketStatus = "purchased"
	TICKET_CANCELLED TicketStatus = "cancelled"
	TICKET_REFUNDED  TicketStatus = "refunded"
)

// RefundStatus is the refund progress recorded on a ticket. The empty value
// means no refund was ever requested.
type RefundStatus string

const (
	REFUND_NONE       RefundStatus = ""
	REFUND_REQUESTED  RefundStatus = "requested"
	REFUND_PROCESSING RefundStatus = "processing"
	REFUND_COMPLETED  RefundStatus = "completed"
	REFUND_FAILED     RefundStatus = "failed"
	REFUND_DENIED     RefundStatus = "denied"
)

func (s RefundStatus) Terminal() bool {
	return s == REFUND_COMPLETED || s == REFUND_FAILED || s == REFUND_DENIED
}

type PaymentMethod string

const (
	PAYMENT_CARD    PaymentMethod = "card"
	PAYMENT_CREDITS PaymentMethod = "credits"
)

type PaymentStatus string

const (
	PAYMENT_SUCCEEDED          PaymentStatus = "succeeded"
	PAYMENT_REFUNDED_AS_CREDIT PaymentStatus = "refunded_as_credit"
)

type CreditTransactionType string

const (
	CREDIT_PURCHASE         CreditTransactionType = "purchase"
	CREDIT_REFUND           CreditTransactionType = "refund"
	CREDIT_EXCHANGE_REFUND  CreditTransactionType = "exchange_refund"
	CREDIT_EXCHANGE_PAYMENT CreditTransactionType = "exchange_payment"
	CREDIT_ADMIN_ADJUSTMENT CreditTransactionType = "admin_adjustment"
	CREDIT_BONUS            CreditTransactionType = "bonus"
)

type Role string

const (
	ROLE_CUSTOMER Role = "customer"
	ROLE_ADMIN    Role = "admin"
)

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type PageQuery struct {
	Page  int `form:"page,default=1" binding:"min=1"`
	Limit int `form:"limit,default=20" binding:"min=1,max=100"`
}

type CheckoutTicketLine struct {
	TicketTypeID uint `json:"ticket_type_id" binding:"required"`
	Quantity     int  `json:"quantity" binding:"required,min=1,max=20"`
}

type CardDetailsBody struct {
	Number     string `json:"number" binding:"required"`
	HolderName string `json:"holder_name" binding:"required"`
	Expiry     string `json:"expiry" binding:"required"`
	CVC        string `json:"cvc,omitempty"`
}

// CheckoutRequestBody is the processPayment request.
type CheckoutRequestBody struct {
	Amount            string               `json:"amount" binding:"required"`
	Tickets           []CheckoutTicketLine `json:"tickets" binding:"omitempty,dive"`
	ReservedTicketIDs []uint               `json:"reserved_ticket_ids,omitempty"`
	PaymentMethod     PaymentMethod        `json:"payment_method" binding:"omitempty,oneof=card credits"`
	UseCredits        bool                 `json:"use_credits,omitempty"`
	SavedCardID       *uint                `json:"saved_card_id,omitempty"`
	CardDetails       *CardDetailsBody     `json:"card_details,omitempty"`
	SaveCard          bool                 `json:"save_card,omitempty"`
}

type ReserveRequestBody struct {
	TicketTypeID uint `json:"ticket_type_id" binding:"required"`
	Quantity     int  `json:"quantity" binding:"required,min=1,max=20"`
}

type ExchangeRequestBody struct {
	NewTicketTypeID uint             `json:"new_ticket_type_id" binding:"required"`
	PaymentMethod   PaymentMethod    `json:"payment_method" binding:"omitempty,oneof=card credits"`
	SavedCardID     *uint            `json:"saved_card_id,omitempty"`
	CardDetails     *CardDetailsBody `json:"card_details,omitempty"`
}

type ApproveRefundRequestBody struct {
	Status RefundStatus `json:"status" binding:"required"`
}

type AutoCompleteRequestBody struct {
	Days int `json:"days" binding:"omitempty,min=0"`
}

// CheckInRequestBody carries the raw scanner input: a number, a numeric
// string, a JSON string or a JSON object.
type CheckInRequestBody struct {
	Code any `json:"code" binding:"required"`
}

type AdminCreditRequestBody struct {
	Amount      string `json:"amount" binding:"required"`
	Description string `json:"description"`
}
