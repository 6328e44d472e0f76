package types

import (
	"errors"
	"fmt"
)

// ErrorKind groups business failures so the HTTP layer can pick a status
// without knowing every individual code.
type ErrorKind string

const (
	KIND_NOT_FOUND          ErrorKind = "not_found"
	KIND_UNAUTHORIZED       ErrorKind = "unauthorized"
	KIND_INVALID_STATE      ErrorKind = "invalid_state"
	KIND_POLICY_VIOLATION   ErrorKind = "policy_violation"
	KIND_INSUFFICIENT_FUNDS ErrorKind = "insufficient_funds"
	KIND_VALIDATION         ErrorKind = "validation"
	KIND_INVARIANT          ErrorKind = "invariant"
)

// AppError is a typed business failure. Two AppErrors match under errors.Is
// when their codes are equal, so sentinels can be compared against copies
// carrying details.
type AppError struct {
	Kind    ErrorKind      `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// With returns a copy of e with the given details merged in.
func (e *AppError) With(details map[string]any) *AppError {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	for k, v := range details {
		cp.Details[k] = v
	}
	return &cp
}

// Withf returns a copy of e with a formatted message.
func (e *AppError) Withf(format string, args ...any) *AppError {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

func newError(kind ErrorKind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

var (
	ErrTicketNotFound        = newError(KIND_NOT_FOUND, "TICKET_NOT_FOUND", "ticket not found")
	ErrTicketTypeNotFound    = newError(KIND_NOT_FOUND, "TICKET_TYPE_NOT_FOUND", "ticket type not found")
	ErrUserNotFound          = newError(KIND_NOT_FOUND, "USER_NOT_FOUND", "user not found")
	ErrPaymentMethodNotFound = newError(KIND_NOT_FOUND, "PAYMENT_METHOD_NOT_FOUND", "payment method not found")
	ErrPurchaseNotFound      = newError(KIND_NOT_FOUND, "PURCHASE_NOT_FOUND", "purchase not found")

	ErrNotOwner = newError(KIND_UNAUTHORIZED, "NOT_OWNER", "ticket does not belong to this user")

	ErrAlreadyCancelled   = newError(KIND_INVALID_STATE, "ALREADY_CANCELLED", "ticket is already cancelled")
	ErrAlreadyCheckedIn   = newError(KIND_INVALID_STATE, "ALREADY_CHECKED_IN", "ticket has already been checked in")
	ErrAlreadyUsed        = newError(KIND_INVALID_STATE, "ALREADY_USED", "ticket has already been used")
	ErrAlreadyRefunded    = newError(KIND_INVALID_STATE, "ALREADY_REFUNDED", "refund has already been finalized")
	ErrTicketCancelled    = newError(KIND_INVALID_STATE, "TICKET_CANCELLED", "ticket has been cancelled")
	ErrNotPurchased       = newError(KIND_INVALID_STATE, "NOT_PURCHASED", "ticket is not in purchased state")
	ErrNotReserved        = newError(KIND_INVALID_STATE, "NOT_RESERVED", "ticket is not reserved")
	ErrReservationExpired = newError(KIND_INVALID_STATE, "RESERVATION_EXPIRED", "reservation hold has expired")
	ErrRefundNotRequested = newError(KIND_INVALID_STATE, "REFUND_NOT_REQUESTED", "no refund was requested for this ticket")

	ErrPolicyWindowClosed   = newError(KIND_POLICY_VIOLATION, "POLICY_WINDOW_CLOSED", "cancellation window has closed")
	ErrExchangeWindowClosed = newError(KIND_POLICY_VIOLATION, "EXCHANGE_WINDOW_CLOSED", "exchange window has closed")
	ErrCrossEventExchange   = newError(KIND_POLICY_VIOLATION, "CROSS_EVENT_EXCHANGE", "ticket type belongs to a different event")

	ErrInsufficientCredits   = newError(KIND_INSUFFICIENT_FUNDS, "INSUFFICIENT_CREDITS", "insufficient credits")
	ErrInsufficientInventory = newError(KIND_INSUFFICIENT_FUNDS, "INSUFFICIENT_INVENTORY", "not enough tickets available")
	ErrSoldOut               = newError(KIND_INSUFFICIENT_FUNDS, "SOLD_OUT", "ticket type is sold out")

	ErrInvalidCard    = newError(KIND_VALIDATION, "INVALID_CARD", "invalid card details")
	ErrInvalidStatus  = newError(KIND_VALIDATION, "INVALID_STATUS", "invalid refund status")
	ErrInvalidRequest = newError(KIND_VALIDATION, "INVALID_REQUEST", "invalid request")
	ErrAmountMismatch = newError(KIND_VALIDATION, "AMOUNT_MISMATCH", "amount does not match ticket prices")
	ErrSameTicketType = newError(KIND_VALIDATION, "SAME_TICKET_TYPE", "ticket already has this type")
	ErrInvalidQRCode  = newError(KIND_VALIDATION, "INVALID_QR_CODE", "ticket code is not valid")

	ErrLedgerMismatch      = newError(KIND_INVARIANT, "LEDGER_MISMATCH", "credit balance does not match ledger")
	ErrTicketAlreadyLinked = newError(KIND_INVARIANT, "TICKET_ALREADY_LINKED", "ticket is already linked to a payment")
)

// AsAppError unwraps err into an AppError when it is one.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
