package models

// All lists every persisted entity in migration order.
func All() []any {
	return []any{
		&User{},
		&Event{},
		&TicketType{},
		&Purchase{},
		&PurchaseItem{},
		&Ticket{},
		&Payment{},
		&PaymentTicket{},
		&SavedPaymentMethod{},
		&Refund{},
		&CreditTransaction{},
	}
}
