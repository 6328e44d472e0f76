package services

import (
	"time"

	"gorm.io/gorm"
)

type Options struct {
	QRSecret string
	// ReservationHold is how long a reserved ticket waits for payment.
	ReservationHold time.Duration
	// RefundAutoCompleteDays is the sweeper threshold for processing refunds.
	RefundAutoCompleteDays int
	Notifier               Notifier
	Now                    func() time.Time
}

type Services struct {
	Inventory *InventoryLedger
	Credits   *CreditLedger
	Tickets   *TicketStore
	Payments  *PaymentGateway
	Purchases *PurchaseAggregator
	Checkout  *CheckoutService
	Refunds   *RefundEngine
	Exchanges *ExchangeEngine
	CheckIn   *CheckInService
	Sweeper   *Sweeper

	notify *dispatcher
}

// New wires every component against one database handle.
func New(db *gorm.DB, opts Options) *Services {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.ReservationHold <= 0 {
		opts.ReservationHold = 15 * time.Minute
	}
	if opts.RefundAutoCompleteDays <= 0 {
		opts.RefundAutoCompleteDays = 5
	}
	now := opts.Now
	notify := &dispatcher{notifier: opts.Notifier}

	inventory := NewInventoryLedger(db)
	credits := NewCreditLedger(db)
	tickets := NewTicketStore(db, inventory, opts.QRSecret, now)
	payments := NewPaymentGateway(db, credits, now)
	purchases := NewPurchaseAggregator(db)
	refunds := &RefundEngine{db: db, inventory: inventory, tickets: tickets, payments: payments, notify: notify, now: now}

	return &Services{
		Inventory: inventory,
		Credits:   credits,
		Tickets:   tickets,
		Payments:  payments,
		Purchases: purchases,
		Checkout: &CheckoutService{
			db: db, inventory: inventory, tickets: tickets, payments: payments,
			purchases: purchases, notify: notify, hold: opts.ReservationHold, now: now,
		},
		Refunds: refunds,
		Exchanges: &ExchangeEngine{
			db: db, inventory: inventory, credits: credits, tickets: tickets,
			payments: payments, purchases: purchases, now: now,
		},
		CheckIn: &CheckInService{tickets: tickets, qrSecret: opts.QRSecret},
		Sweeper: &Sweeper{refunds: refunds, tickets: tickets, days: opts.RefundAutoCompleteDays},
		notify:  notify,
	}
}

// Drain blocks until queued notifications have been delivered or dropped.
func (s *Services) Drain() {
	s.notify.wait()
}
