package services

import (
	"context"
	"log"
	"sync"
	"ticketing/src/models"
	"ticketing/src/types"
	"time"

	"github.com/shopspring/decimal"
)

type TicketConfirmation struct {
	Email       string
	Name        string
	Tickets     []models.Ticket
	OrderNumber string
}

type RefundNotice struct {
	User          models.User
	Event         *models.Event
	Purchase      *models.Purchase
	Amount        decimal.Decimal
	PaymentMethod types.PaymentMethod
}

// Notifier delivers customer-facing messages. Errors are logged by the caller
// and never affect the transaction that triggered them.
type Notifier interface {
	TicketConfirmation(ctx context.Context, n TicketConfirmation) error
	RefundCompleted(ctx context.Context, n RefundNotice) error
}

type nopNotifier struct{}

func (nopNotifier) TicketConfirmation(context.Context, TicketConfirmation) error { return nil }
func (nopNotifier) RefundCompleted(context.Context, RefundNotice) error          { return nil }

const notifyTimeout = 30 * time.Second

// dispatcher runs notifications after commit on their own goroutines.
type dispatcher struct {
	notifier Notifier
	wg       sync.WaitGroup
}

func (d *dispatcher) send(name string, fn func(ctx context.Context, n Notifier) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[notify] %s panicked: %v\n", name, r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := fn(ctx, d.notifier); err != nil {
			log.Printf("[notify] %s failed: %s\n", name, err.Error())
		}
	}()
}

func (d *dispatcher) wait() {
	d.wg.Wait()
}
