package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"ticketing/src/lib"
	"ticketing/src/models"
	"ticketing/src/types"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ExchangeRequest struct {
	TicketID        uint
	UserID          uint
	NewTicketTypeID uint
	PaymentMethod   types.PaymentMethod
	SavedCardID     *uint
	Card            *CardDetails
}

type ExchangeResult struct {
	Ticket          *models.Ticket            `json:"ticket"`
	PriceDifference decimal.Decimal           `json:"priceDifference"`
	Payment         *models.Payment           `json:"payment,omitempty"`
	Purchase        *models.Purchase          `json:"purchase,omitempty"`
	Credit          *models.CreditTransaction `json:"creditTransaction,omitempty"`
}

type ExchangeEngine struct {
	db        *gorm.DB
	inventory *InventoryLedger
	credits   *CreditLedger
	tickets   *TicketStore
	payments  *PaymentGateway
	purchases *PurchaseAggregator
	now       func() time.Time
}

// Exchange moves a purchased ticket to another type of the same event and
// settles the price difference. Upgrades are charged by the chosen method;
// downgrades always come back as credit.
func (e *ExchangeEngine) Exchange(ctx context.Context, req ExchangeRequest) (*ExchangeResult, error) {
	result := &ExchangeResult{}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := e.tickets.LockTx(ctx, tx, req.TicketID)
		if err != nil {
			return err
		}
		if t.UserID != req.UserID {
			return types.ErrNotOwner
		}
		if _, err := Transition(t, ACTION_EXCHANGE); err != nil {
			return err
		}
		if t.TicketTypeID == req.NewTicketTypeID {
			return types.ErrSameTicketType
		}

		var event models.Event
		if err := tx.First(&event, t.EventID).Error; err != nil {
			return fmt.Errorf("loading event %d: %w", t.EventID, err)
		}
		window := ExchangeWindow(event.ExchangePolicy)
		if withinWindow(e.now(), event.DateTime, window) {
			return types.ErrExchangeWindowClosed.
				Withf("exchanges must be made at least %s before the event", describeWindow(window)).
				With(map[string]any{
					"requiredLeadTime": describeWindow(window),
					"policy":           event.ExchangePolicy,
					"eventDate":        event.DateTime,
				})
		}

		oldType, err := e.inventory.getTx(ctx, tx, t.TicketTypeID)
		if err != nil {
			return err
		}
		newType, err := e.inventory.getTx(ctx, tx, req.NewTicketTypeID)
		if err != nil {
			return err
		}
		if newType.EventID != t.EventID {
			return types.ErrCrossEventExchange.With(map[string]any{"ticketTypeId": newType.ID})
		}
		if newType.AvailableQuantity <= 0 {
			return soldOut(newType)
		}

		delta := newType.Price.Sub(t.Price)
		result.PriceDifference = delta
		description := fmt.Sprintf("Exchange ticket #%d from %s to %s", t.ID, oldType.Name, newType.Name)

		switch {
		case delta.IsPositive():
			method := req.PaymentMethod
			if method == "" {
				method = types.PAYMENT_CREDITS
			}
			payment, err := e.payments.ChargeTx(ctx, tx, ChargeInput{
				UserID:      req.UserID,
				Amount:      delta,
				Method:      method,
				SavedCardID: req.SavedCardID,
				Card:        req.Card,
				CreditType:  types.CREDIT_EXCHANGE_PAYMENT,
				Description: description,
			})
			if err != nil {
				if appErr, ok := types.AsAppError(err); ok && errors.Is(err, types.ErrInsufficientCredits) {
					return appErr.With(map[string]any{
						"upgrade":         true,
						"priceDifference": delta.StringFixed(2),
						"fromTicketType":  oldType.Name,
						"toTicketType":    newType.Name,
					})
				}
				return err
			}
			result.Payment = payment
		case delta.IsNegative():
			result.Credit, err = e.credits.ApplyTx(ctx, tx, CreditEntry{
				UserID:      req.UserID,
				Amount:      delta.Abs(),
				Type:        types.CREDIT_EXCHANGE_REFUND,
				Description: description,
				Reference:   models.ExchangeTicketRef(t.ID),
			})
			if err != nil {
				return err
			}
		}

		if err := e.inventory.MoveTx(ctx, tx, oldType.ID, newType.ID); err != nil {
			if errors.Is(err, types.ErrInsufficientInventory) {
				return soldOut(newType)
			}
			return err
		}
		if err := e.tickets.ExchangeTypeTx(ctx, tx, t, newType.ID, newType.Price); err != nil {
			return err
		}
		result.Ticket = t

		if delta.IsZero() {
			return nil
		}
		in := PurchaseInput{
			UserID:        req.UserID,
			OrderRef:      NewOrderRef(EXCHANGE_PREFIX, event.Title, e.now()),
			Subtotal:      delta.Abs(),
			Discounts:     decimal.Zero,
			Total:         delta.Abs(),
			PaymentMethod: types.PAYMENT_CREDITS,
			PaymentStatus: types.PAYMENT_REFUNDED_AS_CREDIT,
			Items:         []LineItem{{TicketTypeID: newType.ID, TicketID: &t.ID, Quantity: 1, Price: delta.Abs()}},
		}
		if result.Payment != nil {
			in.PaymentMethod = result.Payment.PaymentMethod
			in.PaymentStatus = result.Payment.Status
			in.PaymentID = &result.Payment.ID
		}
		result.Purchase, err = e.purchases.CreatePurchaseTx(ctx, tx, in, nil)
		return err
	})
	if err != nil {
		lib.Exchanges.WithLabelValues("failed").Inc()
		return nil, err
	}
	direction := "even"
	if result.PriceDifference.IsPositive() {
		direction = "upgrade"
	} else if result.PriceDifference.IsNegative() {
		direction = "downgrade"
	}
	lib.Exchanges.WithLabelValues(direction).Inc()
	log.Printf("[exchanges] ticket %d exchanged to type %d (delta %s)\n", req.TicketID, req.NewTicketTypeID, result.PriceDifference.StringFixed(2))
	return result, nil
}

func soldOut(tt *models.TicketType) error {
	return types.ErrSoldOut.
		Withf("%q is sold out", tt.Name).
		With(map[string]any{"ticketTypeId": tt.ID, "ticketTypeName": tt.Name})
}
