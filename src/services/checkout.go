package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"ticketing/src/lib"
	"ticketing/src/models"
	"ticketing/src/types"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TicketLine struct {
	TicketTypeID uint
	Quantity     int
}

type CheckoutRequest struct {
	UserID uint
	// Amount is the total the client displayed. It must match the server-side
	// price of the tickets.
	Amount            decimal.Decimal
	Tickets           []TicketLine
	ReservedTicketIDs []uint
	PaymentMethod     types.PaymentMethod
	UseCredits        bool
	SavedCardID       *uint
	Card              *CardDetails
	SaveCard          bool
}

type CheckoutResult struct {
	Payment        *models.Payment  `json:"payment"`
	Purchase       *models.Purchase `json:"purchase"`
	CreatedTickets []models.Ticket  `json:"createdTickets"`
	OrderNumber    string           `json:"orderNumber"`
}

// CheckoutService is processPayment: charge, inventory, tickets and purchase
// commit as one unit.
type CheckoutService struct {
	db        *gorm.DB
	inventory *InventoryLedger
	tickets   *TicketStore
	payments  *PaymentGateway
	purchases *PurchaseAggregator
	notify    *dispatcher
	hold      time.Duration
	now       func() time.Time
}

func (s *CheckoutService) method(req CheckoutRequest) types.PaymentMethod {
	if req.UseCredits || req.PaymentMethod == types.PAYMENT_CREDITS {
		return types.PAYMENT_CREDITS
	}
	return types.PAYMENT_CARD
}

func (s *CheckoutService) ProcessPayment(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	lines, err := mergeLines(req.Tickets)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 && len(req.ReservedTicketIDs) == 0 {
		return nil, types.ErrInvalidRequest.Withf("at least one ticket is required")
	}
	method := s.method(req)

	var user models.User
	result := &CheckoutResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id", "name", "email").First(&user, req.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ErrUserNotFound.With(map[string]any{"userId": req.UserID})
			}
			return err
		}

		subtotal := decimal.Zero
		items := map[uint]*LineItem{}
		var order []uint
		addItem := func(typeID uint, qty int, price decimal.Decimal) {
			if it, ok := items[typeID]; ok {
				it.Quantity += qty
				return
			}
			items[typeID] = &LineItem{TicketTypeID: typeID, Quantity: qty, Price: price}
			order = append(order, typeID)
		}
		var eventID uint

		for _, id := range req.ReservedTicketIDs {
			t, err := s.tickets.ConfirmReservedTx(ctx, tx, id, req.UserID, nil)
			if err != nil {
				return err
			}
			subtotal = subtotal.Add(t.Price)
			addItem(t.TicketTypeID, 1, t.Price)
			eventID = t.EventID
			result.CreatedTickets = append(result.CreatedTickets, *t)
		}

		for _, line := range lines {
			tt, err := s.inventory.ReserveOrIssueTx(ctx, tx, line.TicketTypeID, line.Quantity)
			if err != nil {
				return err
			}
			for i := 0; i < line.Quantity; i++ {
				t, err := s.tickets.CreatePurchasedTx(ctx, tx, NewTicket{
					TicketTypeID: tt.ID,
					UserID:       req.UserID,
					EventID:      tt.EventID,
					Price:        tt.Price,
				})
				if err != nil {
					return err
				}
				result.CreatedTickets = append(result.CreatedTickets, *t)
			}
			subtotal = subtotal.Add(tt.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
			addItem(tt.ID, line.Quantity, tt.Price)
			eventID = tt.EventID
		}

		if !req.Amount.Equal(subtotal) {
			return types.ErrAmountMismatch.
				Withf("amount %s does not match ticket total %s", req.Amount.StringFixed(2), subtotal.StringFixed(2)).
				With(map[string]any{"expected": subtotal.StringFixed(2), "received": req.Amount.StringFixed(2)})
		}

		var event models.Event
		if err := tx.Select("id", "title").First(&event, eventID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		result.OrderNumber = NewOrderRef(ORDER_PREFIX, event.Title, s.now())

		payment, err := s.payments.ChargeTx(ctx, tx, ChargeInput{
			UserID:      req.UserID,
			Amount:      subtotal,
			Method:      method,
			SavedCardID: req.SavedCardID,
			Card:        req.Card,
			SaveCard:    req.SaveCard,
			CreditType:  types.CREDIT_PURCHASE,
			Description: fmt.Sprintf("Order %s", result.OrderNumber),
		})
		if err != nil {
			return err
		}
		result.Payment = payment

		ticketIDs := make([]uint, 0, len(result.CreatedTickets))
		for _, t := range result.CreatedTickets {
			ticketIDs = append(ticketIDs, t.ID)
		}
		if err := s.payments.LinkTicketsTx(ctx, tx, payment.ID, ticketIDs); err != nil {
			return err
		}

		lineItems := make([]LineItem, 0, len(order))
		for _, id := range order {
			lineItems = append(lineItems, *items[id])
		}
		purchase, err := s.purchases.CreatePurchaseTx(ctx, tx, PurchaseInput{
			UserID:        req.UserID,
			OrderRef:      result.OrderNumber,
			Subtotal:      subtotal,
			Discounts:     decimal.Zero,
			Total:         subtotal,
			PaymentMethod: method,
			PaymentStatus: payment.Status,
			PaymentID:     &payment.ID,
			Items:         lineItems,
		}, ticketIDs)
		if err != nil {
			return err
		}
		result.Purchase = purchase
		for i := range result.CreatedTickets {
			result.CreatedTickets[i].PurchaseID = &purchase.ID
		}
		return nil
	})
	if err != nil {
		lib.Checkouts.WithLabelValues(string(method), "failed").Inc()
		log.Printf("[checkout] user %d checkout failed: %s\n", req.UserID, err.Error())
		return nil, err
	}
	lib.Checkouts.WithLabelValues(string(method), "succeeded").Inc()

	confirmation := TicketConfirmation{
		Email:       user.Email,
		Name:        user.Name,
		Tickets:     result.CreatedTickets,
		OrderNumber: result.OrderNumber,
	}
	s.notify.send("ticket confirmation", func(ctx context.Context, n Notifier) error {
		return n.TicketConfirmation(ctx, confirmation)
	})
	return result, nil
}

// Reserve holds quantity tickets for the hold window without charging.
func (s *CheckoutService) Reserve(ctx context.Context, userID, ticketTypeID uint, quantity int) ([]models.Ticket, error) {
	tickets := []models.Ticket{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.User{}, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ErrUserNotFound.With(map[string]any{"userId": userID})
			}
			return err
		}
		tt, err := s.inventory.ReserveOrIssueTx(ctx, tx, ticketTypeID, quantity)
		if err != nil {
			return err
		}
		until := s.now().Add(s.hold)
		for i := 0; i < quantity; i++ {
			t, err := s.tickets.CreateReservedTx(ctx, tx, NewTicket{
				TicketTypeID: tt.ID,
				UserID:       userID,
				EventID:      tt.EventID,
				Price:        tt.Price,
			}, until)
			if err != nil {
				return err
			}
			tickets = append(tickets, *t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// mergeLines folds repeated ticket types together and orders by id so
// concurrent checkouts take row locks in the same order.
func mergeLines(in []TicketLine) ([]TicketLine, error) {
	qty := map[uint]int{}
	for _, l := range in {
		if l.Quantity <= 0 {
			return nil, types.ErrInvalidRequest.Withf("quantity for ticket type %d must be positive", l.TicketTypeID)
		}
		qty[l.TicketTypeID] += l.Quantity
	}
	out := make([]TicketLine, 0, len(qty))
	for id, q := range qty {
		out = append(out, TicketLine{TicketTypeID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketTypeID < out[j].TicketTypeID })
	return out, nil
}
