package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"ticketing/src/models"
	"ticketing/src/models/scopes"
	"ticketing/src/types"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ORDER_PREFIX    = "ORD"
	EXCHANGE_PREFIX = "EXCHANGE"
)

type LineItem struct {
	TicketTypeID uint
	// TicketID is set on exchange lines, which settle one existing ticket.
	TicketID *uint
	Quantity int
	Price    decimal.Decimal
}

type PurchaseInput struct {
	UserID        uint
	OrderRef      string
	Subtotal      decimal.Decimal
	Discounts     decimal.Decimal
	Total         decimal.Decimal
	PaymentMethod types.PaymentMethod
	PaymentStatus types.PaymentStatus
	PaymentID     *uint
	Items         []LineItem
}

type PurchaseAggregator struct {
	db *gorm.DB
}

func NewPurchaseAggregator(db *gorm.DB) *PurchaseAggregator {
	return &PurchaseAggregator{db: db}
}

// CreatePurchaseTx inserts the purchase with its line items and points each
// ticket at it. Any failure leaves the caller's transaction to roll back.
func (a *PurchaseAggregator) CreatePurchaseTx(ctx context.Context, tx *gorm.DB, in PurchaseInput, ticketIDs []uint) (*models.Purchase, error) {
	p := &models.Purchase{
		UserID:        in.UserID,
		OrderRef:      in.OrderRef,
		Subtotal:      in.Subtotal,
		Discounts:     in.Discounts,
		Total:         in.Total,
		PaymentMethod: in.PaymentMethod,
		PaymentStatus: in.PaymentStatus,
		PaymentID:     in.PaymentID,
	}
	for _, it := range in.Items {
		p.Items = append(p.Items, models.PurchaseItem{
			TicketTypeID: it.TicketTypeID,
			TicketID:     it.TicketID,
			Quantity:     it.Quantity,
			Price:        it.Price,
		})
	}
	if err := tx.WithContext(ctx).Omit("Tickets").Create(p).Error; err != nil {
		return nil, fmt.Errorf("creating purchase: %w", err)
	}
	if len(ticketIDs) == 0 {
		return p, nil
	}
	res := tx.WithContext(ctx).Model(&models.Ticket{}).
		Scopes(scopes.WithIDs(ticketIDs...)).
		Update("purchase_id", p.ID)
	if res.Error != nil {
		return nil, fmt.Errorf("linking tickets to purchase: %w", res.Error)
	}
	if res.RowsAffected != int64(len(ticketIDs)) {
		return nil, types.ErrTicketNotFound.Withf("linked %d of %d tickets to purchase", res.RowsAffected, len(ticketIDs))
	}
	return p, nil
}

func (a *PurchaseAggregator) Get(ctx context.Context, purchaseID, userID uint) (*models.Purchase, error) {
	var p models.Purchase
	err := a.db.WithContext(ctx).
		Preload("Items").Preload("Tickets").
		Scopes(scopes.WithID(purchaseID), scopes.OwnedBy(userID)).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrPurchaseNotFound.With(map[string]any{"purchaseId": purchaseID})
	}
	if err != nil {
		return nil, fmt.Errorf("loading purchase: %w", err)
	}
	return &p, nil
}

// NewOrderRef builds a unique, readable order number such as
// ORD-20261014-summer-fest-1f2e3d4c.
func NewOrderRef(prefix, title string, now time.Time) string {
	s := slug.Make(title)
	if len(s) > 40 {
		s = strings.TrimRight(s[:40], "-")
	}
	if s == "" {
		s = "order"
	}
	return fmt.Sprintf("%s-%s-%s-%s", prefix, now.UTC().Format("20060102"), s, uuid.NewString()[:8])
}
