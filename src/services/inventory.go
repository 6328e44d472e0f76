package services

import (
	"context"
	"errors"
	"fmt"
	"ticketing/src/lib"
	"ticketing/src/models"
	"ticketing/src/types"

	"gorm.io/gorm"
)

// InventoryLedger is the only writer of ticket_types.available_quantity.
type InventoryLedger struct {
	db *gorm.DB
}

func NewInventoryLedger(db *gorm.DB) *InventoryLedger {
	return &InventoryLedger{db: db}
}

func (l *InventoryLedger) Get(ctx context.Context, ticketTypeID uint) (*models.TicketType, error) {
	return l.getTx(ctx, l.db, ticketTypeID)
}

func (l *InventoryLedger) getTx(ctx context.Context, tx *gorm.DB, ticketTypeID uint) (*models.TicketType, error) {
	var tt models.TicketType
	if err := tx.WithContext(ctx).First(&tt, ticketTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrTicketTypeNotFound.With(map[string]any{"ticketTypeId": ticketTypeID})
		}
		return nil, fmt.Errorf("loading ticket type %d: %w", ticketTypeID, err)
	}
	return &tt, nil
}

// ReserveOrIssue takes quantity units out of stock in its own transaction.
func (l *InventoryLedger) ReserveOrIssue(ctx context.Context, ticketTypeID uint, quantity int) (*models.TicketType, error) {
	var tt *models.TicketType
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		tt, err = l.ReserveOrIssueTx(ctx, tx, ticketTypeID, quantity)
		return err
	})
	return tt, err
}

// ReserveOrIssueTx decrements availability with a single conditional UPDATE
// and returns the post-decrement snapshot.
func (l *InventoryLedger) ReserveOrIssueTx(ctx context.Context, tx *gorm.DB, ticketTypeID uint, quantity int) (*models.TicketType, error) {
	if quantity <= 0 {
		return nil, types.ErrInvalidRequest.Withf("quantity must be positive, got %d", quantity)
	}
	res := tx.WithContext(ctx).
		Model(&models.TicketType{}).
		Where("id = ? AND available_quantity >= ?", ticketTypeID, quantity).
		Update("available_quantity", gorm.Expr("available_quantity - ?", quantity))
	if res.Error != nil {
		return nil, fmt.Errorf("decrementing inventory: %w", res.Error)
	}
	tt, err := l.getTx(ctx, tx, ticketTypeID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		lib.InventoryRejections.WithLabelValues(tt.Name).Inc()
		return nil, types.ErrInsufficientInventory.
			Withf("not enough %q tickets available", tt.Name).
			With(map[string]any{
				"ticketTypeId":   tt.ID,
				"ticketTypeName": tt.Name,
				"requested":      quantity,
				"available":      tt.AvailableQuantity,
			})
	}
	return tt, nil
}

func (l *InventoryLedger) Release(ctx context.Context, ticketTypeID uint, quantity int) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return l.ReleaseTx(ctx, tx, ticketTypeID, quantity)
	})
}

// ReleaseTx returns units to stock, never above total_quantity.
func (l *InventoryLedger) ReleaseTx(ctx context.Context, tx *gorm.DB, ticketTypeID uint, quantity int) error {
	if quantity <= 0 {
		return types.ErrInvalidRequest.Withf("quantity must be positive, got %d", quantity)
	}
	res := tx.WithContext(ctx).
		Model(&models.TicketType{}).
		Where("id = ?", ticketTypeID).
		Update("available_quantity", gorm.Expr(
			"CASE WHEN available_quantity + ? > total_quantity THEN total_quantity ELSE available_quantity + ? END",
			quantity, quantity,
		))
	if res.Error != nil {
		return fmt.Errorf("releasing inventory: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.ErrTicketTypeNotFound.With(map[string]any{"ticketTypeId": ticketTypeID})
	}
	return nil
}

// MoveTx takes one unit from toID and returns one to fromID. The two rows are
// updated in ascending id order so opposite moves lock in the same sequence.
func (l *InventoryLedger) MoveTx(ctx context.Context, tx *gorm.DB, fromID, toID uint) error {
	if fromID < toID {
		if err := l.ReleaseTx(ctx, tx, fromID, 1); err != nil {
			return err
		}
		_, err := l.ReserveOrIssueTx(ctx, tx, toID, 1)
		return err
	}
	if _, err := l.ReserveOrIssueTx(ctx, tx, toID, 1); err != nil {
		return err
	}
	return l.ReleaseTx(ctx, tx, fromID, 1)
}
