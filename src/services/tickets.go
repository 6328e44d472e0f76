package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"ticketing/src/models"
	"ticketing/src/models/scopes"
	"ticketing/src/types"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TicketStore owns ticket rows and applies the transition table to them.
type TicketStore struct {
	db        *gorm.DB
	inventory *InventoryLedger
	qrSecret  string
	now       func() time.Time
}

func NewTicketStore(db *gorm.DB, inventory *InventoryLedger, qrSecret string, now func() time.Time) *TicketStore {
	return &TicketStore{db: db, inventory: inventory, qrSecret: qrSecret, now: now}
}

type NewTicket struct {
	TicketTypeID uint
	UserID       uint
	EventID      uint
	Price        decimal.Decimal
	PurchaseID   *uint
}

func (s *TicketStore) Get(ctx context.Context, ticketID uint) (*models.Ticket, error) {
	return s.getTx(ctx, s.db, ticketID, false)
}

// GetDetailed loads the ticket with its type and event.
func (s *TicketStore) GetDetailed(ctx context.Context, ticketID uint) (*models.Ticket, error) {
	var t models.Ticket
	err := s.db.WithContext(ctx).Preload("TicketType").Preload("Event").First(&t, ticketID).Error
	if err != nil {
		return nil, notFoundTicket(ticketID, err)
	}
	return &t, nil
}

func (s *TicketStore) ListForUser(ctx context.Context, userID uint) ([]models.Ticket, error) {
	tickets := []models.Ticket{}
	err := s.db.WithContext(ctx).
		Preload("TicketType").Preload("Event").
		Scopes(scopes.OwnedBy(userID)).
		Order("id desc").
		Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	return tickets, nil
}

// LockTx loads the ticket with a row lock for the remainder of tx.
func (s *TicketStore) LockTx(ctx context.Context, tx *gorm.DB, ticketID uint) (*models.Ticket, error) {
	return s.getTx(ctx, tx, ticketID, true)
}

func (s *TicketStore) getTx(ctx context.Context, tx *gorm.DB, ticketID uint, lock bool) (*models.Ticket, error) {
	q := tx.WithContext(ctx)
	if lock {
		q = q.Scopes(scopes.ForUpdate)
	}
	var t models.Ticket
	if err := q.First(&t, ticketID).Error; err != nil {
		return nil, notFoundTicket(ticketID, err)
	}
	return &t, nil
}

func notFoundTicket(ticketID uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.ErrTicketNotFound.With(map[string]any{"ticketId": ticketID})
	}
	return fmt.Errorf("loading ticket %d: %w", ticketID, err)
}

// CreatePurchasedTx issues one ticket directly in purchased state. Inventory
// must already have been taken by the caller.
func (s *TicketStore) CreatePurchasedTx(ctx context.Context, tx *gorm.DB, n NewTicket) (*models.Ticket, error) {
	now := s.now()
	t := &models.Ticket{
		TicketTypeID: n.TicketTypeID,
		UserID:       n.UserID,
		EventID:      n.EventID,
		Price:        n.Price,
		Status:       types.TICKET_PURCHASED,
		PurchaseID:   n.PurchaseID,
		PurchaseDate: &now,
	}
	return t, s.insertTx(ctx, tx, t)
}

// CreateReservedTx issues a ticket held until the given time.
func (s *TicketStore) CreateReservedTx(ctx context.Context, tx *gorm.DB, n NewTicket, until time.Time) (*models.Ticket, error) {
	t := &models.Ticket{
		TicketTypeID:  n.TicketTypeID,
		UserID:        n.UserID,
		EventID:       n.EventID,
		Price:         n.Price,
		Status:        types.TICKET_RESERVED,
		ReservedUntil: &until,
	}
	return t, s.insertTx(ctx, tx, t)
}

func (s *TicketStore) insertTx(ctx context.Context, tx *gorm.DB, t *models.Ticket) error {
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(t).Error; err != nil {
		return fmt.Errorf("creating ticket: %w", err)
	}
	payload, err := BuildQRPayload(s.qrSecret, t.ID, t.EventID, t.UserID)
	if err != nil {
		return fmt.Errorf("building qr payload: %w", err)
	}
	t.QRPayload = payload
	return tx.WithContext(ctx).Model(t).Update("qr_payload", payload).Error
}

// ConfirmReservedTx moves a held ticket to purchased. The hold must belong to
// userID and must not have lapsed.
func (s *TicketStore) ConfirmReservedTx(ctx context.Context, tx *gorm.DB, ticketID, userID uint, purchaseID *uint) (*models.Ticket, error) {
	t, err := s.LockTx(ctx, tx, ticketID)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, types.ErrNotOwner
	}
	to, err := Transition(t, ACTION_CONFIRM)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if t.ReservedUntil != nil && now.After(*t.ReservedUntil) {
		return nil, types.ErrReservationExpired.With(map[string]any{"ticketId": t.ID, "reservedUntil": t.ReservedUntil})
	}
	res := tx.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ? AND status = ?", t.ID, types.TICKET_RESERVED).
		Updates(map[string]any{
			"status":         to,
			"purchase_id":    purchaseID,
			"purchase_date":  now,
			"reserved_until": nil,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("confirming ticket: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, types.ErrNotReserved
	}
	t.Status, t.PurchaseID, t.PurchaseDate, t.ReservedUntil = to, purchaseID, &now, nil
	return t, nil
}

// CancelTx marks a ticket cancelled with a pending refund request.
func (s *TicketStore) CancelTx(ctx context.Context, tx *gorm.DB, ticketID uint, reason string) (*models.Ticket, error) {
	t, err := s.LockTx(ctx, tx, ticketID)
	if err != nil {
		return nil, err
	}
	return t, s.cancelLockedTx(ctx, tx, t, ACTION_CANCEL, reason)
}

func (s *TicketStore) Cancel(ctx context.Context, ticketID uint, reason string) (*models.Ticket, error) {
	var t *models.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		t, err = s.CancelTx(ctx, tx, ticketID, reason)
		return err
	})
	return t, err
}

func (s *TicketStore) cancelLockedTx(ctx context.Context, tx *gorm.DB, t *models.Ticket, action TicketAction, reason string) error {
	to, err := Transition(t, action)
	if err != nil {
		return err
	}
	now := s.now()
	res := tx.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ? AND status = ? AND checked_in = ?", t.ID, t.Status, false).
		Updates(map[string]any{
			"status":        to,
			"refund_status": types.REFUND_REQUESTED,
			"cancelled_at":  now,
			"cancel_reason": reason,
		})
	if res.Error != nil {
		return fmt.Errorf("cancelling ticket: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.ErrAlreadyCancelled
	}
	t.Status, t.RefundStatus, t.CancelledAt, t.CancelReason = to, types.REFUND_REQUESTED, &now, reason
	return nil
}

// CheckIn marks a purchased ticket as used. A second attempt fails with the
// original check-in time.
func (s *TicketStore) CheckIn(ctx context.Context, ticketID uint) (*models.Ticket, error) {
	var t *models.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		t, err = s.LockTx(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if _, err := Transition(t, ACTION_CHECK_IN); err != nil {
			return err
		}
		now := s.now()
		res := tx.Model(&models.Ticket{}).
			Where("id = ? AND checked_in = ? AND status = ?", t.ID, false, types.TICKET_PURCHASED).
			Updates(map[string]any{"checked_in": true, "checked_in_at": now})
		if res.Error != nil {
			return fmt.Errorf("checking in ticket: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			fresh, err := s.getTx(ctx, tx, ticketID, false)
			if err != nil {
				return err
			}
			return alreadyCheckedIn(fresh)
		}
		t.CheckedIn, t.CheckedInAt = true, &now
		return nil
	})
	return t, err
}

// ExchangeTypeTx swaps the type and price on the same row so the id and QR
// payload stay valid.
func (s *TicketStore) ExchangeTypeTx(ctx context.Context, tx *gorm.DB, t *models.Ticket, newTypeID uint, newPrice decimal.Decimal) error {
	if _, err := Transition(t, ACTION_EXCHANGE); err != nil {
		return err
	}
	res := tx.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ? AND ticket_type_id = ? AND status = ?", t.ID, t.TicketTypeID, types.TICKET_PURCHASED).
		Updates(map[string]any{"ticket_type_id": newTypeID, "price": newPrice})
	if res.Error != nil {
		return fmt.Errorf("exchanging ticket type: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.ErrNotPurchased
	}
	t.TicketTypeID, t.Price = newTypeID, newPrice
	return nil
}

// ExpireReservations cancels holds past reserved_until and returns their
// inventory. Each ticket is handled in its own transaction.
func (s *TicketStore) ExpireReservations(ctx context.Context) (int, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("status = ? AND reserved_until < ?", types.TICKET_RESERVED, s.now()).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("finding expired reservations: %w", err)
	}
	expired := 0
	for _, id := range ids {
		released := false
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			t, err := s.LockTx(ctx, tx, id)
			if err != nil {
				return err
			}
			to, err := Transition(t, ACTION_EXPIRE)
			if err != nil {
				return err
			}
			now := s.now()
			res := tx.Model(&models.Ticket{}).
				Where("id = ? AND status = ?", id, types.TICKET_RESERVED).
				Updates(map[string]any{
					"status":        to,
					"cancelled_at":  now,
					"cancel_reason": "reservation expired",
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			released = true
			return s.inventory.ReleaseTx(ctx, tx, t.TicketTypeID, 1)
		})
		if err == nil && released {
			expired++
			continue
		}
		if err != nil {
			if errors.Is(err, types.ErrNotReserved) || errors.Is(err, types.ErrAlreadyCancelled) {
				continue
			}
			log.Printf("[tickets] failed to expire reservation %d: %s\n", id, err.Error())
		}
	}
	return expired, nil
}
