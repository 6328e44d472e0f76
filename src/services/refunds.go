package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"ticketing/src/lib"
	"ticketing/src/models"
	"ticketing/src/models/scopes"
	"ticketing/src/types"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ApproveResult struct {
	Ticket  *models.Ticket `json:"ticket"`
	Refund  *models.Refund `json:"refund,omitempty"`
	Warning string         `json:"warning,omitempty"`
}

type RefundPage struct {
	Refunds    []models.Refund `json:"refunds"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	Total      int64           `json:"total"`
	TotalPages int             `json:"totalPages"`
	HasMore    bool            `json:"hasMore"`
}

type RefundEngine struct {
	db        *gorm.DB
	inventory *InventoryLedger
	tickets   *TicketStore
	payments  *PaymentGateway
	notify    *dispatcher
	now       func() time.Time
}

// errRefundRaced marks a ticket whose refund status moved under us; callers
// treat it as already handled.
var errRefundRaced = errors.New("refund status changed concurrently")

// RequestRefund cancels the owner's ticket and returns it to stock, provided
// the event is still outside its cancellation window.
func (e *RefundEngine) RequestRefund(ctx context.Context, ticketID, userID uint) (*models.Ticket, error) {
	var t *models.Ticket
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		t, err = e.tickets.LockTx(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if t.UserID != userID {
			return types.ErrNotOwner
		}
		if _, err := Transition(t, ACTION_REFUND_REQUEST); err != nil {
			return err
		}
		var event models.Event
		if err := tx.First(&event, t.EventID).Error; err != nil {
			return fmt.Errorf("loading event %d: %w", t.EventID, err)
		}
		window := CancellationWindow(event.CancellationPolicy)
		if withinWindow(e.now(), event.DateTime, window) {
			return types.ErrPolicyWindowClosed.
				Withf("refunds must be requested at least %s before the event", describeWindow(window)).
				With(map[string]any{
					"requiredLeadTime": describeWindow(window),
					"policy":           event.CancellationPolicy,
					"eventDate":        event.DateTime,
				})
		}
		if err := e.tickets.cancelLockedTx(ctx, tx, t, ACTION_REFUND_REQUEST, "refund requested"); err != nil {
			return err
		}
		return e.inventory.ReleaseTx(ctx, tx, t.TicketTypeID, 1)
	})
	if err != nil {
		return nil, err
	}
	lib.Refunds.WithLabelValues(string(types.REFUND_REQUESTED)).Inc()
	log.Printf("[refunds] ticket %d refund requested by user %d\n", ticketID, userID)
	return t, nil
}

func validApprovalStatus(s types.RefundStatus) bool {
	switch s {
	case types.REFUND_PROCESSING, types.REFUND_COMPLETED, types.REFUND_FAILED, types.REFUND_DENIED:
		return true
	}
	return false
}

// Approve moves a requested refund forward. completed credits the buyer;
// failed and denied close it without money moving.
func (e *RefundEngine) Approve(ctx context.Context, ticketID uint, status types.RefundStatus) (*ApproveResult, error) {
	if !validApprovalStatus(status) {
		return nil, types.ErrInvalidStatus.Withf("invalid refund status %q", status).
			With(map[string]any{"allowed": []types.RefundStatus{types.REFUND_PROCESSING, types.REFUND_COMPLETED, types.REFUND_FAILED, types.REFUND_DENIED}})
	}
	result := &ApproveResult{}
	var notice *RefundNotice
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := e.tickets.LockTx(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		result.Ticket = t
		if t.RefundStatus == types.REFUND_NONE {
			return types.ErrRefundNotRequested.With(map[string]any{"ticketId": t.ID})
		}
		if t.RefundStatus.Terminal() {
			return types.ErrAlreadyRefunded.With(map[string]any{"ticketId": t.ID, "refundStatus": t.RefundStatus})
		}

		switch status {
		case types.REFUND_PROCESSING:
			if t.RefundStatus == types.REFUND_PROCESSING {
				result.Refund, err = e.openRefundTx(ctx, tx, t.ID)
				return err
			}
			if err := e.setRefundStatusTx(ctx, tx, t, status); err != nil {
				return err
			}
			result.Refund, result.Warning, err = e.createProcessingRefundTx(ctx, tx, t)
			return err
		case types.REFUND_COMPLETED:
			result.Refund, result.Warning, notice, err = e.completeRefundTx(ctx, tx, t)
			return err
		default:
			if err := e.setRefundStatusTx(ctx, tx, t, status); err != nil {
				return err
			}
			refund, err := e.openRefundTx(ctx, tx, t.ID)
			if err != nil || refund == nil {
				return err
			}
			refund.Status = status
			result.Refund = refund
			return tx.Model(refund).Update("status", status).Error
		}
	})
	if errors.Is(err, errRefundRaced) {
		return nil, types.ErrAlreadyRefunded.With(map[string]any{"ticketId": ticketID})
	}
	if err != nil {
		return nil, err
	}
	lib.Refunds.WithLabelValues(string(status)).Inc()
	if result.Warning != "" {
		log.Printf("[refunds] ticket %d: %s\n", ticketID, result.Warning)
	}
	if notice != nil {
		e.sendRefundNotice(*notice)
	}
	return result, nil
}

// AutoCompleteStale completes refunds left in processing for longer than
// days since cancellation. Only rows still in processing are touched, so a
// second run over the same data completes nothing.
func (e *RefundEngine) AutoCompleteStale(ctx context.Context, days int) (int, error) {
	if days < 0 {
		return 0, types.ErrInvalidRequest.Withf("days must not be negative")
	}
	cutoff := e.now().Add(-time.Duration(days) * 24 * time.Hour)
	var ids []uint
	err := e.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("refund_status = ?", types.REFUND_PROCESSING).
		Scopes(scopes.OlderThan("cancelled_at", cutoff)).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("finding stale refunds: %w", err)
	}

	completed := 0
	for _, id := range ids {
		var notice *RefundNotice
		err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			t, err := e.tickets.LockTx(ctx, tx, id)
			if err != nil {
				return err
			}
			if t.RefundStatus != types.REFUND_PROCESSING {
				return errRefundRaced
			}
			var warning string
			_, warning, notice, err = e.completeRefundTx(ctx, tx, t)
			if warning != "" {
				log.Printf("[refunds] auto-complete ticket %d: %s\n", id, warning)
			}
			return err
		})
		if errors.Is(err, errRefundRaced) {
			continue
		}
		if err != nil {
			log.Printf("[refunds] auto-complete ticket %d failed: %s\n", id, err.Error())
			continue
		}
		completed++
		if notice != nil {
			e.sendRefundNotice(*notice)
		}
	}
	lib.Refunds.WithLabelValues("auto_completed").Add(float64(completed))
	log.Printf("[refunds] auto-completed %d of %d stale refunds (threshold %d days)\n", completed, len(ids), days)
	return completed, nil
}

func (e *RefundEngine) setRefundStatusTx(ctx context.Context, tx *gorm.DB, t *models.Ticket, status types.RefundStatus) error {
	res := tx.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ? AND refund_status = ?", t.ID, t.RefundStatus).
		Update("refund_status", status)
	if res.Error != nil {
		return fmt.Errorf("updating refund status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errRefundRaced
	}
	t.RefundStatus = status
	return nil
}

// openRefundTx returns the refund row still in processing for a ticket.
func (e *RefundEngine) openRefundTx(ctx context.Context, tx *gorm.DB, ticketID uint) (*models.Refund, error) {
	var refund models.Refund
	err := tx.WithContext(ctx).
		Where("ticket_id = ? AND status = ?", ticketID, types.REFUND_PROCESSING).
		Order("id desc").
		First(&refund).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading refund: %w", err)
	}
	return &refund, nil
}

func (e *RefundEngine) createProcessingRefundTx(ctx context.Context, tx *gorm.DB, t *models.Ticket) (*models.Refund, string, error) {
	payment, err := e.payments.FindForTicketTx(ctx, tx, t)
	if err != nil {
		return nil, "", err
	}
	if payment == nil {
		return nil, "no payment found for ticket; refund record skipped", nil
	}
	refund := newRefund(t, payment, types.REFUND_PROCESSING)
	if err := tx.WithContext(ctx).Create(refund).Error; err != nil {
		return nil, "", fmt.Errorf("creating refund: %w", err)
	}
	return refund, "", nil
}

// completeRefundTx finalizes the refund for a cancelled ticket: the ticket
// becomes refunded, the refund row is completed and the buyer is credited
// the amount fixed on the refund.
func (e *RefundEngine) completeRefundTx(ctx context.Context, tx *gorm.DB, t *models.Ticket) (*models.Refund, string, *RefundNotice, error) {
	to, err := Transition(t, ACTION_COMPLETE_REFUND)
	if err != nil {
		return nil, "", nil, err
	}
	now := e.now()
	res := tx.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ? AND refund_status = ? AND status = ?", t.ID, t.RefundStatus, t.Status).
		Updates(map[string]any{"status": to, "refund_status": types.REFUND_COMPLETED})
	if res.Error != nil {
		return nil, "", nil, fmt.Errorf("completing ticket refund: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, "", nil, errRefundRaced
	}
	t.Status, t.RefundStatus = to, types.REFUND_COMPLETED

	refund, err := e.openRefundTx(ctx, tx, t.ID)
	if err != nil {
		return nil, "", nil, err
	}
	var payment *models.Payment
	if refund != nil && refund.PaymentID != nil {
		var p models.Payment
		if err := tx.First(&p, *refund.PaymentID).Error; err != nil {
			return nil, "", nil, fmt.Errorf("loading refund payment: %w", err)
		}
		payment = &p
	} else {
		payment, err = e.payments.FindForTicketTx(ctx, tx, t)
		if err != nil {
			return nil, "", nil, err
		}
	}
	if payment == nil {
		return nil, "no payment found for ticket; refund record skipped", nil, nil
	}

	if refund == nil {
		refund = newRefund(t, payment, types.REFUND_COMPLETED)
		refund.CompletedAt = &now
		if err := tx.Create(refund).Error; err != nil {
			return nil, "", nil, fmt.Errorf("creating refund: %w", err)
		}
	} else {
		res := tx.Model(&models.Refund{}).
			Where("id = ? AND status = ?", refund.ID, types.REFUND_PROCESSING).
			Updates(map[string]any{"status": types.REFUND_COMPLETED, "completed_at": now})
		if res.Error != nil {
			return nil, "", nil, fmt.Errorf("completing refund: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, "", nil, errRefundRaced
		}
		refund.Status, refund.CompletedAt = types.REFUND_COMPLETED, &now
	}

	_, err = e.payments.RefundToOriginalMethodTx(ctx, tx, payment, refund.Amount,
		fmt.Sprintf("Refund %s for ticket #%d", refund.ReferenceID, t.ID), models.RefundRef(refund.ID))
	if err != nil {
		return nil, "", nil, err
	}
	purchase, err := e.markPurchaseRefundedTx(ctx, tx, t)
	if err != nil {
		return nil, "", nil, err
	}

	notice := &RefundNotice{Purchase: purchase, Amount: refund.Amount, PaymentMethod: payment.PaymentMethod}
	if err := tx.First(&notice.User, t.UserID).Error; err != nil {
		return nil, "", nil, fmt.Errorf("loading refund user: %w", err)
	}
	var event models.Event
	if err := tx.First(&event, t.EventID).Error; err == nil {
		notice.Event = &event
	}
	return refund, "", notice, nil
}

// markPurchaseRefundedTx flags the purchase once every ticket in it has been
// refunded.
func (e *RefundEngine) markPurchaseRefundedTx(ctx context.Context, tx *gorm.DB, t *models.Ticket) (*models.Purchase, error) {
	if t.PurchaseID == nil {
		return nil, nil
	}
	var purchase models.Purchase
	if err := tx.WithContext(ctx).First(&purchase, *t.PurchaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var open int64
	err := tx.Model(&models.Ticket{}).
		Where("purchase_id = ? AND status <> ?", purchase.ID, types.TICKET_REFUNDED).
		Count(&open).Error
	if err != nil {
		return nil, err
	}
	if open == 0 {
		purchase.PaymentStatus = types.PAYMENT_REFUNDED_AS_CREDIT
		if err := tx.Model(&purchase).Update("payment_status", purchase.PaymentStatus).Error; err != nil {
			return nil, err
		}
	}
	return &purchase, nil
}

func newRefund(t *models.Ticket, payment *models.Payment, status types.RefundStatus) *models.Refund {
	return &models.Refund{
		UserID:            t.UserID,
		TicketID:          t.ID,
		PurchaseID:        t.PurchaseID,
		PaymentID:         &payment.ID,
		PaymentMethodType: payment.PaymentMethod,
		Amount:            t.Price,
		Status:            status,
		ReferenceID:       "rf_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
}

func (e *RefundEngine) sendRefundNotice(n RefundNotice) {
	e.notify.send("refund notice", func(ctx context.Context, nt Notifier) error {
		return nt.RefundCompleted(ctx, n)
	})
}

// ListPending returns tickets whose refund still needs an admin decision.
func (e *RefundEngine) ListPending(ctx context.Context) ([]models.Ticket, error) {
	tickets := []models.Ticket{}
	err := e.db.WithContext(ctx).
		Preload("TicketType").Preload("Event").
		Where("refund_status IN ?", []types.RefundStatus{types.REFUND_REQUESTED, types.REFUND_PROCESSING}).
		Order("cancelled_at asc, id asc").
		Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("listing pending refunds: %w", err)
	}
	return tickets, nil
}

func (e *RefundEngine) List(ctx context.Context, page, limit int) (*RefundPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	p := &RefundPage{Page: page, Limit: limit, Refunds: []models.Refund{}}
	if err := e.db.WithContext(ctx).Model(&models.Refund{}).Count(&p.Total).Error; err != nil {
		return nil, fmt.Errorf("counting refunds: %w", err)
	}
	err := e.db.WithContext(ctx).
		Scopes(scopes.Paginate(page, limit)).
		Order("created_at desc, id desc").
		Find(&p.Refunds).Error
	if err != nil {
		return nil, fmt.Errorf("listing refunds: %w", err)
	}
	p.TotalPages = int(math.Ceil(float64(p.Total) / float64(limit)))
	p.HasMore = page < p.TotalPages
	return p, nil
}
