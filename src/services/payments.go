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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CardRefundsIssueAsCredit: there is no card reversal path. Every refund,
// whatever the original method, lands in the buyer's store credit.
const CardRefundsIssueAsCredit = true

const defaultCurrency = "USD"

type ChargeInput struct {
	UserID      uint
	Amount      decimal.Decimal
	Method      types.PaymentMethod
	SavedCardID *uint
	Card        *CardDetails
	SaveCard    bool
	// CreditType is the ledger type used when Method is credits.
	CreditType  types.CreditTransactionType
	Description string
}

// PaymentGateway records payment intent. No external processor is called;
// a recorded payment is always succeeded.
type PaymentGateway struct {
	db      *gorm.DB
	credits *CreditLedger
	now     func() time.Time
}

func NewPaymentGateway(db *gorm.DB, credits *CreditLedger, now func() time.Time) *PaymentGateway {
	return &PaymentGateway{db: db, credits: credits, now: now}
}

func (g *PaymentGateway) ChargeTx(ctx context.Context, tx *gorm.DB, in ChargeInput) (*models.Payment, error) {
	if in.Amount.IsNegative() {
		return nil, types.ErrInvalidRequest.Withf("charge amount must not be negative")
	}
	payment := &models.Payment{
		UserID:        in.UserID,
		Amount:        in.Amount,
		Currency:      defaultCurrency,
		PaymentMethod: in.Method,
		TransactionID: newTransactionID(),
		Status:        types.PAYMENT_SUCCEEDED,
		Description:   in.Description,
	}

	switch in.Method {
	case types.PAYMENT_CREDITS:
		if err := tx.WithContext(ctx).Create(payment).Error; err != nil {
			return nil, fmt.Errorf("recording payment: %w", err)
		}
		creditType := in.CreditType
		if creditType == "" {
			creditType = types.CREDIT_PURCHASE
		}
		_, err := g.credits.SpendTx(ctx, tx, CreditEntry{
			UserID:      in.UserID,
			Amount:      in.Amount,
			Type:        creditType,
			Description: in.Description,
			Reference:   models.PaymentRef(payment.ID),
		})
		if err != nil {
			return nil, err
		}
	case types.PAYMENT_CARD:
		methodID, err := g.resolveCardTx(ctx, tx, in)
		if err != nil {
			return nil, err
		}
		payment.PaymentMethodID = methodID
		if err := tx.WithContext(ctx).Create(payment).Error; err != nil {
			return nil, fmt.Errorf("recording payment: %w", err)
		}
	default:
		return nil, types.ErrInvalidRequest.Withf("unsupported payment method %q", in.Method)
	}
	return payment, nil
}

func (g *PaymentGateway) resolveCardTx(ctx context.Context, tx *gorm.DB, in ChargeInput) (*uint, error) {
	if in.SavedCardID != nil {
		var pm models.SavedPaymentMethod
		err := tx.WithContext(ctx).
			Scopes(scopes.WithID(*in.SavedCardID), scopes.OwnedBy(in.UserID)).
			First(&pm).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrPaymentMethodNotFound.With(map[string]any{"savedCardId": *in.SavedCardID})
		}
		if err != nil {
			return nil, fmt.Errorf("loading saved card: %w", err)
		}
		return &pm.ID, nil
	}
	if in.Card == nil {
		return nil, types.ErrInvalidCard.Withf("card details or a saved card are required")
	}
	card, err := ValidateCard(*in.Card, g.now())
	if err != nil {
		return nil, err
	}
	if !in.SaveCard {
		return nil, nil
	}
	pm, err := g.saveMethodTx(ctx, tx, in.UserID, card)
	if err != nil {
		return nil, err
	}
	return &pm.ID, nil
}

func (g *PaymentGateway) SaveMethod(ctx context.Context, userID uint, c CardDetails) (*models.SavedPaymentMethod, error) {
	card, err := ValidateCard(c, g.now())
	if err != nil {
		return nil, err
	}
	return g.saveMethodTx(ctx, g.db, userID, card)
}

func (g *PaymentGateway) saveMethodTx(ctx context.Context, tx *gorm.DB, userID uint, card *ValidCard) (*models.SavedPaymentMethod, error) {
	pm := &models.SavedPaymentMethod{
		UserID:     userID,
		Token:      "pm_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Brand:      card.Brand,
		Last4:      card.Last4,
		HolderName: card.HolderName,
		ExpMonth:   card.ExpMonth,
		ExpYear:    card.ExpYear,
	}
	if err := tx.WithContext(ctx).Create(pm).Error; err != nil {
		return nil, fmt.Errorf("saving payment method: %w", err)
	}
	return pm, nil
}

func (g *PaymentGateway) SavedMethods(ctx context.Context, userID uint) ([]models.SavedPaymentMethod, error) {
	methods := []models.SavedPaymentMethod{}
	err := g.db.WithContext(ctx).Scopes(scopes.OwnedBy(userID)).Order("id desc").Find(&methods).Error
	if err != nil {
		return nil, fmt.Errorf("listing payment methods: %w", err)
	}
	return methods, nil
}

// LinkTicketsTx records which tickets a payment paid for. A ticket can be
// linked to at most one payment.
func (g *PaymentGateway) LinkTicketsTx(ctx context.Context, tx *gorm.DB, paymentID uint, ticketIDs []uint) error {
	if len(ticketIDs) == 0 {
		return nil
	}
	var existing []uint
	err := tx.WithContext(ctx).Model(&models.PaymentTicket{}).
		Where("ticket_id IN ?", ticketIDs).
		Pluck("ticket_id", &existing).Error
	if err != nil {
		return fmt.Errorf("checking payment links: %w", err)
	}
	if len(existing) > 0 {
		return types.ErrTicketAlreadyLinked.With(map[string]any{"ticketIds": existing})
	}
	links := make([]models.PaymentTicket, 0, len(ticketIDs))
	for _, id := range ticketIDs {
		links = append(links, models.PaymentTicket{PaymentID: paymentID, TicketID: id})
	}
	if err := tx.WithContext(ctx).Create(&links).Error; err != nil {
		return fmt.Errorf("linking tickets to payment: %w", err)
	}
	return nil
}

// FindForTicketTx locates the payment that bought a ticket: the direct link
// first, then the ticket's purchase. It returns nil when neither exists.
func (g *PaymentGateway) FindForTicketTx(ctx context.Context, tx *gorm.DB, t *models.Ticket) (*models.Payment, error) {
	var payment models.Payment
	err := tx.WithContext(ctx).
		Joins("JOIN payment_tickets ON payment_tickets.payment_id = payments.id").
		Where("payment_tickets.ticket_id = ?", t.ID).
		First(&payment).Error
	if err == nil {
		return &payment, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("finding payment for ticket: %w", err)
	}
	if t.PurchaseID == nil {
		return nil, nil
	}
	var purchase models.Purchase
	err = tx.WithContext(ctx).Select("id", "payment_id").First(&purchase, *t.PurchaseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && purchase.PaymentID == nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding purchase for ticket: %w", err)
	}
	err = tx.WithContext(ctx).First(&payment, *purchase.PaymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding payment for purchase: %w", err)
	}
	return &payment, nil
}

// RefundToOriginalMethodTx returns amount to the payer. Both credit and card
// payments are refunded as store credit.
func (g *PaymentGateway) RefundToOriginalMethodTx(ctx context.Context, tx *gorm.DB, payment *models.Payment, amount decimal.Decimal, reason string, ref models.CreditReference) (*models.CreditTransaction, error) {
	if payment.PaymentMethod == types.PAYMENT_CARD && !CardRefundsIssueAsCredit {
		return nil, types.ErrInvalidRequest.Withf("card reversals are not supported")
	}
	return g.credits.ApplyTx(ctx, tx, CreditEntry{
		UserID:      payment.UserID,
		Amount:      amount.Abs(),
		Type:        types.CREDIT_REFUND,
		Description: reason,
		Reference:   ref,
	})
}

func newTransactionID() string {
	return "txn_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
