package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"ticketing/src/models"
	"ticketing/src/models/scopes"
	"ticketing/src/types"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreditEntry is one balance mutation. Amount is signed.
type CreditEntry struct {
	UserID      uint
	Amount      decimal.Decimal
	Type        types.CreditTransactionType
	Description string
	Reference   models.CreditReference
}

type CreditHistory struct {
	Transactions []models.CreditTransaction `json:"transactions"`
	Page         int                        `json:"page"`
	Limit        int                        `json:"limit"`
	Total        int64                      `json:"total"`
	TotalPages   int                        `json:"totalPages"`
	HasMore      bool                       `json:"hasMore"`
}

// CreditLedger is the only writer of users.credits. Every balance change
// appends a credit_transactions row in the same transaction.
type CreditLedger struct {
	db *gorm.DB
}

func NewCreditLedger(db *gorm.DB) *CreditLedger {
	return &CreditLedger{db: db}
}

func (l *CreditLedger) Balance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	return l.BalanceTx(ctx, l.db, userID)
}

func (l *CreditLedger) BalanceTx(ctx context.Context, tx *gorm.DB, userID uint) (decimal.Decimal, error) {
	var user models.User
	err := tx.WithContext(ctx).Select("id", "credits").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, types.ErrUserNotFound.With(map[string]any{"userId": userID})
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("loading balance: %w", err)
	}
	return user.Credits, nil
}

func (l *CreditLedger) Apply(ctx context.Context, e CreditEntry) (*models.CreditTransaction, error) {
	var row *models.CreditTransaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		row, err = l.ApplyTx(ctx, tx, e)
		return err
	})
	return row, err
}

// ApplyTx moves the balance by e.Amount and appends the ledger row. It does
// not check sufficiency; debits that must not overdraw go through SpendTx.
func (l *CreditLedger) ApplyTx(ctx context.Context, tx *gorm.DB, e CreditEntry) (*models.CreditTransaction, error) {
	res := tx.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", e.UserID).
		Update("credits", gorm.Expr("credits + ?", e.Amount))
	if res.Error != nil {
		return nil, fmt.Errorf("updating balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, types.ErrUserNotFound.With(map[string]any{"userId": e.UserID})
	}
	return l.appendTx(ctx, tx, e, e.Amount)
}

// SpendTx debits |e.Amount| only when the balance covers it. The check and
// the decrement are one statement.
func (l *CreditLedger) SpendTx(ctx context.Context, tx *gorm.DB, e CreditEntry) (*models.CreditTransaction, error) {
	amount := e.Amount.Abs()
	res := tx.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND credits >= ?", e.UserID, amount).
		Update("credits", gorm.Expr("credits - ?", amount))
	if res.Error != nil {
		return nil, fmt.Errorf("debiting balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		balance, err := l.BalanceTx(ctx, tx, e.UserID)
		if err != nil {
			return nil, err
		}
		return nil, InsufficientCredits(amount, balance)
	}
	return l.appendTx(ctx, tx, e, amount.Neg())
}

func (l *CreditLedger) appendTx(ctx context.Context, tx *gorm.DB, e CreditEntry, amount decimal.Decimal) (*models.CreditTransaction, error) {
	row := &models.CreditTransaction{
		UserID:      e.UserID,
		Amount:      amount,
		Type:        e.Type,
		Description: e.Description,
		Reference:   e.Reference,
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("appending credit transaction: %w", err)
	}
	return row, nil
}

// InsufficientCredits carries what a client needs to offer a card fallback.
func InsufficientCredits(needed, balance decimal.Decimal) error {
	return types.ErrInsufficientCredits.
		Withf("insufficient credits: need %s, have %s", needed.StringFixed(2), balance.StringFixed(2)).
		With(map[string]any{
			"creditsNeeded":  needed.StringFixed(2),
			"currentCredits": balance.StringFixed(2),
			"shortfall":      needed.Sub(balance).StringFixed(2),
			"canPayWithCard": true,
		})
}

func (l *CreditLedger) History(ctx context.Context, userID uint, page, limit int) (*CreditHistory, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	h := &CreditHistory{Page: page, Limit: limit, Transactions: []models.CreditTransaction{}}
	q := l.db.WithContext(ctx).Model(&models.CreditTransaction{}).Scopes(scopes.OwnedBy(userID))
	if err := q.Count(&h.Total).Error; err != nil {
		return nil, fmt.Errorf("counting credit transactions: %w", err)
	}
	err := l.db.WithContext(ctx).
		Scopes(scopes.OwnedBy(userID), scopes.Paginate(page, limit)).
		Order("created_at desc, id desc").
		Find(&h.Transactions).Error
	if err != nil {
		return nil, fmt.Errorf("listing credit transactions: %w", err)
	}
	h.TotalPages = int(math.Ceil(float64(h.Total) / float64(limit)))
	h.HasMore = page < h.TotalPages
	return h, nil
}

// Reconcile fails loudly when the materialized balance drifts from the ledger.
func (l *CreditLedger) Reconcile(ctx context.Context, userID uint) error {
	balance, err := l.Balance(ctx, userID)
	if err != nil {
		return err
	}
	var sum decimal.NullDecimal
	err = l.db.WithContext(ctx).
		Model(&models.CreditTransaction{}).
		Select("SUM(amount)").
		Scopes(scopes.OwnedBy(userID)).
		Row().Scan(&sum)
	if err != nil {
		return fmt.Errorf("summing ledger: %w", err)
	}
	if !balance.Equal(sum.Decimal) {
		return types.ErrLedgerMismatch.With(map[string]any{
			"userId":  userID,
			"balance": balance.StringFixed(2),
			"ledger":  sum.Decimal.StringFixed(2),
		})
	}
	return nil
}
