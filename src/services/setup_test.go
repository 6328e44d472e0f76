package services

import (
	"context"
	"sync"
	"testing"
	"ticketing/src/db"
	"ticketing/src/models"
	"ticketing/src/types"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var baseTime = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

const testQRSecret = "test-qr-secret"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingNotifier struct {
	mu            sync.Mutex
	confirmations []TicketConfirmation
	refunds       []RefundNotice
}

func (n *recordingNotifier) TicketConfirmation(_ context.Context, c TicketConfirmation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, c)
	return nil
}

func (n *recordingNotifier) RefundCompleted(_ context.Context, r RefundNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refunds = append(n.refunds, r)
	return nil
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	clock    *testClock
	notifier *recordingNotifier
	svc      *Services
}

// newFixture opens a private in-memory sqlite database on a single
// connection, so concurrent transactions run one after another.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	gormDB, err := db.OpenDialector(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))

	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		db:       gormDB,
		clock:    &testClock{t: baseTime},
		notifier: &recordingNotifier{},
	}
	f.svc = New(gormDB, Options{
		QRSecret:               testQRSecret,
		ReservationHold:        15 * time.Minute,
		RefundAutoCompleteDays: 5,
		Notifier:               f.notifier,
		Now:                    f.clock.Now,
	})
	return f
}

func (f *fixture) user(credits int64) *models.User {
	f.t.Helper()
	u := &models.User{Name: "Buyer", Email: uuid.NewString() + "@example.com", Role: types.ROLE_CUSTOMER}
	require.NoError(f.t, f.db.Create(u).Error)
	if credits != 0 {
		_, err := f.svc.Credits.Apply(f.ctx, CreditEntry{
			UserID: u.ID,
			Amount: decimal.NewFromInt(credits),
			Type:   types.CREDIT_BONUS,
		})
		require.NoError(f.t, err)
	}
	return u
}

func (f *fixture) event(in time.Duration, cancellation, exchange string) *models.Event {
	f.t.Helper()
	e := &models.Event{
		Title:              "Summer Fest",
		Location:           "Main Hall",
		DateTime:           f.clock.Now().Add(in),
		CancellationPolicy: cancellation,
		ExchangePolicy:     exchange,
	}
	require.NoError(f.t, f.db.Create(e).Error)
	return e
}

func (f *fixture) ticketType(eventID uint, name string, price int64, quantity int) *models.TicketType {
	f.t.Helper()
	tt := &models.TicketType{
		EventID:           eventID,
		Name:              name,
		Price:             decimal.NewFromInt(price),
		Currency:          "USD",
		TotalQuantity:     quantity,
		AvailableQuantity: quantity,
	}
	require.NoError(f.t, f.db.Create(tt).Error)
	return tt
}

func (f *fixture) savedCard(userID uint) *models.SavedPaymentMethod {
	f.t.Helper()
	pm, err := f.svc.Payments.SaveMethod(f.ctx, userID, CardDetails{
		Number:     "4242424242424242",
		HolderName: "Jo Buyer",
		Expiry:     "12/30",
	})
	require.NoError(f.t, err)
	return pm
}

// buy checks out quantity tickets of tt with a saved card.
func (f *fixture) buy(u *models.User, tt *models.TicketType, quantity int) *CheckoutResult {
	f.t.Helper()
	card := f.savedCard(u.ID)
	res, err := f.svc.Checkout.ProcessPayment(f.ctx, CheckoutRequest{
		UserID:        u.ID,
		Amount:        tt.Price.Mul(decimal.NewFromInt(int64(quantity))),
		Tickets:       []TicketLine{{TicketTypeID: tt.ID, Quantity: quantity}},
		PaymentMethod: types.PAYMENT_CARD,
		SavedCardID:   &card.ID,
	})
	require.NoError(f.t, err)
	return res
}

func (f *fixture) reload(t *models.Ticket) *models.Ticket {
	f.t.Helper()
	var fresh models.Ticket
	require.NoError(f.t, f.db.First(&fresh, t.ID).Error)
	return &fresh
}

func (f *fixture) available(tt *models.TicketType) int {
	f.t.Helper()
	fresh, err := f.svc.Inventory.Get(f.ctx, tt.ID)
	require.NoError(f.t, err)
	return fresh.AvailableQuantity
}

func (f *fixture) balance(u *models.User) decimal.Decimal {
	f.t.Helper()
	b, err := f.svc.Credits.Balance(f.ctx, u.ID)
	require.NoError(f.t, err)
	return b
}

func (f *fixture) requireLedgerConsistent(users ...*models.User) {
	f.t.Helper()
	for _, u := range users {
		require.NoError(f.t, f.svc.Credits.Reconcile(f.ctx, u.ID))
	}
}
