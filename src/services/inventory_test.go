package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"ticketing/src/types"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestReserveOrIssueDecrements(t *testing.T) {
	f := newFixture(t)
	ev := f.event(240*time.Hour, "", "")
	tt := f.ticketType(ev.ID, "General", 25, 5)

	snap, err := f.svc.Inventory.ReserveOrIssue(f.ctx, tt.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.AvailableQuantity)
	assert.Equal(t, 3, f.available(tt))
}

func TestReserveOrIssueRejectsOversell(t *testing.T) {
	f := newFixture(t)
	ev := f.event(240*time.Hour, "", "")
	tt := f.ticketType(ev.ID, "VIP", 100, 1)

	_, err := f.svc.Inventory.ReserveOrIssue(f.ctx, tt.ID, 2)
	require.ErrorIs(t, err, types.ErrInsufficientInventory)
	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "VIP", appErr.Details["ticketTypeName"])
	assert.Equal(t, 1, f.available(tt))
}

func TestReserveOrIssueUnknownType(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Inventory.ReserveOrIssue(f.ctx, 999, 1)
	assert.ErrorIs(t, err, types.ErrTicketTypeNotFound)
}

func TestReserveOrIssueConcurrentNoOversell(t *testing.T) {
	f := newFixture(t)
	ev := f.event(240*time.Hour, "", "")
	const n = 5
	tt := f.ticketType(ev.ID, "General", 25, n)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0
	for i := 0; i < n+1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Inventory.ReserveOrIssue(f.ctx, tt.ID, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, types.ErrInsufficientInventory):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, n, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 0, f.available(tt))
}

func TestReleaseCapsAtTotal(t *testing.T) {
	f := newFixture(t)
	ev := f.event(240*time.Hour, "", "")
	tt := f.ticketType(ev.ID, "General", 25, 3)

	_, err := f.svc.Inventory.ReserveOrIssue(f.ctx, tt.ID, 1)
	require.NoError(t, err)
	require.NoError(t, f.svc.Inventory.Release(f.ctx, tt.ID, 1))
	require.NoError(t, f.svc.Inventory.Release(f.ctx, tt.ID, 1))
	assert.Equal(t, 3, f.available(tt))

	assert.ErrorIs(t, f.svc.Inventory.Release(f.ctx, 999, 1), types.ErrTicketTypeNotFound)
	assert.ErrorIs(t, f.svc.Inventory.Release(f.ctx, tt.ID, 0), types.ErrInvalidRequest)
}

// The decrement must be one conditional UPDATE, not a read followed by a write.
func TestReserveOrIssueIsSingleConditionalUpdate(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "ticket_types" SET "available_quantity"=available_quantity - $1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "ticket_types"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "name", "price", "total_quantity", "available_quantity"}).
			AddRow(7, 1, "General", "25.00", 5, 1))
	mock.ExpectRollback()

	_, err = NewInventoryLedger(gormDB).ReserveOrIssue(context.Background(), 7, 2)
	assert.ErrorIs(t, err, types.ErrInsufficientInventory)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveTxUpdatesInIDOrder(t *testing.T) {
	const (
		releaseSQL = `UPDATE "ticket_types" SET "available_quantity"=CASE WHEN`
		issueSQL   = `UPDATE "ticket_types" SET "available_quantity"=available_quantity - $1`
	)
	cases := map[string]struct {
		from, to uint
		order    []string
	}{
		"upgrade to higher id":  {from: 3, to: 9, order: []string{releaseSQL, issueSQL}},
		"downgrade to lower id": {from: 9, to: 3, order: []string{issueSQL, releaseSQL}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			sqlDB, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer sqlDB.Close()
			gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
			require.NoError(t, err)

			mock.ExpectBegin()
			for _, stmt := range tc.order {
				mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 1))
				if stmt == issueSQL {
					mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "ticket_types"`)).
						WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "name", "price", "total_quantity", "available_quantity"}).
							AddRow(tc.to, 1, "VIP", "70.00", 5, 4))
				}
			}
			mock.ExpectCommit()

			ledger := NewInventoryLedger(gormDB)
			err = gormDB.Transaction(func(tx *gorm.DB) error {
				return ledger.MoveTx(context.Background(), tx, tc.from, tc.to)
			})
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
