package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"ms-ordering/internal/ledger/db"
	"ms-ordering/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := db.Bootstrap(context.Background(), bunDB); err != nil {
		t.Fatalf("Failed to create ledger tables: %v", err)
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func seedTable(t *testing.T, bunDB *bun.DB, tableID string) {
	table := models.Table{TableID: tableID, CreatedAt: time.Now().UTC()}
	_, err := bunDB.NewInsert().Model(&table).Exec(context.Background())
	assert.NoError(t, err)
}

func seedActiveSession(t *testing.T, ledgerDB *db.DB, tableID string) *models.Session {
	ctx := context.Background()
	session := &models.Session{
		ID:        uuid.NewString(),
		TableID:   tableID,
		Status:    models.SessionActive,
		CreatedAt: time.Now().UTC(),
	}
	assert.NoError(t, ledgerDB.CreateSession(ctx, session))
	won, err := ledgerDB.AttachSession(ctx, tableID, session.ID)
	assert.NoError(t, err)
	assert.True(t, won)
	return session
}

func TestAttachSessionSingleWinner(t *testing.T) {
	ledgerDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedTable(t, bunDB, "t1")

	first := &models.Session{ID: uuid.NewString(), TableID: "t1", Status: models.SessionActive, CreatedAt: time.Now().UTC()}
	second := &models.Session{ID: uuid.NewString(), TableID: "t1", Status: models.SessionActive, CreatedAt: time.Now().UTC()}
	assert.NoError(t, ledgerDB.CreateSession(ctx, first))
	assert.NoError(t, ledgerDB.CreateSession(ctx, second))

	won, err := ledgerDB.AttachSession(ctx, "t1", first.ID)
	assert.NoError(t, err)
	assert.True(t, won)

	// A second attach must lose: the pointer is already set.
	won, err = ledgerDB.AttachSession(ctx, "t1", second.ID)
	assert.NoError(t, err)
	assert.False(t, won)

	table, err := ledgerDB.GetTable(ctx, "t1")
	assert.NoError(t, err)
	assert.NotNil(t, table.CurrentSessionID)
	assert.Equal(t, first.ID, *table.CurrentSessionID)
}

func TestNextSequenceAdvances(t *testing.T) {
	ledgerDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedTable(t, bunDB, "t1")
	session := seedActiveSession(t, ledgerDB, "t1")

	for want := int64(1); want <= 3; want++ {
		seq, err := ledgerDB.NextSequence(ctx, session.ID)
		assert.NoError(t, err)
		assert.Equal(t, want, seq)
	}
}

func TestNextSequenceRejectsSettledSession(t *testing.T) {
	ledgerDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedTable(t, bunDB, "t1")
	session := seedActiveSession(t, ledgerDB, "t1")

	flipped, err := ledgerDB.CompleteSession(ctx, session.ID, "t1", time.Now().UTC())
	assert.NoError(t, err)
	assert.True(t, flipped)

	_, err = ledgerDB.NextSequence(ctx, session.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestInsertOrderFoldsSubtotalIntoSession(t *testing.T) {
	ledgerDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedTable(t, bunDB, "t1")
	session := seedActiveSession(t, ledgerDB, "t1")

	for i, subtotal := range []float64{12.5, 7.25} {
		order := &models.Order{
			ID:             uuid.NewString(),
			SessionID:      session.ID,
			Items:          []models.LineItem{{Name: "ramen", Price: subtotal, Qty: 1}},
			Subtotal:       subtotal,
			SequenceNumber: int64(i + 1),
			Status:         models.OrderPending,
			CreatedAt:      time.Now().UTC(),
		}
		assert.NoError(t, ledgerDB.InsertOrder(ctx, order))
	}

	updated, err := ledgerDB.GetSession(ctx, session.ID)
	assert.NoError(t, err)
	assert.InDelta(t, 19.75, updated.TotalAmount, 1e-9)

	orders, err := ledgerDB.OrdersBySession(ctx, session.ID)
	assert.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestInsertOrderRejectsSettledSession(t *testing.T) {
	ledgerDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedTable(t, bunDB, "t1")
	session := seedActiveSession(t, ledgerDB, "t1")

	flipped, err := ledgerDB.CompleteSession(ctx, session.ID, "t1", time.Now().UTC())
	assert.NoError(t, err)
	assert.True(t, flipped)

	order := &models.Order{
		ID:             uuid.NewString(),
		SessionID:      session.ID,
		Items:          []models.LineItem{{Name: "tea", Price: 3, Qty: 1}},
		Subtotal:       3,
		SequenceNumber: 1,
		Status:         models.OrderPending,
		CreatedAt:      time.Now().UTC(),
	}
	err = ledgerDB.InsertOrder(ctx, order)
	assert.ErrorIs(t, err, db.ErrSessionNotActive)

	// The whole transaction must roll back: no order row, total untouched.
	orders, err := ledgerDB.OrdersBySession(ctx, session.ID)
	assert.NoError(t, err)
	assert.Empty(t, orders)

	settled, err := ledgerDB.GetSession(ctx, session.ID)
	assert.NoError(t, err)
	assert.Equal(t, float64(0), settled.TotalAmount)
}

func TestCompleteSessionDetachesTable(t *testing.T) {
	ledgerDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedTable(t, bunDB, "t1")
	session := seedActiveSession(t, ledgerDB, "t1")

	settledAt := time.Now().UTC()
	flipped, err := ledgerDB.CompleteSession(ctx, session.ID, "t1", settledAt)
	assert.NoError(t, err)
	assert.True(t, flipped)

	settled, err := ledgerDB.GetSession(ctx, session.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, settled.Status)
	assert.NotNil(t, settled.SettledAt)

	table, err := ledgerDB.GetTable(ctx, "t1")
	assert.NoError(t, err)
	assert.Nil(t, table.CurrentSessionID)

	// Settling again reports a lost race, not an error.
	flipped, err = ledgerDB.CompleteSession(ctx, session.ID, "t1", time.Now().UTC())
	assert.NoError(t, err)
	assert.False(t, flipped)
}

func TestAdvanceOrderStatusConditional(t *testing.T) {
	ledgerDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedTable(t, bunDB, "t1")
	session := seedActiveSession(t, ledgerDB, "t1")

	order := &models.Order{
		ID:             uuid.NewString(),
		SessionID:      session.ID,
		Items:          []models.LineItem{{Name: "gyoza", Price: 6, Qty: 1}},
		Subtotal:       6,
		SequenceNumber: 1,
		Status:         models.OrderPending,
		CreatedAt:      time.Now().UTC(),
	}
	assert.NoError(t, ledgerDB.InsertOrder(ctx, order))

	moved, err := ledgerDB.AdvanceOrderStatus(ctx, order.ID, models.OrderPending, models.OrderCooking)
	assert.NoError(t, err)
	assert.True(t, moved)

	// Double click: the order is cooking now, the same step matches nothing.
	moved, err = ledgerDB.AdvanceOrderStatus(ctx, order.ID, models.OrderPending, models.OrderCooking)
	assert.NoError(t, err)
	assert.False(t, moved)

	moved, err = ledgerDB.AdvanceOrderStatus(ctx, order.ID, models.OrderCooking, models.OrderDone)
	assert.NoError(t, err)
	assert.True(t, moved)

	final, err := ledgerDB.GetOrder(ctx, order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderDone, final.Status)
}

func TestOrdersBySessionNewestFirst(t *testing.T) {
	ledgerDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedTable(t, bunDB, "t1")
	session := seedActiveSession(t, ledgerDB, "t1")

	for seq := int64(1); seq <= 3; seq++ {
		order := &models.Order{
			ID:             uuid.NewString(),
			SessionID:      session.ID,
			Items:          []models.LineItem{{Name: "beer", Price: 5, Qty: 1}},
			Subtotal:       5,
			SequenceNumber: seq,
			Status:         models.OrderPending,
			CreatedAt:      time.Now().UTC(),
		}
		assert.NoError(t, ledgerDB.InsertOrder(ctx, order))
	}

	orders, err := ledgerDB.OrdersBySession(ctx, session.ID)
	assert.NoError(t, err)
	assert.Len(t, orders, 3)
	assert.Equal(t, int64(3), orders[0].SequenceNumber)
	assert.Equal(t, int64(2), orders[1].SequenceNumber)
	assert.Equal(t, int64(1), orders[2].SequenceNumber)
}

func TestDeleteSession(t *testing.T) {
	ledgerDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedTable(t, bunDB, "t1")
	session := &models.Session{ID: uuid.NewString(), TableID: "t1", Status: models.SessionActive, CreatedAt: time.Now().UTC()}
	assert.NoError(t, ledgerDB.CreateSession(ctx, session))

	assert.NoError(t, ledgerDB.DeleteSession(ctx, session.ID))

	_, err := ledgerDB.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
