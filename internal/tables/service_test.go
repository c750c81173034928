package tables_test

import (
	"context"
	"database/sql"
	"testing"

	ledgerdb "ms-ordering/internal/ledger/db"
	"ms-ordering/internal/tables"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupService(t *testing.T) (*tables.Service, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := ledgerdb.Bootstrap(context.Background(), bunDB); err != nil {
		t.Fatalf("Failed to create tables: %v", err)
	}

	return tables.NewService(&tables.DB{Bun: bunDB}), bunDB
}

func TestCreateTable(t *testing.T) {
	service, bunDB := setupService(t)
	defer bunDB.Close()
	ctx := context.Background()

	table, err := service.Create(ctx, "  t1  ")
	assert.NoError(t, err)
	assert.Equal(t, "t1", table.TableID, "table id is trimmed")
	assert.Nil(t, table.CurrentSessionID, "new tables start free")

	_, err = service.Create(ctx, "t1")
	assert.ErrorIs(t, err, tables.ErrTableExists)

	_, err = service.Create(ctx, "   ")
	assert.ErrorIs(t, err, tables.ErrInvalidTableID)
}

func TestDeleteTable(t *testing.T) {
	service, bunDB := setupService(t)
	defer bunDB.Close()
	ctx := context.Background()

	_, err := service.Create(ctx, "t1")
	assert.NoError(t, err)

	assert.NoError(t, service.Delete(ctx, "t1"))
	assert.ErrorIs(t, service.Delete(ctx, "t1"), tables.ErrTableNotFound)
}

func TestDeleteBusyTable(t *testing.T) {
	service, bunDB := setupService(t)
	defer bunDB.Close()
	ctx := context.Background()

	_, err := service.Create(ctx, "t1")
	assert.NoError(t, err)

	// Seat the table by pointing it at a session.
	sessionID := uuid.NewString()
	ledgerDB := &ledgerdb.DB{Bun: bunDB}
	won, err := ledgerDB.AttachSession(ctx, "t1", sessionID)
	assert.NoError(t, err)
	assert.True(t, won)

	assert.ErrorIs(t, service.Delete(ctx, "t1"), tables.ErrTableBusy)

	// Still listed.
	all, err := service.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestListTablesSorted(t *testing.T) {
	service, bunDB := setupService(t)
	defer bunDB.Close()
	ctx := context.Background()

	for _, id := range []string{"t3", "t1", "t2"} {
		_, err := service.Create(ctx, id)
		assert.NoError(t, err)
	}

	all, err := service.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "t1", all[0].TableID)
	assert.Equal(t, "t2", all[1].TableID)
	assert.Equal(t, "t3", all[2].TableID)
}
