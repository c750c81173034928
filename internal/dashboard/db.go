package dashboard

import (
	"context"

	"ms-ordering/internal/models"

	"github.com/uptrace/bun"
)

// DB handles the aggregator's read-only queries.
type DB struct {
	bun *bun.DB
}

func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

func (db *DB) ListTables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	err := db.bun.NewSelect().
		Model(&tables).
		Order("table_id ASC").
		Scan(ctx)
	return tables, err
}

func (db *DB) ActiveSessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	err := db.bun.NewSelect().
		Model(&sessions).
		Where("status = ?", models.SessionActive).
		Order("created_at DESC").
		Scan(ctx)
	return sessions, err
}

func (db *DB) OrdersForSessions(ctx context.Context, sessionIDs []string) ([]models.Order, error) {
	if len(sessionIDs) == 0 {
		return []models.Order{}, nil
	}
	var orders []models.Order
	err := db.bun.NewSelect().
		Model(&orders).
		Where("session_id IN (?)", bun.In(sessionIDs)).
		Order("session_id", "sequence_number").
		Scan(ctx)
	return orders, err
}
