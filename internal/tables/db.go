package tables

import (
	"context"

	"ms-ordering/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetTable(ctx context.Context, tableID string) (*models.Table, error) {
	var table models.Table
	err := d.Bun.NewSelect().
		Model(&table).
		Where("table_id = ?", tableID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &table, nil
}

func (d *DB) CreateTable(ctx context.Context, table *models.Table) error {
	_, err := d.Bun.NewInsert().Model(table).Exec(ctx)
	return err
}

// DeleteTableIfIdle removes a table only while no session is attached.
// Reports false when the table was busy or missing.
func (d *DB) DeleteTableIfIdle(ctx context.Context, tableID string) (bool, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.Table)(nil)).
		Where("table_id = ?", tableID).
		Where("current_session_id IS NULL").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (d *DB) ListTables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	err := d.Bun.NewSelect().
		Model(&tables).
		Order("table_id ASC").
		Scan(ctx)
	return tables, err
}
