package db

import (
	"context"

	"ms-ordering/internal/models"

	"github.com/uptrace/bun"
)

// Bootstrap creates the ledger tables from the bun models. Dev and test
// use only; production schemas come from the SQL files in migrations/.
func Bootstrap(ctx context.Context, db *bun.DB) error {
	for _, model := range []interface{}{
		(*models.Table)(nil),
		(*models.Session)(nil),
		(*models.Order)(nil),
	} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
