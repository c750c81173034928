package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ms-ordering/internal/models"

	"github.com/uptrace/bun"
)

// ErrSessionNotActive is returned by writes that are conditional on the
// target session still being active. Callers treat it as a lost race
// against settlement.
var ErrSessionNotActive = errors.New("session is not active")

type DB struct {
	Bun *bun.DB
}

// ---------------- TABLES ----------------

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

// AttachSession points the table at a freshly created session, but only
// if no session is attached right now. Reports whether this caller won;
// a false return means a concurrent opener got there first.
func (d *DB) AttachSession(ctx context.Context, tableID, sessionID string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Table)(nil)).
		Set("current_session_id = ?", sessionID).
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

// ---------------- SESSIONS ----------------

func (d *DB) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := d.Bun.NewInsert().Model(session).Exec(ctx)
	return err
}

func (d *DB) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	err := d.Bun.NewSelect().
		Model(&session).
		Where("id = ?", sessionID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes a session row that lost the attach race before
// any order could reference it.
func (d *DB) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Session)(nil)).
		Where("id = ?", sessionID).
		Exec(ctx)
	return err
}

// NextSequence advances the session's order counter with a single
// conditional update and returns the new value. sql.ErrNoRows means the
// session is missing or no longer active.
func (d *DB) NextSequence(ctx context.Context, sessionID string) (int64, error) {
	var seq int64
	_, err := d.Bun.NewUpdate().
		Model((*models.Session)(nil)).
		Set("last_sequence = last_sequence + 1").
		Where("id = ?", sessionID).
		Where("status = ?", models.SessionActive).
		Returning("last_sequence").
		Exec(ctx, &seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// CompleteSession settles a session: flip it to completed and detach it
// from its table in one transaction. Reports false when the session was
// not active anymore (a concurrent settle won).
func (d *DB) CompleteSession(ctx context.Context, sessionID, tableID string, settledAt time.Time) (bool, error) {
	var flipped bool
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.Session)(nil)).
			Set("status = ?", models.SessionCompleted).
			Set("settled_at = ?", settledAt).
			Where("id = ?", sessionID).
			Where("status = ?", models.SessionActive).
			Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		flipped = true

		_, err = tx.NewUpdate().
			Model((*models.Table)(nil)).
			Set("current_session_id = NULL").
			Where("table_id = ?", tableID).
			Where("current_session_id = ?", sessionID).
			Exec(ctx)
		return err
	})
	if err != nil {
		return false, err
	}
	return flipped, nil
}

// ---------------- ORDERS ----------------

// InsertOrder persists the order and folds its subtotal into the
// session total as one transaction. The total update is conditional on
// the session still being active, so an append racing a settlement
// rolls back whole, never half-applied.
func (d *DB) InsertOrder(ctx context.Context, order *models.Order) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.Session)(nil)).
			Set("total_amount = total_amount + ?", order.Subtotal).
			Where("id = ?", order.SessionID).
			Where("status = ?", models.SessionActive).
			Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrSessionNotActive
		}

		_, err = tx.NewInsert().Model(order).Exec(ctx)
		return err
	})
}

func (d *DB) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("id = ?", orderID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// AdvanceOrderStatus moves an order from one kitchen status to the
// next. The update is conditional on the current status, so staff
// clicking twice cannot skip or rewind a step.
func (d *DB) AdvanceOrderStatus(ctx context.Context, orderID, from, to string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", to).
		Where("id = ?", orderID).
		Where("status = ?", from).
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

// OrdersBySession returns a session's orders newest first.
func (d *DB) OrdersBySession(ctx context.Context, sessionID string) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("session_id = ?", sessionID).
		Order("sequence_number DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}
