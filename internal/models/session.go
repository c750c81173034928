package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)

// Session groups every order placed from one table between the first
// submission and settlement. TotalAmount is the running sum of its
// orders' subtotals and LastSequence the per-session order counter;
// both are only ever advanced by single conditional updates.
type Session struct {
	bun.BaseModel `bun:"table:sessions"`

	ID           string     `bun:"id,pk" json:"id"`
	TableID      string     `bun:"table_id,notnull" json:"tableId"`
	Status       string     `bun:"status,notnull" json:"status"`
	TotalAmount  float64    `bun:"total_amount,notnull" json:"totalAmount"`
	LastSequence int64      `bun:"last_sequence,notnull" json:"-"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	SettledAt    *time.Time `bun:"settled_at" json:"settledAt,omitempty"`
}
