package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Table is a physical seating unit. CurrentSessionID points at the one
// active Session for this table, or is nil when the table is free. The
// pointer is mutated only through the ledger's conditional updates.
type Table struct {
	bun.BaseModel `bun:"table:tables"`

	TableID          string    `bun:"table_id,pk" json:"tableId"`
	CurrentSessionID *string   `bun:"current_session_id" json:"currentSessionId,omitempty"`
	CreatedAt        time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}
