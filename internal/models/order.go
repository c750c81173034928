package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	OrderPending = "pending"
	OrderCooking = "cooking"
	OrderDone    = "done"
)

// LineItem is one validated cart line.
type LineItem struct {
	Name    string            `json:"name"`
	Price   float64           `json:"price"`
	Qty     int               `json:"qty"`
	Options map[string]string `json:"options,omitempty"`
}

// Order is one discrete submission of items within a Session. SessionID
// and SequenceNumber are immutable after insert; only Status advances
// (pending -> cooking -> done).
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID             string     `bun:"id,pk" json:"id"`
	SessionID      string     `bun:"session_id,notnull" json:"sessionId"`
	Items          []LineItem `bun:"items,type:jsonb" json:"items"`
	Subtotal       float64    `bun:"subtotal,notnull" json:"subtotal"`
	SequenceNumber int64      `bun:"sequence_number,notnull" json:"sequenceNumber"`
	Status         string     `bun:"status,notnull" json:"status"`
	CreatedAt      time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}

// AppendOrderRequest is the diner-facing submission payload.
type AppendOrderRequest struct {
	Items []LineItem `json:"items"`
}

// TableView is the diner-facing read of one table: its current session
// (nil when the table is free) and that session's orders, newest first.
type TableView struct {
	Table   Table    `json:"table"`
	Session *Session `json:"session,omitempty"`
	Orders  []Order  `json:"orders"`
	Total   float64  `json:"total"`
}
