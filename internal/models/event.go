package models

// Ledger event types, shared by the SSE stream and the Kafka topics.
const (
	EventOrderCreated   = "order_created"
	EventOrderStatus    = "order_status_changed"
	EventSessionSettled = "session_settled"
)

// LedgerEvent is one observable state change of the table ledger.
type LedgerEvent struct {
	Type    string   `json:"type"`
	TableID string   `json:"tableId"`
	Order   *Order   `json:"order,omitempty"`
	Session *Session `json:"session,omitempty"`
}
