package ledger

import "errors"

// Ledger error kinds. Handlers distinguish them with errors.Is and map
// them to HTTP codes; messages wrapped around them are safe to show to
// the caller.
var (
	// ErrInvalidCart rejects a malformed or empty submission. Never retried.
	ErrInvalidCart = errors.New("invalid cart")

	// ErrNoActiveSession means settlement was attempted on a table with
	// nothing to settle.
	ErrNoActiveSession = errors.New("no active session")

	// ErrStaleSession means the targeted session was settled after the
	// caller located it. Appends retry it a bounded number of times.
	ErrStaleSession = errors.New("stale session")

	// ErrSessionNotFound is a data-integrity failure: an operation named
	// a session that does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTableNotFound means the table id is not provisioned.
	ErrTableNotFound = errors.New("table not found")

	// ErrOrderNotFound means the order id does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidTransition rejects a backward or skipping kitchen status
	// change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateSubmission rejects a replayed idempotency key.
	ErrDuplicateSubmission = errors.New("duplicate submission")
)
