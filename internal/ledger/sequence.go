package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SequenceAllocator hands out per-session order sequence numbers. The
// store advances a counter column with a single conditional update, so
// two concurrent appends can never draw the same number and numbers are
// strictly increasing in allocation order. Gaps are fine: a number
// drawn by an append that later fails is simply never used.
type SequenceAllocator struct {
	DB DBLayer
}

func NewSequenceAllocator(db DBLayer) *SequenceAllocator {
	return &SequenceAllocator{DB: db}
}

func (a *SequenceAllocator) Next(ctx context.Context, sessionID string) (int64, error) {
	seq, err := a.DB.NextSequence(ctx, sessionID)
	if err == nil {
		return seq, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		// The conditional update matched nothing: either the session is
		// gone (integrity failure) or it was settled under us.
		if _, readErr := a.DB.GetSession(ctx, sessionID); errors.Is(readErr, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return 0, fmt.Errorf("%w: %s", ErrStaleSession, sessionID)
	}
	return 0, fmt.Errorf("allocate sequence for session %s: %w", sessionID, err)
}
