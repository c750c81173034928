package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-ordering/internal/models"

	"github.com/google/uuid"
)

// openAttempts bounds the create-then-attach loop; losing the attach
// race more than this many times in a row means something is wrong with
// the store.
const openAttempts = 3

// SessionManager owns the table -> session binding. Every mutation of
// tables.current_session_id goes through it.
type SessionManager struct {
	DB DBLayer
}

func NewSessionManager(db DBLayer) *SessionManager {
	return &SessionManager{DB: db}
}

// OpenOrAttach returns the table's current session id, creating and
// attaching a new active session if the table has none. Concurrent
// callers for the same table agree on one session: the attach is a
// conditional update on current_session_id IS NULL, and a loser drops
// its own session row and adopts the winner's id.
func (m *SessionManager) OpenOrAttach(ctx context.Context, tableID string) (string, error) {
	for attempt := 0; attempt < openAttempts; attempt++ {
		table, err := m.DB.GetTable(ctx, tableID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
			}
			return "", fmt.Errorf("read table %s: %w", tableID, err)
		}
		if table.CurrentSessionID != nil {
			return *table.CurrentSessionID, nil
		}

		session := &models.Session{
			ID:        uuid.NewString(),
			TableID:   tableID,
			Status:    models.SessionActive,
			CreatedAt: time.Now().UTC(),
		}
		if err := m.DB.CreateSession(ctx, session); err != nil {
			return "", fmt.Errorf("create session for table %s: %w", tableID, err)
		}

		won, err := m.DB.AttachSession(ctx, tableID, session.ID)
		if err != nil {
			return "", fmt.Errorf("attach session to table %s: %w", tableID, err)
		}
		if won {
			return session.ID, nil
		}

		// Lost the open race. The session owns no orders yet, so drop it
		// and re-read the winner's id.
		_ = m.DB.DeleteSession(ctx, session.ID)
	}
	return "", fmt.Errorf("open session for table %s: attach contention", tableID)
}

// Settle flips the table's current session to completed and clears the
// table pointer in one transaction. Appends racing this either commit
// before the flip or fail their conditional writes and retry into a
// fresh session.
func (m *SessionManager) Settle(ctx context.Context, tableID string) (*models.Session, error) {
	table, err := m.DB.GetTable(ctx, tableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
		}
		return nil, fmt.Errorf("read table %s: %w", tableID, err)
	}
	if table.CurrentSessionID == nil {
		return nil, fmt.Errorf("%w: table %s", ErrNoActiveSession, tableID)
	}
	sessionID := *table.CurrentSessionID

	flipped, err := m.DB.CompleteSession(ctx, sessionID, tableID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("settle session %s: %w", sessionID, err)
	}
	if !flipped {
		// A concurrent settle got there first.
		return nil, fmt.Errorf("%w: table %s", ErrNoActiveSession, tableID)
	}

	session, err := m.DB.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read settled session %s: %w", sessionID, err)
	}
	return session, nil
}
