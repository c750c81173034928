package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-ordering/internal/ledger/db"
	"ms-ordering/internal/logger"
	"ms-ordering/internal/models"

	"github.com/google/uuid"
)

// DBLayer is the store capability the ledger needs: point reads,
// conditional (compare-and-swap) updates, and the one multi-row
// transaction behind InsertOrder and CompleteSession.
type DBLayer interface {
	GetTable(ctx context.Context, tableID string) (*models.Table, error)
	AttachSession(ctx context.Context, tableID, sessionID string) (bool, error)
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	NextSequence(ctx context.Context, sessionID string) (int64, error)
	CompleteSession(ctx context.Context, sessionID, tableID string, settledAt time.Time) (bool, error)
	InsertOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	AdvanceOrderStatus(ctx context.Context, orderID, from, to string) (bool, error)
	OrdersBySession(ctx context.Context, sessionID string) ([]models.Order, error)
}

type KafkaPublisher interface {
	PublishOrderCreated(tableID string, order models.Order) error
	PublishOrderStatusChanged(tableID string, order models.Order) error
	PublishSessionSettled(session models.Session) error
}

// IdempotencyGuard remembers client-generated submission keys so a
// retried POST does not append the same cart twice.
type IdempotencyGuard interface {
	Reserve(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type EventEmitter interface {
	Emit(event models.LedgerEvent)
}

// appendAttempts bounds StaleSession retries so a pathological
// settle/append interleaving cannot loop forever.
const appendAttempts = 3

// Service is the table-session order ledger: it turns independent
// submissions from one table into a single consistent billing session.
type Service struct {
	DB        DBLayer
	Sessions  *SessionManager
	Sequences *SequenceAllocator
	Kafka     KafkaPublisher
	Idem      IdempotencyGuard
	Events    EventEmitter
	Logger    *logger.Logger
}

func NewService(dbl DBLayer, kafka KafkaPublisher, idem IdempotencyGuard, events EventEmitter, log *logger.Logger) *Service {
	return &Service{
		DB:        dbl,
		Sessions:  NewSessionManager(dbl),
		Sequences: NewSequenceAllocator(dbl),
		Kafka:     kafka,
		Idem:      idem,
		Events:    events,
		Logger:    log,
	}
}

// OpenOrAttach exposes the session manager to the transport layer.
func (s *Service) OpenOrAttach(ctx context.Context, tableID string) (string, error) {
	return s.Sessions.OpenOrAttach(ctx, tableID)
}

// AppendOrder validates and persists one submission against the table's
// current session. idemKey may be empty; when set and already seen, the
// submission is rejected as a duplicate.
func (s *Service) AppendOrder(ctx context.Context, tableID string, items []models.LineItem, idemKey string) (*models.Order, error) {
	subtotal, err := validateCart(items)
	if err != nil {
		return nil, err
	}

	reserved := false
	if idemKey != "" && s.Idem != nil {
		ok, err := s.Idem.Reserve(ctx, idemKey)
		if err != nil {
			// The guard is advisory; a broken Redis must not block orders.
			s.logWarn("IDEM", fmt.Sprintf("reserve %s failed: %v", idemKey, err))
		} else if !ok {
			return nil, fmt.Errorf("%w: key %s", ErrDuplicateSubmission, idemKey)
		} else {
			reserved = true
		}
	}

	order, err := s.appendWithRetry(ctx, tableID, items, subtotal)
	if err != nil {
		if reserved {
			if relErr := s.Idem.Release(ctx, idemKey); relErr != nil {
				s.logWarn("IDEM", fmt.Sprintf("release %s failed: %v", idemKey, relErr))
			}
		}
		return nil, err
	}

	s.logOrder("APPEND", order.ID, fmt.Sprintf("table %s seq %d subtotal %.2f", tableID, order.SequenceNumber, order.Subtotal))
	s.publishOrderCreated(tableID, *order)
	return order, nil
}

func (s *Service) appendWithRetry(ctx context.Context, tableID string, items []models.LineItem, subtotal float64) (*models.Order, error) {
	var lastErr error
	for attempt := 1; attempt <= appendAttempts; attempt++ {
		order, err := s.tryAppend(ctx, tableID, items, subtotal)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, ErrStaleSession) {
			return nil, err
		}
		// Settlement won the race; the next attempt opens a fresh session.
		lastErr = err
		s.logDebug("LEDGER", fmt.Sprintf("append attempt %d on table %s lost to settlement, retrying", attempt, tableID))
	}
	return nil, fmt.Errorf("append to table %s: retries exhausted: %w", tableID, lastErr)
}

func (s *Service) tryAppend(ctx context.Context, tableID string, items []models.LineItem, subtotal float64) (*models.Order, error) {
	sessionID, err := s.Sessions.OpenOrAttach(ctx, tableID)
	if err != nil {
		return nil, err
	}

	seq, err := s.Sequences.Next(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		Items:          items,
		Subtotal:       subtotal,
		SequenceNumber: seq,
		Status:         models.OrderPending,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.DB.InsertOrder(ctx, order); err != nil {
		if errors.Is(err, db.ErrSessionNotActive) {
			return nil, fmt.Errorf("%w: %s", ErrStaleSession, sessionID)
		}
		return nil, fmt.Errorf("persist order: %w", err)
	}
	return order, nil
}

// Settle closes the table's current session. No order can attach to it
// afterwards; in-flight appends fail their conditional writes and retry
// into a new session.
func (s *Service) Settle(ctx context.Context, tableID string) (*models.Session, error) {
	session, err := s.Sessions.Settle(ctx, tableID)
	if err != nil {
		return nil, err
	}

	s.logSession("SETTLE", session.ID, fmt.Sprintf("table %s total %.2f", tableID, session.TotalAmount))
	if s.Kafka != nil {
		if err := s.Kafka.PublishSessionSettled(*session); err != nil {
			s.logWarn("KAFKA", fmt.Sprintf("publish session settled %s: %v", session.ID, err))
		}
	}
	if s.Events != nil {
		s.Events.Emit(models.LedgerEvent{Type: models.EventSessionSettled, TableID: tableID, Session: session})
	}
	return session, nil
}

// orderStatusBefore maps each kitchen status to the only status it may
// be entered from.
var orderStatusBefore = map[string]string{
	models.OrderCooking: models.OrderPending,
	models.OrderDone:    models.OrderCooking,
}

// AdvanceOrderStatus moves an order one step forward in the kitchen
// flow. Anything but pending->cooking or cooking->done is rejected.
func (s *Service) AdvanceOrderStatus(ctx context.Context, orderID, to string) (*models.Order, error) {
	from, ok := orderStatusBefore[to]
	if !ok {
		return nil, fmt.Errorf("%w: cannot move an order to %q", ErrInvalidTransition, to)
	}

	moved, err := s.DB.AdvanceOrderStatus(ctx, orderID, from, to)
	if err != nil {
		return nil, fmt.Errorf("advance order %s: %w", orderID, err)
	}
	if !moved {
		if _, readErr := s.DB.GetOrder(ctx, orderID); errors.Is(readErr, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		} else if readErr != nil {
			return nil, fmt.Errorf("read order %s: %w", orderID, readErr)
		}
		return nil, fmt.Errorf("%w: order %s is not %s", ErrInvalidTransition, orderID, from)
	}

	order, err := s.DB.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("read order %s: %w", orderID, err)
	}

	tableID := ""
	if session, err := s.DB.GetSession(ctx, order.SessionID); err == nil {
		tableID = session.TableID
	}
	s.logOrder("STATUS", order.ID, fmt.Sprintf("%s -> %s", from, to))
	if s.Kafka != nil {
		if err := s.Kafka.PublishOrderStatusChanged(tableID, *order); err != nil {
			s.logWarn("KAFKA", fmt.Sprintf("publish order status %s: %v", order.ID, err))
		}
	}
	if s.Events != nil {
		s.Events.Emit(models.LedgerEvent{Type: models.EventOrderStatus, TableID: tableID, Order: order})
	}
	return order, nil
}

// TableView returns the diner-facing read of one table: current session
// plus its orders, newest first.
func (s *Service) TableView(ctx context.Context, tableID string) (*models.TableView, error) {
	table, err := s.DB.GetTable(ctx, tableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
		}
		return nil, fmt.Errorf("read table %s: %w", tableID, err)
	}

	view := &models.TableView{Table: *table, Orders: []models.Order{}}
	if table.CurrentSessionID == nil {
		return view, nil
	}

	session, err := s.DB.GetSession(ctx, *table.CurrentSessionID)
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", *table.CurrentSessionID, err)
	}
	orders, err := s.DB.OrdersBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("read orders for session %s: %w", session.ID, err)
	}

	view.Session = session
	view.Orders = orders
	view.Total = session.TotalAmount
	return view, nil
}

// validateCart checks the submission at the boundary and returns its
// subtotal.
func validateCart(items []models.LineItem) (float64, error) {
	if len(items) == 0 {
		return 0, fmt.Errorf("%w: cart is empty", ErrInvalidCart)
	}
	var subtotal float64
	for i, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return 0, fmt.Errorf("%w: item %d has no name", ErrInvalidCart, i)
		}
		if item.Qty < 1 {
			return 0, fmt.Errorf("%w: item %q has quantity %d", ErrInvalidCart, item.Name, item.Qty)
		}
		if item.Price < 0 {
			return 0, fmt.Errorf("%w: item %q has negative price", ErrInvalidCart, item.Name)
		}
		subtotal += item.Price * float64(item.Qty)
	}
	return subtotal, nil
}

func (s *Service) publishOrderCreated(tableID string, order models.Order) {
	if s.Kafka != nil {
		if err := s.Kafka.PublishOrderCreated(tableID, order); err != nil {
			s.logWarn("KAFKA", fmt.Sprintf("publish order created %s: %v", order.ID, err))
		}
	}
	if s.Events != nil {
		s.Events.Emit(models.LedgerEvent{Type: models.EventOrderCreated, TableID: tableID, Order: &order})
	}
}

func (s *Service) logOrder(action, orderID, msg string) {
	if s.Logger != nil {
		s.Logger.LogOrder(action, orderID, msg)
	}
}

func (s *Service) logSession(action, sessionID, msg string) {
	if s.Logger != nil {
		s.Logger.LogSession(action, sessionID, msg)
	}
}

func (s *Service) logWarn(category, msg string) {
	if s.Logger != nil {
		s.Logger.Warn(category, msg)
	}
}

func (s *Service) logDebug(category, msg string) {
	if s.Logger != nil {
		s.Logger.Debug(category, msg)
	}
}
