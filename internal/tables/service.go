package tables

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-ordering/internal/models"
)

var (
	ErrInvalidTableID = errors.New("invalid table id")
	ErrTableExists    = errors.New("table already exists")
	ErrTableNotFound  = errors.New("table not found")

	// ErrTableBusy refuses deletion while a session is attached.
	ErrTableBusy = errors.New("table has an active session")
)

type DBLayer interface {
	GetTable(ctx context.Context, tableID string) (*models.Table, error)
	CreateTable(ctx context.Context, table *models.Table) error
	DeleteTableIfIdle(ctx context.Context, tableID string) (bool, error)
	ListTables(ctx context.Context) ([]models.Table, error)
}

// Service handles staff table provisioning. Tables are created free and
// may only be deleted while free; the session lifecycle itself belongs
// to the ledger.
type Service struct {
	DB DBLayer
}

func NewService(db DBLayer) *Service {
	return &Service{DB: db}
}

func (s *Service) Create(ctx context.Context, tableID string) (*models.Table, error) {
	tableID = strings.TrimSpace(tableID)
	if tableID == "" {
		return nil, ErrInvalidTableID
	}

	if _, err := s.DB.GetTable(ctx, tableID); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrTableExists, tableID)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check table %s: %w", tableID, err)
	}

	table := &models.Table{TableID: tableID, CreatedAt: time.Now().UTC()}
	if err := s.DB.CreateTable(ctx, table); err != nil {
		// The primary key backstops the check above under a create race.
		return nil, fmt.Errorf("create table %s: %w", tableID, err)
	}
	return table, nil
}

func (s *Service) Delete(ctx context.Context, tableID string) error {
	deleted, err := s.DB.DeleteTableIfIdle(ctx, tableID)
	if err != nil {
		return fmt.Errorf("delete table %s: %w", tableID, err)
	}
	if deleted {
		return nil
	}

	if _, err := s.DB.GetTable(ctx, tableID); errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	} else if err != nil {
		return fmt.Errorf("check table %s: %w", tableID, err)
	}
	return fmt.Errorf("%w: %s", ErrTableBusy, tableID)
}

func (s *Service) List(ctx context.Context) ([]models.Table, error) {
	return s.DB.ListTables(ctx)
}
