package gormstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trailbot/internal/store"
	storemodel "trailbot/internal/store/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type eventModel = storemodel.EventModel
type orderModel = storemodel.OrderModel

const defaultListLimit = 200

// GormStore implements the audit and order journal storage using Gorm + SQLite.
type GormStore struct {
	db *gorm.DB
}

var _ store.Store = (*GormStore)(nil)

// NewGormStore opens (or creates) the SQLite file at path and migrates the schema.
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: db path is required")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&eventModel{}, &orderModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: the loop writes, the status API and CLI read.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SQLDB exposes the underlying *sql.DB.
func (s *GormStore) SQLDB() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	return s.db.DB()
}

// --------------------------- Events ------------------------------

func (s *GormStore) AppendEvent(ctx context.Context, evt *eventModel) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	if evt == nil {
		return nil
	}
	evt.Kind = strings.TrimSpace(evt.Kind)
	if evt.Kind == "" {
		return fmt.Errorf("event kind is required")
	}
	evt.Symbol = strings.ToUpper(strings.TrimSpace(evt.Symbol))
	if len(evt.Fields) == 0 {
		evt.Fields = []byte("{}")
	}
	if evt.CreatedAtUnix == 0 {
		evt.CreatedAtUnix = time.Now().UnixMilli()
	}
	return s.db.WithContext(ctx).Create(evt).Error
}

// ListEvents returns the newest events first. A zero since and empty kind
// disable the respective filter.
func (s *GormStore) ListEvents(ctx context.Context, since time.Time, kind string, limit int) ([]eventModel, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit)
	if !since.IsZero() {
		query = query.Where("created_at > ?", since.UnixMilli())
	}
	if kind = strings.TrimSpace(kind); kind != "" {
		query = query.Where("kind = ?", kind)
	}
	var models []eventModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return models, nil
}

// --------------------------- Order journal ------------------------------

func (s *GormStore) AppendOrder(ctx context.Context, order *orderModel) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	if order == nil {
		return nil
	}
	if order.Action == "" {
		return fmt.Errorf("order action is required")
	}
	order.Symbol = strings.ToUpper(strings.TrimSpace(order.Symbol))
	if order.CreatedAtUnix == 0 {
		order.CreatedAtUnix = time.Now().UnixMilli()
	}
	return s.db.WithContext(ctx).Create(order).Error
}

func (s *GormStore) ListOrders(ctx context.Context, limit int) ([]orderModel, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	var models []orderModel
	err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&models).Error
	if err != nil {
		return nil, err
	}
	return models, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
