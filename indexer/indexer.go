// Package indexer persists committed ledger events to SQL so clients can
// page through program history without replaying the ledger.
package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"solpay/core/events"
	"solpay/core/types"
	"solpay/observability/metrics"
)

const (
	DefaultQueryLimit = 100
	MaxQueryLimit     = 1000
)

var ErrDSNRequired = errors.New("indexer: dsn must be configured")

// EventRecord is the stored form of one committed event.
type EventRecord struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	TxHash     string    `gorm:"size:64;index"`
	Type       string    `gorm:"size:64;index"`
	Project    string    `gorm:"size:64;index"`
	Attributes string    `gorm:"type:text"`
	RecordedAt time.Time `gorm:"index"`
}

// Entry is a decoded EventRecord.
type Entry struct {
	ID         uint64            `json:"id"`
	Tx         string            `json:"tx"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	RecordedAt time.Time         `json:"recordedAt"`
}

// Filter narrows a Query. Zero values match everything.
type Filter struct {
	Type    string
	Project string
	TxHash  string
	AfterID uint64
	Limit   int
}

// Indexer implements events.Emitter on top of a gorm database.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open connects to a sqlite DSN and migrates the schema.
func Open(dsn string) (*Indexer, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, ErrDSNRequired
	}
	db, err := gorm.Open(sqlite.Open(trimmed), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open database: %w", err)
	}
	return New(db)
}

// New wraps an existing connection.
func New(db *gorm.DB) (*Indexer, error) {
	if db == nil {
		return nil, fmt.Errorf("indexer: nil database")
	}
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return &Indexer{db: db, logger: slog.Default(), now: time.Now}, nil
}

func (i *Indexer) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	i.logger = l
}

// Close releases the underlying connection.
func (i *Indexer) Close() error {
	if i == nil || i.db == nil {
		return nil
	}
	sqlDB, err := i.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Emit stores evt. Failures are logged and counted; the ledger has already
// committed by the time events reach the index.
func (i *Indexer) Emit(evt events.Event) {
	if err := i.Record(context.Background(), events.ToWire(evt)); err != nil {
		metrics.Events().RecordFailure()
		i.logger.Error("index event", slog.String("type", evt.EventType()), slog.Any("error", err))
	}
}

// Record persists a single wire event.
func (i *Indexer) Record(ctx context.Context, evt *types.Event) error {
	if evt == nil {
		return nil
	}
	attrs, err := json.Marshal(evt.Attributes)
	if err != nil {
		return err
	}
	rec := EventRecord{
		TxHash:     evt.Attr("tx"),
		Type:       evt.Type,
		Project:    evt.Attr("project"),
		Attributes: string(attrs),
		RecordedAt: i.now().UTC(),
	}
	if err := i.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("indexer: insert: %w", err)
	}
	metrics.Events().RecordIndexed(evt.Type)
	return nil
}

// Query returns matching events in insertion order.
func (i *Indexer) Query(ctx context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}
	q := i.db.WithContext(ctx).Model(&EventRecord{})
	if t := strings.TrimSpace(f.Type); t != "" {
		q = q.Where("type = ?", t)
	}
	if p := strings.TrimSpace(f.Project); p != "" {
		q = q.Where("project = ?", p)
	}
	if tx := strings.TrimSpace(f.TxHash); tx != "" {
		q = q.Where("tx_hash = ?", tx)
	}
	if f.AfterID > 0 {
		q = q.Where("id > ?", f.AfterID)
	}
	var rows []EventRecord
	if err := q.Order("id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("indexer: query: %w", err)
	}
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entry := Entry{ID: row.ID, Tx: row.TxHash, Type: row.Type, RecordedAt: row.RecordedAt}
		if err := json.Unmarshal([]byte(row.Attributes), &entry.Attributes); err != nil {
			return nil, fmt.Errorf("indexer: decode event %d: %w", row.ID, err)
		}
		out = append(out, entry)
	}
	return out, nil
}
