// Package store implements the optional Postgres-backed instrument master
// data cache: a gorm.io/gorm reader satisfying core.InstrumentRepository,
// refreshed on a timer rather than queried per lookup, matching the
// read-only-after-boot contract external.go documents.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/BullionBear/sequex/internal/feed/core"
	"github.com/BullionBear/sequex/pkg/log"
)

// instrumentRow is the gorm model backing the "instruments" table.
type instrumentRow struct {
	InstrumentID   uint32 `gorm:"primaryKey;column:instrument_id"`
	Symbol         string `gorm:"column:symbol;index"`
	ProductType    uint8  `gorm:"column:product_type"`
	SourceExchange uint8  `gorm:"column:source_exchange"`
	BaseCurrency   string `gorm:"column:base_currency"`
	QuoteCurrency  string `gorm:"column:quote_currency"`
	TickSize       int64  `gorm:"column:tick_size"`
	MinOrderSize   int64  `gorm:"column:min_order_size"`
}

func (instrumentRow) TableName() string { return "instruments" }

func (r instrumentRow) toInstrument() core.Instrument {
	return core.Instrument{
		InstrumentID:   core.InstrumentID(r.InstrumentID),
		Symbol:         r.Symbol,
		ProductType:    core.ProductType(r.ProductType),
		SourceExchange: core.Exchange(r.SourceExchange),
		BaseCurrency:   r.BaseCurrency,
		QuoteCurrency:  r.QuoteCurrency,
		TickSize:       core.Price(r.TickSize),
		MinOrderSize:   core.Quantity(r.MinOrderSize),
	}
}

// PostgresInstrumentCache implements core.InstrumentRepository over an
// in-memory snapshot refreshed periodically from Postgres, so hot-path
// lookups never block on a query.
type PostgresInstrumentCache struct {
	db     *gorm.DB
	logger log.Logger

	mu       sync.RWMutex
	byID     map[core.InstrumentID]core.Instrument
	bySymbol map[symbolKey]core.Instrument
}

type symbolKey struct {
	symbol      string
	productType core.ProductType
	exchange    core.Exchange
}

// NewPostgresInstrumentCache opens a connection to dsn and performs one
// synchronous initial load before returning, so callers never observe an
// empty cache.
func NewPostgresInstrumentCache(dsn string, logger log.Logger) (*PostgresInstrumentCache, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}
	c := &PostgresInstrumentCache{
		db:       db,
		logger:   logger,
		byID:     make(map[core.InstrumentID]core.Instrument),
		bySymbol: make(map[symbolKey]core.Instrument),
	}
	if err := c.Refresh(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

// Refresh reloads the full instrument table and swaps it in atomically.
func (c *PostgresInstrumentCache) Refresh(ctx context.Context) error {
	var rows []instrumentRow
	if err := c.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return fmt.Errorf("store: load instruments: %w", err)
	}

	byID := make(map[core.InstrumentID]core.Instrument, len(rows))
	bySymbol := make(map[symbolKey]core.Instrument, len(rows))
	for _, row := range rows {
		inst := row.toInstrument()
		byID[inst.InstrumentID] = inst
		bySymbol[symbolKey{inst.Symbol, inst.ProductType, inst.SourceExchange}] = inst
	}

	c.mu.Lock()
	c.byID = byID
	c.bySymbol = bySymbol
	c.mu.Unlock()
	return nil
}

// RunRefreshLoop periodically calls Refresh until ctx is cancelled.
// Intended to be started as a goroutine from cmd/feedengine.
func (c *PostgresInstrumentCache) RunRefreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.logger.Error("instrument cache refresh failed: " + err.Error())
			}
		}
	}
}

// FindBySymbol implements core.InstrumentRepository.
func (c *PostgresInstrumentCache) FindBySymbol(symbol string, productType core.ProductType, exchange core.Exchange) (core.Instrument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	inst, ok := c.bySymbol[symbolKey{symbol, productType, exchange}]
	return inst, ok
}

// GetByID implements core.InstrumentRepository.
func (c *PostgresInstrumentCache) GetByID(id core.InstrumentID) (core.Instrument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	inst, ok := c.byID[id]
	return inst, ok
}
