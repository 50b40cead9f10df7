package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"racebot/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists orders, strategy documents, enrichment records and
// market metadata in SQLite.
type Storage struct {
	db *gorm.DB
}

// StrategyRecord stores one strategy document as JSON, with the
// activation state denormalized for the active-strategy query.
type StrategyRecord struct {
	Name      string `gorm:"primaryKey"`
	Active    string `gorm:"index"`
	Doc       string
	UpdatedAt time.Time
}

// HorseInfoRecord stores one enrichment record keyed by normalized name.
type HorseInfoRecord struct {
	Name      string `gorm:"primaryKey"`
	Fields    string // JSON field->value map
	UpdatedAt time.Time
}

// MarketMetaRecord mirrors the latest catalogue entry for a market.
type MarketMetaRecord struct {
	MarketID  string `gorm:"primaryKey"`
	Doc       string // JSON CatalogueEntry
	UpdatedAt time.Time
}

// NewStorage opens (or creates) the SQLite database at path.
func NewStorage(path string) (*Storage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	// Pure Go SQLite driver
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Order{}, &StrategyRecord{}, &HorseInfoRecord{}, &MarketMetaRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// ======================================================================================
// Order Operations
// ======================================================================================

// SaveOrder persists one emitted order. Called exactly once per order.
func (s *Storage) SaveOrder(o *domain.Order) error {
	return s.db.Create(o).Error
}

// OrdersForMarket returns all persisted orders for a market.
func (s *Storage) OrdersForMarket(marketID string) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.db.Where("market_id = ?", marketID).Find(&orders).Error
	return orders, err
}

// ======================================================================================
// Strategy Operations
// ======================================================================================

// SaveStrategy upserts one strategy document.
func (s *Storage) SaveStrategy(strat *domain.Strategy) error {
	doc, err := json.Marshal(strat)
	if err != nil {
		return fmt.Errorf("failed to encode strategy: %w", err)
	}
	rec := StrategyRecord{
		Name:      strat.Name,
		Active:    strat.Active,
		Doc:       string(doc),
		UpdatedAt: time.Now(),
	}
	return s.db.Save(&rec).Error
}

// GetStrategy retrieves a strategy by name; nil when absent.
func (s *Storage) GetStrategy(name string) (*domain.Strategy, error) {
	var rec StrategyRecord
	err := s.db.First(&rec, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeStrategy(&rec)
}

// DeleteStrategy removes a strategy document.
func (s *Storage) DeleteStrategy(name string) error {
	return s.db.Where("name = ?", name).Delete(&StrategyRecord{}).Error
}

// ListStrategyNames returns every stored strategy name.
func (s *Storage) ListStrategyNames() ([]string, error) {
	var names []string
	err := s.db.Model(&StrategyRecord{}).Pluck("name", &names).Error
	return names, err
}

// ActiveStrategies returns the documents eligible for evaluation
// (activation state "dummy" or "on").
func (s *Storage) ActiveStrategies() ([]*domain.Strategy, error) {
	var recs []StrategyRecord
	if err := s.db.Where("active IN ?", []string{domain.StrategyDummy, domain.StrategyOn}).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Strategy, 0, len(recs))
	for i := range recs {
		strat, err := decodeStrategy(&recs[i])
		if err != nil {
			// Skip the unparsable document, keep the rest running.
			continue
		}
		out = append(out, strat)
	}
	return out, nil
}

func decodeStrategy(rec *StrategyRecord) (*domain.Strategy, error) {
	var strat domain.Strategy
	if err := json.Unmarshal([]byte(rec.Doc), &strat); err != nil {
		return nil, fmt.Errorf("failed to decode strategy %q: %w", rec.Name, err)
	}
	// Documents saved without a runner cap load with the floor of 1.
	if strat.MaxRunners < 1 {
		strat.MaxRunners = 1
	}
	return &strat, nil
}

// ======================================================================================
// Enrichment Operations
// ======================================================================================

// UpsertHorseInfo stores enrichment records keyed by normalized name.
func (s *Storage) UpsertHorseInfo(records map[string]map[string]string) error {
	for name, fields := range records {
		doc, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		rec := HorseInfoRecord{Name: name, Fields: string(doc), UpdatedAt: time.Now()}
		if err := s.db.Save(&rec).Error; err != nil {
			return err
		}
	}
	return nil
}

// LookupRunners implements domain.EnrichmentSource over stored records.
// Names missing from the store are absent from the result.
func (s *Storage) LookupRunners(names []string) (map[string]map[string]string, error) {
	var recs []HorseInfoRecord
	if err := s.db.Where("name IN ?", names).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make(map[string]map[string]string, len(recs))
	for _, rec := range recs {
		var fields map[string]string
		if err := json.Unmarshal([]byte(rec.Fields), &fields); err != nil {
			continue
		}
		out[rec.Name] = fields
	}
	return out, nil
}

// ======================================================================================
// Market Metadata Operations
// ======================================================================================

// UpsertMarketMeta mirrors the latest catalogue snapshot.
func (s *Storage) UpsertMarketMeta(entries []domain.CatalogueEntry) error {
	for _, e := range entries {
		doc, err := json.Marshal(e)
		if err != nil {
			return err
		}
		rec := MarketMetaRecord{MarketID: e.MarketID, Doc: string(doc), UpdatedAt: time.Now()}
		if err := s.db.Save(&rec).Error; err != nil {
			return err
		}
	}
	return nil
}
