// Package storage implements the two out-bound persistence ports: the
// GORM-backed MLSample store (SQLSampleStore, opened through a caller-given
// dialect like the teacher's storage.FromSQL; its pending-label query is
// SQLite-specific) and the BuntDB-backed short-TTL cache
// (CacheStore, grounded on the teacher's storage.BuntStorage).
package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/raykavin/signalengine/internal/core"
)

// sampleRow is the GORM-mapped row for an MLSample.
type sampleRow struct {
	ID        string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	Symbol   string `gorm:"index:idx_symbol_ready"`
	Interval string

	EntryPrice float64

	FeaturesJSON   string
	IndicatorsJSON string

	ModelPrediction           *float64
	ModelConfidence           *float64
	ModelCalibratedConfidence *float64

	TechnicalStrength float64
	CombinedStrength  float64
	FinalSignal       string

	PositionSize float64
	TargetPrice  float64
	StopLoss     float64
	TakeProfit   float64
	RiskReward   float64

	ReasoningML    string
	ReasoningFinal string

	LabelHorizonMinutes int
	LabelReturn         *float64
	LabelDrawdown       *float64
	LabelReady          bool `gorm:"index:idx_symbol_ready"`
}

func (sampleRow) TableName() string { return "ml_samples" }

func toRow(s *core.MLSample) sampleRow {
	return sampleRow{
		ID:                        s.ID,
		CreatedAt:                 s.CreatedAt,
		UpdatedAt:                 s.UpdatedAt,
		Symbol:                    s.Symbol,
		Interval:                  string(s.Interval),
		EntryPrice:                s.EntryPrice,
		FeaturesJSON:              s.FeaturesJSON,
		IndicatorsJSON:            s.IndicatorsJSON,
		ModelPrediction:           s.ModelPrediction,
		ModelConfidence:           s.ModelConfidence,
		ModelCalibratedConfidence: s.ModelCalibratedConfidence,
		TechnicalStrength:         s.TechnicalStrength,
		CombinedStrength:          s.CombinedStrength,
		FinalSignal:               string(s.FinalSignal),
		PositionSize:              s.PositionSize,
		TargetPrice:               s.TargetPrice,
		StopLoss:                  s.StopLoss,
		TakeProfit:                s.TakeProfit,
		RiskReward:                s.RiskReward,
		ReasoningML:               s.ReasoningML,
		ReasoningFinal:            s.ReasoningFinal,
		LabelHorizonMinutes:       s.LabelHorizonMinutes,
		LabelReturn:               s.LabelReturn,
		LabelDrawdown:             s.LabelDrawdown,
		LabelReady:                s.LabelReady,
	}
}

func fromRow(r sampleRow) core.MLSample {
	return core.MLSample{
		ID:                        r.ID,
		CreatedAt:                 r.CreatedAt,
		UpdatedAt:                 r.UpdatedAt,
		Symbol:                    r.Symbol,
		Interval:                  core.Interval(r.Interval),
		EntryPrice:                r.EntryPrice,
		FeaturesJSON:              r.FeaturesJSON,
		IndicatorsJSON:            r.IndicatorsJSON,
		ModelPrediction:           r.ModelPrediction,
		ModelConfidence:           r.ModelConfidence,
		ModelCalibratedConfidence: r.ModelCalibratedConfidence,
		TechnicalStrength:         r.TechnicalStrength,
		CombinedStrength:          r.CombinedStrength,
		FinalSignal:               core.SignalClass(r.FinalSignal),
		PositionSize:              r.PositionSize,
		TargetPrice:               r.TargetPrice,
		StopLoss:                  r.StopLoss,
		TakeProfit:                r.TakeProfit,
		RiskReward:                r.RiskReward,
		ReasoningML:               r.ReasoningML,
		ReasoningFinal:            r.ReasoningFinal,
		LabelHorizonMinutes:       r.LabelHorizonMinutes,
		LabelReturn:               r.LabelReturn,
		LabelDrawdown:             r.LabelDrawdown,
		LabelReady:                r.LabelReady,
	}
}

// SQLSampleStore implements core.SampleStore over GORM. Its pending-label
// query uses SQLite's datetime() function, so it runs only on SQLite.
type SQLSampleStore struct {
	db *gorm.DB
}

// FromSQL opens a SQL-backed sample store for the given dialect, mirroring
// the teacher's storage.FromSQL connection-pool setup.
func FromSQL(dialect gorm.Dialector, opts ...gorm.Option) (*SQLSampleStore, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &SQLSampleStore{db: db}, nil
}

// FromSQLite opens a SQLite-backed sample store at dbPath, mirroring the
// teacher's storage.FromSQLite convenience constructor.
func FromSQLite(dbPath string, opts ...gorm.Option) (*SQLSampleStore, error) {
	return FromSQL(sqlite.Open(dbPath), opts...)
}

// Initialize runs the auto-migration for the sample row schema.
func (s *SQLSampleStore) Initialize(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&sampleRow{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SaveMLSample inserts a new sample row.
func (s *SQLSampleStore) SaveMLSample(ctx context.Context, sample *core.MLSample) error {
	row := toRow(sample)
	if result := s.db.WithContext(ctx).Create(&row); result.Error != nil {
		return fmt.Errorf("failed to create sample: %w", result.Error)
	}
	return nil
}

// GetPendingLabelSamples selects samples whose horizon has elapsed and
// which have not yet been labelled.
func (s *SQLSampleStore) GetPendingLabelSamples(ctx context.Context, defaultHorizonMin int, now time.Time, limit int) ([]core.MLSample, error) {
	var rows []sampleRow
	result := s.db.WithContext(ctx).
		Where("label_ready = ?", false).
		Where("datetime(created_at, '+' || label_horizon_minutes || ' minutes') <= ?", now).
		Limit(limit).
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query pending label samples: %w", result.Error)
	}

	samples := make([]core.MLSample, 0, len(rows))
	for _, r := range rows {
		samples = append(samples, fromRow(r))
	}
	return samples, nil
}

// UpdateMLSampleLabel mutates only the label fields of an existing row,
// disjoint from the engine's own writes (spec §5).
func (s *SQLSampleStore) UpdateMLSampleLabel(ctx context.Context, id string, labelReturn, labelDrawdown *float64, ready bool) error {
	result := s.db.WithContext(ctx).Model(&sampleRow{}).Where("id = ?", id).Updates(map[string]any{
		"label_return":   labelReturn,
		"label_drawdown": labelDrawdown,
		"label_ready":    ready,
		"updated_at":     time.Now(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update sample label: %w", result.Error)
	}
	return nil
}

var _ core.SampleStore = (*SQLSampleStore)(nil)
