// Package sample implements C7: writing an MLSample on every signal
// emission and a periodic label backfiller that computes realized return
// and max adverse excursion once each sample's horizon elapses.
package sample

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/raykavin/signalengine/internal/core"
	"github.com/raykavin/signalengine/pkg/logger"
)

// defaultHorizonMinutes is H in spec §4.7.
const defaultHorizonMinutes = 60

// Logger writes an MLSample for every signal emission.
type Logger struct {
	store          core.SampleStore
	horizonMinutes int
	log            logger.Logger
}

// NewLogger creates a Logger writing to store with the given default
// horizon (defaultHorizonMinutes if zero). log may be nil.
func NewLogger(store core.SampleStore, horizonMinutes int, log logger.Logger) *Logger {
	if horizonMinutes <= 0 {
		horizonMinutes = defaultHorizonMinutes
	}
	return &Logger{store: store, horizonMinutes: horizonMinutes, log: log}
}

// OnSignal matches the engine's SignalObserver signature, so it can be
// registered directly via Engine.OnSignal without the engine package
// importing this one. Persistence failures are logged and swallowed: the
// analysis loop must never fail because sample logging failed (spec §7).
func (l *Logger) OnSignal(snap core.IndicatorSnapshot, sig core.SignalResult, rec core.Recommendation, now time.Time) {
	if _, err := l.Observe(snap, sig, rec, now); err != nil && l.log != nil {
		l.log.WithError(err).Warn("failed to save ml sample")
	}
}

// Observe does the work behind OnSignal: it marshals the snapshot/signal/plan
// into an MLSample row and persists it. Persistence failures are returned to
// the caller (OnSignal logs them), not propagated as a pipeline failure (spec §7: sample logging is
// best-effort and never blocks the analysis loop).
func (l *Logger) Observe(snap core.IndicatorSnapshot, sig core.SignalResult, rec core.Recommendation, now time.Time) (core.MLSample, error) {
	features, err := json.Marshal(snap)
	if err != nil {
		return core.MLSample{}, err
	}
	indicators, err := json.Marshal(sig.Metadata)
	if err != nil {
		return core.MLSample{}, err
	}

	var modelPrediction, modelConfidence *float64
	if sig.ModelScore != 0 {
		mp := sig.ModelScore
		modelPrediction = &mp
	}
	if sig.Confidence != 0 {
		mc := sig.Confidence
		modelConfidence = &mc
	}

	entryPrice := snap.Price
	var targetPrice, stopLoss, takeProfit, riskReward, positionSize float64
	if rec.Plan != nil {
		targetPrice = rec.Plan.TakeProfit2
		stopLoss = rec.Plan.StopLoss
		takeProfit = rec.Plan.TakeProfit1
		riskReward = rec.Plan.RiskRewardRatio
		positionSize = rec.Plan.PositionFraction
	}

	sample := core.MLSample{
		ID:                  uuid.NewString(),
		CreatedAt:           now,
		UpdatedAt:           now,
		Symbol:              snap.Symbol,
		Interval:            snap.Interval,
		EntryPrice:          entryPrice,
		FeaturesJSON:        string(features),
		IndicatorsJSON:      string(indicators),
		ModelPrediction:     modelPrediction,
		ModelConfidence:     modelConfidence,
		TechnicalStrength:   sig.TechnicalScore,
		CombinedStrength:    sig.CombinedScore,
		FinalSignal:         sig.Class,
		PositionSize:        positionSize,
		TargetPrice:         targetPrice,
		StopLoss:            stopLoss,
		TakeProfit:          takeProfit,
		RiskReward:          riskReward,
		ReasoningML:         "",
		ReasoningFinal:      sig.Metadata.Reasoning,
		LabelHorizonMinutes: l.horizonMinutes,
		LabelReady:          false,
	}

	if err := l.store.SaveMLSample(context.Background(), &sample); err != nil {
		return core.MLSample{}, err
	}
	return sample, nil
}
