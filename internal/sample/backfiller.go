package sample

import (
	"context"
	"time"

	"github.com/raykavin/signalengine/internal/core"
	"github.com/raykavin/signalengine/pkg/logger"
)

const (
	defaultPollInterval = 60 * time.Second
	defaultBatchLimit   = 100
	// candlesPerQuery bounds how many closed candles are fetched to cover a
	// sample's [entryTs, entryTs+horizon] window; at 1m granularity this
	// comfortably covers horizons up to several hours.
	candlesPerQuery = 500
)

// Backfiller periodically labels samples whose horizon has elapsed.
type Backfiller struct {
	store        core.SampleStore
	exchange     core.Exchange
	pollInterval time.Duration
	batchLimit   int
	log          logger.Logger
}

// NewBackfiller creates a Backfiller polling store every pollInterval
// (defaultPollInterval if zero).
func NewBackfiller(store core.SampleStore, exchange core.Exchange, pollInterval time.Duration, log logger.Logger) *Backfiller {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Backfiller{store: store, exchange: exchange, pollInterval: pollInterval, batchLimit: defaultBatchLimit, log: log}
}

// Run polls until ctx is cancelled, labelling eligible samples on each tick.
func (b *Backfiller) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		b.RunOnce(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce labels every currently-eligible sample. A failure on a single
// sample is logged and skipped; it never halts the scheduler.
func (b *Backfiller) RunOnce(ctx context.Context) {
	now := time.Now()
	samples, err := b.store.GetPendingLabelSamples(ctx, defaultHorizonMinutes, now, b.batchLimit)
	if err != nil {
		if b.log != nil {
			b.log.WithError(err).Warn("failed to select pending label samples")
		}
		return
	}

	for _, sample := range samples {
		if err := b.label(ctx, sample); err != nil && b.log != nil {
			b.log.WithError(err).WithField("sample_id", sample.ID).Warn("failed to label sample")
		}
	}
}

func (b *Backfiller) label(ctx context.Context, sample core.MLSample) error {
	if sample.FinalSignal == core.ClassHold || sample.EntryPrice == 0 {
		return b.store.UpdateMLSampleLabel(ctx, sample.ID, nil, nil, true)
	}

	windowEnd := sample.HorizonDeadline()
	candles, err := b.exchange.GetKlineData(ctx, sample.Symbol, sample.Interval, candlesPerQuery)
	if err != nil {
		return err
	}

	var minLow, maxHigh float64
	var endPrice float64
	haveRange := false
	for _, c := range candles {
		if c.Time.Before(sample.CreatedAt) || c.Time.After(windowEnd) {
			continue
		}
		if !haveRange {
			minLow, maxHigh = c.Low, c.High
			haveRange = true
		} else {
			if c.Low < minLow {
				minLow = c.Low
			}
			if c.High > maxHigh {
				maxHigh = c.High
			}
		}
		endPrice = c.Close
	}

	if !haveRange {
		tick, err := b.exchange.GetTicker(ctx, sample.Symbol)
		if err != nil {
			return err
		}
		endPrice = tick.Price
		minLow, maxHigh = tick.Price, tick.Price
	}

	short := sample.FinalSignal == core.ClassSell || sample.FinalSignal == core.ClassStrongSell

	returnPct := (endPrice - sample.EntryPrice) / sample.EntryPrice * 100
	if short {
		returnPct = -returnPct
	}

	var drawdownPct float64
	if short {
		drawdownPct = (maxHigh - sample.EntryPrice) / sample.EntryPrice * 100
	} else {
		drawdownPct = (minLow - sample.EntryPrice) / sample.EntryPrice * 100
	}

	return b.store.UpdateMLSampleLabel(ctx, sample.ID, &returnPct, &drawdownPct, true)
}
