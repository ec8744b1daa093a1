package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/StudioSol/set"
	"github.com/jpillora/backoff"

	"github.com/raykavin/signalengine/internal/core"
	"github.com/raykavin/signalengine/internal/indicator"
	"github.com/raykavin/signalengine/internal/position"
	"github.com/raykavin/signalengine/internal/regime"
	"github.com/raykavin/signalengine/internal/risk"
	"github.com/raykavin/signalengine/internal/signal"
	"github.com/raykavin/signalengine/pkg/logger"
)

// LatestAnalysis is the cached output of one iteration, published under the
// "latest_analysis" key.
type LatestAnalysis struct {
	Symbol         string                  `json:"symbol"`
	Time           time.Time               `json:"time"`
	Snapshot       core.IndicatorSnapshot  `json:"snapshot"`
	State          core.MarketStateResult  `json:"state"`
	Signal         core.SignalResult       `json:"signal"`
	Recommendation core.Recommendation     `json:"recommendation"`
	Position       core.Position           `json:"position"`
}

// SignalObserver is notified after every synthesized signal, so the sample
// logger (C7) hooks in without engine depending on the sample package.
type SignalObserver func(snap core.IndicatorSnapshot, sig core.SignalResult, rec core.Recommendation, now time.Time)

// Deps bundles the engine's external collaborators; Model and Sentiment are
// optional (nil is a valid, always-neutral configuration).
type Deps struct {
	Exchange  core.Exchange
	Model     core.ModelAdapter
	Sentiment core.SentimentAdapter
	Cache     core.Cache
	Notifier  core.Notifier
	Bus       core.EventBus
	Log       logger.Logger
}

// Engine is the C6 single-owner analysis loop.
type Engine struct {
	cfg    Config
	symbol string
	deps   Deps

	indicators map[core.Interval]*indicator.Engine
	classifier *regime.Classifier
	synth      *signal.Synthesizer
	gate       *risk.Gate
	position   *position.Machine

	secondary *set.LinkedHashSetString

	onSignal SignalObserver

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New assembles the C6 loop from its config and collaborators.
func New(cfg Config, symbol string, deps Deps, classifier *regime.Classifier, synth *signal.Synthesizer, gate *risk.Gate, pos *position.Machine) *Engine {
	secondary := set.NewLinkedHashSetString()
	for _, iv := range cfg.SecondaryIntervals {
		secondary.Add(iv)
	}

	indicators := make(map[core.Interval]*indicator.Engine)
	indicators[core.Interval(cfg.Primary)] = indicator.NewEngine(symbol, core.Interval(cfg.Primary))
	for _, iv := range cfg.SecondaryIntervals {
		indicators[core.Interval(iv)] = indicator.NewEngine(symbol, core.Interval(iv))
	}

	return &Engine{
		cfg:        cfg,
		symbol:     symbol,
		deps:       deps,
		indicators: indicators,
		classifier: classifier,
		synth:      synth,
		gate:       gate,
		position:   pos,
		secondary:  secondary,
		stopCh:     make(chan struct{}),
	}
}

// OnSignal registers the callback invoked after every synthesized signal.
func (e *Engine) OnSignal(fn SignalObserver) { e.onSignal = fn }

// Stop requests the loop end after the current iteration (bounded, spec §4.6).
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

// Run drives the periodic pipeline until ctx is cancelled or Stop is called.
// Iteration errors are caught, logged, and followed by an exponential
// back-off (capped), matching the teacher's retry idiom.
func (e *Engine) Run(ctx context.Context) error {
	period := e.cfg.normalizedPeriod()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	retry := &backoff.Backoff{Min: e.cfg.BackoffMin, Max: e.cfg.BackoffMax, Factor: 2}

	for {
		if err := e.runIteration(ctx); err != nil {
			if e.deps.Log != nil {
				e.deps.Log.WithError(err).Warn("analysis iteration failed")
			}
			wait := retry.Duration()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-e.stopCh:
				return nil
			case <-time.After(wait):
			}
			continue
		}
		retry.Reset()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stopCh:
			return nil
		case <-ticker.C:
		}
	}
}

func (e *Engine) runIteration(ctx context.Context) error {
	now := time.Now()
	e.progress(core.MilestoneFetchStarted, "")

	tick, err := e.fetchMarketTick(ctx)
	if err != nil {
		return fmt.Errorf("fetch ticker: %w", err)
	}
	e.cachePut("market_data", tick, e.cfg.MarketDataTTL)

	primary := core.Interval(e.cfg.Primary)
	if err := e.loadCandles(ctx, primary); err != nil {
		return fmt.Errorf("load primary candles: %w", err)
	}
	for iv := range e.secondary.Iter() {
		if err := e.loadCandles(ctx, core.Interval(iv)); err != nil {
			return fmt.Errorf("load secondary candles %s: %w", iv, err)
		}
	}
	e.progress(core.MilestoneCandlesLoaded, "")

	snap, err := e.indicators[primary].Snapshot()
	if err != nil {
		return fmt.Errorf("primary snapshot: %w", err)
	}
	snap.Price = tick.Price
	e.progress(core.MilestoneIndicatorsReady, "")

	secondarySnaps := make(map[core.Interval]core.IndicatorSnapshot)
	for iv := range e.secondary.Iter() {
		s, err := e.indicators[core.Interval(iv)].Snapshot()
		if err == nil {
			secondarySnaps[core.Interval(iv)] = s
		}
	}

	state := e.classifier.Classify(snap, secondarySnaps)
	e.progress(core.MilestoneRegimeClassified, string(state.Regime))

	var forecast *core.ModelForecast
	if e.deps.Model != nil {
		f, err := e.deps.Model.Forecast(ctx, core.ModelRequest{
			Symbol:   e.symbol,
			Interval: primary,
			OHLCV:    e.ohlcv(primary),
		})
		if err == nil {
			forecast = &f
		}
	}
	e.progress(core.MilestoneModelForecast, "")

	sig := e.synth.Synthesize(snap, state, forecast)
	e.progress(core.MilestoneSignalSynthesized, string(sig.Class))

	mc := e.marketContext(tick, state, primaryDirection(snap))
	rec := e.gate.Evaluate(sig, snap, state, mc, e.position.IsFlat())
	e.progress(core.MilestoneGatesEvaluated, string(rec.Action))

	e.applyRecommendation(rec, sig, snap.Price, now)

	if e.onSignal != nil {
		e.onSignal(snap, sig, rec, now)
	}

	latest := LatestAnalysis{
		Symbol: e.symbol, Time: now, Snapshot: snap, State: state,
		Signal: sig, Recommendation: rec, Position: e.position.Snapshot(),
	}
	e.cachePut("latest_analysis", latest, e.cfg.LatestAnalysisTTL)
	e.progress(core.MilestoneIterationComplete, "")

	return nil
}

// applyRecommendation drives the position machine from the gate's output.
// The gate only ever recommends OPEN when flat (spec §4.4); once a position
// is open every other action funnels through OnPriceUpdate so the position
// machine's own exits (stop/TP/trailing/time/reversal, spec §4.5) run on
// every tick regardless of what the gate returned.
func (e *Engine) applyRecommendation(rec core.Recommendation, sig core.SignalResult, price float64, now time.Time) {
	switch rec.Action {
	case core.ActionOpenLong, core.ActionOpenShort:
		if e.position.IsFlat() && e.position.CanOpen(now) && rec.Plan != nil {
			if _, err := e.position.Open(*rec.Plan, e.symbol, now); err != nil && e.deps.Log != nil {
				e.deps.Log.WithError(err).Warn("open rejected")
			}
		}
	default:
		if !e.position.IsFlat() {
			if _, err := e.position.OnPriceUpdate(price, now, reversalFromSignal(sig)); err != nil && e.deps.Log != nil {
				e.deps.Log.WithError(err).Warn("price update rejected")
			}
		}
	}
}

// reversalFromSignal projects a synthesized signal into the minimal
// reversal shape the position machine checks against its held side.
// Opposite() only fires for a STRONG opposite-side class, so a HOLD or
// same-side signal is always a safe no-op here.
func reversalFromSignal(sig core.SignalResult) *position.ReversalSignal {
	strong := sig.Class == core.ClassStrongBuy || sig.Class == core.ClassStrongSell
	return &position.ReversalSignal{Side: directionSide(sig), Strong: strong, Confidence: sig.Confidence}
}

func directionSide(sig core.SignalResult) core.Side {
	if sig.Class == core.ClassStrongBuy || sig.Class == core.ClassBuy {
		return core.SideLong
	}
	return core.SideShort
}

func (e *Engine) fetchMarketTick(ctx context.Context) (core.MarketTick, error) {
	tick, err := e.deps.Exchange.GetTicker(ctx, e.symbol)
	if err != nil {
		return core.MarketTick{}, err
	}

	if funding, err := e.deps.Exchange.GetFundingRate(ctx, e.symbol); err == nil {
		tick.FundingRate = &funding
	}
	if oi, err := e.deps.Exchange.GetOpenInterest(ctx, e.symbol); err == nil {
		tick.OpenInterest = &oi
	}
	if e.deps.Sentiment != nil {
		if fgi, err := e.deps.Sentiment.GetFGI(ctx); err == nil {
			tick.FGI = &fgi
		}
	}
	tick.ObservedAt = time.Now()
	return tick, nil
}

func (e *Engine) loadCandles(ctx context.Context, interval core.Interval) error {
	candles, err := e.deps.Exchange.GetKlineData(ctx, e.symbol, interval, e.cfg.KlineLimit)
	if err != nil {
		return err
	}
	e.cachePut(fmt.Sprintf("kline_data_%s_%d", interval, e.cfg.KlineLimit), candles, e.cfg.KlineDataTTL)

	eng, ok := e.indicators[interval]
	if !ok {
		return nil
	}
	for _, c := range candles {
		if err := eng.Push(c); err != nil && !errors.Is(err, core.ErrOutOfOrder) {
			return err
		}
	}
	return nil
}

func (e *Engine) ohlcv(interval core.Interval) [][6]float64 {
	eng, ok := e.indicators[interval]
	if !ok {
		return nil
	}
	return eng.OHLCV()
}

func (e *Engine) marketContext(tick core.MarketTick, state core.MarketStateResult, primaryDir core.Direction) risk.MarketContext {
	agree15 := true
	if d, ok := state.MTFDirections[core.Interval15m]; ok {
		agree15 = d == primaryDir
	}
	agree1h := true
	if d, ok := state.MTFDirections[core.Interval1h]; ok {
		agree1h = d == primaryDir
	}

	return risk.MarketContext{
		FGI:            tick.FGI,
		FundingRate:    tick.FundingRate,
		High24h:        tick.High24h,
		Low24h:         tick.Low24h,
		Price:          tick.Price,
		Agreement5m15m: agree15,
		Agreement1h5m:  agree1h,
	}
}

func primaryDirection(snap core.IndicatorSnapshot) core.Direction {
	switch {
	case snap.EMAFast > snap.EMASlow:
		return core.DirectionUp
	case snap.EMAFast < snap.EMASlow:
		return core.DirectionDown
	default:
		return core.DirectionSideways
	}
}

func (e *Engine) progress(milestone core.AnalysisMilestone, detail string) {
	payload := core.AnalysisProgressPayload{Milestone: milestone, Detail: detail}
	e.cachePut("analysis_progress", payload, e.cfg.AnalysisProgressTTL)
	if e.deps.Bus != nil {
		e.deps.Bus.Publish(core.Event{Type: core.EventAnalysisProgress, Symbol: e.symbol, Timestamp: time.Now(), Payload: payload})
	}
}

// Position returns a snapshot of the position state machine's current
// holding, for notifiers/status reporting.
func (e *Engine) Position() core.Position { return e.position.Snapshot() }

// DailyLoss reports today's realized loss and the configured daily limit.
func (e *Engine) DailyLoss(now time.Time) (loss, limit float64) {
	return e.position.DailyLoss(now)
}

// Trades returns the append-only trade log for the position state machine.
func (e *Engine) Trades() []core.TradeRecord { return e.position.Trades() }

func (e *Engine) cachePut(key string, value any, ttl time.Duration) {
	if e.deps.Cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = e.deps.Cache.Set(key, data, ttl)
}
