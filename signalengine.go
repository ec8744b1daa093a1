// Package signalengine assembles the indicator engine, market-state
// classifier, signal synthesizer, gate & risk layer and position state
// machine (C1-C5) behind a single analysis loop (C6) with sample logging
// and label backfilling (C7), wiring concrete adapters (C9) from a typed
// configuration (C8). Mirrors the teacher's root-package facade
// (Backnrun/New/Option) generalized to this engine's single-symbol scope.
package signalengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/raykavin/signalengine/internal/config"
	"github.com/raykavin/signalengine/internal/core"
	"github.com/raykavin/signalengine/internal/engine"
	exchangebinance "github.com/raykavin/signalengine/internal/exchange/binance"
	"github.com/raykavin/signalengine/internal/mlmodel"
	"github.com/raykavin/signalengine/internal/notification"
	"github.com/raykavin/signalengine/internal/position"
	"github.com/raykavin/signalengine/internal/regime"
	"github.com/raykavin/signalengine/internal/risk"
	"github.com/raykavin/signalengine/internal/sample"
	"github.com/raykavin/signalengine/internal/sentiment"
	"github.com/raykavin/signalengine/internal/signal"
	"github.com/raykavin/signalengine/internal/storage"
	"github.com/raykavin/signalengine/pkg/logger"
)

// DefaultLog is the package-wide logger, overridable per-Engine via
// WithLogger and set by init() to a colored console zerolog adapter,
// mirroring the teacher's DefaultLog global.
var DefaultLog logger.Logger

// Engine is the assembled, runnable signal engine for a single symbol.
type Engine struct {
	cfg    *config.Config
	log    logger.Logger
	symbol string

	exchange  core.Exchange
	model     core.ModelAdapter
	sentiment core.SentimentAdapter
	cache     *storage.CacheStore
	store     core.SampleStore

	bus        *engine.Bus
	loop       *engine.Engine
	backfiller *sample.Backfiller
	sampleLog  *sample.Logger
	notifiers  []core.Notifier

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New builds an Engine from cfg, applying opts to override individual
// collaborators (exchange, model, sentiment, logger, notifiers). Only the
// first configured symbol is run (multi-symbol portfolio management is a
// non-goal, see spec §1).
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.General.Symbols) == 0 {
		return nil, fmt.Errorf("%w: at least one symbol is required", core.ErrConfigInvalid)
	}

	e := &Engine{
		cfg:    cfg,
		log:    DefaultLog,
		symbol: cfg.General.Symbols[0],
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.exchange == nil {
		if cfg.Exchange.Simulated {
			return nil, fmt.Errorf("%w: simulated exchange requires WithExchange", core.ErrConfigInvalid)
		}
		e.exchange = exchangebinance.New(cfg.Exchange.APIKey, cfg.Exchange.APISecret, cfg.Exchange.UseTestnet)
	}

	if e.model == nil && cfg.ModelAdapter.Enabled {
		e.model = mlmodel.New(cfg.ModelAdapter.BaseURL, time.Duration(cfg.ModelAdapter.TimeoutMillis)*time.Millisecond)
	}
	if e.sentiment == nil && cfg.Sentiment.Enabled {
		e.sentiment = sentiment.New(cfg.Sentiment.BaseURL, time.Duration(cfg.Sentiment.TimeoutMillis)*time.Millisecond)
	}

	cache, err := storage.NewCacheStore(cfg.Storage.CachePath)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	e.cache = cache

	store, err := storage.FromSQLite(cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening sample store: %w", err)
	}
	e.store = store

	if cfg.Notification.TelegramEnabled {
		telegram, err := notification.NewTelegram(cfg.Notification.TelegramToken, cfg.Notification.TelegramUsers, e)
		if err != nil {
			return nil, fmt.Errorf("starting telegram notifier: %w", err)
		}
		e.notifiers = append(e.notifiers, telegram)
	}
	if len(e.notifiers) == 0 {
		e.notifiers = append(e.notifiers, notification.NewLogNotifier(e.log))
	}

	e.bus = engine.NewBus()
	e.bus.Subscribe(e.dispatchEvent)

	classifier := regime.New(cfg.RegimeConfig())
	sigCfg, gateThresholds := cfg.SignalConfig()
	synth := signal.New(sigCfg, gateThresholds)
	gate := risk.New(cfg.RiskGateConfig())
	posMachine := position.New(cfg.PositionConfig(), e.bus)

	e.loop = engine.New(cfg.EngineConfig(), e.symbol, engine.Deps{
		Exchange:  e.exchange,
		Model:     e.model,
		Sentiment: e.sentiment,
		Cache:     e.cache,
		Notifier:  e,
		Bus:       e.bus,
		Log:       e.log,
	}, classifier, synth, gate, posMachine)

	e.sampleLog = sample.NewLogger(e.store, cfg.General.LabelHorizonMinutes, e.log)
	e.loop.OnSignal(e.sampleLog.OnSignal)

	e.backfiller = sample.NewBackfiller(e.store, e.exchange, time.Duration(cfg.General.LabelPollIntervalSeconds)*time.Second, e.log)

	return e, nil
}

// CurrentPosition implements notification.StatusProvider.
func (e *Engine) CurrentPosition() core.Position {
	return e.loop.Position()
}

// DailyLoss implements notification.StatusProvider.
func (e *Engine) DailyLoss() (loss, limit float64) {
	return e.loop.DailyLoss(time.Now())
}

// Trades implements notification.StatusProvider.
func (e *Engine) Trades() []core.TradeRecord {
	return e.loop.Trades()
}

// Notify implements core.Notifier by fanning out to every configured
// notifier (Telegram, log fallback, ...).
func (e *Engine) Notify(message string) {
	for _, n := range e.notifiers {
		n.Notify(message)
	}
}

// OnEvent implements core.Notifier.
func (e *Engine) OnEvent(event core.Event) {
	for _, n := range e.notifiers {
		n.OnEvent(event)
	}
}

// OnError implements core.Notifier.
func (e *Engine) OnError(err error) {
	for _, n := range e.notifiers {
		n.OnError(err)
	}
}

func (e *Engine) dispatchEvent(event core.Event) {
	if event.Type == core.EventAnalysisProgress {
		return
	}
	e.OnEvent(event)
}

// Start runs the analysis loop and the label backfiller until ctx is
// cancelled or Stop is called. Blocks until both stop.
func (e *Engine) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	if err := e.store.Initialize(runCtx); err != nil {
		cancel()
		return fmt.Errorf("initializing sample store: %w", err)
	}

	var wg sync.WaitGroup
	var loopErr, backfillErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		loopErr = e.loop.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		backfillErr = e.backfiller.Run(runCtx)
	}()

	wg.Wait()

	if loopErr != nil && loopErr != context.Canceled {
		return loopErr
	}
	if backfillErr != nil && backfillErr != context.Canceled {
		return backfillErr
	}
	return nil
}

// RunBackfillOnce labels every currently-eligible sample and returns,
// intended for cron-style invocation alongside a continuously running
// Start in another process.
func (e *Engine) RunBackfillOnce(ctx context.Context) error {
	if err := e.store.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing sample store: %w", err)
	}
	e.backfiller.RunOnce(ctx)
	return nil
}

// Stop requests the analysis loop end after its current iteration (bounded)
// and cancels the label backfiller's context.
func (e *Engine) Stop() {
	e.loop.Stop()

	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Close closes the cache store. The SQL sample store is not closed.
func (e *Engine) Close() error {
	if err := e.cache.Close(); err != nil {
		return err
	}
	return nil
}
