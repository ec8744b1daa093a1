package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/signalengine/internal/core"
	"github.com/raykavin/signalengine/internal/position"
	"github.com/raykavin/signalengine/internal/regime"
	"github.com/raykavin/signalengine/internal/risk"
	"github.com/raykavin/signalengine/internal/signal"
)

type fakeExchange struct {
	candles []core.Candle
	tick    core.MarketTick
}

func (f *fakeExchange) GetTicker(ctx context.Context, symbol string) (core.MarketTick, error) {
	return f.tick, nil
}
func (f *fakeExchange) GetKlineData(ctx context.Context, symbol string, interval core.Interval, limit int) ([]core.Candle, error) {
	return f.candles, nil
}
func (f *fakeExchange) GetFundingRate(ctx context.Context, symbol string) (float64, error) { return 0.0001, nil }
func (f *fakeExchange) GetOpenInterest(ctx context.Context, symbol string) (float64, error) { return 1000, nil }
func (f *fakeExchange) CheckConnection(ctx context.Context) bool                            { return true }

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (f *fakeCache) Set(key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeCache) Get(key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

type fakeBus struct {
	events []core.Event
}

func (b *fakeBus) Publish(e core.Event)                               { b.events = append(b.events, e) }
func (b *fakeBus) Subscribe(fn func(core.Event)) (unsubscribe func()) { return func() {} }

func syntheticCandles(symbol string, n int) []core.Candle {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	candles := make([]core.Candle, n)
	for i := 0; i < n; i++ {
		price += 0.1
		candles[i] = core.Candle{
			Symbol: symbol, Interval: core.Interval5m,
			Time: base.Add(time.Duration(i) * 5 * time.Minute),
			Open: price, High: price * 1.001, Low: price * 0.999, Close: price,
			Volume: 10, Closed: true,
		}
	}
	return candles
}

func newTestEngine(t *testing.T, exchange *fakeExchange, cache *fakeCache, bus *fakeBus) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SecondaryIntervals = nil
	cfg.Primary = "5m"

	classifier := regime.New(regime.DefaultConfig())
	sigCfg, gates := signal.DefaultConfig(), signal.DefaultGateThresholds()
	synth := signal.New(sigCfg, gates)
	gate := risk.New(risk.DefaultConfig())
	pos := position.New(position.DefaultConfig(), bus)

	deps := Deps{Exchange: exchange, Cache: cache, Bus: bus}
	return New(cfg, "BTCUSDT", deps, classifier, synth, gate, pos)
}

func TestEngine_RunIteration_PopulatesLatestAnalysisCache(t *testing.T) {
	exchange := &fakeExchange{
		candles: syntheticCandles("BTCUSDT", 120),
		tick:    core.MarketTick{Symbol: "BTCUSDT", Price: 112},
	}
	cache := newFakeCache()
	bus := &fakeBus{}
	e := newTestEngine(t, exchange, cache, bus)

	err := e.runIteration(context.Background())
	require.NoError(t, err)

	_, ok, _ := cache.Get("latest_analysis")
	assert.True(t, ok)
	_, ok, _ = cache.Get("market_data")
	assert.True(t, ok)
}

func TestEngine_RunIteration_PublishesProgressMilestones(t *testing.T) {
	exchange := &fakeExchange{
		candles: syntheticCandles("BTCUSDT", 120),
		tick:    core.MarketTick{Symbol: "BTCUSDT", Price: 112},
	}
	cache := newFakeCache()
	bus := &fakeBus{}
	e := newTestEngine(t, exchange, cache, bus)

	require.NoError(t, e.runIteration(context.Background()))

	milestones := map[core.AnalysisMilestone]bool{}
	for _, ev := range bus.events {
		if ev.Type == core.EventAnalysisProgress {
			payload := ev.Payload.(core.AnalysisProgressPayload)
			milestones[payload.Milestone] = true
		}
	}
	assert.True(t, milestones[core.MilestoneFetchStarted])
	assert.True(t, milestones[core.MilestoneIterationComplete])
}

func TestEngine_RunIteration_FailsWithoutEnoughCandles(t *testing.T) {
	exchange := &fakeExchange{tick: core.MarketTick{Symbol: "BTCUSDT", Price: 100}}
	cache := newFakeCache()
	bus := &fakeBus{}
	e := newTestEngine(t, exchange, cache, bus)

	err := e.runIteration(context.Background())
	assert.ErrorIs(t, err, core.ErrInsufficientData)

	_, ok, _ := cache.Get("latest_analysis")
	assert.False(t, ok)
}

func TestEngine_OnSignal_InvokedAfterSynthesis(t *testing.T) {
	exchange := &fakeExchange{
		candles: syntheticCandles("BTCUSDT", 120),
		tick:    core.MarketTick{Symbol: "BTCUSDT", Price: 112},
	}
	cache := newFakeCache()
	bus := &fakeBus{}
	e := newTestEngine(t, exchange, cache, bus)

	var called bool
	e.OnSignal(func(snap core.IndicatorSnapshot, sig core.SignalResult, rec core.Recommendation, now time.Time) {
		called = true
	})

	require.NoError(t, e.runIteration(context.Background()))
	assert.True(t, called)
}

func TestEngine_Stop_EndsRunLoop(t *testing.T) {
	exchange := &fakeExchange{
		candles: syntheticCandles("BTCUSDT", 120),
		tick:    core.MarketTick{Symbol: "BTCUSDT", Price: 112},
	}
	cache := newFakeCache()
	bus := &fakeBus{}
	e := newTestEngine(t, exchange, cache, bus)
	e.cfg.Period = 10 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	time.Sleep(30 * time.Millisecond)
	e.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
