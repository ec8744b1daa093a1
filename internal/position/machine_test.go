package position

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/signalengine/internal/core"
)

func longPlan() core.RiskPlan {
	return core.RiskPlan{
		Side:             core.SideLong,
		PositionFraction: 0.1,
		Leverage:         5,
		EntryPrice:       100,
		StopLoss:         95,
		TakeProfit1:      103,
		TakeProfit2:      105,
		TakeProfit3:      109,
	}
}

func TestMachine_Open_TransitionsFromFlat(t *testing.T) {
	m := New(DefaultConfig(), nil)
	require.True(t, m.IsFlat())

	pos, err := m.Open(longPlan(), "BTCUSDT", time.Now())
	require.NoError(t, err)
	assert.Equal(t, core.StateOpen, pos.State)
	assert.Equal(t, core.SideLong, pos.Side)
	assert.Len(t, m.Trades(), 1)
	assert.Equal(t, "OPEN", m.Trades()[0].Action)
}

func TestMachine_Open_RejectsWhenAlreadyOpen(t *testing.T) {
	m := New(DefaultConfig(), nil)
	now := time.Now()
	_, err := m.Open(longPlan(), "BTCUSDT", now)
	require.NoError(t, err)

	_, err = m.Open(longPlan(), "BTCUSDT", now)
	assert.ErrorIs(t, err, core.ErrAlreadyOpen)
}

func TestMachine_OnPriceUpdate_RejectsWhenFlat(t *testing.T) {
	m := New(DefaultConfig(), nil)
	_, err := m.OnPriceUpdate(100, time.Now(), nil)
	assert.ErrorIs(t, err, core.ErrNotOpen)
}

func TestMachine_StopLossHit_ClosesPosition(t *testing.T) {
	m := New(DefaultConfig(), nil)
	now := time.Now()
	_, err := m.Open(longPlan(), "BTCUSDT", now)
	require.NoError(t, err)

	pos, err := m.OnPriceUpdate(94, now.Add(time.Minute), nil)
	require.NoError(t, err)
	assert.Equal(t, core.StateFlat, pos.State)

	trades := m.Trades()
	last := trades[len(trades)-1]
	assert.Equal(t, "CLOSE", last.Action)
	assert.Equal(t, string(core.CloseReasonStop), last.Reason)
}

func TestMachine_TP1Hit_ReducesAndMovesStopToBreakeven(t *testing.T) {
	m := New(DefaultConfig(), nil)
	now := time.Now()
	plan := longPlan()
	_, err := m.Open(plan, "BTCUSDT", now)
	require.NoError(t, err)

	pos, err := m.OnPriceUpdate(103, now.Add(time.Minute), nil)
	require.NoError(t, err)
	assert.Equal(t, core.StateOpenTP1Hit, pos.State)
	assert.True(t, pos.TP1Hit)
	assert.InDelta(t, plan.EntryPrice, pos.StopLoss, 1e-9)
	assert.InDelta(t, plan.PositionFraction*0.5, pos.Size, 1e-9)
}

func TestMachine_TP2Hit_ReducesAndMovesStopToTP1(t *testing.T) {
	m := New(DefaultConfig(), nil)
	now := time.Now()
	plan := longPlan()
	_, err := m.Open(plan, "BTCUSDT", now)
	require.NoError(t, err)

	_, err = m.OnPriceUpdate(103, now.Add(time.Minute), nil)
	require.NoError(t, err)

	pos, err := m.OnPriceUpdate(105, now.Add(2*time.Minute), nil)
	require.NoError(t, err)
	assert.Equal(t, core.StateOpenTP3Target, pos.State)
	assert.True(t, pos.TP2Hit)
	assert.InDelta(t, plan.TakeProfit1, pos.StopLoss, 1e-9)
	assert.InDelta(t, plan.PositionFraction*0.25, pos.Size, 1e-9)
}

func TestMachine_TP3Hit_ClosesRemainder(t *testing.T) {
	m := New(DefaultConfig(), nil)
	now := time.Now()
	plan := longPlan()
	_, err := m.Open(plan, "BTCUSDT", now)
	require.NoError(t, err)

	_, err = m.OnPriceUpdate(103, now.Add(time.Minute), nil)
	require.NoError(t, err)
	_, err = m.OnPriceUpdate(105, now.Add(2*time.Minute), nil)
	require.NoError(t, err)

	pos, err := m.OnPriceUpdate(109, now.Add(3*time.Minute), nil)
	require.NoError(t, err)
	assert.Equal(t, core.StateFlat, pos.State)

	trades := m.Trades()
	last := trades[len(trades)-1]
	assert.Equal(t, string(core.CloseReasonTP3), last.Reason)
}

func TestMachine_SignalReversal_ClosesAtHighConfidence(t *testing.T) {
	cfg := DefaultConfig()
	m := New(cfg, nil)
	now := time.Now()
	_, err := m.Open(longPlan(), "BTCUSDT", now)
	require.NoError(t, err)

	rev := &ReversalSignal{Side: core.SideShort, Strong: true, Confidence: 0.9}
	pos, err := m.OnPriceUpdate(101, now.Add(time.Minute), rev)
	require.NoError(t, err)
	assert.Equal(t, core.StateFlat, pos.State)
}

func TestMachine_SignalReversal_ReducesAtMediumConfidence(t *testing.T) {
	cfg := DefaultConfig()
	m := New(cfg, nil)
	now := time.Now()
	plan := longPlan()
	_, err := m.Open(plan, "BTCUSDT", now)
	require.NoError(t, err)

	rev := &ReversalSignal{Side: core.SideShort, Strong: true, Confidence: 0.65}
	pos, err := m.OnPriceUpdate(101, now.Add(time.Minute), rev)
	require.NoError(t, err)
	assert.Equal(t, core.StateOpen, pos.State)
	assert.InDelta(t, plan.PositionFraction*0.5, pos.Size, 1e-9)
}

func TestMachine_SignalReversal_IgnoredWhenSameSide(t *testing.T) {
	m := New(DefaultConfig(), nil)
	now := time.Now()
	plan := longPlan()
	_, err := m.Open(plan, "BTCUSDT", now)
	require.NoError(t, err)

	rev := &ReversalSignal{Side: core.SideLong, Strong: true, Confidence: 0.99}
	pos, err := m.OnPriceUpdate(101, now.Add(time.Minute), rev)
	require.NoError(t, err)
	assert.Equal(t, core.StateOpen, pos.State)
	assert.InDelta(t, plan.PositionFraction, pos.Size, 1e-9)
}

func TestMachine_MaxHoldingExit(t *testing.T) {
	cfg := DefaultConfig()
	m := New(cfg, nil)
	now := time.Now()
	_, err := m.Open(longPlan(), "BTCUSDT", now)
	require.NoError(t, err)

	pos, err := m.OnPriceUpdate(100, now.Add(time.Duration(cfg.MaxHoldingHours)*time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, core.StateFlat, pos.State)

	trades := m.Trades()
	last := trades[len(trades)-1]
	assert.Equal(t, string(core.CloseReasonMaxHold), last.Reason)
}

func TestMachine_TrailingStop_DisabledByDefault(t *testing.T) {
	cfg := DefaultConfig()
	require.False(t, cfg.EnableTrailingStop)

	m := New(cfg, nil)
	now := time.Now()
	_, err := m.Open(longPlan(), "BTCUSDT", now)
	require.NoError(t, err)
	m.ActivateTrailingStop()

	pos, err := m.OnPriceUpdate(101, now.Add(time.Minute), nil)
	require.NoError(t, err)
	assert.InDelta(t, 95, pos.StopLoss, 1e-9)
}

func TestMachine_TrailingStop_RatchetsWhenEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableTrailingStop = true
	cfg.TrailingStopDistance = 0.01

	m := New(cfg, nil)
	now := time.Now()
	_, err := m.Open(longPlan(), "BTCUSDT", now)
	require.NoError(t, err)
	m.ActivateTrailingStop()

	pos, err := m.OnPriceUpdate(101, now.Add(time.Minute), nil)
	require.NoError(t, err)
	expected := 101 * (1 - cfg.TrailingStopDistance)
	assert.InDelta(t, expected, pos.StopLoss, 1e-9)

	pos, err = m.OnPriceUpdate(100, now.Add(2*time.Minute), nil)
	require.NoError(t, err)
	assert.InDelta(t, expected, pos.StopLoss, 1e-9)
}

func TestMachine_DailyLoss_AccumulatesOnLossAndRollsOver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DailyLossLimit = 0.01
	m := New(cfg, nil)

	day1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	_, err := m.Open(longPlan(), "BTCUSDT", day1)
	require.NoError(t, err)
	_, err = m.OnPriceUpdate(94, day1.Add(time.Minute), nil)
	require.NoError(t, err)

	loss, limit := m.DailyLoss(day1)
	assert.Greater(t, loss, 0.0)
	assert.Equal(t, cfg.DailyLossLimit, limit)

	day2 := day1.Add(24 * time.Hour)
	loss2, _ := m.DailyLoss(day2)
	assert.Equal(t, 0.0, loss2)
}

func TestMachine_CanOpen_BlockedByDailyLossLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DailyLossLimit = 0.0001
	m := New(cfg, nil)

	day1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	_, err := m.Open(longPlan(), "BTCUSDT", day1)
	require.NoError(t, err)
	_, err = m.OnPriceUpdate(94, day1.Add(time.Minute), nil)
	require.NoError(t, err)

	assert.False(t, m.CanOpen(day1.Add(2*time.Minute)))
}
