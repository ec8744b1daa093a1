// Package position implements the position state machine (C5): a single
// simulated position per engine, its TP1/TP2/TP3/breakeven/trailing/time-exit
// transitions, and the daily-loss circuit breaker.
package position

import (
	"time"

	"github.com/google/uuid"

	"github.com/raykavin/signalengine/internal/core"
)

// Config holds the machine's tunable thresholds.
type Config struct {
	MaxHoldingHours      float64
	MinHoldingMinutes    float64
	ReversalCloseConfidence float64
	ReversalReduceConfidence float64
	Commission           float64
	Slippage             float64
	DailyLossLimit       float64 // fraction of notional; 0 disables the breaker
	EnableTrailingStop   bool
	TrailingStopDistance float64 // fraction of price, used only when enabled
	Location             *time.Location
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxHoldingHours:          48,
		MinHoldingMinutes:        30,
		ReversalCloseConfidence:  0.8,
		ReversalReduceConfidence: 0.6,
		Commission:               0.0004,
		Slippage:                 0.0005,
		DailyLossLimit:           0.05,
		EnableTrailingStop:       false,
		TrailingStopDistance:     0.01,
		Location:                 time.Local,
	}
}

// Machine owns the single open-or-flat position for one engine instance. It
// is not safe for concurrent use; the analysis loop (C6) is its sole caller
// (spec §5).
type Machine struct {
	cfg Config
	bus core.EventBus

	position core.Position
	trades   []core.TradeRecord

	dailyLossDate string
	dailyLoss     float64
}

// New creates a Machine in the FLAT state.
func New(cfg Config, bus core.EventBus) *Machine {
	return &Machine{
		cfg:      cfg,
		bus:      bus,
		position: core.Position{State: core.StateFlat},
	}
}

// Snapshot returns an immutable copy of the current position.
func (m *Machine) Snapshot() core.Position { return m.position }

// IsFlat reports whether no position is currently open.
func (m *Machine) IsFlat() bool { return m.position.State == core.StateFlat }

// CanOpen reports whether a new position may be opened: the machine is FLAT
// and the daily-loss circuit breaker has not tripped for the current local
// day.
func (m *Machine) CanOpen(now time.Time) bool {
	if !m.IsFlat() {
		return false
	}
	m.rolloverDailyLoss(now)
	return m.cfg.DailyLossLimit <= 0 || m.dailyLoss < m.cfg.DailyLossLimit
}

// Open opens a new position from a risk plan. Returns ErrAlreadyOpen if the
// machine is not FLAT.
func (m *Machine) Open(plan core.RiskPlan, symbol string, now time.Time) (core.Position, error) {
	if !m.IsFlat() {
		return core.Position{}, core.ErrAlreadyOpen
	}
	m.position = core.Position{
		ID:           uuid.NewString(),
		Symbol:       symbol,
		Side:         plan.Side,
		State:        core.StateOpen,
		OriginalSize: plan.PositionFraction,
		Size:         plan.PositionFraction,
		EntryPrice:   plan.EntryPrice,
		CurrentPrice: plan.EntryPrice,
		StopLoss:     plan.StopLoss,
		TP1:          plan.TakeProfit1,
		TP2:          plan.TakeProfit2,
		TP3:          plan.TakeProfit3,
		Leverage:     plan.Leverage,
		OpenedAt:     now,
		UpdatedAt:    now,
	}
	trade := m.record("OPEN", "", plan.EntryPrice, plan.PositionFraction, 0, now)
	m.publish(core.EventPositionOpened, trade, now)
	return m.position, nil
}

// OnPriceUpdate evaluates every transition in spec §4.5 for a new price
// observation and returns the position snapshot after any transition.
func (m *Machine) OnPriceUpdate(price float64, now time.Time, reversal *ReversalSignal) (core.Position, error) {
	if m.IsFlat() {
		return core.Position{}, core.ErrNotOpen
	}
	m.position.CurrentPrice = price
	m.position.UpdatedAt = now
	m.position.UnrealizedPnL = m.position.PnL(price, m.position.Size)

	if m.stopLossHit(price) {
		m.close(price, core.CloseReasonStop, now)
		return m.position, nil
	}

	if m.cfg.EnableTrailingStop && m.position.TrailingStopActive {
		if m.trailingStopHit(price) {
			m.close(price, core.CloseReasonStop, now)
			return m.position, nil
		}
		m.advanceTrailingStop(price)
	}

	if !m.position.TP1Hit && m.tp1Hit(price) {
		m.hitTP1(price, now)
		return m.position, nil
	}
	if m.position.TP1Hit && !m.position.TP2Hit && m.tp2Hit(price) {
		m.hitTP2(price, now)
		return m.position, nil
	}
	if m.position.TP2Hit && m.tp3Hit(price) {
		m.close(price, core.CloseReasonTP3, now)
		return m.position, nil
	}

	if reversal != nil && reversal.Opposite(m.position.Side) {
		if reversal.Confidence >= m.cfg.ReversalCloseConfidence {
			m.close(price, core.CloseReasonSignalReversal, now)
			return m.position, nil
		}
		if reversal.Confidence >= m.cfg.ReversalReduceConfidence {
			m.reduce(price, 0.5, "", now)
			return m.position, nil
		}
	}

	m.evaluateTimeExits(price, now)
	return m.position, nil
}

// ReversalSignal is the minimal signal-class/confidence pair the state
// machine needs to evaluate the signal-reversal exit.
type ReversalSignal struct {
	Side       core.Side
	Strong     bool
	Confidence float64
}

// Opposite reports whether this reversal signal is a STRONG opposite-side
// signal relative to the held side.
func (r ReversalSignal) Opposite(held core.Side) bool {
	return r.Strong && r.Side != held
}

func (m *Machine) stopLossHit(price float64) bool {
	if m.position.Side == core.SideLong {
		return price <= m.position.StopLoss
	}
	return price >= m.position.StopLoss
}

func (m *Machine) tp1Hit(price float64) bool {
	if m.position.Side == core.SideLong {
		return price >= m.position.TP1
	}
	return price <= m.position.TP1
}

func (m *Machine) tp2Hit(price float64) bool {
	if m.position.Side == core.SideLong {
		return price >= m.position.TP2
	}
	return price <= m.position.TP2
}

func (m *Machine) tp3Hit(price float64) bool {
	if m.position.Side == core.SideLong {
		return price >= m.position.TP3
	}
	return price <= m.position.TP3
}

// hitTP1 reduces 50% of the original size and migrates the stop to
// breakeven (entry); SL for LONG is monotonically non-decreasing and for
// SHORT monotonically non-increasing across this and the TP2 transition.
func (m *Machine) hitTP1(price float64, now time.Time) {
	qty := m.position.OriginalSize * 0.5
	m.position.Size -= qty
	m.position.StopLoss = m.position.EntryPrice
	m.position.TP1Hit = true
	m.position.State = core.StateOpenTP1Hit
	if m.cfg.EnableTrailingStop {
		m.position.TrailingStopActive = true
	}
	trade := m.record("REDUCE", "TP1", price, qty, m.position.PnL(price, qty), now)
	m.publish(core.EventPositionTP1, trade, now)
}

// hitTP2 reduces 50% of the remainder (= 25% of the original opened size,
// since TP1 already reduced 50%), moves the stop to TP1 and retargets the
// remaining size at TP3.
func (m *Machine) hitTP2(price float64, now time.Time) {
	qty := m.position.OriginalSize * 0.25
	if qty > m.position.Size {
		qty = m.position.Size
	}
	m.position.Size -= qty
	m.position.StopLoss = m.position.TP1
	m.position.TP2Hit = true
	m.position.State = core.StateOpenTP2Hit
	trade := m.record("REDUCE", "TP2", price, qty, m.position.PnL(price, qty), now)
	m.publish(core.EventPositionTP2, trade, now)
	m.position.State = core.StateOpenTP3Target
}

func (m *Machine) evaluateTimeExits(price float64, now time.Time) {
	held := now.Sub(m.position.OpenedAt)
	pnlPct := m.position.UnrealizedPnL / (m.position.EntryPrice * m.position.OriginalSize) * 100

	if held.Hours() >= m.cfg.MaxHoldingHours {
		m.close(price, core.CloseReasonMaxHold, now)
		return
	}
	minHold := time.Duration(m.cfg.MinHoldingMinutes) * time.Minute
	if held > minHold && pnlPct < -0.5 && held <= 3*minHold {
		m.reduce(price, 0.5, "time decay", now)
		return
	}
	if held > 3*minHold && pnlPct < -1 {
		m.close(price, core.CloseReasonTimeStop, now)
	}
}

func (m *Machine) trailingStopHit(price float64) bool {
	if m.position.Side == core.SideLong {
		return price <= m.position.StopLoss
	}
	return price >= m.position.StopLoss
}

// advanceTrailingStop ratchets the stop toward price once activated,
// preserving monotonicity toward the favorable direction only.
func (m *Machine) advanceTrailingStop(price float64) {
	if m.position.Side == core.SideLong {
		candidate := price * (1 - m.cfg.TrailingStopDistance)
		if candidate > m.position.StopLoss {
			m.position.StopLoss = candidate
		}
		return
	}
	candidate := price * (1 + m.cfg.TrailingStopDistance)
	if candidate < m.position.StopLoss {
		m.position.StopLoss = candidate
	}
}

// ActivateTrailingStop opts the current position into trailing-stop
// management once a caller-defined profit threshold is reached. hitTP1
// also activates it automatically when EnableTrailingStop is set; this
// method remains for callers that want trailing management before TP1.
func (m *Machine) ActivateTrailingStop() {
	if !m.IsFlat() {
		m.position.TrailingStopActive = true
	}
}

// reduce cuts the position by ratio of the *original* opened size, per the
// spec's "ratio of original size" invariant for partial exits outside the
// TP1/TP2 ladder.
func (m *Machine) reduce(price, ratio float64, reason string, now time.Time) {
	qty := m.position.OriginalSize * ratio
	if qty > m.position.Size {
		qty = m.position.Size
	}
	m.position.Size -= qty
	trade := m.record("REDUCE", reason, price, qty, m.position.PnL(price, qty), now)
	m.publish(core.EventPositionReduced, trade, now)
}

func (m *Machine) close(price float64, reason core.CloseReason, now time.Time) {
	qty := m.position.Size
	realized := m.position.PnL(price, qty)
	m.position.Size = 0
	m.position.State = core.StateClosed
	trade := m.record("CLOSE", string(reason), price, qty, realized, now)

	if realized < 0 {
		m.rolloverDailyLoss(now)
		notional := m.position.EntryPrice * m.position.OriginalSize
		if notional > 0 {
			m.dailyLoss += -realized / notional
		}
	}

	m.publish(core.EventPositionClosed, trade, now)
	m.position = core.Position{State: core.StateFlat}
}

func (m *Machine) record(action, reason string, price, size, realized float64, now time.Time) core.TradeRecord {
	fees := 2 * (m.cfg.Commission + m.cfg.Slippage) * price * size
	trade := core.TradeRecord{
		ID:          uuid.NewString(),
		PositionID:  m.position.ID,
		Symbol:      m.position.Symbol,
		Side:        m.position.Side,
		Action:      action,
		Reason:      reason,
		Price:       price,
		Size:        size,
		Fees:        fees,
		RealizedPnL: realized - fees,
		Timestamp:   now,
	}
	m.trades = append(m.trades, trade)
	return trade
}

func (m *Machine) publish(eventType core.EventType, trade core.TradeRecord, now time.Time) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(core.Event{
		Type:      eventType,
		Symbol:    m.position.Symbol,
		Timestamp: now,
		Payload: core.PositionEventPayload{
			Position: m.position,
			Trade:    &trade,
		},
	})
}

func (m *Machine) rolloverDailyLoss(now time.Time) {
	today := now.In(m.cfg.Location).Format("2006-01-02")
	if m.dailyLossDate != today {
		m.dailyLossDate = today
		m.dailyLoss = 0
	}
}

// Trades returns the append-only trade log accumulated so far.
func (m *Machine) Trades() []core.TradeRecord { return append([]core.TradeRecord(nil), m.trades...) }

// DailyLoss reports the cumulative realized loss fraction for the current
// local day and the configured limit, for dashboard exposure.
func (m *Machine) DailyLoss(now time.Time) (loss, limit float64) {
	m.rolloverDailyLoss(now)
	return m.dailyLoss, m.cfg.DailyLossLimit
}
