package core

import "time"

// PositionState is a node in the C5 state machine:
//
//	FLAT -> OPEN(side) -> {OPEN_TP1_HIT -> {OPEN_TP2_HIT -> OPEN_TP3_TARGET -> CLOSED} | CLOSED} | CLOSED
//
// CLOSED is also reachable directly from OPEN/OPEN_TP1_HIT/OPEN_TP2_HIT via
// stop-loss, signal reversal, or time exits.
type PositionState string

const (
	StateFlat         PositionState = "FLAT"
	StateOpen         PositionState = "OPEN"
	StateOpenTP1Hit   PositionState = "OPEN_TP1_HIT"
	StateOpenTP2Hit   PositionState = "OPEN_TP2_HIT"
	StateOpenTP3Target PositionState = "OPEN_TP3_TARGET"
	StateClosed       PositionState = "CLOSED"
)

// CloseReason records why a position left the open states.
type CloseReason string

const (
	CloseReasonStop           CloseReason = "STOP"
	CloseReasonTP3            CloseReason = "TP3"
	CloseReasonSignalReversal CloseReason = "SIGNAL_REVERSAL"
	CloseReasonMaxHold        CloseReason = "MAX_HOLD"
	CloseReasonTimeStop       CloseReason = "TIME_STOP"
	CloseReasonManual         CloseReason = "MANUAL"
)

// Position is the single simulated position the engine may hold at a time.
// Exactly one position may be open; external callers receive immutable
// snapshots (copies), never a reference into the machine's internal state.
type Position struct {
	ID       string
	Symbol   string
	Side     Side
	State    PositionState

	OriginalSize float64 // size at Open; partial reductions are ratios of this
	Size         float64 // current remaining size

	EntryPrice   float64
	CurrentPrice float64

	StopLoss float64
	TP1      float64
	TP2      float64
	TP3      float64
	TP1Hit   bool
	TP2Hit   bool

	TrailingStopActive bool

	Leverage int

	OpenedAt time.Time
	UpdatedAt time.Time

	UnrealizedPnL float64
}

// PnL computes realized PnL for a fill at exitPrice covering qty of the
// position: (exit - entry) * qty * leverage * sign(side).
func (p Position) PnL(exitPrice, qty float64) float64 {
	return (exitPrice - p.EntryPrice) * qty * float64(p.Leverage) * p.Side.Sign()
}

// TradeRecord is an immutable append-only log row for every open/reduce/close
// action taken against a position.
type TradeRecord struct {
	ID         string
	PositionID string
	Symbol     string
	Side       Side
	Action     string // "OPEN", "REDUCE", "CLOSE"
	Reason     string
	Price      float64
	Size       float64
	Fees       float64
	RealizedPnL float64
	Timestamp  time.Time
}
