package core

import "errors"

// Sentinel errors returned by the engine's subsystems. Callers use
// errors.Is against these; none of them are fatal except ErrConfigInvalid,
// which is only ever returned during startup.
var (
	// ErrOutOfOrder is returned by the indicator engine when a candle
	// timestamp is strictly earlier than the last accepted candle.
	ErrOutOfOrder = errors.New("core: candle out of order")

	// ErrInsufficientData is returned when fewer than max(required period)+1
	// closed candles are available to compute a snapshot.
	ErrInsufficientData = errors.New("core: insufficient data")

	// ErrAlreadyOpen is returned by the position state machine when Open is
	// called while a position is already open for the pair.
	ErrAlreadyOpen = errors.New("core: position already open")

	// ErrNotOpen is returned when a mutation (reduce, close) is attempted
	// against a pair with no open position.
	ErrNotOpen = errors.New("core: no open position")

	// ErrUnavailable wraps failures from exchange, model or sentiment
	// adapters. It is recoverable: callers fall back to cached data or
	// skip the iteration.
	ErrUnavailable = errors.New("core: upstream unavailable")

	// ErrConfigInvalid is fatal at startup only.
	ErrConfigInvalid = errors.New("core: invalid configuration")
)
