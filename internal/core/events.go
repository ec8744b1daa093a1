package core

import "time"

// EventType tags the payload carried by an Event. Modeled as a tagged union
// (replacing the teacher's loosely-typed name+payload emission) so
// subscribers can switch on Type and type-assert Payload safely.
type EventType string

const (
	EventPositionOpened   EventType = "position-opened"
	EventPositionReduced  EventType = "position-reduced"
	EventPositionTP1      EventType = "position-tp1"
	EventPositionTP2      EventType = "position-tp2"
	EventPositionClosed   EventType = "position-closed"
	EventAnalysisProgress EventType = "analysis-progress"
)

// Event is delivered to subscribers in production order (see spec §5).
type Event struct {
	Type      EventType
	Symbol    string
	Timestamp time.Time
	Payload   any
}

// PositionEventPayload carries the position snapshot for lifecycle events.
type PositionEventPayload struct {
	Position Position
	Trade    *TradeRecord
}

// AnalysisMilestone names one of the 8 progress checkpoints reported during
// an analysis iteration.
type AnalysisMilestone string

const (
	MilestoneFetchStarted      AnalysisMilestone = "FETCH_STARTED"
	MilestoneCandlesLoaded     AnalysisMilestone = "CANDLES_LOADED"
	MilestoneIndicatorsReady   AnalysisMilestone = "INDICATORS_READY"
	MilestoneRegimeClassified  AnalysisMilestone = "REGIME_CLASSIFIED"
	MilestoneModelForecast     AnalysisMilestone = "MODEL_FORECAST"
	MilestoneSignalSynthesized AnalysisMilestone = "SIGNAL_SYNTHESIZED"
	MilestoneGatesEvaluated    AnalysisMilestone = "GATES_EVALUATED"
	MilestoneIterationComplete AnalysisMilestone = "ITERATION_COMPLETE"
)

// AnalysisProgressPayload reports which milestone was just reached.
type AnalysisProgressPayload struct {
	Milestone AnalysisMilestone
	Detail    string
}

// EventBus delivers events to subscribers in the order they are produced.
type EventBus interface {
	Publish(Event)
	Subscribe(func(Event)) (unsubscribe func())
}
