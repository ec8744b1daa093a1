package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/raykavin/signalengine/internal/core"
)

func TestEventTitle_MapsKnownEventTypes(t *testing.T) {
	assert.Equal(t, "\U0001F195 POSITION OPENED", eventTitle(core.EventPositionOpened))
	assert.Equal(t, "\U0001F3C1 POSITION CLOSED", eventTitle(core.EventPositionClosed))
}

func TestEventTitle_FallsBackToRawTypeForUnknown(t *testing.T) {
	assert.Equal(t, string(core.EventAnalysisProgress), eventTitle(core.EventAnalysisProgress))
}

func TestRealizedPnL_ExcludesOpenActionAndKeepsOthers(t *testing.T) {
	trades := []core.TradeRecord{
		{Action: "OPEN", RealizedPnL: 0},
		{Action: "CLOSE", RealizedPnL: 12.5},
		{Action: "REDUCE", RealizedPnL: -3},
	}
	pnl := realizedPnL(trades)
	assert.Equal(t, []float64{12.5, -3}, pnl)
}

func TestRealizedPnL_EmptyForAllOpenTrades(t *testing.T) {
	trades := []core.TradeRecord{{Action: "OPEN", RealizedPnL: 0}}
	assert.Empty(t, realizedPnL(trades))
}
