package metric

import "github.com/raykavin/signalengine/internal/core"

// Summary aggregates realized-PnL statistics over a trade log, surfaced on
// the dashboard's performance field.
type Summary struct {
	TradeCount   int
	Mean         float64
	Payoff       float64
	ProfitFactor float64
	TotalPnL     float64
}

// Summarize computes a Summary from a position's closed-out trade records.
// Only CLOSE and REDUCE actions carry realized PnL; OPEN rows contribute 0
// and are included for TradeCount parity with the full log.
func Summarize(trades []core.TradeRecord) Summary {
	results := make([]float64, 0, len(trades))
	var total float64
	for _, t := range trades {
		if t.Action == "OPEN" {
			continue
		}
		results = append(results, t.RealizedPnL)
		total += t.RealizedPnL
	}
	return Summary{
		TradeCount:   len(trades),
		Mean:         Mean(results),
		Payoff:       Payoff(results),
		ProfitFactor: ProfitFactor(results),
		TotalPnL:     total,
	}
}
