package metric

import (
	"math"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// BootstrapInterval is the confidence interval produced by Bootstrap.
type BootstrapInterval struct {
	Lower  float64
	Upper  float64
	StdDev float64
	Mean   float64
}

// Bootstrap estimates the sampling distribution of measure over values by
// resampling with replacement, for reporting a confidence interval on a
// trade-performance statistic (e.g. win rate) alongside its point estimate.
func Bootstrap(values []float64, measure func([]float64) float64, sampleSize int, confidence float64) BootstrapInterval {
	if len(values) == 0 {
		return BootstrapInterval{}
	}

	data := generateBootstrapSamples(values, measure, sampleSize)

	tail := 1 - confidence
	sort.Float64s(data)

	mean, stdDev := stat.MeanStdDev(data, nil)
	upper := stat.Quantile(1-tail/2, stat.LinInterp, data, nil)
	lower := stat.Quantile(tail/2, stat.LinInterp, data, nil)

	return BootstrapInterval{Lower: lower, Upper: upper, StdDev: stdDev, Mean: mean}
}

func generateBootstrapSamples(values []float64, measure func([]float64) float64, sampleSize int) []float64 {
	data := make([]float64, 0, sampleSize)

	for i := 0; i < sampleSize; i++ {
		resample := make([]float64, len(values))
		for j := range resample {
			resample[j] = lo.Sample(values)
		}
		data = append(data, measure(resample))
	}

	return data
}

// Mean calculates the arithmetic mean of the values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Payoff calculates the ratio of average wins to average losses.
// Returns the absolute value of the ratio.
func Payoff(values []float64) float64 {
	wins, losses := partitionTradeResults(values)

	if len(losses) == 0 {
		return 10 // Default value when no losses
	}

	avgWin := stat.Mean(wins, nil)
	avgLoss := stat.Mean(losses, nil)

	if avgLoss == 0 {
		return 10 // Prevent division by zero
	}

	return math.Abs(avgWin / avgLoss)
}

// ProfitFactor calculates the ratio of total profits to total losses.
// Returns the absolute value of the ratio.
func ProfitFactor(values []float64) float64 {
	var (
		totalWins   float64
		totalLosses float64
	)

	for _, value := range values {
		if value >= 0 {
			totalWins += value
		} else {
			totalLosses += value
		}
	}

	if totalLosses == 0 {
		return 10 // Default value when no losses
	}

	return math.Abs(totalWins / totalLosses)
}

// partitionTradeResults separates trading results into wins and losses.
func partitionTradeResults(values []float64) (wins []float64, losses []float64) {
	for _, value := range values {
		if value >= 0 {
			wins = append(wins, value)
		} else {
			losses = append(losses, math.Abs(value)) // Store absolute values of losses
		}
	}
	return wins, losses
}
