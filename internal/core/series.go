package core

import "golang.org/x/exp/constraints"

// Series is an ordered time series, adapted from the teacher's
// pkg/core.Series[T]. Its Crossover/Crossunder helpers compare the last two
// values of two series to detect a crossing.
type Series[T constraints.Ordered] []T

// Last returns the value `position` slots back from the end (0 = most
// recent).
func (s Series[T]) Last(position int) T {
	return s[len(s)-1-position]
}

// Crossover reports whether s just crossed above ref: current value higher,
// previous value was not.
func (s Series[T]) Crossover(ref Series[T]) bool {
	return s.Last(0) > ref.Last(0) && s.Last(1) <= ref.Last(1)
}

// Crossunder reports whether s just crossed below ref.
func (s Series[T]) Crossunder(ref Series[T]) bool {
	return s.Last(0) <= ref.Last(0) && s.Last(1) > ref.Last(1)
}
