package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInterval_AcceptsCanonicalAndAliasedSpellings(t *testing.T) {
	iv, err := ParseInterval("1h")
	require.NoError(t, err)
	assert.Equal(t, Interval1h, iv)

	iv, err = ParseInterval("60m")
	require.NoError(t, err)
	assert.Equal(t, Interval1h, iv)

	iv, err = ParseInterval("4H")
	require.NoError(t, err)
	assert.Equal(t, Interval4h, iv)
}

func TestParseInterval_RejectsUnknownSpelling(t *testing.T) {
	_, err := ParseInterval("7x")
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestInterval_Duration_MapsEachCanonicalValue(t *testing.T) {
	cases := map[Interval]time.Duration{
		Interval1m:  time.Minute,
		Interval5m:  5 * time.Minute,
		Interval15m: 15 * time.Minute,
		Interval1h:  time.Hour,
		Interval1d:  24 * time.Hour,
		Interval1w:  7 * 24 * time.Hour,
	}
	for iv, want := range cases {
		assert.Equal(t, want, iv.Duration())
	}
}

func TestInterval_Duration_UnknownIntervalIsZero(t *testing.T) {
	assert.Equal(t, time.Duration(0), Interval("bogus").Duration())
}
