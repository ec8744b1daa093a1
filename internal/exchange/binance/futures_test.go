package binance

import (
	"testing"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/assert"

	"github.com/raykavin/signalengine/internal/core"
)

func TestParseFloat_ParsesValidString(t *testing.T) {
	assert.Equal(t, 123.45, parseFloat("123.45"))
}

func TestParseFloat_ReturnsZeroOnMalformedString(t *testing.T) {
	assert.Equal(t, 0.0, parseFloat("not-a-number"))
}

func TestConvertKline_MapsAllFieldsAndMarksClosed(t *testing.T) {
	k := futures.Kline{
		OpenTime: 1700000000000,
		Open:     "100.1", High: "101.2", Low: "99.5", Close: "100.8", Volume: "12.3",
	}
	c := convertKline("BTCUSDT", core.Interval5m, k)

	assert.Equal(t, "BTCUSDT", c.Symbol)
	assert.Equal(t, core.Interval5m, c.Interval)
	assert.Equal(t, time.UnixMilli(1700000000000), c.Time)
	assert.Equal(t, 100.1, c.Open)
	assert.Equal(t, 101.2, c.High)
	assert.Equal(t, 99.5, c.Low)
	assert.Equal(t, 100.8, c.Close)
	assert.Equal(t, 12.3, c.Volume)
	assert.True(t, c.Closed)
}
