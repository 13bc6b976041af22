package gateway

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarAggregator_EmitsOnPeriodRollover(t *testing.T) {
	var completed []*Bar
	agg := newBarAggregator("test", []BarPeriod{Period1Min}, func(b *Bar) {
		completed = append(completed, b)
	})

	base := time.Date(2024, 1, 15, 9, 0, 10, 0, time.UTC)
	agg.onTick(&Tick{Symbol: "IF2401", Timestamp: base, LastPrice: decimal.NewFromInt(100), Volume: 10})
	agg.onTick(&Tick{Symbol: "IF2401", Timestamp: base.Add(20 * time.Second), LastPrice: decimal.NewFromInt(105), Volume: 20})
	require.Empty(t, completed)

	// crosses into the next minute
	agg.onTick(&Tick{Symbol: "IF2401", Timestamp: base.Add(70 * time.Second), LastPrice: decimal.NewFromInt(90), Volume: 30})
	require.Len(t, completed, 1)

	first := completed[0]
	assert.True(t, first.Open.Equal(decimal.NewFromInt(100)))
	assert.True(t, first.High.Equal(decimal.NewFromInt(105)))
	assert.True(t, first.Low.Equal(decimal.NewFromInt(100)))
	assert.True(t, first.Close.Equal(decimal.NewFromInt(105)))
	// Volume records the latest cumulative-day snapshot, not a sum.
	assert.Equal(t, int64(20), first.Volume)
}

func TestBarAggregator_Flush(t *testing.T) {
	var completed []*Bar
	agg := newBarAggregator("test", []BarPeriod{Period1Min}, func(b *Bar) {
		completed = append(completed, b)
	})
	agg.onTick(&Tick{Symbol: "IF2401", Timestamp: time.Now().UTC(), LastPrice: decimal.NewFromInt(1), Volume: 1})
	agg.flush()
	assert.Len(t, completed, 1)
}
