package gateway

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickValidate_HappyPath(t *testing.T) {
	tick := NewTick(Tick{
		Symbol:    "IF2401",
		Exchange:  "CFFEX",
		Timestamp: time.Now().UTC(),
		LastPrice: decimal.NewFromFloat(3800.2),
		Volume:    100,
	})

	ok, errs := tick.Validate()
	require.True(t, ok)
	assert.Empty(t, errs)
	assert.Equal(t, StatusValid, tick.Status)
}

func TestTickValidate_PreOpenZeroRowDoesNotFailPriceRule(t *testing.T) {
	tick := NewTick(Tick{
		Symbol:    "IF2401",
		Exchange:  "SHFE",
		Timestamp: time.Now().UTC(),
		LastPrice: decimal.Zero,
		Volume:    0,
	})

	ok, errs := tick.Validate()
	assert.True(t, ok)
	assert.Empty(t, errs)
}

func TestTickValidate_InvalidPriceWithPositiveVolume(t *testing.T) {
	tick := NewTick(Tick{
		Symbol:    "IF2401",
		Exchange:  "SHFE",
		Timestamp: time.Now().UTC(),
		LastPrice: decimal.Zero,
		Volume:    10,
	})

	ok, errs := tick.Validate()
	assert.False(t, ok)
	assert.NotEmpty(t, errs)
	assert.Equal(t, StatusInvalid, tick.Status)
}

func TestTickValidate_StaleCollapsesToInvalid(t *testing.T) {
	tick := NewTick(Tick{
		Symbol:         "IF2401",
		Exchange:       "SHFE",
		Timestamp:      time.Now().UTC().Add(-2 * time.Hour),
		LastPrice:      decimal.NewFromInt(100),
		Volume:         1,
		staleThreshold: time.Hour,
	})

	ok, errs := tick.Validate()
	assert.False(t, ok)
	assert.NotEmpty(t, errs)
	// A stale timestamp tentatively tags STALE, but any validation
	// failure collapses the final status to INVALID.
	assert.Equal(t, StatusInvalid, tick.Status)
}

func TestTickValidate_UnknownExchangeRejected(t *testing.T) {
	tick := NewTick(Tick{
		Symbol:    "X1",
		Exchange:  "NYSE",
		Timestamp: time.Now().UTC(),
		LastPrice: decimal.NewFromInt(1),
	})

	ok, errs := tick.Validate()
	assert.False(t, ok)
	assert.Contains(t, errs[0], "invalid exchange")
}

func TestTickUniqueID_StableForSameInput(t *testing.T) {
	ts := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	a := &Tick{Symbol: "IF2401", Timestamp: ts}
	b := &Tick{Symbol: "IF2401", Timestamp: ts}
	assert.Equal(t, a.UniqueID(), b.UniqueID())
	assert.Len(t, a.UniqueID(), 16)
}

func TestDepth_BestPricesAndSpread(t *testing.T) {
	d := NewDepth(Depth{
		Symbol: "IF2401",
		Bids:   []PriceLevel{{Price: decimal.NewFromInt(100)}},
		Asks:   []PriceLevel{{Price: decimal.NewFromInt(101)}},
	})
	assert.True(t, d.BidPrice1().Equal(decimal.NewFromInt(100)))
	assert.True(t, d.AskPrice1().Equal(decimal.NewFromInt(101)))
	assert.True(t, d.Spread().Equal(decimal.NewFromInt(1)))
}

func TestDepth_EmptyBookSpreadIsZero(t *testing.T) {
	d := NewDepth(Depth{Symbol: "IF2401"})
	assert.True(t, d.Spread().IsZero())
}

func TestBarValidate_OHLCOrdering(t *testing.T) {
	bar := &Bar{
		Open:  decimal.NewFromInt(10),
		High:  decimal.NewFromInt(12),
		Low:   decimal.NewFromInt(9),
		Close: decimal.NewFromInt(11),
	}
	ok, errs := bar.Validate()
	assert.True(t, ok)
	assert.Empty(t, errs)
}

func TestBarValidate_CloseOutsideRangeRejected(t *testing.T) {
	bar := &Bar{
		Open:  decimal.NewFromInt(10),
		High:  decimal.NewFromInt(12),
		Low:   decimal.NewFromInt(9),
		Close: decimal.NewFromInt(20),
	}
	ok, errs := bar.Validate()
	assert.False(t, ok)
	assert.NotEmpty(t, errs)
}

func TestIsValidExchange(t *testing.T) {
	for _, ex := range []string{"CFFEX", "SHFE", "DCE", "CZCE", "INE", "GFEX"} {
		assert.True(t, IsValidExchange(ex), ex)
	}
	assert.False(t, IsValidExchange("NYSE"))
}
