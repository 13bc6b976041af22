package gateway

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DataStatus is the lifecycle status of a Tick or Depth record (§3, §4.A).
type DataStatus int

const (
	StatusValid DataStatus = iota
	StatusStale
	StatusInvalid
	StatusFiltered
)

func (s DataStatus) String() string {
	switch s {
	case StatusValid:
		return "VALID"
	case StatusStale:
		return "STALE"
	case StatusInvalid:
		return "INVALID"
	case StatusFiltered:
		return "FILTERED"
	default:
		return "VALID"
	}
}

// BarPeriod is a supported bar aggregation period (§3, §4.G).
type BarPeriod int

const (
	Period1Min BarPeriod = iota
	Period5Min
	Period15Min
	Period30Min
	Period1Hour
	PeriodDaily
)

func (p BarPeriod) String() string {
	switch p {
	case Period1Min:
		return "1m"
	case Period5Min:
		return "5m"
	case Period15Min:
		return "15m"
	case Period30Min:
		return "30m"
	case Period1Hour:
		return "1h"
	case PeriodDaily:
		return "daily"
	default:
		return "unknown"
	}
}

// Duration returns the fixed wall-clock span of one bar of this period,
// used to truncate a tick timestamp to a bar start time. For PeriodDaily
// it returns 24h, but truncateToPeriod (bar.go) does not use it for daily
// bars: those start at the China-exchange trading day from TradingDay
// (clock.go).
func (p BarPeriod) Duration() time.Duration {
	switch p {
	case Period1Min:
		return time.Minute
	case Period5Min:
		return 5 * time.Minute
	case Period15Min:
		return 15 * time.Minute
	case Period30Min:
		return 30 * time.Minute
	case Period1Hour:
		return time.Hour
	case PeriodDaily:
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

// validExchanges is the closed set of supported exchange codes (§3).
var validExchanges = map[string]struct{}{
	"CFFEX": {}, "SHFE": {}, "DCE": {}, "CZCE": {}, "INE": {}, "GFEX": {},
}

// IsValidExchange reports whether code is a member of the closed
// exchange set.
func IsValidExchange(code string) bool {
	_, ok := validExchanges[code]
	return ok
}

// DefaultStaleThreshold is the default tick-age ceiling before a tick is
// considered stale (§3), overridable via DataFilterConfig.
const DefaultStaleThreshold = time.Hour

// maxFutureSkew is §6's fixed forward tolerance on a tick's exchange
// timestamp (accept within [now-threshold, now+60s]); unlike
// DefaultStaleThreshold it is not configurable.
const maxFutureSkew = 60 * time.Second

// Tick is an immutable-after-validation snapshot for one symbol at one
// exchange timestamp (§3).
type Tick struct {
	Symbol         string
	Exchange       string
	Timestamp      time.Time // UTC, microsecond precision
	LastPrice      decimal.Decimal
	Volume         int64 // cumulative day total
	Turnover       decimal.Decimal
	OpenInterest   int64
	BidPrice1      decimal.Decimal
	BidVolume1     int64
	AskPrice1      decimal.Decimal
	AskVolume1     int64
	PreClose       decimal.Decimal
	PreSettlement  decimal.Decimal
	UpperLimit     decimal.Decimal
	LowerLimit     decimal.Decimal
	GatewayName    string
	LocalTimestamp time.Time // UTC wall clock of reception
	Status         DataStatus

	// staleThreshold overrides DefaultStaleThreshold; zero means use the
	// default. Set by the ingest pipeline from DataFilterConfig before
	// validation.
	staleThreshold time.Duration
}

// NewTick constructs a Tick, setting LocalTimestamp to now(UTC) if the
// caller didn't supply one, per §3's "set on construction when absent".
func NewTick(t Tick) *Tick {
	if t.LocalTimestamp.IsZero() {
		t.LocalTimestamp = time.Now().UTC()
	}
	return &t
}

// Validate enforces §4.A's invariants, mutating Status to INVALID or
// STALE on failure and returning the accumulated error reasons. A tick
// with volume == 0 and last_price == 0 is a pre-open row and does not
// fail the price rule.
func (t *Tick) Validate() (bool, []string) {
	var errs []string

	if t.Symbol == "" {
		errs = append(errs, "symbol must not be empty")
	}
	if !IsValidExchange(t.Exchange) {
		errs = append(errs, fmt.Sprintf("invalid exchange: %s", t.Exchange))
	}
	if t.Volume > 0 && !t.LastPrice.IsPositive() {
		errs = append(errs, fmt.Sprintf("invalid price: %s", t.LastPrice.String()))
	}

	threshold := t.staleThreshold
	if threshold <= 0 {
		threshold = DefaultStaleThreshold
	}
	now := time.Now().UTC()
	// §6's validation window is asymmetric: a tick may trail now() by up
	// to threshold (configurable, default 3600s) but may only lead it by
	// maxFutureSkew (fixed at 60s — clock skew tolerance, not a tunable).
	age := now.Sub(t.Timestamp)
	if age > threshold || age < -maxFutureSkew {
		timestampErr := NewError(KindDataTimestampInvalid, fmt.Sprintf("timestamp outside validation window: %s old", age), map[string]interface{}{
			"timestamp": t.Timestamp.Format(time.RFC3339Nano),
			"now":       now.Format(time.RFC3339Nano),
		}, nil)
		errs = append(errs, timestampErr.Error())
		t.Status = StatusStale
	}

	if len(errs) > 0 {
		// Matches the reference implementation: a stale timestamp first
		// tags Status as STALE, but any validation failure (staleness
		// included) ultimately collapses Status to INVALID.
		t.Status = StatusInvalid
		return false, errs
	}
	return true, nil
}

// LatencyMicros returns the delay between the exchange timestamp and
// local reception, in microseconds.
func (t *Tick) LatencyMicros() int64 {
	if t.LocalTimestamp.IsZero() {
		return 0
	}
	return t.LocalTimestamp.Sub(t.Timestamp).Microseconds()
}

// UniqueID returns the first 16 hex characters of MD5(symbol ":"
// timestamp_iso8601), used for dedup (§3).
func (t *Tick) UniqueID() string {
	key := t.Symbol + ":" + t.Timestamp.Format(time.RFC3339Nano)
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// ToMap serializes the tick to a transport-neutral map: decimals and
// timestamps are stringified, Status becomes its label (§4.A).
func (t *Tick) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"symbol":          t.Symbol,
		"exchange":        t.Exchange,
		"timestamp":       t.Timestamp.UTC().Format(time.RFC3339Nano),
		"last_price":      t.LastPrice.String(),
		"volume":          t.Volume,
		"turnover":        t.Turnover.String(),
		"open_interest":   t.OpenInterest,
		"bid_price_1":     t.BidPrice1.String(),
		"bid_volume_1":    t.BidVolume1,
		"ask_price_1":     t.AskPrice1.String(),
		"ask_volume_1":    t.AskVolume1,
		"pre_close":       t.PreClose.String(),
		"pre_settlement":  t.PreSettlement.String(),
		"upper_limit":     t.UpperLimit.String(),
		"lower_limit":     t.LowerLimit.String(),
		"gateway_name":    t.GatewayName,
		"local_timestamp": t.LocalTimestamp.UTC().Format(time.RFC3339Nano),
		"status":          t.Status.String(),
	}
}

// PriceLevel is one level of a depth book: price, volume, and an
// optional order count (not all exchanges report it) (§3).
type PriceLevel struct {
	Price      decimal.Decimal
	Volume     int64
	OrderCount int64
}

// Depth is a Level-2 order-book snapshot for one symbol (§3).
type Depth struct {
	Symbol         string
	Exchange       string
	Timestamp      time.Time
	Bids           []PriceLevel // descending price
	Asks           []PriceLevel // ascending price
	GatewayName    string
	LocalTimestamp time.Time
}

// NewDepth constructs a Depth, defaulting LocalTimestamp to now(UTC).
func NewDepth(d Depth) *Depth {
	if d.LocalTimestamp.IsZero() {
		d.LocalTimestamp = time.Now().UTC()
	}
	return &d
}

// BidPrice1 returns the best bid price, or zero if the book has no bids.
func (d *Depth) BidPrice1() decimal.Decimal {
	if len(d.Bids) == 0 {
		return decimal.Zero
	}
	return d.Bids[0].Price
}

// AskPrice1 returns the best ask price, or zero if the book has no asks.
func (d *Depth) AskPrice1() decimal.Decimal {
	if len(d.Asks) == 0 {
		return decimal.Zero
	}
	return d.Asks[0].Price
}

// Spread returns AskPrice1 - BidPrice1, or zero if either side is empty.
func (d *Depth) Spread() decimal.Decimal {
	if len(d.Bids) == 0 || len(d.Asks) == 0 {
		return decimal.Zero
	}
	return d.Asks[0].Price.Sub(d.Bids[0].Price)
}

// Bar is a fixed-period OHLCV aggregation derived from ticks (§3, §4.G).
type Bar struct {
	Symbol       string
	Exchange     string
	Period       BarPeriod
	BarDatetime  time.Time // period start, UTC
	Open         decimal.Decimal
	High         decimal.Decimal
	Low          decimal.Decimal
	Close        decimal.Decimal
	// Volume holds the latest cumulative-day volume snapshot observed
	// during the bar's interval, not a per-bar delta — see SPEC_FULL.md
	// §D "Bar volume semantics".
	Volume       int64
	Turnover     decimal.Decimal
	OpenInterest int64
	GatewayName  string
}

// Validate enforces the OHLC ordering invariant: low <= open <= high and
// low <= close <= high (§3, §4).
func (b *Bar) Validate() (bool, []string) {
	var errs []string
	if b.High.LessThan(b.Low) {
		errs = append(errs, fmt.Sprintf("high(%s) < low(%s)", b.High, b.Low))
	}
	if b.Open.GreaterThan(b.High) || b.Open.LessThan(b.Low) {
		errs = append(errs, fmt.Sprintf("open(%s) outside high-low range", b.Open))
	}
	if b.Close.GreaterThan(b.High) || b.Close.LessThan(b.Low) {
		errs = append(errs, fmt.Sprintf("close(%s) outside high-low range", b.Close))
	}
	return len(errs) == 0, errs
}
