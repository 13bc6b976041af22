package gateway

import (
	"sync"
	"time"
)

// barKey identifies one (symbol, period) aggregation stream (§4.G).
type barKey struct {
	symbol string
	period BarPeriod
}

// barAggregator folds incoming ticks into OHLCV bars per (symbol,
// period), emitting a completed Bar through onComplete whenever a tick
// falls in a new period window. It holds no goroutine of its own: the
// dispatch loop drives onTick on the tick-processing path, while
// dropSymbol (from Unsubscribe) and flush (from Disconnect) run on the
// caller's goroutine, so every method takes mu.
type barAggregator struct {
	mu          sync.Mutex
	periods     []BarPeriod
	gatewayName string
	inProgress  map[barKey]*Bar
	onComplete  func(*Bar)
}

func newBarAggregator(gatewayName string, periods []BarPeriod, onComplete func(*Bar)) *barAggregator {
	if onComplete == nil {
		onComplete = func(*Bar) {}
	}
	return &barAggregator{
		periods:     periods,
		gatewayName: gatewayName,
		inProgress:  make(map[barKey]*Bar),
		onComplete:  onComplete,
	}
}

// onTick folds t into every configured period's in-progress bar,
// completing and emitting any bar whose window t's timestamp has moved
// past.
func (a *barAggregator) onTick(t *Tick) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, period := range a.periods {
		key := barKey{symbol: t.Symbol, period: period}
		start := truncateToPeriod(t.Timestamp, period)

		bar, ok := a.inProgress[key]
		if ok && !bar.BarDatetime.Equal(start) {
			a.emitLocked(bar)
			bar = nil
			ok = false
		}
		if !ok {
			bar = &Bar{
				Symbol:      t.Symbol,
				Exchange:    t.Exchange,
				Period:      period,
				BarDatetime: start,
				Open:        t.LastPrice,
				High:        t.LastPrice,
				Low:         t.LastPrice,
				Close:       t.LastPrice,
				GatewayName: a.gatewayName,
			}
			a.inProgress[key] = bar
		}
		a.foldTick(bar, t)
	}
}

func (a *barAggregator) foldTick(bar *Bar, t *Tick) {
	if t.LastPrice.GreaterThan(bar.High) {
		bar.High = t.LastPrice
	}
	if t.LastPrice.LessThan(bar.Low) {
		bar.Low = t.LastPrice
	}
	bar.Close = t.LastPrice
	// Volume is the latest cumulative-day snapshot seen during the bar's
	// interval, not an accumulated delta — see entities.go's Bar.Volume
	// doc and SPEC_FULL.md §D.
	bar.Volume = t.Volume
	bar.Turnover = t.Turnover
	bar.OpenInterest = t.OpenInterest
}

func (a *barAggregator) emitLocked(bar *Bar) {
	completed := *bar
	a.onComplete(&completed)
}

// dropSymbol discards any in-progress bars for symbol without emitting
// them, used when a symbol is unsubscribed (§4.E): its partial bar is
// stale state the gateway no longer tracks, not a completed bar.
func (a *barAggregator) dropSymbol(symbol string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key := range a.inProgress {
		if key.symbol == symbol {
			delete(a.inProgress, key)
		}
	}
}

// flush force-completes and emits every in-progress bar, for shutdown.
func (a *barAggregator) flush() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key, bar := range a.inProgress {
		a.emitLocked(bar)
		delete(a.inProgress, key)
	}
}

func truncateToPeriod(t time.Time, period BarPeriod) time.Time {
	if period == PeriodDaily {
		day := TradingDay(t)
		start, err := time.ParseInLocation("20060102", day, chinaLocation)
		if err != nil {
			return t.UTC().Truncate(24 * time.Hour)
		}
		return start.UTC()
	}
	d := period.Duration()
	return t.UTC().Truncate(d)
}
