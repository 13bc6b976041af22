package gateway

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

// rawTick is the wire shape of a market-data frame as delivered by the
// front-end server, field names matching the native CTP record exactly
// so the parse step below can be grounded one-to-one against it (§4.F).
type rawTick struct {
	InstrumentID       string `msgpack:"InstrumentID"`
	ExchangeID         string `msgpack:"ExchangeID"`
	TradingDay         string `msgpack:"TradingDay"`
	UpdateTime         string `msgpack:"UpdateTime"`
	UpdateMillisec     int    `msgpack:"UpdateMillisec"`
	LastPrice          string `msgpack:"LastPrice"`
	Volume             int64  `msgpack:"Volume"`
	Turnover           string `msgpack:"Turnover"`
	OpenInterest       int64  `msgpack:"OpenInterest"`
	BidPrice1          string `msgpack:"BidPrice1"`
	BidVolume1         int64  `msgpack:"BidVolume1"`
	AskPrice1          string `msgpack:"AskPrice1"`
	AskVolume1         int64  `msgpack:"AskVolume1"`
	PreClosePrice      string `msgpack:"PreClosePrice"`
	PreSettlementPrice string `msgpack:"PreSettlementPrice"`
	UpperLimitPrice    string `msgpack:"UpperLimitPrice"`
	LowerLimitPrice    string `msgpack:"LowerLimitPrice"`
}

type rawFrame struct {
	Type string  `msgpack:"type"`
	Tick rawTick `msgpack:"tick,omitempty"`
}

func decodeFrame(data []byte) (*rawFrame, error) {
	var f rawFrame
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// filterReason maps Tick.Validate's error strings onto the closed
// tick_filtered_total{reason} label set (§6: invalid_price,
// stale_timestamp, out_of_order). A stale timestamp takes precedence
// when both fire, matching Validate's own STALE-then-INVALID collapse;
// the symbol/exchange checks Validate also runs have no dedicated label
// in §6 and are folded into invalid_price as the closest data-quality
// bucket.
func filterReason(errs []string) string {
	for _, e := range errs {
		if strings.Contains(e, KindDataTimestampInvalid.Name()) {
			return "stale_timestamp"
		}
	}
	return "invalid_price"
}

// parseTick converts a rawTick into a Tick, per §4.F step 2: the
// timestamp is TradingDay+UpdateTime parsed as a China-exchange wall
// clock, then UpdateMillisec is folded in as microseconds*1000. A parse
// failure substitutes now(UTC) rather than dropping the record.
func parseTick(raw rawTick, gatewayName string) *Tick {
	ts, err := time.ParseInLocation("20060102 15:04:05", raw.TradingDay+" "+raw.UpdateTime, chinaLocation)
	if err != nil {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC().Add(time.Duration(raw.UpdateMillisec) * time.Millisecond)
	}

	return NewTick(Tick{
		Symbol:        raw.InstrumentID,
		Exchange:      raw.ExchangeID,
		Timestamp:     ts,
		LastPrice:     parseDecimal(raw.LastPrice),
		Volume:        raw.Volume,
		Turnover:      parseDecimal(raw.Turnover),
		OpenInterest:  raw.OpenInterest,
		BidPrice1:     parseDecimal(raw.BidPrice1),
		BidVolume1:    raw.BidVolume1,
		AskPrice1:     parseDecimal(raw.AskPrice1),
		AskVolume1:    raw.AskVolume1,
		PreClose:      parseDecimal(raw.PreClosePrice),
		PreSettlement: parseDecimal(raw.PreSettlementPrice),
		UpperLimit:    parseDecimal(raw.UpperLimitPrice),
		LowerLimit:    parseDecimal(raw.LowerLimitPrice),
		GatewayName:   gatewayName,
	})
}

// ingestPipeline owns everything described in §4.F steps 3-7: validate,
// order-check, bar update, bounded-queue publish, ring cache, fan-out.
// It is driven exclusively by the dispatch loop goroutine (§5); none of
// its state is synchronized internally.
type ingestPipeline struct {
	cfg      DataFilterConfig
	logger   Logger
	metrics  *metrics
	gwName   string
	lastSeen map[string]time.Time
	bars     *barAggregator
	ring     *tickRing
	queue    chan *Tick
	onTick   func(*Tick)
	lastAt   time.Time
}

func newIngestPipeline(gwName string, cfg DataFilterConfig, queueCapacity int, ring *tickRing, bars *barAggregator, logger Logger, m *metrics, onTick func(*Tick)) *ingestPipeline {
	if queueCapacity <= 0 {
		queueCapacity = 10000
	}
	if onTick == nil {
		onTick = func(*Tick) {}
	}
	return &ingestPipeline{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		gwName:   gwName,
		lastSeen: make(map[string]time.Time),
		bars:     bars,
		ring:     ring,
		queue:    make(chan *Tick, queueCapacity),
		onTick:   onTick,
	}
}

// process runs steps 3-7 of §4.F on one already-parsed tick.
func (p *ingestPipeline) process(t *Tick) {
	t.staleThreshold = p.cfg.StaleThresholdSeconds
	p.metrics.recordTick(p.gwName, t.Exchange)

	if ok, errs := t.Validate(); !ok {
		if p.cfg.LogDirtyData && p.logger != nil {
			p.logger.Warnf("dirty tick: %s, errors=%v", t.Symbol, errs)
		}
		t.Status = StatusFiltered
		p.metrics.recordFiltered(p.gwName, filterReason(errs))
		return
	}

	if p.cfg.FilterZeroVolume && t.Volume == 0 {
		// Not one of §6's three reasons; a zero-volume record has no
		// executed trade behind its price, so it is folded into
		// invalid_price rather than adding a fourth label value.
		p.metrics.recordFiltered(p.gwName, "invalid_price")
		return
	}

	if last, ok := p.lastSeen[t.Symbol]; ok && t.Timestamp.Before(last) {
		p.metrics.recordFiltered(p.gwName, "out_of_order")
		return
	}
	p.lastSeen[t.Symbol] = t.Timestamp

	if p.bars != nil {
		p.bars.onTick(t)
	}

	select {
	case p.queue <- t:
	default:
		if p.logger != nil {
			p.logger.Warnf("tick queue full, dropping: %s", t.Symbol)
		}
	}
	if p.metrics != nil {
		p.metrics.setQueueSize(p.gwName, len(p.queue))
	}

	if p.ring != nil {
		p.ring.push(t)
	}
	p.lastAt = time.Now().UTC()
	if p.metrics != nil {
		p.metrics.observeLatency(p.gwName, float64(t.LatencyMicros())/1e6)
	}

	p.fanOut(t)
}

// fanOut invokes the registered tick callback; a panicking callback is
// recovered and logged, matching §4.F step 7 and §4.C's listener
// contract.
func (p *ingestPipeline) fanOut(t *Tick) {
	defer func() {
		if r := recover(); r != nil && p.logger != nil {
			p.logger.Errorf("tick callback panicked: %v", r)
		}
	}()
	p.onTick(t)
}

// dropSymbol clears the per-symbol last-seen timestamp, used when a
// symbol is unsubscribed (§4.E) so a later resubscribe starts its
// order-check fresh instead of comparing against a stale timestamp.
func (p *ingestPipeline) dropSymbol(symbol string) {
	delete(p.lastSeen, symbol)
}

// Next polls the tick queue with a 1-second timeout, matching §5's
// "tick_stream consumers suspend on the 1-second queue poll" so a
// caller driving this in a loop observes STOPPED within one second.
func (p *ingestPipeline) Next(stopped <-chan struct{}) (*Tick, bool) {
	timer := time.NewTimer(time.Second)
	defer timer.Stop()
	select {
	case t := <-p.queue:
		return t, true
	case <-timer.C:
		return nil, false
	case <-stopped:
		return nil, false
	}
}

// QueueDepth reports the current number of buffered ticks.
func (p *ingestPipeline) QueueDepth() int {
	return len(p.queue)
}
