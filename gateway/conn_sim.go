package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

// simFront is an in-process stand-in front-end used by Config.UseSimulatedFront
// and by tests: it never dials out, it synthesizes a login-success frame
// immediately and then a steady stream of tick frames for whatever symbols
// SetSymbols names, so the rest of the gateway can be exercised without a
// real CTP endpoint (§9).
type simFront struct {
	mu      sync.Mutex
	symbols []string
	rng     *rand.Rand
	frames  chan []byte
	closed  chan struct{}
	once    sync.Once

	// newTicker is swappable so tests can drive the generator loop with a
	// fake ticker instead of waiting on real time.
	newTicker func(time.Duration) ticker
}

func newSimFront(seed int64) *simFront {
	f := &simFront{
		rng:       rand.New(rand.NewSource(seed)),
		frames:    make(chan []byte, 256),
		closed:    make(chan struct{}),
		newTicker: newTicker,
	}
	f.frames <- mustPack(simFrame{Type: "login_success"})
	return f
}

// SetSymbols tells the simulator which symbols to generate ticks for; it
// may be called at any time, including after ticks have begun flowing.
func (f *simFront) SetSymbols(symbols []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.symbols = append([]string(nil), symbols...)
}

// run starts the background tick generator; it exits when close() is called.
func (f *simFront) run(tickInterval time.Duration) {
	tk := f.newTicker(tickInterval)
	defer tk.Stop()
	for {
		select {
		case <-f.closed:
			return
		case <-tk.C():
			f.emitTick()
		}
	}
}

func (f *simFront) emitTick() {
	f.mu.Lock()
	symbols := f.symbols
	f.mu.Unlock()
	if len(symbols) == 0 {
		return
	}
	sym := symbols[f.rng.Intn(len(symbols))]
	price := 1000 + f.rng.Float64()*500
	now := ToChinaTime(time.Now().UTC())
	frame := rawFrame{
		Type: "tick",
		Tick: rawTick{
			InstrumentID:   sym,
			ExchangeID:     "SHFE",
			TradingDay:     now.Format("20060102"),
			UpdateTime:     now.Format("15:04:05"),
			UpdateMillisec: now.Nanosecond() / int(time.Millisecond),
			LastPrice:      decimal.NewFromFloat(price).StringFixed(1),
			Volume:         int64(f.rng.Intn(10000)),
		},
	}
	select {
	case f.frames <- mustPack(frame):
	default:
		// simulator queue is full: drop the tick, same as a live front
		// dropping under backpressure.
	}
}

func (f *simFront) close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *simFront) readFrame(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case data, ok := <-f.frames:
		if !ok {
			return nil, fmt.Errorf("simulated front closed")
		}
		return data, nil
	}
}

func (f *simFront) writeFrame(ctx context.Context, data []byte) error {
	var req simFrame
	if err := msgpack.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("simulated front: decode request: %w", err)
	}
	if req.Type == "subscribe" {
		select {
		case f.frames <- mustPack(simFrame{Type: "subscribe_ack", Symbol: req.Symbol}):
		default:
		}
	}
	return nil
}

var _ frontConn = (*simFront)(nil)

// simFrame is the simulator's minimal wire shape; it only needs to round
// trip through msgpack the same way a real front frame would.
type simFrame struct {
	Type     string `msgpack:"type"`
	Symbol   string `msgpack:"symbol,omitempty"`
	Exchange string `msgpack:"exchange,omitempty"`
	Price    string `msgpack:"price,omitempty"`
	Volume   int64  `msgpack:"volume,omitempty"`
	TS       string `msgpack:"ts,omitempty"`
}

func mustPack(v interface{}) []byte {
	data, err := msgpack.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("simulated front: marshal: %v", err))
	}
	return data
}
