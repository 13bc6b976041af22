package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Gateway is a single market-data session against one CTP/SimNow front
// end (§2, §3's Lifecycle). Construct with New, drive with Connect and
// Subscribe, consume ticks via Next or the registered tick callback, and
// release resources with Disconnect.
type Gateway struct {
	cfg    Config
	opts   *gatewayOptions
	logger Logger

	// instanceID identifies this Gateway in its connect log line, so a
	// multi-gateway deployment can tell sessions apart; other log lines,
	// including the reconnect loop's, do not carry it.
	instanceID string

	state   *stateMachine
	metrics *metrics
	subs    *subscriptionRegistry
	ring    *tickRing
	bars    *barAggregator
	ingest  *ingestPipeline

	mu         sync.Mutex
	conn       frontConn
	connectedAt time.Time
	stopped    chan struct{}
	reconnect  *reconnectLoop

	connectOnce sync.Once
	dispatchWG  sync.WaitGroup
}

// New constructs a Gateway from a validated Config. Construction fails
// if cfg.Validate() fails.
func New(cfg Config, opts ...Option) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := defaultGatewayOptions()
	for _, opt := range opts {
		opt.apply(o)
	}
	if o.connDialer == nil {
		if cfg.UseSimulatedFront {
			sim := newSimFront(1)
			go sim.run(50 * time.Millisecond)
			o.connDialer = func(string) (frontConn, error) { return sim, nil }
		} else {
			o.connDialer = func(addr string) (frontConn, error) {
				return dialFront(context.Background(), addr)
			}
		}
	}

	g := &Gateway{
		cfg:        cfg,
		opts:       o,
		logger:     o.logger,
		instanceID: uuid.NewString(),
		state:   newStateMachine(o.logger),
		metrics: newMetrics(o.metricsRegistry),
		subs:    newSubscriptionRegistry(nil, cfg.MaxSubscriptions, o.logger),
		ring:    newTickRing(defaultRingCapacity),
		stopped: make(chan struct{}),
	}
	g.bars = newBarAggregator(cfg.GatewayName, []BarPeriod{Period1Min, Period5Min, PeriodDaily}, o.onBar)
	g.ingest = newIngestPipeline(cfg.GatewayName, cfg.DataFilter, 10000, g.ring, g.bars, o.logger, g.metrics, o.onTick)
	g.subs.onSubscribe = func(symbol string) {}
	g.subs.onRemove = func(symbol string) {
		g.ingest.dropSymbol(symbol)
		g.bars.dropSymbol(symbol)
	}
	g.state.onChange(func(old, new SessionState) { g.metrics.setState(cfg.GatewayName, new) })
	g.reconnect = newReconnectLoop(g, cfg.Reconnect, o.logger, g.metrics)
	return g, nil
}

// SetUniverse supplies the pre-discovered symbol universe used for
// wildcard subscription expansion (§2's Non-goals: the core never
// discovers it itself).
func (g *Gateway) SetUniverse(symbols []string) {
	g.subs.SetUniverse(symbols)
}

// State returns the current session state.
func (g *Gateway) State() SessionState {
	return g.state.State()
}

// OnStateChange registers a listener for state transitions (§4.C).
func (g *Gateway) OnStateChange(l StateChangeListener) {
	g.state.onChange(l)
}

// Connect implements §4.D's connect contract: idempotent when already
// CONNECTED/SUBSCRIBING/RUNNING, otherwise brings up the front
// connection and waits for a login signal bounded by connect_timeout.
func (g *Gateway) Connect(ctx context.Context) error {
	switch g.state.State() {
	case StateConnected, StateSubscribing, StateRunning:
		g.logger.Infof("connect called while already %s, ignoring", g.state.State())
		return nil
	}

	g.logger.Infof("[%s] connecting to %s", g.instanceID, g.frontAddr())
	g.state.transition(StateConnecting)

	connectCtx, cancel := context.WithTimeout(ctx, g.cfg.ConnectTimeout)
	defer cancel()

	conn, loginErr, err := g.dial(connectCtx)
	if err != nil {
		g.state.transition(StateError)
		if connectCtx.Err() != nil {
			return NewError(KindConnectionTimeout, "connect timed out", map[string]interface{}{
				"host":    g.frontAddr(),
				"timeout": g.cfg.ConnectTimeout.String(),
			}, err)
		}
		return NewError(KindConnectionFailed, "connect failed", map[string]interface{}{
			"host": g.frontAddr(),
		}, err)
	}
	if loginErr != nil {
		g.state.transition(StateError)
		return NewError(KindAuthFailed, "login failed", map[string]interface{}{
			"host": g.frontAddr(),
		}, loginErr)
	}

	g.mu.Lock()
	g.conn = conn
	g.connectedAt = time.Now().UTC()
	g.mu.Unlock()

	g.state.transition(StateConnected)
	g.reconnect.reset()

	g.dispatchWG.Add(1)
	go g.runDispatchLoop(conn)

	return nil
}

func (g *Gateway) frontAddr() string {
	if g.cfg.CTP != nil {
		return g.cfg.CTP.FrontAddr
	}
	return ""
}

// dial opens the front connection and performs the login handshake. The
// simulated front answers immediately; a real tcpFrontConn expects a
// login_success frame as its first message.
func (g *Gateway) dial(ctx context.Context) (frontConn, error, error) {
	addr := g.frontAddr()
	conn, err := g.opts.connDialer(addr)
	if err != nil {
		return nil, nil, err
	}

	data, err := conn.readFrame(ctx)
	if err != nil {
		conn.close()
		return nil, nil, err
	}
	frame, err := decodeFrame(data)
	if err != nil {
		conn.close()
		return nil, nil, fmt.Errorf("decode login frame: %w", err)
	}
	switch frame.Type {
	case "login_success":
		return conn, nil, nil
	case "login_failed":
		return conn, fmt.Errorf("front rejected login"), nil
	default:
		conn.close()
		return nil, nil, fmt.Errorf("unexpected first frame type %q", frame.Type)
	}
}

// Disconnect implements §4.D's disconnect contract.
func (g *Gateway) Disconnect() error {
	if g.state.State() == StateDisconnected {
		return nil
	}

	g.reconnect.cancel()

	g.mu.Lock()
	conn := g.conn
	g.conn = nil
	g.mu.Unlock()

	close(g.stopped)
	g.dispatchWG.Wait()

	if conn != nil {
		if err := conn.close(); err != nil {
			g.logger.Errorf("error releasing front connection: %v", err)
			return err
		}
	}

	g.bars.flush()
	g.state.transition(StateDisconnected)
	return nil
}

// Subscribe implements §4.E's subscribe contract.
func (g *Gateway) Subscribe(patterns []string) ([]string, error) {
	if !g.isConnectedForSubscribe() {
		return nil, NewError(KindConnectionLost, "cannot subscribe: not connected", nil, nil)
	}
	g.state.transition(StateSubscribing)
	accepted, err := g.subs.subscribe(patterns, g)
	g.metrics.setSubscriptions(g.cfg.GatewayName, g.subs.Count())
	g.state.transition(StateRunning)
	return accepted, err
}

// Unsubscribe implements §4.E's unsubscribe contract.
func (g *Gateway) Unsubscribe(symbols []string) []string {
	removed := g.subs.unsubscribe(symbols, g)
	g.metrics.setSubscriptions(g.cfg.GatewayName, g.subs.Count())
	return removed
}

func (g *Gateway) isConnectedForSubscribe() bool {
	switch g.state.State() {
	case StateConnected, StateSubscribing, StateRunning:
		return true
	default:
		return false
	}
}

// sendSubscribe and sendUnsubscribe satisfy the subscriber interface
// subscriptionRegistry expects (§4.E).
func (g *Gateway) sendSubscribe(symbols []string) error {
	return g.sendSubControl("subscribe", symbols)
}

func (g *Gateway) sendUnsubscribe(symbols []string) error {
	return g.sendSubControl("unsubscribe", symbols)
}

func (g *Gateway) sendSubControl(kind string, symbols []string) error {
	g.mu.Lock()
	conn := g.conn
	g.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("no active connection")
	}
	for _, sym := range symbols {
		data, err := msgpack.Marshal(simFrame{Type: kind, Symbol: sym})
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), frontWriteWait)
		err = conn.writeFrame(ctx, data)
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

// Next polls the ingest pipeline's tick queue (§5's 1-second poll
// contract), returning ok=false on timeout or once Disconnect has been
// called.
func (g *Gateway) Next() (*Tick, bool) {
	return g.ingest.Next(g.stopped)
}

// LatestTick returns the most recently cached tick for symbol.
func (g *Gateway) LatestTick(symbol string) *Tick {
	return g.ring.latest(symbol)
}

// QueueDepth reports the current depth of the ingest dispatch queue.
func (g *Gateway) QueueDepth() int {
	return g.ingest.QueueDepth()
}

// runDispatchLoop is the single-threaded cooperative scheduler described
// in §5: it is the only goroutine that ever touches session state,
// subscription state, the last-seen map, ring buffer, or aggregator
// state. A second goroutine would own the native SDK callback thread in
// the real system; here the frontConn's own goroutine (or, for
// tcpFrontConn, the blocking read itself) plays that role, and this
// loop is where everything the SDK thread hands off actually runs.
func (g *Gateway) runDispatchLoop(conn frontConn) {
	defer g.dispatchWG.Done()

	for {
		select {
		case <-g.stopped:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), frontReadWait)
		data, err := conn.readFrame(ctx)
		cancel()
		if err != nil {
			select {
			case <-g.stopped:
				return
			default:
			}
			g.onConnectionLost(err)
			return
		}

		frame, err := decodeFrame(data)
		if err != nil {
			g.logger.Warnf("discarding malformed frame: %v", err)
			continue
		}
		if frame.Type != "tick" {
			continue
		}
		t := parseTick(frame.Tick, g.cfg.GatewayName)
		g.ingest.process(t)
	}
}

func (g *Gateway) onConnectionLost(cause error) {
	g.logger.Warnf("connection lost: %v", cause)
	g.state.transition(StateReconnecting)
	g.reconnect.start(context.Background())
}
