package gateway

import "github.com/prometheus/client_golang/prometheus"

// Option configures a Gateway at construction time (§4.D).
type Option interface {
	apply(*gatewayOptions)
}

type gatewayOptions struct {
	logger          Logger
	metricsRegistry prometheus.Registerer
	connDialer      func(addr string) (frontConn, error)
	onTick          func(*Tick)
	onDepth         func(*Depth)
	onBar           func(*Bar)
	onAlert         func(level, message string)
}

func defaultGatewayOptions() *gatewayOptions {
	return &gatewayOptions{
		logger:  noopLogger{},
		onTick:  func(*Tick) {},
		onDepth: func(*Depth) {},
		onBar:   func(*Bar) {},
		onAlert: func(string, string) {},
	}
}

type funcOption struct {
	f func(*gatewayOptions)
}

func (fo *funcOption) apply(o *gatewayOptions) { fo.f(o) }

func newFuncOption(f func(*gatewayOptions)) Option {
	return &funcOption{f: f}
}

// WithLogger configures the logger used for all gateway components.
func WithLogger(logger Logger) Option {
	return newFuncOption(func(o *gatewayOptions) {
		o.logger = logger
	})
}

// WithMetricsRegistry configures the prometheus registerer the gateway's
// collectors are registered against. Defaults to the prometheus default
// registry when not set.
func WithMetricsRegistry(reg prometheus.Registerer) Option {
	return newFuncOption(func(o *gatewayOptions) {
		o.metricsRegistry = reg
	})
}

// WithTickHandler registers the fan-out callback invoked for every valid
// tick (§4.F).
func WithTickHandler(handler func(*Tick)) Option {
	return newFuncOption(func(o *gatewayOptions) {
		o.onTick = handler
	})
}

// WithDepthHandler registers a depth callback. The dispatch loop
// processes only tick frames, so no depth updates are delivered and the
// handler is never invoked.
func WithDepthHandler(handler func(*Depth)) Option {
	return newFuncOption(func(o *gatewayOptions) {
		o.onDepth = handler
	})
}

// WithBarHandler registers the callback invoked whenever a bar period
// rolls over (§4.G).
func WithBarHandler(handler func(*Bar)) Option {
	return newFuncOption(func(o *gatewayOptions) {
		o.onBar = handler
	})
}

// WithAlertHandler registers the callback invoked for operational alerts
// (e.g. CRITICAL reconnect-threshold breaches, §4.D).
func WithAlertHandler(handler func(level, message string)) Option {
	return newFuncOption(func(o *gatewayOptions) {
		o.onAlert = handler
	})
}

// withConnDialer overrides how the gateway dials its front connection.
// When it is not given, New chooses the simulated front or a TCP dial
// from Config.UseSimulatedFront.
func withConnDialer(dialer func(addr string) (frontConn, error)) Option {
	return newFuncOption(func(o *gatewayOptions) {
		o.connDialer = dialer
	})
}
