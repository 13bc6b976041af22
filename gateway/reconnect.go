package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/ctpmd/gateway/internal/ctxtime"
)

// reconnectLoop implements §4.D's exponential-backoff reconnect
// algorithm: interval sequence min(initial*multiplier^k, max), an
// alert fired once the consecutive-failure count reaches
// alert_threshold (and on every failure after that), and an optional
// max_attempts ceiling (0 = retry forever).
type reconnectLoop struct {
	gw      *Gateway
	cfg     ReconnectConfig
	logger  Logger
	metrics *metrics

	mu       sync.Mutex
	attempt  int
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func newReconnectLoop(gw *Gateway, cfg ReconnectConfig, logger Logger, m *metrics) *reconnectLoop {
	return &reconnectLoop{
		gw:       gw,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		interval: cfg.InitialInterval,
	}
}

// reset restores the failure counter and interval to their initial
// values, called after every successful (re)connect (§4.D).
func (r *reconnectLoop) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempt = 0
	r.interval = r.cfg.InitialInterval
}

// cancel stops an in-flight reconnect attempt and awaits its
// termination, used by Disconnect (§4.D, §5).
func (r *reconnectLoop) cancel() {
	r.mu.Lock()
	cancelFn := r.cancel
	done := r.done
	r.mu.Unlock()
	if cancelFn == nil {
		return
	}
	cancelFn()
	if done != nil {
		<-done
	}
}

// start runs the reconnect loop until it either succeeds (restoring the
// prior subscriptions and transitioning RUNNING), is cancelled by
// Disconnect, or exhausts max_attempts.
func (r *reconnectLoop) start(parent context.Context) {
	ctx, cancelFn := context.WithCancel(parent)
	done := make(chan struct{})

	r.mu.Lock()
	r.cancel = cancelFn
	r.done = done
	r.mu.Unlock()

	go func() {
		defer close(done)
		r.run(ctx)
	}()
}

func (r *reconnectLoop) run(ctx context.Context) {
	for {
		r.mu.Lock()
		r.attempt++
		attempt := r.attempt
		interval := r.interval
		r.mu.Unlock()

		if r.cfg.MaxAttempts > 0 && attempt > r.cfg.MaxAttempts {
			exhausted := NewError(KindReconnectExhausted, "reconnect attempts exhausted", map[string]interface{}{
				"attempts": attempt - 1,
				"interval": interval.String(),
			}, nil)
			r.logger.Errorf("%v", exhausted)
			r.gw.state.transition(StateError)
			// §6's reconnect_total{result} label set is closed to
			// success/failure; exhaustion is the terminal failure, not a
			// third outcome.
			r.metrics.recordReconnect(r.gw.cfg.GatewayName, "failure")
			r.gw.opts.onAlert("CRITICAL", exhausted.Error())
			return
		}

		r.logger.Warnf("reconnect attempt %d, interval %s", attempt, interval)
		if attempt >= r.cfg.AlertThreshold {
			r.alert(attempt, interval)
		}

		if err := ctxtime.Sleep(ctx, interval); err != nil {
			return // cancelled by Disconnect
		}

		if r.attemptOnce(ctx) {
			r.metrics.recordReconnect(r.gw.cfg.GatewayName, "success")
			return
		}
		r.metrics.recordReconnect(r.gw.cfg.GatewayName, "failure")

		r.mu.Lock()
		r.interval = nextInterval(r.interval, r.cfg.Multiplier, r.cfg.MaxInterval)
		r.mu.Unlock()
	}
}

func (r *reconnectLoop) alert(attempt int, interval time.Duration) {
	msg := "CTP gateway reconnect failing repeatedly"
	r.logger.Criticalf("%s: gateway=%s attempt=%d interval=%s", msg, r.gw.cfg.GatewayName, attempt, interval)
	r.gw.opts.onAlert("CRITICAL", msg)
}

// attemptOnce performs one reconnect attempt: dial, login, restore
// subscriptions, transition RUNNING. Returns true on success.
func (r *reconnectLoop) attemptOnce(ctx context.Context) bool {
	connectCtx, cancelFn := context.WithTimeout(ctx, r.gw.cfg.ConnectTimeout)
	defer cancelFn()

	conn, loginErr, err := r.gw.dial(connectCtx)
	if err != nil || loginErr != nil {
		if err != nil {
			r.logger.Warnf("reconnect dial failed: %v", err)
		} else {
			r.logger.Warnf("reconnect login failed: %v", loginErr)
		}
		return false
	}

	r.gw.mu.Lock()
	r.gw.conn = conn
	r.gw.connectedAt = time.Now().UTC()
	r.gw.mu.Unlock()

	r.gw.state.transition(StateConnected)
	r.reset()

	snapshot := r.gw.subs.Snapshot()
	if len(snapshot) > 0 {
		if _, err := r.gw.subs.restoreSnapshot(snapshot, r.gw); err != nil {
			r.logger.Errorf("failed to restore subscriptions after reconnect: %v", err)
		}
	}

	r.gw.state.transition(StateRunning)

	r.gw.dispatchWG.Add(1)
	go r.gw.runDispatchLoop(conn)

	return true
}

// nextInterval computes min(interval*multiplier, max), the backoff
// step used on every failed attempt (§4.D).
func nextInterval(interval time.Duration, multiplier float64, max time.Duration) time.Duration {
	next := time.Duration(float64(interval) * multiplier)
	if next > max {
		return max
	}
	if next <= 0 {
		return max
	}
	return next
}
