package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextInterval_ExponentialSequenceCappedAtMax(t *testing.T) {
	// initial 1s, multiplier 2, max 60s: 1,2,4,8,16,32,60,60,60,60
	expected := []time.Duration{
		2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
		32 * time.Second, 60 * time.Second, 60 * time.Second, 60 * time.Second, 60 * time.Second,
	}

	interval := time.Second
	for _, want := range expected {
		interval = nextInterval(interval, 2.0, 60*time.Second)
		assert.Equal(t, want, interval)
	}
}

func TestReconnectLoop_ExhaustionRaisesReconnectExhausted(t *testing.T) {
	var alertLevel, alertMsg string
	gw := &Gateway{
		cfg:   Config{GatewayName: "test-gateway"},
		opts:  &gatewayOptions{onAlert: func(level, msg string) { alertLevel, alertMsg = level, msg }},
		state: newStateMachine(noopLogger{}),
	}

	cfg := defaultReconnectConfig()
	cfg.MaxAttempts = 1
	r := newReconnectLoop(gw, cfg, noopLogger{}, nil)
	r.attempt = 1 // already at the ceiling: the next increment exhausts immediately

	r.run(context.Background())

	assert.Equal(t, StateError, gw.State())
	assert.Equal(t, "CRITICAL", alertLevel)
	assert.Contains(t, alertMsg, "RECONNECT_EXHAUSTED")
}

func TestReconnectLoop_ResetRestoresInitialInterval(t *testing.T) {
	cfg := defaultReconnectConfig()
	r := newReconnectLoop(nil, cfg, noopLogger{}, nil)
	r.interval = 32 * time.Second
	r.attempt = 5

	r.reset()
	assert.Equal(t, cfg.InitialInterval, r.interval)
	assert.Equal(t, 0, r.attempt)
}
