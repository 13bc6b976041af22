package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTicker lets a test fire the generator loop on demand instead of
// waiting on real time.
type fakeTicker struct {
	c chan time.Time
}

func newFakeTicker(time.Duration) ticker { return &fakeTicker{c: make(chan time.Time, 1)} }

func (f *fakeTicker) C() <-chan time.Time { return f.c }
func (f *fakeTicker) Stop()               {}
func (f *fakeTicker) fire()               { f.c <- time.Now() }

func TestSimFront_RunEmitsOnFakeTickerFire(t *testing.T) {
	f := newSimFront(1)
	f.SetSymbols([]string{"IF2401"})

	var fired *fakeTicker
	f.newTicker = func(d time.Duration) ticker {
		fired = &fakeTicker{c: make(chan time.Time, 1)}
		return fired
	}

	go f.run(time.Hour) // interval irrelevant: the fake ticker is fired manually
	defer f.close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// drain the login_success frame emitted by newSimFront.
	_, err := f.readFrame(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return fired != nil }, time.Second, time.Millisecond)
	fired.fire()

	data, err := f.readFrame(ctx)
	require.NoError(t, err)
	frame, err := decodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, "tick", frame.Type)
	assert.Equal(t, "IF2401", frame.Tick.InstrumentID)
	assert.Equal(t, "SHFE", frame.Tick.ExchangeID)
}
