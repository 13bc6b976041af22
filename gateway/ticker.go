package gateway

import "time"

// ticker abstracts time.Ticker so the simulated front's tick generator
// (simFront.run) can be driven by a fake in tests.
type ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

var _ ticker = (*timeTicker)(nil)

func newTicker(d time.Duration) ticker {
	return &timeTicker{t: time.NewTicker(d)}
}

func (t *timeTicker) C() <-chan time.Time { return t.t.C }
func (t *timeTicker) Stop()               { t.t.Stop() }
