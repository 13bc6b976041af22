package gateway

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway_UnsubscribeClearsLastSeenAndBars(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GatewayName = "test-gateway"
	cfg.UseSimulatedFront = true
	cfg.CTP = &CtpConfig{
		BrokerID:   "9999",
		InvestorID: "12345",
		Password:   "secret",
		FrontAddr:  "tcp://127.0.0.1:1",
	}

	g, err := New(cfg)
	require.NoError(t, err)

	const symbol = "IF2401"
	tk := NewTick(Tick{Symbol: symbol, Exchange: "CFFEX", Timestamp: time.Now().UTC(), LastPrice: decimal.NewFromInt(100), Volume: 1})
	g.ingest.process(tk)
	g.bars.onTick(tk)

	_, hasLastSeen := g.ingest.lastSeen[symbol]
	require.True(t, hasLastSeen)
	require.Contains(t, g.bars.inProgress, barKey{symbol: symbol, period: Period1Min})

	g.subs.onRemove(symbol)

	_, hasLastSeen = g.ingest.lastSeen[symbol]
	assert.False(t, hasLastSeen)
	for key := range g.bars.inProgress {
		assert.NotEqual(t, symbol, key.symbol)
	}
}
