package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCTPConfig() Config {
	cfg := DefaultConfig()
	cfg.GatewayName = "test-gateway"
	cfg.CTP = &CtpConfig{
		BrokerID:   "9999",
		InvestorID: "12345",
		Password:   "secret",
		FrontAddr:  "tcp://180.168.146.187:10131",
	}
	return cfg
}

func TestConfig_ValidDefaultsPass(t *testing.T) {
	cfg := validCTPConfig()
	require.NoError(t, cfg.Validate())
}

func TestConfig_MissingCTPSectionRejected(t *testing.T) {
	cfg := validCTPConfig()
	cfg.CTP = nil
	assert.Error(t, cfg.Validate())
}

func TestConfig_MalformedFrontAddrRejected(t *testing.T) {
	cfg := validCTPConfig()
	cfg.CTP.FrontAddr = "180.168.146.187:10131" // missing tcp:// scheme
	assert.Error(t, cfg.Validate())
}

func TestConfig_MaxSubscriptionsOutOfRangeRejected(t *testing.T) {
	cfg := validCTPConfig()
	cfg.MaxSubscriptions = 0
	assert.Error(t, cfg.Validate())

	cfg.MaxSubscriptions = 5001
	assert.Error(t, cfg.Validate())
}

func TestConfig_ReconnectMultiplierOutOfRangeRejected(t *testing.T) {
	cfg := validCTPConfig()
	cfg.Reconnect.Multiplier = 1.0
	assert.Error(t, cfg.Validate())
}

func TestConfig_IBGatewayTypeReserved(t *testing.T) {
	cfg := validCTPConfig()
	cfg.GatewayType = GatewayIB
	assert.Error(t, cfg.Validate())
}
