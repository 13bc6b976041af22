package gateway

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_RendersKindName(t *testing.T) {
	err := NewError(KindConnectionLost, "front disconnected", nil, nil)
	assert.Equal(t, "[CONNECTION_LOST] front disconnected", err.Error())
}

func TestError_IsMatchesByKind(t *testing.T) {
	err := NewError(KindAuthFailed, "bad password", nil, nil)
	assert.True(t, errors.Is(err, ErrAuthFailed))
	assert.False(t, errors.Is(err, ErrConnectionLost))
}

func TestError_UnwrapExposesCause(t *testing.T) {
	cause := errors.New("socket reset")
	err := NewError(KindConnectionFailed, "dial failed", nil, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestError_ContextIsSanitizedAndCopied(t *testing.T) {
	err := NewError(KindAuthFailed, "login failed", map[string]interface{}{
		"password": "hunter2",
		"host":     "tcp://10.0.0.1:41205",
	}, nil)

	ctx := err.Context()
	assert.Equal(t, RedactedPlaceholder, ctx["password"])
	assert.Equal(t, "tcp://10.0.0.1:41205", ctx["host"])

	ctx["host"] = "mutated"
	assert.Equal(t, "tcp://10.0.0.1:41205", err.Context()["host"])
}

func TestError_ToMap(t *testing.T) {
	err := NewError(KindSubscriptionLimitExceeded, "too many symbols", map[string]interface{}{
		"max": 1000,
	}, nil)
	m := err.ToMap()
	assert.Equal(t, int(KindSubscriptionLimitExceeded), m["error_code"])
	assert.Equal(t, "SUBSCRIPTION_LIMIT_EXCEEDED", m["error_name"])
	assert.Nil(t, m["cause"])
}
