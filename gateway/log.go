package gateway

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging contract the gateway writes through. Every
// component (connection manager, reconnect loop, subscription registry,
// ingest pipeline) logs exclusively through this interface so that a
// caller embedding the gateway in a larger service can route its output
// anywhere: zap, logrus, a test recorder, or nowhere at all.
type Logger interface {
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	// Criticalf is used by the reconnect loop once the consecutive-failure
	// counter reaches the configured alert threshold, and on every failure
	// after that (§4.D, §7).
	Criticalf(format string, v ...interface{})
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

var _ Logger = (*zapLogger)(nil)

func (l *zapLogger) Infof(format string, v ...interface{})     { l.sugar.Infof(format, v...) }
func (l *zapLogger) Warnf(format string, v ...interface{})     { l.sugar.Warnf(format, v...) }
func (l *zapLogger) Errorf(format string, v ...interface{})    { l.sugar.Errorf(format, v...) }
func (l *zapLogger) Criticalf(format string, v ...interface{}) { l.sugar.Errorf("CRITICAL: "+format, v...) }

// NewLogger returns the default production Logger: JSON-encoded, written
// to stderr, with the gateway name attached to every line.
func NewLogger(gatewayName string) Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		// Falling back to a no-op core rather than panicking: logging
		// failing to initialize must never prevent the gateway from
		// running.
		l = zap.NewNop()
	}
	return &zapLogger{sugar: l.Sugar().With("gateway", gatewayName)}
}

// NewDevelopmentLogger returns a human-readable console logger, useful
// for local runs of cmd/gatewayd and for examples.
func NewDevelopmentLogger(gatewayName string) Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(os.Stderr),
		zapcore.DebugLevel,
	)
	return &zapLogger{sugar: zap.New(core).Sugar().With("gateway", gatewayName)}
}

// noopLogger discards everything; used as the zero-value default so a
// Gateway constructed without WithLogger never nil-panics.
type noopLogger struct{}

func (noopLogger) Infof(string, ...interface{})     {}
func (noopLogger) Warnf(string, ...interface{})     {}
func (noopLogger) Errorf(string, ...interface{})    {}
func (noopLogger) Criticalf(string, ...interface{}) {}
