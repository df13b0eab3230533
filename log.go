package ctm

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	logger    atomic.Pointer[zap.Logger]
	nopLogger = zap.NewNop()
)

// Logger returns the package logger, a no-op logger unless SetLogger was called.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return nopLogger
}

// SetLogger configures the package logger. It is safe to call while imports
// or verifications run.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = nopLogger
	}
	logger.Store(l)
}
