// Package diag provides the package-level structured logger shared by the
// extractor, translators, and orchestration layer. It wraps go.uber.org/zap
// the way the rest of the example pack does, giving this core an ambient
// logging layer the teacher itself never needed (db47h-ngaro logs nothing
// beyond bare fmt.Fprintf in its CLI).
package diag

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	atom    = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	base    = newLogger()
	Log     = base.Sugar()
)

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = atom
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		// zap's development config build only fails on malformed encoder
		// config, which is a constant here; fall back to a no-op logger
		// rather than panic from a diagnostics package.
		return zap.NewNop()
	}
	return l
}

// SetVerbose raises or lowers the effective log level. CLIs call this once,
// from their -v flag, before running a pipeline.
func SetVerbose(v bool) {
	if v {
		atom.SetLevel(zapcore.DebugLevel)
		return
	}
	atom.SetLevel(zapcore.WarnLevel)
}
