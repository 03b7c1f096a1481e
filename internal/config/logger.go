package config

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapCore is a console core on stderr. Debug entries are only kept in
// development.
func ZapCore(forDevel bool) zapcore.Core {
	levels := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		if forDevel {
			return true
		}
		return lvl > zapcore.DebugLevel
	})
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zapcore.NewCore(encoder, zapcore.AddSync(zapcore.Lock(os.Stderr)), levels)
}

// NewLogger builds the application logger for cfg.
func NewLogger(cfg Config) *zap.SugaredLogger {
	return zap.New(ZapCore(cfg.IsDev())).Sugar()
}
