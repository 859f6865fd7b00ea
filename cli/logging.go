package cli

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the verbose diagnostic channel used by rowql's ambient
// logging section, independent of the single-line stderr error contract
// every fatal condition still uses. When logFile is empty, output goes to
// stderr; otherwise a rotating lumberjack.Logger backs it.
func NewLogger(verbose bool, logFile string) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	encoder := zapcore.NewConsoleEncoder(cfg)

	var ws zapcore.WriteSyncer
	if logFile == "" {
		ws = zapcore.Lock(zapcore.AddSync(os.Stderr))
	} else {
		ws = zapcore.AddSync(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	core := zapcore.NewCore(encoder, ws, zapcore.DebugLevel)
	return zap.New(core), nil
}
