// internal/logger/pretty.go
package logger

import (
	"go.uber.org/zap/zapcore"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiBold   = "\033[1m"
)

var levelColors = map[zapcore.Level]string{
	zapcore.DebugLevel:  ansiCyan,
	zapcore.InfoLevel:   ansiGreen,
	zapcore.WarnLevel:   ansiYellow,
	zapcore.ErrorLevel:  ansiRed,
	zapcore.DPanicLevel: ansiRed + ansiBold,
	zapcore.PanicLevel:  ansiRed + ansiBold,
	zapcore.FatalLevel:  ansiRed + ansiBold,
}

// PrettyEncoder is the colored console encoder used for interactive runs:
// short clock, bracketed level, no caller.
func PrettyEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    colorLevel,
		EncodeTime:     zapcore.TimeEncoderOfLayout("15:04:05.000"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	})
}

func colorLevel(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	tag := "[" + level.CapitalString() + "]"
	if c, ok := levelColors[level]; ok {
		tag = c + tag + ansiReset
	}
	enc.AppendString(tag)
}

// ShortenAddress сокращает base58 адрес до вида abcd...wxyz
func ShortenAddress(addr string) string {
	if len(addr) <= 11 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}
