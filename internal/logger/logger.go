package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New создаёт JSON-логгер для режима release и цветной консольный для остальных.
func New(mode string) (*zap.Logger, error) {
	var config zap.Config

	if mode == "release" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return config.Build()
}

// Sync сбрасывает буферы логгера, ошибку синхронизации stderr игнорирует.
func Sync(log *zap.Logger) {
	if log != nil {
		_ = log.Sync()
	}
}
