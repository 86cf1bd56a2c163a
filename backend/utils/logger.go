package utils

import (
	"io"
	"log/slog"
	"os"
)

// LoggerConfig определяет конфигурацию для логгера
type LoggerConfig struct {
	// Формат логов (text/json)
	Format string
	// Выходной поток (os.Stdout, файл и т.д.)
	Output io.Writer
	Level  slog.Level
	// Добавлять файл и строку вызова
	AddSource bool
}

// InitLogger builds the process logger and installs it as the slog default.
func InitLogger(config ...LoggerConfig) *slog.Logger {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	logger := slog.New(handler).With(slog.String("app", "mathboard"))
	slog.SetDefault(logger)
	return logger
}
