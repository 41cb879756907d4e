package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"crmgate/internal/config"
)

// New собирает логгер: консоль (человекочитаемо или JSON) и, если задан файл, ротация через lumberjack.
func New(cfg config.LogConfig, console io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), err
		}
		level = l
	}

	var out io.Writer = console
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}
	}
	if cfg.File != "" {
		// в файл всегда JSON
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		out = zerolog.MultiLevelWriter(out, file)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// Init ставит глобальный логгер zerolog/log.
func Init(cfg config.LogConfig) error {
	l, err := New(cfg, os.Stderr)
	if err != nil {
		return err
	}
	log.Logger = l
	zerolog.SetGlobalLevel(l.GetLevel())
	return nil
}
