// Package logging собирает корневой zap-логгер сервиса expedition.
// Каждая запись несёт service и version, компоненты получают именованных потомков.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Log struct {
	Base   *zap.Logger
	// Level можно менять на лету, не пересобирая логгер.
	Level  zap.AtomicLevel
	Closer func()
}

// Init — в prod JSON для сборщика логов, иначе консоль. Неизвестный уровень — info.
func Init(level, env, version string) (*Log, error) {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg := zap.NewDevelopmentConfig()
	if strings.EqualFold(env, "prod") {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = lvl
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build(
		zap.AddStacktrace(zap.ErrorLevel),
		zap.Fields(zap.String("service", "expedition"), zap.String("version", version)),
	)
	if err != nil {
		return nil, err
	}
	return &Log{Base: base, Level: lvl, Closer: func() { _ = base.Sync() }}, nil
}

// Component — логгер подсистемы: trips, calendar, bot, http.
func (l *Log) Component(name string) *zap.Logger { return l.Base.Named(name) }
