// Package logger wraps zerolog with the printf-style helpers the rest of
// the codebase was written against (Infof, Warnf, Errorf, Debugf).
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	base zerolog.Logger
	once sync.Once
)

func root() zerolog.Logger {
	once.Do(func() {
		var w io.Writer = os.Stdout
		if os.Getenv("HUNTER_LOG_FORMAT") != "json" {
			w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		}
		level := zerolog.InfoLevel
		if lv, err := zerolog.ParseLevel(os.Getenv("HUNTER_LOG_LEVEL")); err == nil {
			level = lv
		}
		base = zerolog.New(w).Level(level).With().Timestamp().Logger()
	})
	return base
}

// Logger is a named sub-logger, typically scoped to one agent or component.
type Logger struct {
	z zerolog.Logger
}

// New returns the unscoped root logger.
func New() *Logger {
	return &Logger{z: root()}
}

// With returns a sub-logger tagged with a component/agent name.
func With(component string) *Logger {
	return &Logger{z: root().With().Str("component", component).Logger()}
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.z.Debug().Msgf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.z.Info().Msgf(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.z.Warn().Msgf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.z.Error().Msgf(format, args...) }

// package-level convenience wrappers for call sites that don't need a
// scoped component, matching the teacher's bare `logger.Infof(...)` style.
func Debugf(format string, args ...interface{}) { root().Debug().Msgf(format, args...) }
func Infof(format string, args ...interface{})  { root().Info().Msgf(format, args...) }
func Warnf(format string, args ...interface{})  { root().Warn().Msgf(format, args...) }
func Errorf(format string, args ...interface{}) { root().Error().Msgf(format, args...) }
