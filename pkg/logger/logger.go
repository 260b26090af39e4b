// Package logger is the process wide structured logger. Call sites pass a
// message followed by alternating key/value pairs.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/luxfi/srup/pkg/utils"
)

const EnvProduction = "production"

var (
	mu  sync.RWMutex
	log = zerolog.New(utils.ZerologConsoleWriter(os.Stderr)).With().Timestamp().Logger()
)

// Init configures the global logger. Production writes JSON, every other
// environment writes console output.
func Init(environment string, debug bool) {
	var out io.Writer = utils.ZerologConsoleWriter(os.Stderr)
	if environment == EnvProduction {
		out = os.Stderr
	}
	SetOutput(out, debug)
	Debug("Logger initialized", "environment", environment)
}

// SetOutput redirects the global logger to w.
func SetOutput(w io.Writer, debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	mu.Lock()
	log = zerolog.New(w).Level(level).With().Timestamp().Logger()
	mu.Unlock()
}

// NewLogger returns a child logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log.With().Str("component", component).Logger()
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := log
	return &l
}

func withFields(e *zerolog.Event, keyValues []interface{}) *zerolog.Event {
	for i := 0; i < len(keyValues); i += 2 {
		key := fmt.Sprint(keyValues[i])
		if i+1 >= len(keyValues) {
			e = e.Interface(key, nil)
			break
		}
		e = e.Interface(key, keyValues[i+1])
	}
	return e
}

func Debug(msg string, keyValues ...interface{}) {
	withFields(current().Debug(), keyValues).Msg(msg)
}

func Info(msg string, keyValues ...interface{}) {
	withFields(current().Info(), keyValues).Msg(msg)
}

func Warn(msg string, keyValues ...interface{}) {
	withFields(current().Warn(), keyValues).Msg(msg)
}

// Error logs err (which may be nil) with the given fields.
func Error(msg string, err error, keyValues ...interface{}) {
	withFields(current().Error().Err(err), keyValues).Msg(msg)
}

// Fatal logs and exits the process.
func Fatal(msg string, err error, keyValues ...interface{}) {
	withFields(current().Fatal().Err(err), keyValues).Msg(msg)
}
