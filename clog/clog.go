// Package clog provides the pluggable logger used throughout the protocol,
// transport and client packages. No package holds a process-wide logger;
// callers construct a Clog and pass it in explicitly.
package clog

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// LogProvider is the minimal set of levels the protocol stack needs.
type LogProvider interface {
	Critical(format string, v ...interface{})
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// Clog is the internal logging facade. Log output is suppressed unless
// LogMode(true) has been called, so a caller that never opts in pays no
// logging cost and sees no output.
type Clog struct {
	provider LogProvider
	// has is 1 when log output is enabled, 0 when disabled.
	has uint32
}

// NewLogger creates a Clog whose default zerolog-backed provider attaches
// the given component name, as the "component" field, to every record.
func NewLogger(component string) Clog {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", component).Logger()
	return Clog{
		provider: zerologProvider{logger},
		has:      0,
	}
}

// LogMode enables or disables log output.
func (sf *Clog) LogMode(enable bool) {
	if enable {
		atomic.StoreUint32(&sf.has, 1)
	} else {
		atomic.StoreUint32(&sf.has, 0)
	}
}

// SetLogProvider redirects all further log output to p. Tests use this to
// capture log lines for assertions.
func (sf *Clog) SetLogProvider(p LogProvider) {
	if p != nil {
		sf.provider = p
	}
}

// Critical logs a CRITICAL level message.
func (sf Clog) Critical(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Critical(format, v...)
	}
}

// Error logs an ERROR level message.
func (sf Clog) Error(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Error(format, v...)
	}
}

// Warn logs a WARN level message.
func (sf Clog) Warn(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Warn(format, v...)
	}
}

// Debug logs a DEBUG level message.
func (sf Clog) Debug(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Debug(format, v...)
	}
}

// zerologProvider backs the default LogProvider with zerolog instead of the
// standard library logger.
type zerologProvider struct {
	logger zerolog.Logger
}

var _ LogProvider = zerologProvider{}

func (sf zerologProvider) Critical(format string, v ...interface{}) {
	sf.logger.Error().Str("level", "critical").Msg(fmt.Sprintf(format, v...))
}

func (sf zerologProvider) Error(format string, v ...interface{}) {
	sf.logger.Error().Msg(fmt.Sprintf(format, v...))
}

func (sf zerologProvider) Warn(format string, v ...interface{}) {
	sf.logger.Warn().Msg(fmt.Sprintf(format, v...))
}

func (sf zerologProvider) Debug(format string, v ...interface{}) {
	sf.logger.Debug().Msg(fmt.Sprintf(format, v...))
}
