// Package config defines the client's ambient timing and resource
// configuration, following the same default-then-validate convention used
// elsewhere in this module's lineage: zero fields are filled with a
// documented default, explicitly set fields are range-checked.
package config

import (
	"errors"
	"time"
)

// defines a ClientConfig configuration range
const (
	// "t_d" default request/response budget, range [1ms, 60s] default 1s.
	DefaultTimeoutMin = 1 * time.Millisecond
	DefaultTimeoutMax = 60 * time.Second

	// "t_e" default enumerate_nodes collection window, range [1ms, 60s] default 1s.
	EnumerateTimeoutMin = 1 * time.Millisecond
	EnumerateTimeoutMax = 60 * time.Second

	// "q" Ocarina decoder event queue capacity, range [1, 65535] default 256.
	OcarinaQueueCapacityMin = 1
	OcarinaQueueCapacityMax = 65535

	// "r" additional transport_error retries before surfacing, range [0, 16] default 0.
	TransportRetriesMin = 0
	TransportRetriesMax = 16
)

// ClientConfig carries the timing and resource knobs shared by the client
// facade and the transports it drives. The default is applied for each
// unspecified value.
type ClientConfig struct {
	// DefaultTimeout is the request/response budget used when a caller does
	// not pass an explicit timeout to GetProperty/SetProperty.
	// "t_d" range [1ms, 60s], default 1s.
	DefaultTimeout time.Duration

	// EnumerateTimeout is the default broadcast reply collection window for
	// EnumerateNodes.
	// "t_e" range [1ms, 60s], default 1s.
	EnumerateTimeout time.Duration

	// OcarinaQueueCapacity bounds the Ocarina decoder's event channel.
	// Once full, the decoder drops the oldest queued event rather than
	// blocking the serial read loop.
	// "q" range [1, 65535], default 256.
	OcarinaQueueCapacity int

	// TransportRetries is the number of additional attempts made after a
	// transport_error before it is surfaced to the caller. Zero disables
	// retrying.
	// "r" range [0, 16], default 0.
	TransportRetries int
}

// Valid applies the default for each unspecified value and range-checks
// every explicitly set value.
func (sf *ClientConfig) Valid() error {
	if sf == nil {
		return errors.New("invalid pointer")
	}

	if sf.DefaultTimeout == 0 {
		sf.DefaultTimeout = time.Second
	} else if sf.DefaultTimeout < DefaultTimeoutMin || sf.DefaultTimeout > DefaultTimeoutMax {
		return errors.New(`DefaultTimeout "t_d" not in [1ms, 60s]`)
	}

	if sf.EnumerateTimeout == 0 {
		sf.EnumerateTimeout = time.Second
	} else if sf.EnumerateTimeout < EnumerateTimeoutMin || sf.EnumerateTimeout > EnumerateTimeoutMax {
		return errors.New(`EnumerateTimeout "t_e" not in [1ms, 60s]`)
	}

	if sf.OcarinaQueueCapacity == 0 {
		sf.OcarinaQueueCapacity = 256
	} else if sf.OcarinaQueueCapacity < OcarinaQueueCapacityMin || sf.OcarinaQueueCapacity > OcarinaQueueCapacityMax {
		return errors.New(`OcarinaQueueCapacity "q" not in [1, 65535]`)
	}

	if sf.TransportRetries < TransportRetriesMin || sf.TransportRetries > TransportRetriesMax {
		return errors.New(`TransportRetries "r" not in [0, 16]`)
	}

	return nil
}

// DefaultConfig returns the default ClientConfig.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		DefaultTimeout:       time.Second,
		EnumerateTimeout:     time.Second,
		OcarinaQueueCapacity: 256,
		TransportRetries:     0,
	}
}
