// Package busdsn resolves a bus connection string into a concrete
// transport, the same way the rest of this module's CLI front-ends pick a
// transport without hard-coding one into every command.
package busdsn

import (
	"fmt"
	"strings"

	"github.com/mcejp/devprop/clog"
	"github.com/mcejp/devprop/config"
	"github.com/mcejp/devprop/transport"
	"github.com/mcejp/devprop/transport/ocarina"
	"github.com/mcejp/devprop/transport/serialcan"
)

// Open resolves a bus DSN of the form "scheme:parameters" into a
// transport. Recognized schemes are "ocarina" and "serialcan", both
// taking a serial port path as their parameter. An empty dsn is an error:
// unlike the original tool, this module does not probe for a default
// adapter, since there is no single obvious default across platforms.
func Open(dsn string, cfg config.ClientConfig, log clog.Clog) (transport.Transport, error) {
	if dsn == "" {
		return nil, fmt.Errorf("busdsn: no bus specified, expected \"ocarina:<port>\" or \"serialcan:<port>\"")
	}

	scheme, parameter, ok := strings.Cut(dsn, ":")
	if !ok {
		return nil, fmt.Errorf("busdsn: malformed bus DSN %q, expected \"scheme:parameters\"", dsn)
	}

	switch scheme {
	case "ocarina":
		return ocarina.Open(parameter, cfg.OcarinaQueueCapacity, log)
	case "serialcan":
		return serialcan.Open(parameter, log)
	default:
		return nil, fmt.Errorf("busdsn: unknown transport %q", scheme)
	}
}
