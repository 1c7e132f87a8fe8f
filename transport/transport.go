// Package transport defines the abstract frame transport that every
// concrete bus adapter (Ocarina USB-serial, COBS/CRC serial-wrapped CAN)
// implements, and that the state-machine driver and client facade consume
// without knowing which concrete transport is underneath.
package transport

import (
	"time"

	"github.com/mcejp/devprop/canframe"
)

// Transport is a duplex of atomic bus frames. Frames are delivered whole;
// a Transport never filters by ID, so all frames observed on the bus are
// returned to Receive regardless of which state machine eventually
// consumes them.
type Transport interface {
	// Send transmits a frame. It fails with an error wrapping ErrTransport
	// on any underlying I/O failure.
	Send(f canframe.Frame) error

	// Receive blocks until a frame arrives or deadline passes, whichever
	// comes first. On timeout it fails with an error wrapping ErrTimeout;
	// any bytes already buffered inside the transport remain for the next
	// call.
	Receive(deadline time.Time) (canframe.Frame, error)

	// Close releases the underlying handle. It is idempotent.
	Close() error
}
