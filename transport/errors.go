package transport

import "errors"

// ErrTimeout is returned by Receive when the deadline passes with no frame
// observed.
var ErrTimeout = errors.New("transport: timeout")

// ErrTransport wraps any transport-level I/O failure (serial read/write
// errors, closed handle, device disconnect). It is fatal for the
// operation in progress.
var ErrTransport = errors.New("transport: transport error")
