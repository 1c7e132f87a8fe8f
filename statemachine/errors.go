package statemachine

import "errors"

// ErrProtocol wraps every malformed-frame / malformed-envelope failure a
// state machine can report. Use errors.Is to detect it regardless of the
// specific message attached.
var ErrProtocol = errors.New("protocol error")
