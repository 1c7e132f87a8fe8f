package statemachine

import (
	"fmt"
	"time"

	"github.com/mcejp/devprop/transport"
)

// Drive steps sm to completion against tp, sending at most one frame per
// iteration and asserting the idempotent-emit invariant after every send.
// It fails with an error wrapping transport.ErrTimeout if deadline passes
// before sm.IsFinished().
func Drive(tp transport.Transport, sm StateMachine, deadline time.Time) error {
	for !sm.IsFinished() {
		if !time.Now().Before(deadline) {
			return fmt.Errorf("statemachine: deadline exceeded: %w", transport.ErrTimeout)
		}

		if f, ok := sm.FrameToSend(); ok {
			if err := tp.Send(f); err != nil {
				return fmt.Errorf("statemachine: sending frame: %w", err)
			}

			if _, ok := sm.FrameToSend(); ok {
				panic("statemachine: FrameToSend is not idempotent: emitted a second frame with no intervening FrameReceived")
			}
		}

		f, err := tp.Receive(deadline)
		if err != nil {
			return err
		}

		if _, err := sm.FrameReceived(f); err != nil {
			return err
		}
	}

	return nil
}
