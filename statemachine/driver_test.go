package statemachine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcejp/devprop/canframe"
	"github.com/mcejp/devprop/transport"
)

// loopbackTransport answers a property read with a canned value, ignoring
// timing — enough to exercise Drive without a real bus.
type loopbackTransport struct {
	sent  []canframe.Frame
	reply canframe.Frame
	used  bool
}

func (lt *loopbackTransport) Send(f canframe.Frame) error {
	lt.sent = append(lt.sent, f)
	return nil
}

func (lt *loopbackTransport) Receive(deadline time.Time) (canframe.Frame, error) {
	if lt.used {
		return canframe.Frame{}, transport.ErrTimeout
	}
	lt.used = true
	return lt.reply, nil
}

func (lt *loopbackTransport) Close() error { return nil }

func TestDrive_CompletesPropertyQuery(t *testing.T) {
	reply, err := canframe.MakeReadPropertyResponse(1, 4, []byte{0x01})
	require.NoError(t, err)

	lt := &loopbackTransport{reply: reply}
	q := NewPropertyQuery(1, 4)

	err = Drive(lt, q, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.True(t, q.IsFinished())
	assert.Len(t, lt.sent, 1)
}

func TestDrive_TimesOut(t *testing.T) {
	lt := &loopbackTransport{}
	q := NewPropertyQuery(1, 4)

	err := Drive(lt, q, time.Now().Add(-time.Second))
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrTimeout)
}
