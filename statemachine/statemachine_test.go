package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcejp/devprop/canframe"
	"github.com/mcejp/devprop/manifest"
)

func TestManifestDownload_IdempotentEmit(t *testing.T) {
	d := NewManifestDownload(1)

	f1, ok := d.FrameToSend()
	require.True(t, ok)

	_, ok = d.FrameToSend()
	assert.False(t, ok, "second call without an intervening FrameReceived must return none")

	assert.Equal(t, 0, mustSegment(t, f1))
}

func TestManifestDownload_S5(t *testing.T) {
	// A 20-byte envelope: a 7-byte header declaring 13 body bytes, then the
	// body. ManifestDownload checks only the header, not the hash, so the
	// hash bytes are left zero.
	envelope := append([]byte{0, 0, 0, 0, 13, 0, manifest.DraftCSVZlib}, []byte("0123456789abc")...)
	require.Len(t, envelope, 20)

	d := NewManifestDownload(1)

	rounds := 0
	for !d.IsFinished() {
		rounds++
		require.Less(t, rounds, 100, "safety bound against infinite loop")

		f, ok := d.FrameToSend()
		require.True(t, ok)

		segment := mustSegment(t, f)
		start := segment * canframe.SegmentSize
		end := start + canframe.SegmentSize
		if end > len(envelope) {
			end = len(envelope)
		}

		reply, err := canframe.MakeReadManifestResponse(1, segment, envelope[start:end])
		require.NoError(t, err)

		outcome, err := d.FrameReceived(reply)
		require.NoError(t, err)
		assert.Equal(t, Accepted, outcome)
	}

	assert.Equal(t, 3, rounds)
	assert.Equal(t, envelope, d.Envelope())
}

func TestManifestDownload_RejectsShortNonFinalSegment(t *testing.T) {
	d := NewManifestDownload(1)

	f, ok := d.FrameToSend()
	require.True(t, ok)
	segment := mustSegment(t, f)
	assert.Equal(t, 0, segment)

	// Header alone says the envelope is much bigger than 8 bytes, but this
	// first reply is short.
	header := []byte{0, 0, 0, 0, 20, 0, manifest.DraftCSVZlib}
	reply, err := canframe.MakeReadManifestResponse(1, 0, header[:7])
	require.NoError(t, err)

	_, err = d.FrameReceived(reply)
	assert.Error(t, err)
}

func TestManifestDownload_IgnoresUnrelatedFrames(t *testing.T) {
	d := NewManifestDownload(1)

	unrelated, err := canframe.MakeReadPropertyRequest(2, 5)
	require.NoError(t, err)

	outcome, err := d.FrameReceived(unrelated)
	require.NoError(t, err)
	assert.Equal(t, Ignored, outcome)
}

func TestPropertyQuery_ReadRoundTrip(t *testing.T) {
	q := NewPropertyQuery(3, 9)

	f, ok := q.FrameToSend()
	require.True(t, ok)
	_, ok = q.FrameToSend()
	assert.False(t, ok)

	nodeID, propertyIndex, opcode, dir, err := canframe.Unpack(f.ID)
	require.NoError(t, err)
	assert.Equal(t, canframe.NodeID(3), nodeID)
	assert.Equal(t, 9, propertyIndex)
	assert.Equal(t, canframe.ReadProperty, opcode)
	assert.Equal(t, canframe.ClientToDevice, dir)

	reply, err := canframe.MakeReadPropertyResponse(3, 9, []byte{0x12, 0x34})
	require.NoError(t, err)

	outcome, err := q.FrameReceived(reply)
	require.NoError(t, err)
	assert.Equal(t, Accepted, outcome)
	assert.True(t, q.IsFinished())
	assert.Equal(t, []byte{0x12, 0x34}, q.Value())
}

func TestPropertyQuery_ErrorResponseFailsFast(t *testing.T) {
	q := NewPropertyQuery(3, 9)
	_, _ = q.FrameToSend()

	errFrame, err := canframe.MakeErrorResponse(3, 9, canframe.ReadProperty, canframe.NotImplemented)
	require.NoError(t, err)

	_, err = q.FrameReceived(errFrame)
	require.Error(t, err)
	assert.True(t, q.IsFinished())
}

func mustSegment(t *testing.T, f canframe.Frame) int {
	t.Helper()
	_, propertyIndex, _, _, err := canframe.Unpack(f.ID)
	require.NoError(t, err)
	return propertyIndex
}
