package fixtureserver

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcejp/devprop/canframe"
	"github.com/mcejp/devprop/clog"
)

func TestServeOne_ReadManifestSegment(t *testing.T) {
	envelope := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	s := New(3, envelope, clog.NewLogger("test"))

	req, err := canframe.MakeReadManifestRequest(3, 0)
	require.NoError(t, err)

	resp, ok := s.ServeOne(req)
	require.True(t, ok)
	assert.Equal(t, envelope[0:8], resp.Data)

	req2, err := canframe.MakeReadManifestRequest(3, 1)
	require.NoError(t, err)
	resp2, ok := s.ServeOne(req2)
	require.True(t, ok)
	assert.Equal(t, envelope[8:10], resp2.Data)
}

func TestServeOne_ReadPropertyCachesRandomValue(t *testing.T) {
	s := New(3, nil, clog.NewLogger("test"))

	req, err := canframe.MakeReadPropertyRequest(3, 5)
	require.NoError(t, err)

	resp1, ok := s.ServeOne(req)
	require.True(t, ok)
	resp2, ok := s.ServeOne(req)
	require.True(t, ok)

	assert.Equal(t, resp1.Data, resp2.Data)
}

func TestServeOne_WritePropertyEchoes(t *testing.T) {
	s := New(3, nil, clog.NewLogger("test"))

	payload := make([]byte, 2)
	binary.LittleEndian.PutUint16(payload, 1234)
	req, err := canframe.MakeWritePropertyRequest(3, 5, payload)
	require.NoError(t, err)

	resp, ok := s.ServeOne(req)
	require.True(t, ok)
	assert.Equal(t, payload, resp.Data)

	readReq, err := canframe.MakeReadPropertyRequest(3, 5)
	require.NoError(t, err)
	readResp, ok := s.ServeOne(readReq)
	require.True(t, ok)
	assert.Equal(t, payload, readResp.Data)
}

func TestServeOne_UnknownOpcodeRepliesProtocolError(t *testing.T) {
	s := New(3, nil, clog.NewLogger("test"))

	req, err := canframe.MakeErrorResponse(3, 5, canframe.ReadProperty, canframe.GenericError)
	require.NoError(t, err)
	// Flip direction to make it look like a client request with the ERROR
	// opcode, which the server does not implement as a request type.
	id, _, _, _, err := canframe.Unpack(req.ID)
	require.NoError(t, err)
	reqID, err := canframe.MakeFrameID(id, 5, canframe.OpcodeError, canframe.ClientToDevice)
	require.NoError(t, err)
	req = canframe.Frame{ID: reqID, Data: []byte{}}

	resp, ok := s.ServeOne(req)
	require.True(t, ok)

	_, propertyIndex, opcode, dir, err := canframe.Unpack(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, canframe.OpcodeError, opcode)
	assert.Equal(t, canframe.DeviceToClient, dir)
	assert.Equal(t, 5, propertyIndex)
	assert.Equal(t, canframe.ProtocolError, canframe.ErrorCode(resp.Data[1]))
}

func TestServeOne_IgnoresOtherNodes(t *testing.T) {
	s := New(3, nil, clog.NewLogger("test"))

	req, err := canframe.MakeReadPropertyRequest(9, 5)
	require.NoError(t, err)

	_, ok := s.ServeOne(req)
	assert.False(t, ok)
}
