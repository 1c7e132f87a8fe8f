package serialcan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcejp/devprop/internal/cobs"
	"github.com/mcejp/devprop/internal/crc16"
)

func buildEncodedFrame(id uint32, data []byte) []byte {
	header := []byte{byte(id), byte(id >> 8), byte(id >> 16), byte(id >> 24)}
	payload := append(append([]byte{}, header...), data...)
	crc := crc16.Kermit(payload)
	payload = append(payload, byte(crc), byte(crc>>8))
	return cobs.Encode(payload)
}

func TestDecodeFrame_RoundTrip(t *testing.T) {
	encoded := buildEncodedFrame(0x1EF12903, []byte{1, 2, 3})

	f, ok := decodeFrame(encoded)
	require.True(t, ok)
	assert.Equal(t, uint32(0x1EF12903), f.ID)
	assert.Equal(t, []byte{1, 2, 3}, f.Data)
}

func TestDecodeFrame_RejectsBadCRC(t *testing.T) {
	encoded := buildEncodedFrame(0x1EF12903, []byte{1, 2, 3})
	// Invert every bit of the last encoded byte to corrupt the CRC.
	encoded[len(encoded)-1] ^= 0xFF

	_, ok := decodeFrame(encoded)
	assert.False(t, ok)
}

func TestDecodeFrame_RejectsTooShort(t *testing.T) {
	_, ok := decodeFrame([]byte{0x01, 0x02})
	assert.False(t, ok)
}

func TestIndexByte(t *testing.T) {
	assert.Equal(t, 2, indexByte([]byte{1, 2, 0, 3}, 0))
	assert.Equal(t, -1, indexByte([]byte{1, 2, 3}, 0))
}
