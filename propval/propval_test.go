package propval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_S6(t *testing.T) {
	physical, inRange, err := Decode(Uint16, []byte{0x34, 0x12}, 100, 0.1, 100, 6653.5)
	require.NoError(t, err)
	assert.True(t, inRange)
	assert.InDelta(t, 566.0, physical, 1e-9)
}

func TestEncode_S6(t *testing.T) {
	raw, err := Encode(Uint16, 566.0, 100, 0.1, 100, 6653.5)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x34, 0x12}, raw)
}

func TestDecodeEncode_S7_Signed(t *testing.T) {
	physical, inRange, err := Decode(Int8, []byte{0xF0}, 0, 1, -100, 100)
	require.NoError(t, err)
	assert.True(t, inRange)
	assert.Equal(t, -16.0, physical)

	raw, err := Encode(Int8, -16, 0, 1, -100, 100)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF0}, raw)
}

func TestEncode_OutOfRange(t *testing.T) {
	_, err := Encode(Uint8, 1000, 0, 1, 0, 255)
	assert.Error(t, err)

	var oor *ErrValueOutOfRange
	assert.ErrorAs(t, err, &oor)
}

func TestDecode_OutOfRangeIsWarningOnly(t *testing.T) {
	physical, inRange, err := Decode(Uint8, []byte{0xFF}, 0, 1, 0, 10)
	require.NoError(t, err)
	assert.False(t, inRange)
	assert.Equal(t, 255.0, physical)
}

func TestDecode_WrongWidth(t *testing.T) {
	_, _, err := Decode(Uint16, []byte{0x01}, 0, 1, 0, 255)
	assert.Error(t, err)
}

func TestRoundTrip_AllTypes(t *testing.T) {
	types := []Type{Int8, Int16, Int32, Uint8, Uint16, Uint32}
	for _, ty := range types {
		rawMin, rawMax := ty.RawRange()
		raw := []byte(nil)
		width := ty.Width()
		raw = make([]byte, width)
		for i := range raw {
			raw[i] = 0xAB
		}

		physical, _, err := Decode(ty, raw, 0, 1, rawMin, rawMax)
		require.NoError(t, err)

		encoded, err := Encode(ty, physical, 0, 1, rawMin, rawMax)
		require.NoError(t, err)
		assert.Equal(t, raw, encoded, "type %s", ty)
	}
}
