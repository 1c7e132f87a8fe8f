package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddEnvelope_S3(t *testing.T) {
	envelope, err := AddEnvelope([]byte("Silly-Name\n"), DraftCSVZlib)
	require.NoError(t, err)

	compressedLen := uint16(envelope[4]) | uint16(envelope[5])<<8
	assert.Equal(t, envelope[6], byte(DraftCSVZlib))
	assert.Equal(t, int(compressedLen), len(envelope)-HeaderLength)

	m, err := ParseEnvelopedManifest(envelope)
	require.NoError(t, err)
	assert.Equal(t, "Silly-Name", m.DeviceName)
	assert.Empty(t, m.Properties)
}

func TestEnvelope_RoundTrip(t *testing.T) {
	body := []byte("My-Device\nfoo,H,C,0,1,0,65535,rw\n")

	envelope, err := AddEnvelope(body, DraftCSVZlib)
	require.NoError(t, err)

	want, err := ParseManifestDraftCSV(body)
	require.NoError(t, err)

	got, err := ParseEnvelopedManifest(envelope)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestEnvelope_HashBinding(t *testing.T) {
	envelope, err := AddEnvelope([]byte("My-Device\n"), DraftCSVZlib)
	require.NoError(t, err)

	corrupted := append([]byte(nil), envelope...)
	corrupted[HeaderLength] ^= 0xFF

	_, err = ParseEnvelopedManifest(corrupted)
	assert.Error(t, err)
}

func TestCheckEnvelopeHeader_SevenBytesSuffice(t *testing.T) {
	envelope, err := AddEnvelope([]byte("My-Device\n"), DraftCSVZlib)
	require.NoError(t, err)

	total, err := CheckEnvelopeHeader(envelope[:HeaderLength])
	require.NoError(t, err)
	assert.Equal(t, len(envelope), total)
}
