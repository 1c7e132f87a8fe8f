package manifest

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// HeaderLength is the number of bytes in an envelope header:
// hash4(4) + length(2) + version(1).
const HeaderLength = 7

// DraftCSVZlib is the only envelope version this module understands: a
// zlib-compressed textual draft-CSV manifest body.
const DraftCSVZlib = 0xF1

// AddEnvelope compresses body and prepends the hash-checked envelope
// header. version must currently be DraftCSVZlib.
func AddEnvelope(body []byte, version byte) ([]byte, error) {
	if version != DraftCSVZlib {
		return nil, fmt.Errorf("manifest: unsupported envelope version %#x", version)
	}

	var compressed bytes.Buffer
	w, err := zlib.NewWriterLevel(&compressed, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("manifest: opening compressor: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return nil, fmt.Errorf("manifest: compressing manifest body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("manifest: closing compressor: %w", err)
	}

	compressedBytes := compressed.Bytes()
	if len(compressedBytes) > 0xFFFF {
		return nil, fmt.Errorf("manifest: compressed body too large: %d bytes", len(compressedBytes))
	}

	digest := sha1.Sum(compressedBytes)

	out := make([]byte, 0, HeaderLength+len(compressedBytes))
	out = append(out, digest[:4]...)
	out = binary.LittleEndian.AppendUint16(out, uint16(len(compressedBytes)))
	out = append(out, version)
	out = append(out, compressedBytes...)
	return out, nil
}

// CheckEnvelopeHeader validates that header contains a well-formed
// envelope header (the first HeaderLength bytes of an envelope are
// sufficient) and returns the total envelope length, header included.
func CheckEnvelopeHeader(header []byte) (totalLength int, err error) {
	if len(header) < HeaderLength {
		return 0, fmt.Errorf("manifest: need at least %d header bytes, got %d", HeaderLength, len(header))
	}

	version := header[6]
	if version != DraftCSVZlib {
		return 0, fmt.Errorf("manifest: unsupported envelope version %#x", version)
	}

	length := binary.LittleEndian.Uint16(header[4:6])
	return HeaderLength + int(length), nil
}

// ParseEnvelopedManifest verifies the hash, decompresses the body, and
// decodes the resulting textual draft-CSV manifest.
func ParseEnvelopedManifest(envelope []byte) (Manifest, error) {
	if len(envelope) < HeaderLength {
		return Manifest{}, fmt.Errorf("manifest: envelope too short: %d bytes", len(envelope))
	}

	totalLength, err := CheckEnvelopeHeader(envelope)
	if err != nil {
		return Manifest{}, err
	}
	if len(envelope) != totalLength {
		return Manifest{}, fmt.Errorf("manifest: envelope length mismatch: header says %d, got %d", totalLength, len(envelope))
	}

	wantHash := envelope[0:4]
	compressed := envelope[HeaderLength:totalLength]

	gotHash := sha1.Sum(compressed)
	if !bytes.Equal(wantHash, gotHash[:4]) {
		return Manifest{}, fmt.Errorf("manifest: hash mismatch: envelope is corrupt or was edited")
	}

	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest: opening decompressor: %w", err)
	}
	defer r.Close()

	body, err := io.ReadAll(r)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest: decompressing manifest body: %w", err)
	}

	return ParseManifestDraftCSV(body)
}
