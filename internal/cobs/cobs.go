// Package cobs implements Consistent Overhead Byte Stuffing, used by the
// serial-wrapped CAN transport to delimit frames with a single 0x00 byte
// while the encoded payload itself never contains one.
package cobs

import "errors"

// ErrMalformed is returned by Decode when the input is not a valid COBS
// encoding (a zero length-code byte, or a length-code pointing past the
// end of the buffer).
var ErrMalformed = errors.New("cobs: malformed encoding")

// Encode returns the COBS encoding of data. The result never contains a
// 0x00 byte and is at most len(data) + len(data)/254 + 1 bytes long.
func Encode(data []byte) []byte {
	out := make([]byte, 0, len(data)+len(data)/254+2)

	codeIdx := 0
	out = append(out, 0) // placeholder for the first length code
	code := byte(1)

	for _, b := range data {
		if b == 0 {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0) // placeholder
			code = 1
			continue
		}

		out = append(out, b)
		code++
		if code == 0xFF {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
		}
	}

	out[codeIdx] = code
	return out
}

// Decode reverses Encode. The input must not contain a 0x00 byte (that is
// the frame delimiter, stripped by the caller before Decode is called).
func Decode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))

	i := 0
	for i < len(data) {
		code := int(data[i])
		if code == 0 {
			return nil, ErrMalformed
		}
		i++

		end := i + code - 1
		if end > len(data) {
			return nil, ErrMalformed
		}

		out = append(out, data[i:end]...)
		i = end

		if code != 0xFF && i < len(data) {
			out = append(out, 0)
		}
	}

	return out, nil
}
