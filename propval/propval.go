// Package propval converts between a property's raw on-wire integer
// representation and its scaled physical value, and back.
package propval

import (
	"fmt"
	"math"
)

// Type is the wire type of a property's raw value.
type Type uint8

// The closed set of wire types. The single-character Code is the canonical
// representation used inside the textual manifest schema.
const (
	Int8 Type = iota
	Int16
	Int32
	Uint8
	Uint16
	Uint32
)

// Code returns the single-character wire code for the type.
func (t Type) Code() byte {
	switch t {
	case Int8:
		return 'b'
	case Int16:
		return 'h'
	case Int32:
		return 'i'
	case Uint8:
		return 'B'
	case Uint16:
		return 'H'
	case Uint32:
		return 'I'
	default:
		return '?'
	}
}

// String renders the type name used in YAML manifests.
func (t Type) String() string {
	switch t {
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// TypeFromCode maps a single-character wire code back to a Type.
func TypeFromCode(code byte) (Type, error) {
	switch code {
	case 'b':
		return Int8, nil
	case 'h':
		return Int16, nil
	case 'i':
		return Int32, nil
	case 'B':
		return Uint8, nil
	case 'H':
		return Uint16, nil
	case 'I':
		return Uint32, nil
	default:
		return 0, fmt.Errorf("propval: unknown type code %q", code)
	}
}

// TypeFromName maps a YAML type token (e.g. "uint16") back to a Type.
func TypeFromName(name string) (Type, error) {
	switch name {
	case "int8":
		return Int8, nil
	case "int16":
		return Int16, nil
	case "int32":
		return Int32, nil
	case "uint8":
		return Uint8, nil
	case "uint16":
		return Uint16, nil
	case "uint32":
		return Uint32, nil
	default:
		return 0, fmt.Errorf("propval: unknown type name %q", name)
	}
}

// Width returns the on-wire width in bytes of the type.
func (t Type) Width() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32:
		return 4
	default:
		return 0
	}
}

// RawRange returns the inclusive [min, max] raw integer range representable
// by the type.
func (t Type) RawRange() (min, max float64) {
	switch t {
	case Int8:
		return -128, 127
	case Int16:
		return -32768, 32767
	case Int32:
		return -2147483648, 2147483647
	case Uint8:
		return 0, 255
	case Uint16:
		return 0, 65535
	case Uint32:
		return 0, 4294967295
	default:
		return 0, 0
	}
}

// ErrValueOutOfRange is returned by Encode when the requested physical value
// falls outside the property's configured range.
type ErrValueOutOfRange struct {
	Value    float64
	Min, Max float64
}

func (e *ErrValueOutOfRange) Error() string {
	return fmt.Sprintf("propval: value %g out of range [%g, %g]", e.Value, e.Min, e.Max)
}

// Decode interprets raw as an integer of type t in little-endian byte order
// and maps it to a physical value via physical = offset + raw*scale.
//
// A physical value outside [min, max] is not an error: it is returned
// as-is, and callers should log a warning — the device may be reporting a
// transient out-of-spec reading.
func Decode(t Type, raw []byte, offset, scale, min, max float64) (physical float64, inRange bool, err error) {
	if len(raw) != t.Width() {
		return 0, false, fmt.Errorf("propval: expected %d raw bytes for %s, got %d", t.Width(), t, len(raw))
	}

	rawValue := decodeRawLittleEndian(t, raw)
	physical = offset + rawValue*scale
	return physical, physical >= min && physical <= max, nil
}

// Encode maps a physical value back to its raw little-endian wire
// representation. It fails with *ErrValueOutOfRange if physical lies
// outside [min, max], or if rounding pushes the corresponding raw value
// outside the type's representable range.
func Encode(t Type, physical, offset, scale, min, max float64) ([]byte, error) {
	if physical < min || physical > max {
		return nil, &ErrValueOutOfRange{Value: physical, Min: min, Max: max}
	}

	raw := math.Round((physical - offset) / scale)

	rawMin, rawMax := t.RawRange()
	if raw < rawMin || raw > rawMax {
		return nil, &ErrValueOutOfRange{Value: physical, Min: min, Max: max}
	}

	return encodeRawLittleEndian(t, raw), nil
}

func decodeRawLittleEndian(t Type, raw []byte) float64 {
	var u uint32
	for i := len(raw) - 1; i >= 0; i-- {
		u = u<<8 | uint32(raw[i])
	}

	switch t {
	case Int8:
		return float64(int8(u))
	case Int16:
		return float64(int16(u))
	case Int32:
		return float64(int32(u))
	case Uint8, Uint16, Uint32:
		return float64(u)
	default:
		return 0
	}
}

func encodeRawLittleEndian(t Type, raw float64) []byte {
	width := t.Width()
	out := make([]byte, width)

	var u uint32
	switch t {
	case Int8:
		u = uint32(uint8(int8(raw)))
	case Int16:
		u = uint32(uint16(int16(raw)))
	case Int32:
		u = uint32(int32(raw))
	case Uint8:
		u = uint32(uint8(raw))
	case Uint16:
		u = uint32(uint16(raw))
	case Uint32:
		u = uint32(raw)
	}

	for i := 0; i < width; i++ {
		out[i] = byte(u >> (8 * i))
	}
	return out
}
