// Package canframe implements the extended-ID CAN wire protocol used to
// address nodes, opcodes and property indices on the bus.
//
// See companion design note: the frame ID packs a fixed pattern, direction,
// node and opcode into the upper 21 bits (28..8) of the 29-bit extended CAN
// identifier; the low 8 bits carry
// either a property index or a manifest segment index depending on opcode.
package canframe

import (
	"fmt"
)

// Opcode identifies the operation carried by a frame.
type Opcode uint8

// The closed set of opcodes.
const (
	ReadManifest  Opcode = 0
	ReadProperty  Opcode = 1
	WriteProperty Opcode = 2
	OpcodeError   Opcode = 7
)

// String renders the opcode mnemonic used in logs.
func (o Opcode) String() string {
	switch o {
	case ReadManifest:
		return "READ_MANIFEST"
	case ReadProperty:
		return "READ_PROPERTY"
	case WriteProperty:
		return "WRITE_PROPERTY"
	case OpcodeError:
		return "ERROR"
	default:
		return fmt.Sprintf("Opcode(%d)", uint8(o))
	}
}

// Direction distinguishes device-originated from client-originated frames.
type Direction uint8

// The two directions a frame can travel.
const (
	DeviceToClient Direction = 0
	ClientToDevice Direction = 1
)

// String renders the direction mnemonic used in logs.
func (d Direction) String() string {
	if d == ClientToDevice {
		return "C2D"
	}
	return "D2C"
}

// ErrorCode is the payload of an OpcodeError response.
type ErrorCode uint8

// The closed set of device error codes.
const (
	GenericError   ErrorCode = 1
	ProtocolError  ErrorCode = 2
	NotImplemented ErrorCode = 3
	InternalError  ErrorCode = 4
)

// String renders the error code mnemonic used in logs.
func (e ErrorCode) String() string {
	switch e {
	case GenericError:
		return "GENERIC_ERROR"
	case ProtocolError:
		return "PROTOCOL_ERROR"
	case NotImplemented:
		return "NOT_IMPLEMENTED"
	case InternalError:
		return "INTERNAL_ERROR"
	default:
		return fmt.Sprintf("ErrorCode(%d)", uint8(e))
	}
}

// Domain bounds for the identifier fields.
const (
	MinNodeID         = 0
	MaxNodeID         = 31
	MinPropertyIndex  = 1
	MaxPropertyIndex  = 255
	MinSegmentIndex   = 0
	MaxSegmentIndex   = 255
	SegmentSize       = 8
	idFixedPart       = 0x1EF00000
	idFixedMask       = 0x1FFE0000
	idDirectionShift  = 16
	idNodeIDShift     = 11
	idOpcodeShift     = 8
)

// Frame is one atomic bus message: a 29-bit extended identifier plus 0..=8
// data bytes. Frames are immutable after construction.
type Frame struct {
	ID   uint32
	Data []byte
}

// NodeID is the 5-bit address of a device on the bus.
type NodeID uint8

// MakeFrameID packs the identifier fields into a 29-bit extended CAN ID.
//
// property_index is validated against [MinPropertyIndex, MaxPropertyIndex]
// for ReadProperty/WriteProperty and against [MinSegmentIndex,
// MaxSegmentIndex] for every other opcode — segment 0 is a legal manifest
// read even though property index 0 never addresses a property.
func MakeFrameID(nodeID NodeID, propertyIndex int, opcode Opcode, dir Direction) (uint32, error) {
	if nodeID > MaxNodeID {
		return 0, fmt.Errorf("canframe: node id %d out of range [%d, %d]", nodeID, MinNodeID, MaxNodeID)
	}

	switch opcode {
	case ReadProperty, WriteProperty:
		if propertyIndex < MinPropertyIndex || propertyIndex > MaxPropertyIndex {
			return 0, fmt.Errorf("canframe: property index %d out of range [%d, %d]", propertyIndex, MinPropertyIndex, MaxPropertyIndex)
		}
	default:
		if propertyIndex < MinSegmentIndex || propertyIndex > MaxSegmentIndex {
			return 0, fmt.Errorf("canframe: segment index %d out of range [%d, %d]", propertyIndex, MinSegmentIndex, MaxSegmentIndex)
		}
	}

	id := uint32(idFixedPart)
	id |= uint32(dir) << idDirectionShift
	id |= uint32(nodeID) << idNodeIDShift
	id |= uint32(opcode) << idOpcodeShift
	id |= uint32(propertyIndex)
	return id, nil
}

// Unpack extracts the identifier fields back out of a 29-bit extended CAN
// ID. It fails if the fixed bits do not match the expected pattern.
func Unpack(id uint32) (nodeID NodeID, propertyIndex int, opcode Opcode, dir Direction, err error) {
	if id&idFixedMask != idFixedPart&idFixedMask {
		return 0, 0, 0, 0, fmt.Errorf("canframe: id %#x does not match fixed bit pattern", id)
	}

	dir = Direction((id >> idDirectionShift) & 0x1)
	nodeID = NodeID((id >> idNodeIDShift) & 0x1f)
	opcode = Opcode((id >> idOpcodeShift) & 0x7)
	propertyIndex = int(id & 0xff)
	return nodeID, propertyIndex, opcode, dir, nil
}
