package canframe

import "fmt"

// MakeErrorResponse builds a device-originated error frame replying to the
// given opcode on the given node/property.
func MakeErrorResponse(nodeID NodeID, propertyIndex int, opcode Opcode, errorCode ErrorCode) (Frame, error) {
	id, err := MakeFrameID(nodeID, propertyIndex, OpcodeError, DeviceToClient)
	if err != nil {
		return Frame{}, err
	}
	return Frame{ID: id, Data: []byte{byte(opcode), byte(errorCode)}}, nil
}

// MakeReadManifestRequest builds a client request for one manifest segment.
func MakeReadManifestRequest(nodeID NodeID, segment int) (Frame, error) {
	id, err := MakeFrameID(nodeID, segment, ReadManifest, ClientToDevice)
	if err != nil {
		return Frame{}, err
	}
	return Frame{ID: id, Data: []byte{}}, nil
}

// MakeReadManifestResponse builds a device reply carrying one manifest
// segment's payload.
func MakeReadManifestResponse(nodeID NodeID, segment int, payload []byte) (Frame, error) {
	id, err := MakeFrameID(nodeID, segment, ReadManifest, DeviceToClient)
	if err != nil {
		return Frame{}, err
	}
	return Frame{ID: id, Data: payload}, nil
}

// MakeReadPropertyRequest builds a client request for a property's value.
func MakeReadPropertyRequest(nodeID NodeID, propertyIndex int) (Frame, error) {
	id, err := MakeFrameID(nodeID, propertyIndex, ReadProperty, ClientToDevice)
	if err != nil {
		return Frame{}, err
	}
	return Frame{ID: id, Data: []byte{}}, nil
}

// MakeReadPropertyResponse builds a device reply carrying a property's raw value.
func MakeReadPropertyResponse(nodeID NodeID, propertyIndex int, payload []byte) (Frame, error) {
	id, err := MakeFrameID(nodeID, propertyIndex, ReadProperty, DeviceToClient)
	if err != nil {
		return Frame{}, err
	}
	return Frame{ID: id, Data: payload}, nil
}

// MakeWritePropertyRequest builds a client request to set a property's raw value.
func MakeWritePropertyRequest(nodeID NodeID, propertyIndex int, payload []byte) (Frame, error) {
	id, err := MakeFrameID(nodeID, propertyIndex, WriteProperty, ClientToDevice)
	if err != nil {
		return Frame{}, err
	}
	return Frame{ID: id, Data: payload}, nil
}

// MakeWritePropertyResponse builds a device reply echoing the value it stored.
func MakeWritePropertyResponse(nodeID NodeID, propertyIndex int, payload []byte) (Frame, error) {
	id, err := MakeFrameID(nodeID, propertyIndex, WriteProperty, DeviceToClient)
	if err != nil {
		return Frame{}, err
	}
	return Frame{ID: id, Data: payload}, nil
}

// Stringify renders a one-line human-readable form of a frame, for logging.
// ERROR-opcode replies are rendered with the decoded request opcode and
// error code rather than a raw payload dump.
func Stringify(f Frame) string {
	nodeID, propertyIndex, opcode, dir, err := Unpack(f.ID)
	if err != nil {
		return fmt.Sprintf("INVALID id=%#x: %v", f.ID, err)
	}

	if opcode == OpcodeError && dir == DeviceToClient && len(f.Data) == 2 {
		return fmt.Sprintf("NODE_ID=%d ERROR=(INDEX=%d OPCODE=%X-%s) ERROR_CODE=%s",
			nodeID, propertyIndex, f.Data[0], Opcode(f.Data[0]), ErrorCode(f.Data[1]))
	}

	return fmt.Sprintf("NODE_ID=%d INDEX=%d OPCODE=%X-%s DIR=%s PAYLOAD=%s",
		nodeID, propertyIndex, uint8(opcode), opcode, dir, hexDump(f.Data))
}

func hexDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	out := make([]byte, 0, len(data)*3-1)
	for i, b := range data {
		if i > 0 {
			out = append(out, '_')
		}
		out = append(out, hexDigits[b>>4], hexDigits[b&0xf])
	}
	return string(out)
}

const hexDigits = "0123456789abcdef"
