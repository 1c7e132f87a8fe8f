// Package statemachine implements the two protocol exchanges the client
// drives to completion: downloading a manifest envelope in 8-byte segments,
// and reading or writing a single property.
package statemachine

import (
	"fmt"

	"github.com/mcejp/devprop/canframe"
	"github.com/mcejp/devprop/manifest"
)

// Outcome reports what FrameReceived did with an inbound frame.
type Outcome int

const (
	// Ignored means the frame was not addressed to this state machine and
	// was discarded without effect — expected on a shared bus.
	Ignored Outcome = iota
	// Accepted means the frame advanced this state machine's state.
	Accepted
)

// StateMachine is the shared contract for ManifestDownload and
// PropertyQuery.
type StateMachine interface {
	IsFinished() bool
	FrameToSend() (canframe.Frame, bool)
	FrameReceived(f canframe.Frame) (Outcome, error)
}

// ManifestDownload drives the segmented manifest-read exchange for one
// node until a complete envelope has been collected.
type ManifestDownload struct {
	nodeID              canframe.NodeID
	envelope            []byte
	expectedLength      *int
	lastRequestAtLength *int
}

// NewManifestDownload creates a ManifestDownload targeting nodeID.
func NewManifestDownload(nodeID canframe.NodeID) *ManifestDownload {
	return &ManifestDownload{nodeID: nodeID}
}

// Envelope returns the bytes collected so far. Only meaningful once
// IsFinished reports true.
func (d *ManifestDownload) Envelope() []byte {
	return d.envelope
}

// IsFinished reports whether the full envelope has been collected.
func (d *ManifestDownload) IsFinished() bool {
	return d.expectedLength != nil && len(d.envelope) == *d.expectedLength
}

// FrameToSend emits the next segment request, or none if the previous
// request for the current length has not yet been superseded by a reply.
func (d *ManifestDownload) FrameToSend() (canframe.Frame, bool) {
	currentLength := len(d.envelope)

	if d.lastRequestAtLength != nil && *d.lastRequestAtLength == currentLength {
		return canframe.Frame{}, false
	}

	segment := currentLength / canframe.SegmentSize
	f, err := canframe.MakeReadManifestRequest(d.nodeID, segment)
	if err != nil {
		// Envelopes larger than 256*8 bytes cannot be addressed; send no
		// further requests rather than panicking. IsFinished stays false,
		// so Drive runs until its deadline.
		return canframe.Frame{}, false
	}

	d.lastRequestAtLength = &currentLength
	return f, true
}

// FrameReceived ingests a candidate reply frame.
func (d *ManifestDownload) FrameReceived(f canframe.Frame) (Outcome, error) {
	nodeID, propertyIndex, opcode, dir, err := canframe.Unpack(f.ID)
	if err != nil {
		return Ignored, nil
	}

	currentSegment := len(d.envelope) / canframe.SegmentSize

	if dir != canframe.DeviceToClient || nodeID != d.nodeID || opcode != canframe.ReadManifest || propertyIndex != currentSegment {
		return Ignored, nil
	}

	if len(f.Data) == 0 {
		return Accepted, fmt.Errorf("statemachine: empty manifest segment %d from node %d: %w", currentSegment, d.nodeID, ErrProtocol)
	}

	if d.expectedLength == nil {
		if len(f.Data) != canframe.SegmentSize {
			return Accepted, fmt.Errorf("statemachine: first manifest segment must be exactly %d bytes, got %d: %w", canframe.SegmentSize, len(f.Data), ErrProtocol)
		}

		totalLength, err := manifest.CheckEnvelopeHeader(f.Data)
		if err != nil {
			return Accepted, fmt.Errorf("statemachine: bad envelope header: %w: %w", err, ErrProtocol)
		}

		d.envelope = append(d.envelope, f.Data...)
		d.expectedLength = &totalLength
		return Accepted, nil
	}

	remaining := *d.expectedLength - len(d.envelope)
	switch {
	case len(f.Data) > remaining:
		return Accepted, fmt.Errorf("statemachine: manifest segment %d overshoots expected length: %w", currentSegment, ErrProtocol)
	case len(f.Data) < remaining && len(f.Data) != canframe.SegmentSize:
		return Accepted, fmt.Errorf("statemachine: non-final manifest segment %d must be exactly %d bytes, got %d: %w", currentSegment, canframe.SegmentSize, len(f.Data), ErrProtocol)
	}

	d.envelope = append(d.envelope, f.Data...)
	return Accepted, nil
}

// PropertyQuery drives a single read or write against one property.
type PropertyQuery struct {
	nodeID        canframe.NodeID
	propertyIndex int
	setValue      []byte
	hasSetValue   bool
	opcode        canframe.Opcode
	requestSent   bool
	getValue      []byte
	done          bool
}

// NewPropertyQuery creates a read query for the given property.
func NewPropertyQuery(nodeID canframe.NodeID, propertyIndex int) *PropertyQuery {
	return &PropertyQuery{nodeID: nodeID, propertyIndex: propertyIndex, opcode: canframe.ReadProperty}
}

// NewPropertyWrite creates a write query setting the given property to the
// raw-encoded value.
func NewPropertyWrite(nodeID canframe.NodeID, propertyIndex int, value []byte) *PropertyQuery {
	return &PropertyQuery{nodeID: nodeID, propertyIndex: propertyIndex, opcode: canframe.WriteProperty, setValue: value, hasSetValue: true}
}

// Value returns the decoded response payload. Only meaningful once
// IsFinished reports true without an error having occurred.
func (q *PropertyQuery) Value() []byte {
	return q.getValue
}

// IsFinished reports whether a matching reply (or device error) has been observed.
func (q *PropertyQuery) IsFinished() bool {
	return q.done
}

// FrameToSend emits the read or write request exactly once.
func (q *PropertyQuery) FrameToSend() (canframe.Frame, bool) {
	if q.requestSent {
		return canframe.Frame{}, false
	}
	q.requestSent = true

	var f canframe.Frame
	var err error
	if q.hasSetValue {
		f, err = canframe.MakeWritePropertyRequest(q.nodeID, q.propertyIndex, q.setValue)
	} else {
		f, err = canframe.MakeReadPropertyRequest(q.nodeID, q.propertyIndex)
	}
	if err != nil {
		return canframe.Frame{}, false
	}
	return f, true
}

// FrameReceived ingests a candidate reply frame.
func (q *PropertyQuery) FrameReceived(f canframe.Frame) (Outcome, error) {
	nodeID, propertyIndex, opcode, dir, err := canframe.Unpack(f.ID)
	if err != nil {
		return Ignored, nil
	}

	if dir != canframe.DeviceToClient || nodeID != q.nodeID {
		return Ignored, nil
	}

	if opcode == canframe.OpcodeError && len(f.Data) == 2 && canframe.Opcode(f.Data[0]) == q.opcode {
		// An ERROR response addressed to our own request's opcode: the
		// device carries property_index in the id of its error reply the
		// same way it would for a normal reply, so match on that too.
		if propertyIndex != q.propertyIndex {
			return Ignored, nil
		}
		q.done = true
		return Accepted, fmt.Errorf("statemachine: device reported %s for property %d: %w", canframe.ErrorCode(f.Data[1]), q.propertyIndex, ErrProtocol)
	}

	if opcode != q.opcode || propertyIndex != q.propertyIndex {
		return Ignored, nil
	}

	if len(f.Data) == 0 {
		q.done = true
		return Accepted, fmt.Errorf("statemachine: empty property reply for node %d property %d: %w", q.nodeID, q.propertyIndex, ErrProtocol)
	}

	q.getValue = f.Data
	q.done = true
	return Accepted, nil
}
