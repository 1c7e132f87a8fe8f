// Package fixtureserver implements the in-memory device fixture used to
// exercise a client against one simulated node: it answers manifest reads,
// property reads and property writes addressed to a single configured
// node ID.
package fixtureserver

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/mcejp/devprop/canframe"
	"github.com/mcejp/devprop/clog"
	"github.com/mcejp/devprop/transport"
)

// noDeadline gives Receive an effectively unbounded wait; the server loop
// runs until the transport itself reports a hard failure.
func noDeadline() time.Time {
	return time.Now().Add(24 * 365 * time.Hour)
}

// Server answers protocol traffic addressed to one node ID, over any
// Transport. It holds per-property state across requests: the first read
// of a property generates and caches a random value, subsequent reads
// return the cached (or last written) value.
type Server struct {
	nodeID   canframe.NodeID
	envelope []byte
	log      clog.Clog
	rand     *rand.Rand

	values map[int]uint16
}

// New creates a Server for nodeID, replying to manifest reads with the
// segments of envelope (a complete, already-enveloped manifest).
func New(nodeID canframe.NodeID, envelope []byte, log clog.Clog) *Server {
	return &Server{
		nodeID:   nodeID,
		envelope: envelope,
		log:      log,
		rand:     rand.New(rand.NewSource(1)),
		values:   make(map[int]uint16),
	}
}

// ServeOne handles exactly one inbound frame, ignoring it if it is not a
// client-to-device request for this server's node ID. It returns the
// reply frame to send, or false if there is no reply. It sends nothing
// itself.
func (s *Server) ServeOne(f canframe.Frame) (canframe.Frame, bool) {
	nodeID, propertyIndex, opcode, dir, err := canframe.Unpack(f.ID)
	if err != nil || dir != canframe.ClientToDevice || nodeID != s.nodeID {
		return canframe.Frame{}, false
	}

	resp, err := s.dispatch(propertyIndex, opcode, f.Data)
	if err != nil {
		s.log.Error("fixtureserver: dispatch failed: %v", err)
		resp, err = canframe.MakeErrorResponse(s.nodeID, propertyIndex, opcode, canframe.InternalError)
		if err != nil {
			s.log.Error("fixtureserver: building internal-error response: %v", err)
			return canframe.Frame{}, false
		}
	}

	return resp, true
}

func (s *Server) dispatch(propertyIndex int, opcode canframe.Opcode, data []byte) (canframe.Frame, error) {
	switch opcode {
	case canframe.ReadManifest:
		segment := propertyIndex
		lo := segment * canframe.SegmentSize
		hi := lo + canframe.SegmentSize
		if lo > len(s.envelope) {
			lo = len(s.envelope)
		}
		if hi > len(s.envelope) {
			hi = len(s.envelope)
		}
		return canframe.MakeReadManifestResponse(s.nodeID, segment, s.envelope[lo:hi])

	case canframe.ReadProperty:
		value, ok := s.values[propertyIndex]
		if !ok {
			value = uint16(s.rand.Intn(1 << 16))
			s.values[propertyIndex] = value
		}
		payload := make([]byte, 2)
		binary.LittleEndian.PutUint16(payload, value)
		return canframe.MakeReadPropertyResponse(s.nodeID, propertyIndex, payload)

	case canframe.WriteProperty:
		if len(data) != 2 {
			return canframe.Frame{}, fmt.Errorf("fixtureserver: write payload must be 2 bytes, got %d", len(data))
		}
		value := binary.LittleEndian.Uint16(data)
		s.values[propertyIndex] = value
		return canframe.MakeWritePropertyResponse(s.nodeID, propertyIndex, data)

	default:
		return canframe.MakeErrorResponse(s.nodeID, propertyIndex, opcode, canframe.ProtocolError)
	}
}

// Run drives the server loop forever, reading frames from tp and writing
// replies back to it, until Receive returns a non-timeout error or Send
// fails.
func Run(tp transport.Transport, s *Server) error {
	for {
		f, err := tp.Receive(noDeadline())
		if errors.Is(err, transport.ErrTimeout) {
			continue
		}
		if err != nil {
			return err
		}

		resp, ok := s.ServeOne(f)
		if !ok {
			continue
		}

		if err := tp.Send(resp); err != nil {
			return err
		}
	}
}
