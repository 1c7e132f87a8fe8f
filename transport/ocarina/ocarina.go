// Package ocarina implements the transport.Transport interface on top of
// an Ocarina USB-CAN adapter, speaking its ASCII command/event protocol
// over a serial VCOM port.
package ocarina

import (
	"encoding/binary"
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/mcejp/devprop/canframe"
	"github.com/mcejp/devprop/clog"
	"github.com/mcejp/devprop/transport"
)

const baudRate = 115200

// command bytes, sent as a single ASCII character.
const (
	cmdAutoBitrate        = 'a'
	cmdRxForwardingEnable = 'F'
	cmdRxForwardingDisable = 'f'
	cmdSendMessageExtID   = 'M'
	cmdNOP                = 'n'
	cmdLoopbackDisable    = 'l'
	cmdReset              = 'r'
	cmdSilentDisable      = 's'
)

// event (device-to-host) frame types.
const (
	eventMessageStdID = 'm'
	eventMessageExtID = 'M'
)

var syncFrame = func() []byte {
	b := make([]byte, 24)
	for i := range b {
		b[i] = 0xAA
	}
	return b
}()

type canEvent struct {
	id        uint32
	extended  bool
	data      []byte
	timestamp uint64
}

// Transport drives an Ocarina adapter. A background goroutine continuously
// decodes device-to-host frames and publishes CAN message events onto a
// bounded channel; anything else (heartbeats, counters, version replies)
// is read and discarded without being decoded. Standard-ID message events
// are queued as well, but Receive drops them.
type Transport struct {
	port   serial.Port
	log    clog.Clog
	events chan canEvent
	errs   chan error
	done   chan struct{}
}

var _ transport.Transport = (*Transport)(nil)

// Open connects to the Ocarina adapter at portName, performs the reset and
// host-device sync handshake, enables message forwarding and starts the
// background event decoder. queueCapacity bounds the event channel; once
// full, the oldest buffered event is dropped to make room for the newest.
func Open(portName string, queueCapacity int, log clog.Clog) (*Transport, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("ocarina: opening %s: %w: %w", portName, err, transport.ErrTransport)
	}

	t := &Transport{
		port:   port,
		log:    log,
		events: make(chan canEvent, queueCapacity),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}

	if err := t.connect(); err != nil {
		_ = port.Close()
		return nil, err
	}

	// Not clear whose business it is to set these, but the reference
	// client always does, so we follow suit.
	if err := t.writeCommand(cmdAutoBitrate, nil); err != nil {
		_ = port.Close()
		return nil, err
	}
	if err := t.writeCommand(cmdSilentDisable, nil); err != nil {
		_ = port.Close()
		return nil, err
	}
	if err := t.writeCommand(cmdLoopbackDisable, nil); err != nil {
		_ = port.Close()
		return nil, err
	}
	if err := t.writeCommand(cmdRxForwardingEnable, nil); err != nil {
		_ = port.Close()
		return nil, err
	}

	go t.eventLoop()

	return t, nil
}

// connect sends a NOP, resets the device and scans the reply stream for
// the 24-byte 0xAA sync frame that the device emits once its boot
// sequence settles.
func (t *Transport) connect() error {
	// The NOP clears any partial command left over on the device.
	if err := t.writeCommand(cmdNOP, nil); err != nil {
		return err
	}
	if err := t.writeCommand(cmdReset, nil); err != nil {
		return err
	}

	window := make([]byte, 0, len(syncFrame))
	b := make([]byte, 1)

	for !bytesEqual(window, syncFrame) {
		n, err := t.port.Read(b)
		if err != nil {
			return fmt.Errorf("ocarina: syncing: %w: %w", err, transport.ErrTransport)
		}
		if n == 0 {
			continue
		}

		window = append(window, b[0])
		if len(window) > len(syncFrame) {
			window = window[len(window)-len(syncFrame):]
		}
	}

	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (t *Transport) writeCommand(cmd byte, data []byte) error {
	frame := append([]byte{cmd, byte(len(data))}, data...)
	n, err := t.port.Write(frame)
	if err != nil {
		return fmt.Errorf("ocarina: writing command %c: %w: %w", cmd, err, transport.ErrTransport)
	}
	if n != len(frame) {
		return fmt.Errorf("ocarina: short write for command %c: %w", cmd, transport.ErrTransport)
	}
	return nil
}

// eventLoop decodes device-to-host frames until the port is closed. It
// enqueues standard-ID and extended-ID CAN message events; every other
// event is logged at debug level and dropped.
func (t *Transport) eventLoop() {
	header := make([]byte, 2)

	for {
		if _, err := readFull(t.port, header[:1]); err != nil {
			select {
			case t.errs <- err:
			default:
			}
			return
		}

		if _, err := readFull(t.port, header[1:2]); err != nil {
			select {
			case t.errs <- err:
			default:
			}
			return
		}

		frameType := header[0]
		length := int(header[1])

		payload := make([]byte, length)
		if length > 0 {
			if _, err := readFull(t.port, payload); err != nil {
				select {
				case t.errs <- err:
				default:
				}
				return
			}
		}

		switch frameType {
		case eventMessageExtID:
			t.handleMessageEvent(payload, true)
		case eventMessageStdID:
			t.handleMessageEvent(payload, false)
		default:
			t.log.Debug("ocarina: ignoring event %q (%d bytes)", frameType, length)
		}
	}
}

// handleMessageEvent decodes a CAN message event payload. The device
// encodes the 40-bit timestamp as a leading low byte followed by a 32-bit
// little-endian word shifted left 8 bits: ts = low | (rest<<8).
func (t *Transport) handleMessageEvent(payload []byte, extended bool) {
	idWidth := 2
	if extended {
		idWidth = 4
	}
	if len(payload) < 1+4+idWidth {
		t.log.Warn("ocarina: truncated message event (%d bytes)", len(payload))
		return
	}

	low := uint64(payload[0])
	rest := uint64(binary.LittleEndian.Uint32(payload[1:5]))
	timestamp := low | (rest << 8)

	var id uint32
	if extended {
		id = binary.LittleEndian.Uint32(payload[5:9])
		payload = payload[9:]
	} else {
		id = uint32(binary.LittleEndian.Uint16(payload[5:7]))
		payload = payload[7:]
	}

	ev := canEvent{id: id, extended: extended, data: append([]byte(nil), payload...), timestamp: timestamp}

	select {
	case t.events <- ev:
	default:
		// Queue full: drop the oldest buffered event to make room.
		select {
		case <-t.events:
		default:
		}
		select {
		case t.events <- ev:
		default:
		}
	}
}

func readFull(port serial.Port, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := port.Read(buf[total:])
		if err != nil {
			return total, fmt.Errorf("ocarina: reading: %w: %w", err, transport.ErrTransport)
		}
		if n == 0 {
			continue
		}
		total += n
	}
	return total, nil
}

// Send transmits data as an extended-ID CAN message.
func (t *Transport) Send(f canframe.Frame) error {
	t.log.Debug("Tx frame %#08x %x %s", f.ID, f.Data, canframe.Stringify(f))

	idBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(idBytes, f.ID)

	return t.writeCommand(cmdSendMessageExtID, append(idBytes, f.Data...))
}

// Receive blocks until the next extended-ID CAN message event arrives, or
// deadline passes. Non-extended events are never returned; this client
// only speaks the extended-ID protocol.
func (t *Transport) Receive(deadline time.Time) (canframe.Frame, error) {
	for {
		timeout := time.Until(deadline)
		if timeout < 0 {
			return canframe.Frame{}, transport.ErrTimeout
		}

		timer := time.NewTimer(timeout)
		select {
		case ev := <-t.events:
			timer.Stop()
			if !ev.extended {
				continue
			}
			f := canframe.Frame{ID: ev.id, Data: ev.data}
			t.log.Debug("Rx frame %#08x %x %s", f.ID, f.Data, canframe.Stringify(f))
			return f, nil
		case err := <-t.errs:
			timer.Stop()
			return canframe.Frame{}, err
		case <-timer.C:
			return canframe.Frame{}, transport.ErrTimeout
		}
	}
}

// Close disables message forwarding and closes the serial handle.
func (t *Transport) Close() error {
	if t.port == nil {
		return nil
	}
	_ = t.writeCommand(cmdRxForwardingDisable, nil)
	err := t.port.Close()
	t.port = nil
	return err
}
