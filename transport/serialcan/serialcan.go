// Package serialcan implements the COBS/CRC-framed serial-wrapped CAN
// transport: a raw serial link carrying one CAN frame per line, delimited
// by 0x00 and COBS-encoded, with a trailing CRC-16/KERMIT.
package serialcan

import (
	"encoding/binary"
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/mcejp/devprop/canframe"
	"github.com/mcejp/devprop/clog"
	"github.com/mcejp/devprop/internal/cobs"
	"github.com/mcejp/devprop/internal/crc16"
	"github.com/mcejp/devprop/transport"
)

const baudRate = 115200

// Transport speaks the COBS/CRC serial-wrapped CAN protocol over a single
// serial port. It implements transport.Transport.
type Transport struct {
	port   serial.Port
	buffer []byte
	log    clog.Clog
}

var _ transport.Transport = (*Transport)(nil)

// Open opens portName at 115200-8N1 and returns a ready-to-use Transport.
func Open(portName string, log clog.Clog) (*Transport, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("serialcan: opening %s: %w: %w", portName, err, transport.ErrTransport)
	}

	return &Transport{port: port, log: log}, nil
}

// Send encodes and writes one frame, delimited by leading and trailing
// 0x00 bytes.
func (t *Transport) Send(f canframe.Frame) error {
	t.log.Debug("Tx frame %#08x %x %s", f.ID, f.Data, canframe.Stringify(f))

	header := make([]byte, 4)
	binary.LittleEndian.PutUint32(header, f.ID)

	payload := append(append([]byte{}, header...), f.Data...)
	crc := crc16.Kermit(payload)

	crcBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(crcBytes, crc)
	payload = append(payload, crcBytes...)

	encoded := cobs.Encode(payload)

	frame := make([]byte, 0, len(encoded)+2)
	frame = append(frame, 0x00)
	frame = append(frame, encoded...)
	frame = append(frame, 0x00)

	if _, err := t.port.Write(frame); err != nil {
		return fmt.Errorf("serialcan: writing frame: %w: %w", err, transport.ErrTransport)
	}
	return nil
}

// Receive reads bytes one at a time, scanning for 0x00-delimited COBS
// frames. Frames that fail COBS decoding or CRC verification are silently
// discarded; the loop continues from the next delimiter.
func (t *Transport) Receive(deadline time.Time) (canframe.Frame, error) {
	for {
		if !time.Now().Before(deadline) {
			return canframe.Frame{}, transport.ErrTimeout
		}

		if err := t.port.SetReadTimeout(time.Until(deadline)); err != nil {
			return canframe.Frame{}, fmt.Errorf("serialcan: setting read timeout: %w: %w", err, transport.ErrTransport)
		}

		buf := make([]byte, 1)
		n, err := t.port.Read(buf)
		if err != nil {
			return canframe.Frame{}, fmt.Errorf("serialcan: reading: %w: %w", err, transport.ErrTransport)
		}
		if n == 0 {
			continue
		}

		t.buffer = append(t.buffer, buf[0])

		for {
			terminatorPos := indexByte(t.buffer, 0x00)
			if terminatorPos < 0 {
				break
			}

			encoded := t.buffer[:terminatorPos]
			t.buffer = t.buffer[terminatorPos+1:]

			if len(encoded) == 0 {
				continue
			}

			f, ok := decodeFrame(encoded)
			if !ok {
				t.log.Debug("serialcan: discarding malformed frame")
				continue
			}

			t.log.Debug("Rx frame %#08x %x %s", f.ID, f.Data, canframe.Stringify(f))
			return f, nil
		}
	}
}

func decodeFrame(encoded []byte) (canframe.Frame, bool) {
	decoded, err := cobs.Decode(encoded)
	if err != nil || len(decoded) < 6 {
		return canframe.Frame{}, false
	}

	payload := decoded[:len(decoded)-2]
	wantCRC := binary.LittleEndian.Uint16(decoded[len(decoded)-2:])
	if crc16.Kermit(payload) != wantCRC {
		return canframe.Frame{}, false
	}

	id := binary.LittleEndian.Uint32(payload[:4])
	return canframe.Frame{ID: id, Data: append([]byte(nil), payload[4:]...)}, true
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// Close closes the underlying serial handle. It is idempotent.
func (t *Transport) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}
