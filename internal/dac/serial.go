package dac

import (
	"bufio"
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Stream sends every sample as one raw byte to a DAC bridge board, which
// latches it onto its analog pin. Bytes are flushed in chunks.
type Stream struct {
	port io.WriteCloser
	w    *bufio.Writer
}

// OpenSerial opens the bridge's serial device at baud.
func OpenSerial(device string, baud, chunk int) (*Stream, error) {
	p, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open dac port %s: %w", device, err)
	}
	return NewStream(p, chunk), nil
}

// NewStream wraps an already open port.
func NewStream(port io.WriteCloser, chunk int) *Stream {
	return &Stream{port: port, w: bufio.NewWriterSize(port, chunk)}
}

// WriteSample implements tone.DAC.
func (s *Stream) WriteSample(v uint8) error {
	if err := s.w.WriteByte(v); err != nil {
		return fmt.Errorf("dac port write: %w", err)
	}
	return nil
}

// Close flushes pending samples and closes the port.
func (s *Stream) Close() error {
	flushErr := s.w.Flush()
	if err := s.port.Close(); err != nil {
		return fmt.Errorf("close dac port: %w", err)
	}
	return flushErr
}
