package display

import (
	"context"
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Dialer opens the byte stream the display talks over.
type Dialer interface {
	Dial(ctx context.Context) (io.ReadWriteCloser, error)
}

// SerialDialer reaches the display through a serial device, typically a
// Bluetooth SPP port such as /dev/rfcomm0.
type SerialDialer struct {
	Device string
	Baud   int
}

// Dial opens the serial device.
func (d SerialDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := serial.Open(d.Device, &serial.Mode{BaudRate: d.Baud})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Device, err)
	}
	return p, nil
}
