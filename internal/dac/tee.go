package dac

import (
	"go.uber.org/multierr"

	"github.com/piotrcurious/Bluedisplay-piano/internal/tone"
)

// Tee writes every sample to all of its outputs.
type Tee []tone.DAC

// WriteSample implements tone.DAC. Every output is written even when an
// earlier one fails.
func (t Tee) WriteSample(s uint8) error {
	var err error
	for _, d := range t {
		err = multierr.Append(err, d.WriteSample(s))
	}
	return err
}
