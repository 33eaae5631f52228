package dac

import (
	"fmt"
	"io"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"

	"github.com/piotrcurious/Bluedisplay-piano/internal/audio"
	"github.com/piotrcurious/Bluedisplay-piano/internal/ringbuffer"
)

// Capture records the most recent DAC output in memory.
type Capture struct {
	rate int
	rb   *ringbuffer.RingBuffer
}

// NewCapture keeps the last seconds of 8-bit samples at rate Hz.
func NewCapture(seconds, rate int) *Capture {
	return &Capture{
		rate: rate,
		rb:   ringbuffer.New(seconds, rate),
	}
}

// WriteSample implements tone.DAC.
func (c *Capture) WriteSample(s uint8) error {
	return c.rb.WriteByte(s)
}

// Rate returns the capture sampling rate in Hz.
func (c *Capture) Rate() int {
	return c.rate
}

// Snapshot returns a copy of the last seconds of samples.
func (c *Capture) Snapshot(seconds float64) []uint8 {
	return c.rb.SnapshotSeconds(seconds)
}

// Available returns how many seconds of audio are stored.
func (c *Capture) Available() float64 {
	return c.rb.Available()
}

// WriteWAV encodes the last seconds of samples as an 8-bit mono WAV file.
func (c *Capture) WriteWAV(w io.WriteSeeker, seconds float64) (int, error) {
	samples := c.Snapshot(seconds)
	format := beep.Format{
		SampleRate:  beep.SampleRate(c.rate),
		NumChannels: 1,
		Precision:   1,
	}
	if err := wav.Encode(w, &sampleStreamer{samples: samples}, format); err != nil {
		return 0, fmt.Errorf("encode wav: %w", err)
	}
	return len(samples), nil
}

// sampleStreamer plays a fixed slice of DAC samples as a beep.Streamer.
type sampleStreamer struct {
	samples []uint8
	pos     int
}

func (s *sampleStreamer) Stream(buf [][2]float64) (n int, ok bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	for n < len(buf) && s.pos < len(s.samples) {
		v := audio.U8ToFloat(s.samples[s.pos])
		buf[n] = [2]float64{v, v}
		n++
		s.pos++
	}
	return n, true
}

func (s *sampleStreamer) Err() error {
	return nil
}
