package dac

import (
	"fmt"

	"github.com/hajimehoshi/oto"
)

// Speaker plays DAC samples through the host audio device as unsigned 8-bit
// mono PCM. Writes block once the device buffer is full, so the speaker paces
// the generator by itself.
type Speaker struct {
	ctx    *oto.Context
	player *oto.Player
	buf    []byte
}

// NewSpeaker opens the default audio device at rate Hz. Samples are handed to
// the device in chunks of chunk bytes.
func NewSpeaker(rate, chunk int) (*Speaker, error) {
	ctx, err := oto.NewContext(rate, 1, 1, chunk*4)
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	return &Speaker{
		ctx:    ctx,
		player: ctx.NewPlayer(),
		buf:    make([]byte, 0, chunk),
	}, nil
}

// WriteSample implements tone.DAC.
func (s *Speaker) WriteSample(v uint8) error {
	s.buf = append(s.buf, v)
	if len(s.buf) < cap(s.buf) {
		return nil
	}
	_, err := s.player.Write(s.buf)
	s.buf = s.buf[:0]
	if err != nil {
		return fmt.Errorf("speaker write: %w", err)
	}
	return nil
}

// Close releases the player and the audio device.
func (s *Speaker) Close() error {
	if err := s.player.Close(); err != nil {
		return fmt.Errorf("close player: %w", err)
	}
	return s.ctx.Close()
}
