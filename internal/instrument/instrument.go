package instrument

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/piotrcurious/Bluedisplay-piano/internal/keymap"
	"github.com/piotrcurious/Bluedisplay-piano/internal/metrics"
)

// Instrument is the monophonic state shared by every input source and the
// tone generator. The current frequency is always 0 (silence) or one of the
// table's frequencies.
type Instrument struct {
	notes  keymap.Table
	logger *zap.Logger
	freq   atomic.Int32
}

// New creates a silent instrument over the given note table.
func New(notes keymap.Table, logger *zap.Logger) *Instrument {
	return &Instrument{notes: notes, logger: logger}
}

// Notes returns the note table the instrument plays.
func (in *Instrument) Notes() keymap.Table {
	return in.notes
}

// Frequency returns the frequency currently requested, 0 when silent.
func (in *Instrument) Frequency() int {
	return int(in.freq.Load())
}

// Sounding returns the label and frequency of the sounding note.
// ok is false when the instrument is silent.
func (in *Instrument) Sounding() (label string, hz int, ok bool) {
	hz = in.Frequency()
	if hz == 0 {
		return "", 0, false
	}
	label, ok = in.notes.NameOf(hz)
	return label, hz, ok
}

// OnKeyEvent applies a key press or release coming from source.
//
// A press of a known label sounds that note; a press of an unknown label is
// ignored. Any release silences the instrument, whichever key it names.
// The return value reports whether the event was applied.
func (in *Instrument) OnKeyEvent(source, label string, pressed bool) bool {
	if !pressed {
		in.set(0)
		metrics.KeyEventsTotal.WithLabelValues(source, "release").Inc()
		in.logger.Debug("key released", zap.String("source", source), zap.String("label", label))
		return true
	}

	hz, ok := in.notes.Lookup(label)
	if !ok {
		metrics.KeyEventsTotal.WithLabelValues(source, "unmatched").Inc()
		in.logger.Debug("unknown key ignored", zap.String("source", source), zap.String("label", label))
		return false
	}
	in.set(hz)
	metrics.KeyEventsTotal.WithLabelValues(source, "press").Inc()
	in.logger.Debug("key pressed",
		zap.String("source", source),
		zap.String("label", label),
		zap.Int("hz", hz),
	)
	return true
}

// Silence stops any sounding note.
func (in *Instrument) Silence() {
	in.set(0)
}

func (in *Instrument) set(hz int) {
	in.freq.Store(int32(hz))
	metrics.CurrentFrequency.Set(float64(hz))
}
