package midiin

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/zap"

	"github.com/piotrcurious/Bluedisplay-piano/internal/keymap"
	"github.com/piotrcurious/Bluedisplay-piano/internal/metrics"
)

// Source names key events that come from a MIDI keyboard.
const Source = "midi"

// ExcludedPatterns name virtual or system ports that are never auto-connected.
var ExcludedPatterns = []string{"Midi Through", "Through Port", "Dummy"}

// KeyHandler receives key presses and releases.
type KeyHandler interface {
	OnKeyEvent(source, label string, pressed bool) bool
}

// Watcher keeps a connection to a MIDI input and turns its notes into key
// events. It handles devices appearing and disappearing.
type Watcher struct {
	mu           sync.Mutex
	drv          drivers.Driver
	keys         KeyHandler
	notes        keymap.Table
	preferred    []string
	logger       *zap.Logger
	inPort       drivers.In
	stopFn       func()
	connected    bool
	selectedName string
}

// Open starts the rtmidi driver and returns a watcher over it.
func Open(keys KeyHandler, notes keymap.Table, preferred []string, logger *zap.Logger) (*Watcher, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	return NewWatcher(drv, keys, notes, preferred, logger), nil
}

// NewWatcher creates a watcher over an already opened driver.
func NewWatcher(drv drivers.Driver, keys KeyHandler, notes keymap.Table, preferred []string, logger *zap.Logger) *Watcher {
	return &Watcher{
		drv:       drv,
		keys:      keys,
		notes:     notes,
		preferred: preferred,
		logger:    logger,
	}
}

// Run rescans for devices every interval until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.Tick()
	for {
		select {
		case <-ticker.C:
			w.Tick()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close drops the active connection and shuts the driver down.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeConn()
	if w.drv != nil {
		w.drv.Close()
	}
}

// Tick connects to a preferred device when none is connected and notices when
// the connected one disappears.
func (w *Watcher) Tick() {
	w.mu.Lock()
	defer w.mu.Unlock()

	inputs := w.listInputs()

	if w.connected {
		for _, n := range inputs {
			if n == w.selectedName {
				return
			}
		}
		w.logger.Warn("midi device disappeared", zap.String("device", w.selectedName))
		w.closeConn()
		w.keys.OnKeyEvent(Source, "", false)
		return
	}

	cand, ok := pickPreferred(inputs, w.preferred)
	if !ok {
		return
	}
	if err := w.openByName(cand); err != nil {
		w.logger.Error("midi connect failed", zap.String("device", cand), zap.Error(err))
	}
}

// Connected reports the name of the connected device, if any.
func (w *Watcher) Connected() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selectedName, w.connected
}

func (w *Watcher) listInputs() []string {
	ins, err := w.drv.Ins()
	if err != nil {
		w.logger.Error("midi list inputs failed", zap.Error(err))
		return nil
	}
	var names []string
	for _, in := range ins {
		if name := in.String(); !excluded(name) {
			names = append(names, name)
		}
	}
	return names
}

func (w *Watcher) closeConn() {
	if w.stopFn != nil {
		w.stopFn()
		w.stopFn = nil
	}
	if w.inPort != nil {
		_ = w.inPort.Close()
		w.inPort = nil
	}
	if w.connected {
		metrics.MIDIConnected.Set(0)
	}
	w.connected = false
	w.selectedName = ""
}

func (w *Watcher) openByName(name string) error {
	ins, err := w.drv.Ins()
	if err != nil {
		return err
	}
	var found drivers.In
	for _, in := range ins {
		if in.String() == name {
			found = in
			break
		}
	}
	if found == nil {
		return fmt.Errorf("input %q not found", name)
	}
	if err := found.Open(); err != nil {
		return fmt.Errorf("open %q: %w", name, err)
	}

	stop, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		w.handle(msg)
	}, midi.HandleError(func(listenErr error) {
		w.logger.Warn("midi listener error", zap.String("device", name), zap.Error(listenErr))
		// closeConn stops the listener, so it cannot run on the listener goroutine
		go func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if w.connected && w.selectedName == name {
				w.closeConn()
				w.keys.OnKeyEvent(Source, "", false)
			}
		}()
	}))
	if err != nil {
		_ = found.Close()
		return fmt.Errorf("listen %q: %w", name, err)
	}

	w.inPort = found
	w.stopFn = stop
	w.connected = true
	w.selectedName = name
	metrics.MIDIConnected.Set(1)
	w.logger.Info("midi connected", zap.String("device", name))
	return nil
}

// handle maps note on/off messages onto key events. Notes outside the
// keyboard are passed through under a label no key carries, so they count as
// unmatched presses.
func (w *Watcher) handle(msg midi.Message) {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		w.keys.OnKeyEvent(Source, w.label(key), true)
	case msg.GetNoteEnd(&ch, &key):
		w.keys.OnKeyEvent(Source, w.label(key), false)
	default:
		w.logger.Debug("unhandled midi message", zap.String("msg", msg.String()))
	}
}

func (w *Watcher) label(key uint8) string {
	if label, ok := w.notes.LabelForMIDI(int(key)); ok {
		return label
	}
	return "midi:" + strconv.Itoa(int(key))
}

func excluded(name string) bool {
	for _, pat := range ExcludedPatterns {
		if containsCI(name, pat) {
			return true
		}
	}
	return false
}

// pickPreferred returns the first input matching a preferred pattern, or the
// only input when there is exactly one.
func pickPreferred(inputs, preferred []string) (string, bool) {
	for _, pat := range preferred {
		for _, name := range inputs {
			if containsCI(name, pat) {
				return name, true
			}
		}
	}
	if len(inputs) == 1 {
		return inputs[0], true
	}
	return "", false
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
