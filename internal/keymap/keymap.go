package keymap

import (
	"fmt"
	"math"
)

// Note pairs a key label with the frequency it sounds, in Hz.
type Note struct {
	Name string
	Freq int
}

// Table is an ordered set of notes. Order matches the keyboard left to right.
type Table []Note

// Default is the one-octave keyboard, C4 up to C5. HC is the high C.
var Default = Table{
	{Name: "C", Freq: 262},
	{Name: "D", Freq: 294},
	{Name: "E", Freq: 330},
	{Name: "F", Freq: 349},
	{Name: "G", Freq: 392},
	{Name: "A", Freq: 440},
	{Name: "B", Freq: 494},
	{Name: "HC", Freq: 523},
}

// Lookup returns the frequency paired with name. First match wins.
func (t Table) Lookup(name string) (int, bool) {
	for _, n := range t {
		if n.Name == name {
			return n.Freq, true
		}
	}
	return 0, false
}

// NameOf returns the label sounding at freq.
func (t Table) NameOf(freq int) (string, bool) {
	for _, n := range t {
		if n.Freq == freq {
			return n.Name, true
		}
	}
	return "", false
}

// Names returns the labels in keyboard order.
func (t Table) Names() []string {
	names := make([]string, len(t))
	for i, n := range t {
		names[i] = n.Name
	}
	return names
}

// MIDINote returns the equal-tempered MIDI note number nearest to freq.
func MIDINote(freq int) int {
	return int(math.Round(69 + 12*math.Log2(float64(freq)/440)))
}

// LabelForMIDI returns the label whose frequency rounds to the given MIDI note.
func (t Table) LabelForMIDI(key int) (string, bool) {
	for _, n := range t {
		if MIDINote(n.Freq) == key {
			return n.Name, true
		}
	}
	return "", false
}

// Validate checks that the table is non-empty, that every frequency is positive,
// and that names and frequencies are unique.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("note table is empty")
	}
	names := make(map[string]bool, len(t))
	freqs := make(map[int]bool, len(t))
	for i, n := range t {
		if n.Name == "" {
			return fmt.Errorf("note %d: empty name", i)
		}
		if n.Freq <= 0 {
			return fmt.Errorf("note %q: frequency must be positive, got %d", n.Name, n.Freq)
		}
		if names[n.Name] {
			return fmt.Errorf("note %q: duplicate name", n.Name)
		}
		if freqs[n.Freq] {
			return fmt.Errorf("note %q: duplicate frequency %d", n.Name, n.Freq)
		}
		names[n.Name] = true
		freqs[n.Freq] = true
	}
	return nil
}
