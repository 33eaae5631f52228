package display

import "fmt"

// Button is a labeled rectangular touch zone, in display pixels.
type Button struct {
	Label string `json:"label"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	W     int    `json:"w"`
	H     int    `json:"h"`
}

// Layout places one equal-width key per label in a single row spanning the
// full height of a width x height screen. Keys are ordered left to right.
// Pixels left over by the integer division stay unused at the right edge.
func Layout(width, height int, labels []string) ([]Button, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("layout: no keys")
	}
	if width < len(labels) || height <= 0 {
		return nil, fmt.Errorf("layout: screen %dx%d too small for %d keys", width, height, len(labels))
	}
	w := width / len(labels)
	buttons := make([]Button, len(labels))
	for i, label := range labels {
		buttons[i] = Button{Label: label, X: i * w, Y: 0, W: w, H: height}
	}
	return buttons, nil
}
