package display

import "encoding/json"

// Message types exchanged with the display. Each message is one JSON line.
const (
	// controller -> display
	MsgHello  = "hello"
	MsgLayout = "layout"

	// display -> controller
	MsgConnected = "connected"
	MsgRedraw    = "redraw"
	MsgTouch     = "touch"
)

// Envelope is the top-level wrapper for all display messages.
type Envelope struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Hello opens the handshake.
type Hello struct {
	Client  string `json:"client"`
	Session string `json:"session"`
}

// Screen reports the display's drawable size. It is the payload of both
// connected and redraw messages.
type Screen struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Touch is a press or release on a labeled touch zone.
type Touch struct {
	Label string `json:"label"`
	Down  bool   `json:"down"`
}

// LayoutCommand replaces every touch zone on the display.
type LayoutCommand struct {
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Buttons []Button `json:"buttons"`
}
