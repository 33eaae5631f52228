package display

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Handler processes the payload of one message type.
type Handler func(payload json.RawMessage) error

// Router dispatches incoming display messages to registered handlers.
type Router struct {
	handlers map[string]Handler
	logger   *zap.Logger
}

// NewRouter creates a new message router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{handlers: make(map[string]Handler), logger: logger}
}

// Register adds a handler for a specific message type.
func (r *Router) Register(msgType string, h Handler) {
	r.handlers[msgType] = h
}

// Dispatch parses a raw message line and routes it to the matching handler.
// Unknown types are logged and dropped.
func (r *Router) Dispatch(raw []byte) error {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}

	h, ok := r.handlers[env.Type]
	if !ok {
		r.logger.Debug("unknown message type", zap.String("type", env.Type))
		return nil
	}

	return h(env.Payload)
}
