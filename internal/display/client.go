package display

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/piotrcurious/Bluedisplay-piano/internal/metrics"
)

// Source names key events that come from the touch display.
const Source = "display"

// ErrConnectTimeout is returned when the display does not answer the
// handshake in time.
var ErrConnectTimeout = errors.New("display did not answer handshake")

// KeyHandler receives key presses and releases.
type KeyHandler interface {
	OnKeyEvent(source, label string, pressed bool) bool
}

// Config controls connection behaviour.
type Config struct {
	ConnectTimeout time.Duration
	RetryDelay     time.Duration
}

// Client keeps a session with the display alive: it connects, draws the
// keyboard, forwards touches, redraws on request and reconnects when the
// link drops.
type Client struct {
	dialer Dialer
	keys   KeyHandler
	labels []string
	cfg    Config
	logger *zap.Logger
}

// NewClient creates a client drawing one key per label.
func NewClient(dialer Dialer, keys KeyHandler, labels []string, cfg Config, logger *zap.Logger) *Client {
	return &Client{
		dialer: dialer,
		keys:   keys,
		labels: labels,
		cfg:    cfg,
		logger: logger,
	}
}

// Run connects and serves sessions until ctx is cancelled. Connection
// failures are retried forever after a fixed delay.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		sess, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.DisplayConnectAttemptsTotal.WithLabelValues("failed").Inc()
			c.logger.Warn("display connect failed, retrying",
				zap.Error(err),
				zap.Duration("retryIn", c.cfg.RetryDelay),
			)
			select {
			case <-time.After(c.cfg.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		metrics.DisplayConnectAttemptsTotal.WithLabelValues("ok").Inc()
		metrics.DisplayConnected.Set(1)

		err = sess.serve(ctx)
		sess.close()
		metrics.DisplayConnected.Set(0)

		// A key held when the link went away will never see its release.
		c.keys.OnKeyEvent(Source, "", false)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		sess.logger.Warn("display session ended", zap.Error(err))
	}
}

// session is one established connection.
type session struct {
	c      *Client
	id     string
	conn   io.ReadWriteCloser
	logger *zap.Logger
	router *Router

	lines chan []byte
	errc  chan error
	done  chan struct{}

	closeOnce sync.Once
}

func (c *Client) connect(ctx context.Context) (*session, error) {
	conn, err := c.dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	id := uuid.New().String()
	s := &session{
		c:      c,
		id:     id,
		conn:   conn,
		logger: c.logger.With(zap.String("session", id)),
		lines:  make(chan []byte, 16),
		errc:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	go s.readLoop()

	screen, err := s.handshake(ctx)
	if err != nil {
		s.close()
		return nil, err
	}
	s.logger.Info("display connected",
		zap.Int("width", screen.Width),
		zap.Int("height", screen.Height),
	)

	s.router = NewRouter(s.logger)
	s.router.Register(MsgConnected, s.layoutHandler("reconnect"))
	s.router.Register(MsgRedraw, s.layoutHandler("redraw"))
	s.router.Register(MsgTouch, s.handleTouch)

	if err := s.sendLayout(screen, "connect"); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// handshake announces the controller and waits for the display's size.
func (s *session) handshake(ctx context.Context) (Screen, error) {
	if err := s.send(MsgHello, Hello{Client: "piano", Session: s.id}); err != nil {
		return Screen{}, err
	}

	timer := time.NewTimer(s.c.cfg.ConnectTimeout)
	defer timer.Stop()

	for {
		select {
		case line := <-s.lines:
			var env Envelope
			if err := json.Unmarshal(line, &env); err != nil || env.Type != MsgConnected {
				s.logger.Debug("ignoring message before handshake", zap.ByteString("line", line))
				continue
			}
			var screen Screen
			if err := json.Unmarshal(env.Payload, &screen); err != nil {
				return Screen{}, fmt.Errorf("decode connected payload: %w", err)
			}
			return screen, nil
		case err := <-s.errc:
			return Screen{}, fmt.Errorf("read during handshake: %w", err)
		case <-timer.C:
			return Screen{}, ErrConnectTimeout
		case <-ctx.Done():
			return Screen{}, ctx.Err()
		}
	}
}

// serve dispatches display messages until the link fails or ctx is done.
func (s *session) serve(ctx context.Context) error {
	for {
		select {
		case line := <-s.lines:
			if err := s.router.Dispatch(line); err != nil {
				s.logger.Warn("dispatch error", zap.Error(err))
			}
		case err := <-s.errc:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *session) readLoop() {
	sc := bufio.NewScanner(s.conn)
	for sc.Scan() {
		line := append([]byte(nil), sc.Bytes()...)
		if len(line) == 0 {
			continue
		}
		select {
		case s.lines <- line:
		case <-s.done:
			return
		}
	}
	err := sc.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case s.errc <- err:
	case <-s.done:
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

func (s *session) layoutHandler(trigger string) Handler {
	return func(payload json.RawMessage) error {
		var screen Screen
		if err := json.Unmarshal(payload, &screen); err != nil {
			return fmt.Errorf("decode %s payload: %w", trigger, err)
		}
		return s.sendLayout(screen, trigger)
	}
}

func (s *session) handleTouch(payload json.RawMessage) error {
	var t Touch
	if err := json.Unmarshal(payload, &t); err != nil {
		return fmt.Errorf("decode touch payload: %w", err)
	}
	s.c.keys.OnKeyEvent(Source, t.Label, t.Down)
	return nil
}

func (s *session) sendLayout(screen Screen, trigger string) error {
	buttons, err := Layout(screen.Width, screen.Height, s.c.labels)
	if err != nil {
		return err
	}
	if err := s.send(MsgLayout, LayoutCommand{
		Width:   screen.Width,
		Height:  screen.Height,
		Buttons: buttons,
	}); err != nil {
		return err
	}
	metrics.LayoutBuildsTotal.WithLabelValues(trigger).Inc()
	s.logger.Info("keyboard layout sent",
		zap.String("trigger", trigger),
		zap.Int("width", screen.Width),
		zap.Int("height", screen.Height),
		zap.Int("keys", len(buttons)),
	)
	return nil
}

func (s *session) send(msgType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msgType, err)
	}
	line, err := json.Marshal(Envelope{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Payload:   json.RawMessage(raw),
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if _, err := s.conn.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write %s: %w", msgType, err)
	}
	return nil
}
