package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/cyberwave-os/cyberwave-edge/internal/models"
	"github.com/cyberwave-os/cyberwave-edge/pkg/camera"
)

const writeTimeout = 10 * time.Second

// Session is an established media transport. Frames go out as binary
// messages; Close performs the stream-ended handshake.
type Session interface {
	SendFrame(frame camera.Frame) error
	FrameCount() uint64
	Close(reason string) error
}

// Dialer establishes media sessions. The video service depends on this
// interface so tests can stub the network.
type Dialer interface {
	Dial(ctx context.Context, offer models.SessionOffer) (Session, error)
}

// WebsocketDialer dials the backend stream endpoint over websocket and
// negotiates the session with a JSON offer frame.
type WebsocketDialer struct {
	URL    string
	Logger zerolog.Logger
}

// NewWebsocketDialer creates a dialer for the given stream endpoint.
func NewWebsocketDialer(url string, logger zerolog.Logger) *WebsocketDialer {
	return &WebsocketDialer{URL: url, Logger: logger}
}

// Dial connects and sends the session offer. The returned session is
// ready for frame writes.
func (d *WebsocketDialer) Dial(ctx context.Context, offer models.SessionOffer) (Session, error) {
	if d.URL == "" {
		return nil, fmt.Errorf("stream: no endpoint configured")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("stream: dial %s: %w", d.URL, err)
	}

	offer.Type = models.StreamMessageOffer
	payload, err := json.Marshal(offer)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("stream: failed to serialize offer: %w", err)
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		conn.Close()
		return nil, fmt.Errorf("stream: failed to send offer: %w", err)
	}

	d.Logger.Info().Str("session_uuid", offer.SessionUUID).Str("endpoint", d.URL).Msg("Media session established")

	return &wsSession{
		conn:        conn,
		sessionUUID: offer.SessionUUID,
		logger:      d.Logger,
	}, nil
}

type wsSession struct {
	conn        *websocket.Conn
	sessionUUID string
	logger      zerolog.Logger

	mu     sync.Mutex
	frames uint64
	closed bool
}

// SendFrame writes one frame as a binary message.
func (s *wsSession) SendFrame(frame camera.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("stream: session closed")
	}

	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame.Data); err != nil {
		return fmt.Errorf("stream: frame write failed: %w", err)
	}

	s.frames++
	return nil
}

// FrameCount reports frames sent so far.
func (s *wsSession) FrameCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Close sends the stream-ended control frame and the websocket close
// handshake, then drops the connection. Safe to call more than once.
func (s *wsSession) Close(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	closing := models.SessionClosed{
		Type:        models.StreamMessageClosed,
		SessionUUID: s.sessionUUID,
		Reason:      reason,
		FrameCount:  s.frames,
	}
	if payload, err := json.Marshal(closing); err == nil {
		s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to send stream-ended frame")
		}
	}

	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))

	return s.conn.Close()
}
