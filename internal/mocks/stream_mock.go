package mocks

import (
	"context"
	"sync/atomic"

	"github.com/cyberwave-os/cyberwave-edge/internal/models"
	"github.com/cyberwave-os/cyberwave-edge/pkg/camera"
	"github.com/cyberwave-os/cyberwave-edge/pkg/stream"
)

// StreamDialer is a controllable stream.Dialer for video session tests.
type StreamDialer struct {
	// DialErr, when set, fails every Dial immediately.
	DialErr error
	// Block, when set, makes Dial wait for ctx cancellation, simulating
	// slow media negotiation.
	Block bool

	DialCount atomic.Int32
	Sessions  []*StreamSession
}

func (d *StreamDialer) Dial(ctx context.Context, offer models.SessionOffer) (stream.Session, error) {
	d.DialCount.Add(1)
	if d.DialErr != nil {
		return nil, d.DialErr
	}
	if d.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	session := &StreamSession{Offer: offer}
	d.Sessions = append(d.Sessions, session)
	return session, nil
}

// StreamSession records frames and close calls.
type StreamSession struct {
	Offer       models.SessionOffer
	SendErr     error
	frames      atomic.Uint64
	Closed      atomic.Bool
	CloseReason string
}

func (s *StreamSession) SendFrame(_ camera.Frame) error {
	if s.SendErr != nil {
		return s.SendErr
	}
	s.frames.Add(1)
	return nil
}

func (s *StreamSession) FrameCount() uint64 {
	return s.frames.Load()
}

func (s *StreamSession) Close(reason string) error {
	s.Closed.Store(true)
	s.CloseReason = reason
	return nil
}
