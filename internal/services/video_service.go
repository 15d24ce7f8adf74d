package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cyberwave-os/cyberwave-edge/internal/constants"
	"github.com/cyberwave-os/cyberwave-edge/internal/models"
	"github.com/cyberwave-os/cyberwave-edge/pkg/camera"
	"github.com/cyberwave-os/cyberwave-edge/pkg/stream"
)

// VideoService drives the video streaming session state machine:
// Idle -> Starting -> Active -> Stopping -> Idle, with Failed reachable
// from Starting and Active. At most one session exists; the camera is
// exclusive and held only by the live session.
type VideoService struct {
	twinUUID string
	device   camera.Device
	dialer   stream.Dialer
	events   *EventPublisher
	logger   zerolog.Logger

	paramsMu sync.Mutex
	params   camera.Params

	mu      sync.Mutex
	state   models.StreamState
	session *videoSession
}

type videoSession struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// NewVideoService initializes the service in the Idle state.
func NewVideoService(twinUUID string, params camera.Params, device camera.Device,
	dialer stream.Dialer, events *EventPublisher, logger zerolog.Logger) *VideoService {

	return &VideoService{
		twinUUID: twinUUID,
		device:   device,
		dialer:   dialer,
		events:   events,
		logger:   logger,
		params:   params,
		state:    models.StreamIdle,
	}
}

// Category implements CommandHandler.
func (vs *VideoService) Category() string {
	return constants.CategoryVideo
}

// Handle processes start_video and stop_video commands.
func (vs *VideoService) Handle(_ context.Context, msg models.CommandMessage) error {
	switch msg.Payload.Command {
	case constants.CommandStartVideo:
		return vs.StartVideo()
	case constants.CommandStopVideo:
		return vs.StopVideo()
	default:
		return fmt.Errorf("unknown video command: %s", msg.Payload.Command)
	}
}

// Start implements the service lifecycle. The session starts on command,
// not at boot.
func (vs *VideoService) Start() error {
	vs.logger.Info().Msg("VideoService started successfully")
	return nil
}

// Stop tears down any live session.
func (vs *VideoService) Stop() error {
	if err := vs.StopVideo(); err != nil {
		return err
	}
	vs.logger.Info().Msg("VideoService stopped successfully")
	return nil
}

// State reports the current session state for status snapshots.
func (vs *VideoService) State() models.StreamState {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.state
}

// CameraParams returns the parameters the next session will use.
func (vs *VideoService) CameraParams() camera.Params {
	vs.paramsMu.Lock()
	defer vs.paramsMu.Unlock()
	return vs.params
}

// SetCameraParams updates capture parameters for future sessions; the
// live session, if any, keeps its own.
func (vs *VideoService) SetCameraParams(params camera.Params) error {
	if params.FPS <= 0 || params.Width <= 0 || params.Height <= 0 {
		return fmt.Errorf("invalid camera parameters %dx%d@%d", params.Width, params.Height, params.FPS)
	}
	vs.paramsMu.Lock()
	vs.params = params
	vs.paramsMu.Unlock()
	return nil
}

// StartVideo begins a session. A start while one is already live is an
// idempotent no-op reported via an already_streaming event. The heavy
// work (camera acquisition, media negotiation) runs asynchronously so a
// following stop_video can cancel it mid-flight.
func (vs *VideoService) StartVideo() error {
	vs.mu.Lock()

	switch vs.state {
	case models.StreamStarting, models.StreamActive:
		state := vs.state
		vs.mu.Unlock()
		vs.logger.Warn().Str("state", string(state)).Msg("start_video ignored, session already streaming")
		vs.events.Publish(constants.EventAlreadyStreaming, "video session already streaming", map[string]string{
			"state": string(state),
		})
		return nil
	case models.StreamStopping:
		vs.mu.Unlock()
		return errors.New("video session is stopping")
	}

	sessionCtx, cancel := context.WithCancel(context.Background())
	session := &videoSession{
		id:     uuid.New().String(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	vs.state = models.StreamStarting
	vs.session = session
	vs.mu.Unlock()

	vs.logger.Info().Str("session_uuid", session.id).Msg("Starting video session")
	go vs.runSession(sessionCtx, session)

	return nil
}

// StopVideo ends the session, cancelling an in-flight start if needed.
// Stop in Idle is a no-op.
func (vs *VideoService) StopVideo() error {
	vs.mu.Lock()
	if vs.state == models.StreamIdle || vs.session == nil {
		vs.mu.Unlock()
		return nil
	}
	session := vs.session
	vs.state = models.StreamStopping
	vs.mu.Unlock()

	vs.logger.Info().Str("session_uuid", session.id).Msg("Stopping video session")
	session.cancel()
	<-session.done

	return nil
}

// runSession owns the full session lifecycle: acquire camera, negotiate
// the media transport, pump frames, release everything. All failures are
// contained here and reported as events.
func (vs *VideoService) runSession(ctx context.Context, session *videoSession) {
	defer close(session.done)

	params := vs.CameraParams()

	handle, err := vs.device.Acquire(ctx, params)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			vs.finishSession(session, "cancelled before camera acquisition")
			return
		}
		vs.failSession(session, constants.EventCameraError, "camera acquisition failed", err)
		return
	}

	if ctx.Err() != nil {
		handle.Release()
		vs.finishSession(session, "cancelled during start")
		return
	}

	media, err := vs.dialer.Dial(ctx, models.SessionOffer{
		SessionUUID: session.id,
		TwinUUID:    vs.twinUUID,
		CameraID:    params.ID,
		FPS:         params.FPS,
		Width:       params.Width,
		Height:      params.Height,
	})
	if err != nil {
		handle.Release()
		if errors.Is(err, context.Canceled) {
			vs.finishSession(session, "cancelled during negotiation")
			return
		}
		vs.failSession(session, constants.EventStreamState, "media session negotiation failed", err)
		return
	}

	if !vs.transitionToActive(session) {
		media.Close("cancelled")
		handle.Release()
		vs.finishSession(session, "cancelled during start")
		return
	}

	vs.events.Publish(constants.EventStreamState, "video session active", map[string]string{
		"session_uuid": session.id,
		"state":        string(models.StreamActive),
	})

	err = vs.pumpFrames(ctx, handle, media, params.FPS)

	media.Close(closeReason(err))
	handle.Release()

	if err != nil && !errors.Is(err, context.Canceled) {
		vs.failSession(session, constants.EventCameraError, "video session failed", err)
		return
	}
	vs.finishSession(session, "stopped")
}

// pumpFrames reads camera frames at the configured rate and writes them
// to the media session until cancellation or error.
func (vs *VideoService) pumpFrames(ctx context.Context, handle camera.Handle, media stream.Session, fps int) error {
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			frame, err := handle.ReadFrame(ctx)
			if err != nil {
				return fmt.Errorf("frame read: %w", err)
			}
			if err := media.SendFrame(frame); err != nil {
				return fmt.Errorf("frame send: %w", err)
			}
		case <-ctx.Done():
			vs.logger.Debug().Uint64("frames", media.FrameCount()).Msg("Frame pump cancelled")
			return ctx.Err()
		}
	}
}

// transitionToActive flips Starting to Active unless a stop raced in.
func (vs *VideoService) transitionToActive(session *videoSession) bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.session != session || vs.state != models.StreamStarting {
		return false
	}
	vs.state = models.StreamActive
	vs.logger.Info().Str("session_uuid", session.id).Msg("Video session active")
	return true
}

// failSession reports the failure, passes through Failed, and settles in
// Idle so a new start can follow.
func (vs *VideoService) failSession(session *videoSession, kind, message string, err error) {
	vs.mu.Lock()
	if vs.session == session {
		vs.state = models.StreamFailed
	}
	vs.mu.Unlock()

	vs.logger.Error().Err(err).Str("session_uuid", session.id).Msg(message)
	vs.events.Publish(kind, message, map[string]string{
		"session_uuid": session.id,
		"error":        err.Error(),
	})

	vs.clearSession(session)
}

// finishSession returns the machine to Idle after a clean stop.
func (vs *VideoService) finishSession(session *videoSession, reason string) {
	vs.logger.Info().Str("session_uuid", session.id).Str("reason", reason).Msg("Video session ended")
	vs.events.Publish(constants.EventStreamState, "video session ended", map[string]string{
		"session_uuid": session.id,
		"state":        string(models.StreamIdle),
		"reason":       reason,
	})
	vs.clearSession(session)
}

func (vs *VideoService) clearSession(session *videoSession) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	if vs.session == session {
		vs.session = nil
		vs.state = models.StreamIdle
	}
}

func closeReason(err error) string {
	if err == nil || errors.Is(err, context.Canceled) {
		return "stopped"
	}
	return "failed"
}
