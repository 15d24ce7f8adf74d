package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/cyberwave-os/cyberwave-edge/internal/constants"
	"github.com/cyberwave-os/cyberwave-edge/internal/models"
	"github.com/cyberwave-os/cyberwave-edge/pkg/camera"
)

// statusControl is the slice of the status reporter the config handler
// drives.
type statusControl interface {
	Interval() time.Duration
	SetInterval(interval time.Duration) error
}

// cameraControl is the slice of the video service the config handler
// drives.
type cameraControl interface {
	CameraParams() camera.Params
	SetCameraParams(params camera.Params) error
}

// resolver re-runs backend registration on request.
type resolver interface {
	Authenticate(ctx context.Context, req models.AuthRequest) (*models.AuthResponse, error)
}

// ConfigService handles the config command category: reading and
// adjusting the runtime-tunable settings, and re-resolving broker
// parameters through the backend.
type ConfigService struct {
	authReq models.AuthRequest
	status  statusControl
	video   cameraControl
	backend resolver
	events  *EventPublisher
	logger  zerolog.Logger
}

type configSetParams struct {
	StatusIntervalSeconds *int    `json:"status_interval_seconds,omitempty"`
	CameraID              *int    `json:"camera_id,omitempty"`
	CameraFPS             *int    `json:"camera_fps,omitempty"`
	CameraWidth           *int    `json:"camera_width,omitempty"`
	CameraHeight          *int    `json:"camera_height,omitempty"`
	LogLevel              *string `json:"log_level,omitempty"`
}

// NewConfigService initializes a ConfigService.
func NewConfigService(authReq models.AuthRequest, status statusControl, video cameraControl,
	backend resolver, events *EventPublisher, logger zerolog.Logger) *ConfigService {

	return &ConfigService{
		authReq: authReq,
		status:  status,
		video:   video,
		backend: backend,
		events:  events,
		logger:  logger,
	}
}

// Category implements CommandHandler.
func (cf *ConfigService) Category() string {
	return constants.CategoryConfig
}

// Handle processes config commands.
func (cf *ConfigService) Handle(ctx context.Context, msg models.CommandMessage) error {
	switch msg.Payload.Command {
	case constants.CommandGet:
		return cf.publishSettings()
	case constants.CommandSet:
		return cf.applySettings(msg.Payload.Params)
	case constants.CommandReresolve:
		return cf.reresolve(ctx)
	default:
		return fmt.Errorf("unknown config command: %s", msg.Payload.Command)
	}
}

// Start implements the service lifecycle.
func (cf *ConfigService) Start() error {
	cf.logger.Info().Msg("ConfigService started successfully")
	return nil
}

// Stop implements the service lifecycle.
func (cf *ConfigService) Stop() error {
	cf.logger.Info().Msg("ConfigService stopped successfully")
	return nil
}

func (cf *ConfigService) publishSettings() error {
	params := cf.video.CameraParams()
	cf.events.Publish(constants.EventConfigApplied, "current settings", map[string]string{
		"status_interval": cf.status.Interval().String(),
		"camera_id":       strconv.Itoa(params.ID),
		"camera_fps":      strconv.Itoa(params.FPS),
		"camera_width":    strconv.Itoa(params.Width),
		"camera_height":   strconv.Itoa(params.Height),
		"log_level":       zerolog.GlobalLevel().String(),
	})
	return nil
}

// applySettings validates and applies each requested change. The first
// invalid field aborts without touching the remaining ones.
func (cf *ConfigService) applySettings(raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("config set requires params")
	}

	var params configSetParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return fmt.Errorf("invalid config params: %w", err)
	}

	applied := make(map[string]string)

	if params.StatusIntervalSeconds != nil {
		interval := time.Duration(*params.StatusIntervalSeconds) * time.Second
		if err := cf.status.SetInterval(interval); err != nil {
			return err
		}
		applied["status_interval"] = interval.String()
	}

	if params.CameraID != nil || params.CameraFPS != nil || params.CameraWidth != nil || params.CameraHeight != nil {
		updated := cf.video.CameraParams()
		if params.CameraID != nil {
			updated.ID = *params.CameraID
		}
		if params.CameraFPS != nil {
			updated.FPS = *params.CameraFPS
		}
		if params.CameraWidth != nil {
			updated.Width = *params.CameraWidth
		}
		if params.CameraHeight != nil {
			updated.Height = *params.CameraHeight
		}
		if err := cf.video.SetCameraParams(updated); err != nil {
			return err
		}
		applied["camera"] = fmt.Sprintf("%dx%d@%d", updated.Width, updated.Height, updated.FPS)
	}

	if params.LogLevel != nil {
		level, err := zerolog.ParseLevel(*params.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", *params.LogLevel, err)
		}
		zerolog.SetGlobalLevel(level)
		applied["log_level"] = level.String()
	}

	if len(applied) == 0 {
		return fmt.Errorf("config set changed nothing")
	}

	cf.logger.Info().Interface("applied", applied).Msg("Runtime settings updated")
	cf.events.Publish(constants.EventConfigApplied, "settings updated", applied)
	return nil
}

// reresolve re-authenticates against the backend and reports the broker
// parameters it returned. The running connection is left alone; resolved
// values take effect on the next restart.
func (cf *ConfigService) reresolve(ctx context.Context) error {
	resp, err := cf.backend.Authenticate(ctx, cf.authReq)
	if err != nil {
		return fmt.Errorf("re-resolution failed: %w", err)
	}

	cf.logger.Info().
		Str("mqtt_host", resp.MQTTHost).
		Int("mqtt_port", resp.MQTTPort).
		Msg("Broker parameters re-resolved")
	cf.events.Publish(constants.EventConfigApplied, "broker parameters re-resolved", map[string]string{
		"mqtt_host": resp.MQTTHost,
		"mqtt_port": strconv.Itoa(resp.MQTTPort),
	})
	return nil
}
