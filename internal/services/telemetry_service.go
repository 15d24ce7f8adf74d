package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cyberwave-os/cyberwave-edge/internal/constants"
	"github.com/cyberwave-os/cyberwave-edge/internal/models"
	"github.com/cyberwave-os/cyberwave-edge/pkg/mqtt"
	"github.com/cyberwave-os/cyberwave-edge/pkg/sensors"
)

const sensorReadTimeout = 15 * time.Second

// TelemetryService handles the sensor command category: on a read
// command it collects one reading from the configured provider and
// publishes it to the telemetry topic. Provider failures produce an
// error ack and an event, never more.
type TelemetryService struct {
	deviceID   string
	qos        int
	mqttClient mqtt.Client
	provider   sensors.Provider
	events     *EventPublisher
	logger     zerolog.Logger
}

// NewTelemetryService initializes a TelemetryService.
func NewTelemetryService(deviceID string, qos int, mqttClient mqtt.Client,
	provider sensors.Provider, events *EventPublisher, logger zerolog.Logger) *TelemetryService {

	return &TelemetryService{
		deviceID:   deviceID,
		qos:        qos,
		mqttClient: mqttClient,
		provider:   provider,
		events:     events,
		logger:     logger,
	}
}

// Category implements CommandHandler.
func (ts *TelemetryService) Category() string {
	return constants.CategorySensor
}

// Handle processes sensor commands.
func (ts *TelemetryService) Handle(ctx context.Context, msg models.CommandMessage) error {
	switch msg.Payload.Command {
	case constants.CommandRead:
		return ts.readAndPublish(ctx)
	default:
		return fmt.Errorf("unknown sensor command: %s", msg.Payload.Command)
	}
}

// Start implements the service lifecycle.
func (ts *TelemetryService) Start() error {
	ts.logger.Info().Str("provider", ts.provider.Name()).Msg("TelemetryService started successfully")
	return nil
}

// Stop implements the service lifecycle.
func (ts *TelemetryService) Stop() error {
	ts.logger.Info().Msg("TelemetryService stopped successfully")
	return nil
}

func (ts *TelemetryService) readAndPublish(ctx context.Context) error {
	readCtx, cancel := context.WithTimeout(ctx, sensorReadTimeout)
	defer cancel()

	position, err := ts.provider.Read(readCtx)
	if err != nil {
		ts.logger.Error().Err(err).Str("provider", ts.provider.Name()).Msg("Sensor read failed")
		ts.events.Publish(constants.EventTelemetryError, "sensor read failed", map[string]string{
			"provider": ts.provider.Name(),
			"error":    err.Error(),
		})
		return fmt.Errorf("sensor read: %w", err)
	}

	reading := models.TelemetryReading{
		DeviceID: ts.deviceID,
		Sensor:   ts.provider.Name(),
		Values: map[string]float64{
			"latitude":  position.Latitude,
			"longitude": position.Longitude,
			"accuracy":  position.Accuracy,
		},
		Unit:      "degrees",
		Timestamp: time.Now(),
	}

	payload, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to serialize telemetry reading: %w", err)
	}

	topic := constants.TelemetryTopic(ts.deviceID)
	if err := ts.mqttClient.Publish(topic, byte(ts.qos), false, payload); err != nil {
		ts.logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish telemetry reading")
		return err
	}

	ts.logger.Debug().Str("provider", ts.provider.Name()).Msg("Telemetry reading published successfully")
	return nil
}
