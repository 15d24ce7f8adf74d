package services

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/cyberwave-os/cyberwave-edge/internal/constants"
	"github.com/cyberwave-os/cyberwave-edge/internal/models"
	"github.com/cyberwave-os/cyberwave-edge/pkg/mqtt"
)

// EventPublisher reports errors and state changes on the events topic.
// Shared by every service; publishing is best-effort and must never
// block or fail a caller.
type EventPublisher struct {
	deviceID   string
	qos        byte
	mqttClient mqtt.Client
	logger     zerolog.Logger
}

// NewEventPublisher creates an EventPublisher for the given device.
func NewEventPublisher(deviceID string, qos byte, mqttClient mqtt.Client, logger zerolog.Logger) *EventPublisher {
	return &EventPublisher{
		deviceID:   deviceID,
		qos:        qos,
		mqttClient: mqttClient,
		logger:     logger,
	}
}

// Publish sends one event. Failures are logged and swallowed; the
// transport queues events while disconnected.
func (p *EventPublisher) Publish(kind, message string, detail map[string]string) {
	event := models.Event{
		DeviceID:  p.deviceID,
		Kind:      kind,
		Message:   message,
		Detail:    detail,
		Timestamp: time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Str("kind", kind).Msg("Failed to serialize event")
		return
	}

	topic := constants.EventsTopic(p.deviceID)
	if err := p.mqttClient.Publish(topic, p.qos, false, payload); err != nil {
		p.logger.Error().Err(err).Str("kind", kind).Str("topic", topic).Msg("Failed to publish event")
	}
}
