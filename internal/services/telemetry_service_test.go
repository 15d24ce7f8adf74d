package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cyberwave-os/cyberwave-edge/internal/constants"
	"github.com/cyberwave-os/cyberwave-edge/internal/mocks"
	"github.com/cyberwave-os/cyberwave-edge/internal/models"
	"github.com/cyberwave-os/cyberwave-edge/pkg/sensors"
)

func newTestTelemetryService(t *testing.T, provider *mocks.SensorProvider) (*TelemetryService, *mocks.MQTTClient) {
	t.Helper()
	mqttClient := new(mocks.MQTTClient)
	mqttClient.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	events := NewEventPublisher(testDeviceID, 1, mqttClient, zerolog.Nop())
	ts := NewTelemetryService(testDeviceID, 1, mqttClient, provider, events, zerolog.Nop())
	return ts, mqttClient
}

func readCommand() models.CommandMessage {
	return models.CommandMessage{
		Category: constants.CategorySensor,
		Payload:  models.CommandPayload{Command: constants.CommandRead},
	}
}

// TestTelemetryService_ReadPublishesReading verifies a successful sensor
// read lands on the telemetry topic with the position values.
func TestTelemetryService_ReadPublishesReading(t *testing.T) {
	provider := new(mocks.SensorProvider)
	provider.On("Name").Return("gps")
	provider.On("Read", mock.Anything).Return(sensors.Position{
		Latitude:  48.8584,
		Longitude: 2.2945,
		Accuracy:  1.5,
	}, nil)

	ts, mqttClient := newTestTelemetryService(t, provider)

	require.NoError(t, ts.Handle(context.Background(), readCommand()))

	payloads := mqttClient.PublishedPayloads(constants.TelemetryTopic(testDeviceID))
	require.Len(t, payloads, 1)

	var reading models.TelemetryReading
	require.NoError(t, json.Unmarshal(payloads[0], &reading))
	assert.Equal(t, testDeviceID, reading.DeviceID)
	assert.Equal(t, "gps", reading.Sensor)
	assert.InDelta(t, 48.8584, reading.Values["latitude"], 1e-9)
	assert.InDelta(t, 2.2945, reading.Values["longitude"], 1e-9)
	assert.InDelta(t, 1.5, reading.Values["accuracy"], 1e-9)
}

// TestTelemetryService_ReadFailure verifies a provider failure produces
// an error (for the error ack) and a telemetry-error event, and nothing
// on the telemetry topic.
func TestTelemetryService_ReadFailure(t *testing.T) {
	provider := new(mocks.SensorProvider)
	provider.On("Name").Return("gps")
	provider.On("Read", mock.Anything).Return(sensors.Position{}, errors.New("no fix"))

	ts, mqttClient := newTestTelemetryService(t, provider)

	err := ts.Handle(context.Background(), readCommand())

	require.Error(t, err)
	assert.Empty(t, mqttClient.PublishedPayloads(constants.TelemetryTopic(testDeviceID)))
	assert.Equal(t, []string{constants.EventTelemetryError}, publishedEventKinds(mqttClient))
}

// TestTelemetryService_UnknownCommand verifies unrecognized sensor
// commands are rejected.
func TestTelemetryService_UnknownCommand(t *testing.T) {
	provider := new(mocks.SensorProvider)
	ts, _ := newTestTelemetryService(t, provider)

	err := ts.Handle(context.Background(), models.CommandMessage{
		Category: constants.CategorySensor,
		Payload:  models.CommandPayload{Command: "calibrate"},
	})

	assert.Error(t, err)
}
