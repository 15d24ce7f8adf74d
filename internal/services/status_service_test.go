package services

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cyberwave-os/cyberwave-edge/internal/constants"
	"github.com/cyberwave-os/cyberwave-edge/internal/mocks"
	"github.com/cyberwave-os/cyberwave-edge/internal/models"
	"github.com/cyberwave-os/cyberwave-edge/pkg/mqtt"
)

// snapshotRecorder captures transient publishes safely across goroutines.
type snapshotRecorder struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (r *snapshotRecorder) record(args mock.Arguments) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, args.Get(3).([]byte))
}

func (r *snapshotRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func (r *snapshotRecorder) first() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payloads[0]
}

// TestStatusService_PublishesSnapshotsOnTicks verifies snapshots go out
// periodically and carry the device identity, stream state, and version.
func TestStatusService_PublishesSnapshotsOnTicks(t *testing.T) {
	recorder := &snapshotRecorder{}
	mqttClient := new(mocks.MQTTClient)
	mqttClient.On("IsConnected").Return(true)
	mqttClient.On("PublishTransient", constants.StatusTopic(testDeviceID), mock.Anything, mock.Anything, mock.Anything).
		Run(recorder.record).Return(nil)

	s := NewStatusService(testDeviceID, 50*time.Millisecond, 1, mqttClient,
		func() models.StreamState { return models.StreamActive }, zerolog.Nop())

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool {
		return recorder.count() >= 2
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())

	var snapshot models.StatusSnapshot
	require.NoError(t, json.Unmarshal(recorder.first(), &snapshot))
	assert.Equal(t, testDeviceID, snapshot.DeviceID)
	assert.Equal(t, string(models.StreamActive), snapshot.StreamState)
	assert.Equal(t, constants.AgentVersion, snapshot.AgentVersion)
	assert.True(t, snapshot.Connected)
	assert.GreaterOrEqual(t, snapshot.UptimeSeconds, float64(0))
}

// TestStatusService_DisconnectedTransportNotFatal verifies missed
// publishes while the broker is down do not stop the reporting loop.
func TestStatusService_DisconnectedTransportNotFatal(t *testing.T) {
	recorder := &snapshotRecorder{}
	mqttClient := new(mocks.MQTTClient)
	mqttClient.On("IsConnected").Return(false)
	mqttClient.On("PublishTransient", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(recorder.record).Return(mqtt.ErrNotConnected)

	s := NewStatusService(testDeviceID, 30*time.Millisecond, 1, mqttClient,
		func() models.StreamState { return models.StreamIdle }, zerolog.Nop())

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool {
		return recorder.count() >= 3
	}, 2*time.Second, 10*time.Millisecond, "loop must keep ticking through failures")
	require.NoError(t, s.Stop())
}

// TestStatusService_SetInterval verifies runtime interval updates and the
// one-second floor.
func TestStatusService_SetInterval(t *testing.T) {
	mqttClient := new(mocks.MQTTClient)
	s := NewStatusService(testDeviceID, 30*time.Second, 1, mqttClient,
		func() models.StreamState { return models.StreamIdle }, zerolog.Nop())

	assert.Error(t, s.SetInterval(500*time.Millisecond))
	assert.Equal(t, 30*time.Second, s.Interval())

	require.NoError(t, s.SetInterval(5*time.Second))
	assert.Equal(t, 5*time.Second, s.Interval())
}

// TestStatusService_Lifecycle verifies double start and stop without
// start are rejected.
func TestStatusService_Lifecycle(t *testing.T) {
	mqttClient := new(mocks.MQTTClient)
	mqttClient.On("IsConnected").Return(true)
	mqttClient.On("PublishTransient", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	s := NewStatusService(testDeviceID, time.Minute, 1, mqttClient,
		func() models.StreamState { return models.StreamIdle }, zerolog.Nop())

	assert.Error(t, s.Stop())
	require.NoError(t, s.Start())
	assert.Error(t, s.Start())
	require.NoError(t, s.Stop())
}

func TestCollectTimeout(t *testing.T) {
	assert.Equal(t, time.Second, collectTimeout(time.Second))
	assert.Equal(t, 10*time.Second, collectTimeout(30*time.Second))
	assert.Equal(t, 10*time.Second, collectTimeout(5*time.Minute))
}
