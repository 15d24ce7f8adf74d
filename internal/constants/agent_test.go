package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicBuilders(t *testing.T) {
	assert.Equal(t, "cyberwave/device/edge-1/commands/video", CommandTopic("edge-1", CategoryVideo))
	assert.Equal(t, "cyberwave/device/edge-1/commands/+", CommandWildcardTopic("edge-1"))
	assert.Equal(t, "cyberwave/device/edge-1/status", StatusTopic("edge-1"))
	assert.Equal(t, "cyberwave/device/edge-1/telemetry", TelemetryTopic("edge-1"))
	assert.Equal(t, "cyberwave/device/edge-1/events", EventsTopic("edge-1"))
}
