package constants

import "fmt"

// AgentVersion is the semantic version of this agent build. It is compared
// against the minimum version advertised by the backend at registration.
const AgentVersion = "1.2.0"

// Process exit codes. These form the contract with the service manager:
// only auth failures should skip automatic restart.
const (
	ExitOK        = 0
	ExitConfig    = 2
	ExitAuth      = 3
	ExitTransport = 4
)

// Command categories routed by the command service. The category is the
// last level of the command topic.
const (
	CategoryVideo   = "video"
	CategorySensor  = "sensor"
	CategoryActuate = "actuate"
	CategoryConfig  = "config"
)

// Well-known command names.
const (
	CommandStartVideo = "start_video"
	CommandStopVideo  = "stop_video"
	CommandRead       = "read"
	CommandGet        = "get"
	CommandSet        = "set"
	CommandReresolve  = "reresolve"
)

// Ack statuses echoed back on the command topic.
const (
	AckOK    = "ok"
	AckError = "error"
)

// Event kinds published to the events topic.
const (
	EventDecodeError      = "decode_error"
	EventUnknownCategory  = "unknown_category"
	EventQueueFull        = "queue_full"
	EventCameraError      = "camera_error"
	EventStreamState      = "stream_state"
	EventAlreadyStreaming = "already_streaming"
	EventTransport        = "transport"
	EventTelemetryError   = "telemetry_error"
	EventActuateResult    = "actuate_result"
	EventConfigApplied    = "config_applied"
	EventVersionOutdated  = "version_outdated"
)

// Defaults for the runtime-adjustable surface.
const (
	DefaultStatusIntervalSeconds = 30
	DefaultCameraID              = 0
	DefaultCameraFPS             = 10
	DefaultCameraWidth           = 640
	DefaultCameraHeight          = 480
	DefaultCommandQueueSize      = 16
	DefaultPublishQueueSize      = 64
	DefaultActuateTimeoutSeconds = 30
)

// Topic builders for the device-scoped namespace.

// CommandTopic returns the command topic for a single category.
func CommandTopic(deviceID, category string) string {
	return fmt.Sprintf("cyberwave/device/%s/commands/%s", deviceID, category)
}

// CommandWildcardTopic matches all command categories for a device.
func CommandWildcardTopic(deviceID string) string {
	return fmt.Sprintf("cyberwave/device/%s/commands/+", deviceID)
}

// StatusTopic returns the periodic status topic for a device.
func StatusTopic(deviceID string) string {
	return fmt.Sprintf("cyberwave/device/%s/status", deviceID)
}

// TelemetryTopic returns the sensor telemetry topic for a device.
func TelemetryTopic(deviceID string) string {
	return fmt.Sprintf("cyberwave/device/%s/telemetry", deviceID)
}

// EventsTopic returns the error/state-change events topic for a device.
func EventsTopic(deviceID string) string {
	return fmt.Sprintf("cyberwave/device/%s/events", deviceID)
}
