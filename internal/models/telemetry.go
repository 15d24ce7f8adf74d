package models

import "time"

// TelemetryReading is a single sensor measurement published to the
// telemetry topic.
type TelemetryReading struct {
	DeviceID  string             `json:"device_id"`
	Sensor    string             `json:"sensor"`
	Values    map[string]float64 `json:"values"`
	Unit      string             `json:"unit,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}
