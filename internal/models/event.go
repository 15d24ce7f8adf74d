package models

import "time"

// Event is an error or state-change report published to the events topic.
type Event struct {
	DeviceID  string            `json:"device_id"`
	Kind      string            `json:"kind"`
	Message   string            `json:"message"`
	Detail    map[string]string `json:"detail,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
