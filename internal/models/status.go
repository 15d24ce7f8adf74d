package models

import "time"

// StatusSnapshot is the periodic health report published to the status
// topic. Regenerated every reporting interval; never persisted or queued.
type StatusSnapshot struct {
	DeviceID      string   `json:"device_id"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds float64  `json:"uptime_seconds"`
	CPUUsage      *float64 `json:"cpu_usage,omitempty"`
	MemoryUsage   *float64 `json:"memory_usage,omitempty"`
	DiskUsage     *float64 `json:"disk_usage,omitempty"`
	Goroutines    *int     `json:"goroutines,omitempty"`
	Connected     bool     `json:"connected"`
	StreamState   string   `json:"stream_state"`
	AgentVersion  string   `json:"agent_version"`
}
