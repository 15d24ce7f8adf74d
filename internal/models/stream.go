package models

// StreamState is the lifecycle state of the video streaming session.
type StreamState string

const (
	StreamIdle     StreamState = "idle"
	StreamStarting StreamState = "starting"
	StreamActive   StreamState = "active"
	StreamStopping StreamState = "stopping"
	StreamFailed   StreamState = "failed"
)

// SessionOffer is the JSON control frame sent on the media socket before
// any frame data.
type SessionOffer struct {
	Type        string `json:"type"`
	SessionUUID string `json:"session_uuid"`
	TwinUUID    string `json:"twin_uuid"`
	CameraID    int    `json:"camera_id"`
	FPS         int    `json:"fps"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// SessionClosed is the JSON control frame sent before closing the media
// socket.
type SessionClosed struct {
	Type        string `json:"type"`
	SessionUUID string `json:"session_uuid"`
	Reason      string `json:"reason,omitempty"`
	FrameCount  uint64 `json:"frame_count"`
}

// Message types on the media socket.
const (
	StreamMessageOffer  = "offer"
	StreamMessageClosed = "stream_ended"
)
