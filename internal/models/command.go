package models

import (
	"encoding/json"
	"time"
)

// CommandPayload is the JSON body of a command message.
//
// Messages carrying a Status field are acks echoed back on the command
// topic by this agent; the router skips them so the device never reacts
// to its own responses.
type CommandPayload struct {
	Command   string          `json:"command,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Timestamp float64         `json:"timestamp,omitempty"`
	Status    string          `json:"status,omitempty"`
}

// CommandMessage is a decoded command ready for dispatch to a category
// handler. Transient: consumed immediately by the matching handler.
type CommandMessage struct {
	Category   string
	Payload    CommandPayload
	ReceivedAt time.Time
}

// CommandAck is published back on the command topic after a handler runs.
type CommandAck struct {
	Status    string  `json:"status"`
	Command   string  `json:"command,omitempty"`
	Detail    string  `json:"detail,omitempty"`
	Timestamp float64 `json:"timestamp"`
}
