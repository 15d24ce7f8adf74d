package models

// AuthRequest is the registration request sent to the control-plane API.
type AuthRequest struct {
	Token    string `json:"token"`
	TwinUUID string `json:"twin_uuid"`
	EdgeUUID string `json:"edge_uuid,omitempty"`
}

// AuthResponse is the control-plane answer to a successful registration.
// It carries the broker parameters the device should connect with.
type AuthResponse struct {
	MQTTHost        string `json:"mqtt_host"`
	MQTTPort        int    `json:"mqtt_port"`
	MQTTUsername    string `json:"mqtt_username,omitempty"`
	MQTTPassword    string `json:"mqtt_password,omitempty"`
	StreamURL       string `json:"stream_url,omitempty"`
	MinAgentVersion string `json:"min_agent_version,omitempty"`
}
