package utils

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cyberwave-os/cyberwave-edge/internal/constants"
	"github.com/cyberwave-os/cyberwave-edge/pkg/file"
)

// ConfigError marks a missing or invalid required setting. Fatal at
// startup, mapped to a distinct exit code by the entry point.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

// Config is the full agent configuration. An optional YAML file provides
// defaults; CYBERWAVE_* environment variables override it. Loaded once at
// startup; broker parameters may additionally be resolved through the
// backend registration API when not set here.
type Config struct {
	Backend struct {
		Token     string `yaml:"token"`
		BaseURL   string `yaml:"base_url"`
		TwinUUID  string `yaml:"twin_uuid"`
		EdgeUUID  string `yaml:"edge_uuid"`
		StateFile string `yaml:"state_file"` // Where a generated edge UUID is persisted
	} `yaml:"backend"`

	MQTT struct {
		Host     string `yaml:"host"`     // Broker host; resolved via backend when empty
		Port     int    `yaml:"port"`     // Broker port
		Username string `yaml:"username"` // Broker credentials; resolved via backend when empty
		Password string `yaml:"password"`
		ClientID string `yaml:"client_id"` // Base client ID; a UUID suffix is appended at startup
		QOS      int    `yaml:"qos"`       // QoS level for all agent publishes
	} `yaml:"mqtt"`

	Status struct {
		Interval time.Duration `yaml:"interval"` // Interval between status snapshots
	} `yaml:"status"`

	Camera struct {
		ID     int `yaml:"id"`
		FPS    int `yaml:"fps"`
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"camera"`

	Stream struct {
		URL string `yaml:"url"` // Media websocket endpoint; resolved via backend when empty
	} `yaml:"stream"`

	Sensors struct {
		Provider    string `yaml:"provider"`      // "gps" or "geo"
		GPSPort     string `yaml:"gps_port"`      // Serial port of the NMEA GPS device
		GPSBaudRate int    `yaml:"gps_baud_rate"` // Baud rate for the GPS serial link
		MapsAPIKey  string `yaml:"maps_api_key"`  // Google geolocation API key
	} `yaml:"sensors"`

	Backoff struct {
		Base       time.Duration `yaml:"base"`        // Initial retry delay
		Max        time.Duration `yaml:"max"`         // Backoff cap
		MaxRetries int           `yaml:"max_retries"` // Bounded attempts for startup operations
	} `yaml:"backoff"`

	Queues struct {
		Publish int `yaml:"publish"` // Offline publish queue size
		Command int `yaml:"command"` // Per-category command queue size
	} `yaml:"queues"`

	LogLevel string `yaml:"log_level"`
}

// LoadConfig reads the optional YAML file, applies environment overrides
// and defaults, and validates required settings.
func LoadConfig(path string, fileClient file.FileOperations) (*Config, error) {
	var config Config

	if path != "" {
		exists, err := fileClient.IsFileExists(path)
		if err != nil {
			return nil, err
		}
		if exists {
			if err := fileClient.ReadYamlFile(path, &config); err != nil {
				return nil, err
			}
		}
	}

	config.applyEnvOverrides()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyEnvOverrides() {
	overrideString(&c.Backend.Token, "CYBERWAVE_TOKEN")
	overrideString(&c.Backend.BaseURL, "CYBERWAVE_BASE_URL")
	overrideString(&c.Backend.TwinUUID, "CYBERWAVE_TWIN_UUID")
	overrideString(&c.Backend.EdgeUUID, "CYBERWAVE_EDGE_UUID")

	overrideString(&c.MQTT.Host, "CYBERWAVE_MQTT_HOST")
	overrideInt(&c.MQTT.Port, "CYBERWAVE_MQTT_PORT")
	overrideString(&c.MQTT.Username, "CYBERWAVE_MQTT_USERNAME")
	overrideString(&c.MQTT.Password, "CYBERWAVE_MQTT_PASSWORD")

	overrideInt(&c.Camera.ID, "CAMERA_ID")
	overrideInt(&c.Camera.FPS, "CAMERA_FPS")
	overrideInt(&c.Camera.Width, "CAMERA_WIDTH")
	overrideInt(&c.Camera.Height, "CAMERA_HEIGHT")

	overrideString(&c.LogLevel, "LOG_LEVEL")
}

func (c *Config) applyDefaults() {
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = "https://api.cyberwave.com"
	}
	// Backend.EdgeUUID has no default: identity loading falls back to the
	// persisted state file or generates one.
	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "cyberwave-edge"
	}
	if c.Status.Interval == 0 {
		c.Status.Interval = constants.DefaultStatusIntervalSeconds * time.Second
	}
	if c.Camera.FPS == 0 {
		c.Camera.FPS = constants.DefaultCameraFPS
	}
	if c.Camera.Width == 0 {
		c.Camera.Width = constants.DefaultCameraWidth
	}
	if c.Camera.Height == 0 {
		c.Camera.Height = constants.DefaultCameraHeight
	}
	if c.Sensors.Provider == "" {
		c.Sensors.Provider = "gps"
	}
	if c.Sensors.GPSBaudRate == 0 {
		c.Sensors.GPSBaudRate = 9600
	}
	if c.Backoff.Base == 0 {
		c.Backoff.Base = time.Second
	}
	if c.Backoff.Max == 0 {
		c.Backoff.Max = 60 * time.Second
	}
	if c.Backoff.MaxRetries == 0 {
		c.Backoff.MaxRetries = 5
	}
	if c.Queues.Publish == 0 {
		c.Queues.Publish = constants.DefaultPublishQueueSize
	}
	if c.Queues.Command == 0 {
		c.Queues.Command = constants.DefaultCommandQueueSize
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the required settings.
func (c *Config) Validate() error {
	if c.Backend.Token == "" {
		return &ConfigError{Key: "CYBERWAVE_TOKEN", Reason: "required"}
	}
	if c.Backend.TwinUUID == "" {
		return &ConfigError{Key: "CYBERWAVE_TWIN_UUID", Reason: "required"}
	}
	if c.MQTT.Port < 1 || c.MQTT.Port > 65535 {
		return &ConfigError{Key: "CYBERWAVE_MQTT_PORT", Reason: "out of range"}
	}
	if c.Camera.FPS < 1 {
		return &ConfigError{Key: "CAMERA_FPS", Reason: "must be positive"}
	}
	if c.Sensors.Provider != "gps" && c.Sensors.Provider != "geo" {
		return &ConfigError{Key: "sensors.provider", Reason: "must be gps or geo"}
	}
	return nil
}

func overrideString(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func overrideInt(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}
