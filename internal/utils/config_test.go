package utils

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberwave-os/cyberwave-edge/pkg/file"
)

func clearCyberwaveEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CYBERWAVE_TOKEN", "CYBERWAVE_BASE_URL", "CYBERWAVE_TWIN_UUID", "CYBERWAVE_EDGE_UUID",
		"CYBERWAVE_MQTT_HOST", "CYBERWAVE_MQTT_PORT", "CYBERWAVE_MQTT_USERNAME", "CYBERWAVE_MQTT_PASSWORD",
		"CAMERA_ID", "CAMERA_FPS", "CAMERA_WIDTH", "CAMERA_HEIGHT", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// TestLoadConfig_EnvOnly verifies the agent runs from environment
// variables alone, with everything else defaulted.
func TestLoadConfig_EnvOnly(t *testing.T) {
	clearCyberwaveEnv(t)
	t.Setenv("CYBERWAVE_TOKEN", "tok-abc")
	t.Setenv("CYBERWAVE_TWIN_UUID", "twin-123")

	config, err := LoadConfig("", file.NewFileService())

	require.NoError(t, err)
	assert.Equal(t, "tok-abc", config.Backend.Token)
	assert.Equal(t, "twin-123", config.Backend.TwinUUID)
	assert.Equal(t, "https://api.cyberwave.com", config.Backend.BaseURL)
	assert.Equal(t, 1883, config.MQTT.Port)
	assert.Equal(t, 30*time.Second, config.Status.Interval)
	assert.Equal(t, 10, config.Camera.FPS)
	assert.Equal(t, 0, config.Camera.ID)
	assert.Equal(t, "gps", config.Sensors.Provider)
	assert.Equal(t, "info", config.LogLevel)
	assert.Empty(t, config.Backend.EdgeUUID)
}

// TestLoadConfig_EnvOverridesFile verifies environment variables win over
// the YAML file.
func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	clearCyberwaveEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
backend:
  token: file-token
  twin_uuid: file-twin
mqtt:
  host: file-broker
  port: 8883
camera:
  fps: 5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("CYBERWAVE_TOKEN", "env-token")
	t.Setenv("CYBERWAVE_MQTT_PORT", "1884")
	t.Setenv("CAMERA_FPS", "24")

	config, err := LoadConfig(path, file.NewFileService())

	require.NoError(t, err)
	assert.Equal(t, "env-token", config.Backend.Token)
	assert.Equal(t, "file-twin", config.Backend.TwinUUID)
	assert.Equal(t, "file-broker", config.MQTT.Host)
	assert.Equal(t, 1884, config.MQTT.Port)
	assert.Equal(t, 24, config.Camera.FPS)
}

// TestLoadConfig_MissingToken verifies the required-token error carries
// the offending key.
func TestLoadConfig_MissingToken(t *testing.T) {
	clearCyberwaveEnv(t)
	t.Setenv("CYBERWAVE_TWIN_UUID", "twin-123")

	_, err := LoadConfig("", file.NewFileService())

	var configErr *ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "CYBERWAVE_TOKEN", configErr.Key)
}

// TestLoadConfig_MissingTwin verifies a token alone is not enough.
func TestLoadConfig_MissingTwin(t *testing.T) {
	clearCyberwaveEnv(t)
	t.Setenv("CYBERWAVE_TOKEN", "tok-abc")

	_, err := LoadConfig("", file.NewFileService())

	var configErr *ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "CYBERWAVE_TWIN_UUID", configErr.Key)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		key  string
	}{
		{
			name: "port out of range",
			env:  map[string]string{"CYBERWAVE_MQTT_PORT": "70000"},
			key:  "CYBERWAVE_MQTT_PORT",
		},
		{
			name: "negative fps",
			env:  map[string]string{"CAMERA_FPS": "-1"},
			key:  "CAMERA_FPS",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearCyberwaveEnv(t)
			t.Setenv("CYBERWAVE_TOKEN", "tok")
			t.Setenv("CYBERWAVE_TWIN_UUID", "twin")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig("", file.NewFileService())

			var configErr *ConfigError
			require.ErrorAs(t, err, &configErr)
			assert.Equal(t, tc.key, configErr.Key)
		})
	}
}

// TestLoadConfig_MissingFileIgnored verifies a nonexistent config path is
// not an error when the environment is complete.
func TestLoadConfig_MissingFileIgnored(t *testing.T) {
	clearCyberwaveEnv(t)
	t.Setenv("CYBERWAVE_TOKEN", "tok")
	t.Setenv("CYBERWAVE_TWIN_UUID", "twin")

	config, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), file.NewFileService())

	require.NoError(t, err)
	assert.NotNil(t, config)
}

func TestConfigError_Message(t *testing.T) {
	err := &ConfigError{Key: "CYBERWAVE_TOKEN", Reason: "required"}
	assert.Equal(t, "config: CYBERWAVE_TOKEN: required", err.Error())
	assert.True(t, errors.As(error(err), new(*ConfigError)))
}
