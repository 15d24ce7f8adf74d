package identity

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberwave-os/cyberwave-edge/pkg/file"
)

// TestLoad_ConfiguredValuesWin verifies an explicitly configured edge
// UUID is used as-is.
func TestLoad_ConfiguredValuesWin(t *testing.T) {
	info := NewDeviceInfo("", file.NewFileService())

	err := info.Load("edge-configured", "twin-1", "tok")

	require.NoError(t, err)
	assert.Equal(t, "edge-configured", info.GetEdgeUUID())
	assert.Equal(t, "twin-1", info.GetTwinUUID())
	assert.Equal(t, "tok", info.GetToken())
}

// TestLoad_TwinRequired verifies the twin UUID cannot be generated.
func TestLoad_TwinRequired(t *testing.T) {
	info := NewDeviceInfo("", file.NewFileService())

	err := info.Load("edge-1", "", "tok")

	assert.Error(t, err)
}

// TestLoad_GeneratesAndPersists verifies a missing edge UUID is generated
// once and survives a restart via the state file.
func TestLoad_GeneratesAndPersists(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "state.json")

	first := NewDeviceInfo(stateFile, file.NewFileService())
	require.NoError(t, first.Load("", "twin-1", "tok"))

	generated := first.GetEdgeUUID()
	_, err := uuid.Parse(generated)
	require.NoError(t, err, "generated edge UUID must be a valid UUID")

	// A fresh process with the same state file resolves the same UUID.
	second := NewDeviceInfo(stateFile, file.NewFileService())
	require.NoError(t, second.Load("", "twin-1", "tok"))
	assert.Equal(t, generated, second.GetEdgeUUID())
}

// TestLoad_TokenNotPersisted verifies the API token never lands in the
// state file.
func TestLoad_TokenNotPersisted(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "state.json")
	fs := file.NewFileService()

	info := NewDeviceInfo(stateFile, fs)
	require.NoError(t, info.Load("", "twin-1", "secret-token"))

	raw, err := fs.ReadFileRaw(stateFile)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-token")
}

// TestLoad_WithoutStateFile verifies generation works with persistence
// disabled.
func TestLoad_WithoutStateFile(t *testing.T) {
	info := NewDeviceInfo("", file.NewFileService())

	require.NoError(t, info.Load("", "twin-1", "tok"))

	_, err := uuid.Parse(info.GetEdgeUUID())
	assert.NoError(t, err)
}
