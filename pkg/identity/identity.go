package identity

import (
	"errors"

	"github.com/cyberwave-os/cyberwave-edge/pkg/file"
	"github.com/google/uuid"
)

// Identity is the device identity: the local edge UUID, the digital-twin
// UUID it mirrors in the backend, and the API token used to authenticate.
// Immutable after load; the edge UUID scopes the MQTT topic namespace.
type Identity struct {
	EdgeUUID string `json:"edge_uuid"`
	TwinUUID string `json:"twin_uuid"`
	APIToken string `json:"-"`
}

// DeviceInfoInterface provides read access to the loaded identity.
type DeviceInfoInterface interface {
	Load(edgeUUID, twinUUID, token string) error
	GetEdgeUUID() string
	GetTwinUUID() string
	GetToken() string
}

// DeviceInfo holds the identity for the running process. When a state
// file is configured, a generated edge UUID is persisted across restarts.
type DeviceInfo struct {
	stateFile string
	identity  Identity
	fileOps   file.FileOperations
}

// NewDeviceInfo creates a DeviceInfo. stateFile may be empty, in which
// case nothing is persisted.
func NewDeviceInfo(stateFile string, fileOps file.FileOperations) *DeviceInfo {
	return &DeviceInfo{
		stateFile: stateFile,
		fileOps:   fileOps,
	}
}

// Load resolves the identity: configured values win, then the state file,
// then a freshly generated edge UUID (persisted when possible). The twin
// UUID must come from configuration.
func (d *DeviceInfo) Load(edgeUUID, twinUUID, token string) error {
	if twinUUID == "" {
		return errors.New("identity: twin UUID is required")
	}

	d.identity = Identity{
		EdgeUUID: edgeUUID,
		TwinUUID: twinUUID,
		APIToken: token,
	}

	if d.identity.EdgeUUID == "" && d.stateFile != "" {
		var persisted Identity
		if err := d.fileOps.ReadJsonFile(d.stateFile, &persisted); err == nil {
			d.identity.EdgeUUID = persisted.EdgeUUID
		}
	}

	if d.identity.EdgeUUID == "" {
		d.identity.EdgeUUID = uuid.New().String()
		if d.stateFile != "" {
			if err := d.fileOps.WriteJsonFile(d.stateFile, d.identity); err != nil {
				return err
			}
		}
	}

	return nil
}

// GetEdgeUUID returns the edge device UUID.
func (d *DeviceInfo) GetEdgeUUID() string {
	return d.identity.EdgeUUID
}

// GetTwinUUID returns the digital-twin UUID.
func (d *DeviceInfo) GetTwinUUID() string {
	return d.identity.TwinUUID
}

// GetToken returns the backend API token.
func (d *DeviceInfo) GetToken() string {
	return d.identity.APIToken
}
