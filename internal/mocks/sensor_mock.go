package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cyberwave-os/cyberwave-edge/pkg/sensors"
)

// SensorProvider is a mock implementation of the sensors.Provider
// interface.
type SensorProvider struct {
	mock.Mock
}

func (m *SensorProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *SensorProvider) Read(ctx context.Context) (sensors.Position, error) {
	args := m.Called(ctx)
	return args.Get(0).(sensors.Position), args.Error(1)
}
