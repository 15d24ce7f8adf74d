package service_registry

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Service is the lifecycle contract every agent service implements.
type Service interface {
	Start() error
	Stop() error
}

// ServiceRegistry starts services in registration order and stops them
// in reverse. A failed start rolls back the services already running.
type ServiceRegistry struct {
	services    map[string]Service
	serviceKeys []string
	logger      zerolog.Logger
}

// NewServiceRegistry initializes an empty registry.
func NewServiceRegistry(logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services: make(map[string]Service),
		logger:   logger,
	}
}

// Register adds a service under a unique name. Registration order is
// start order.
func (sr *ServiceRegistry) Register(name string, svc Service) {
	if _, exists := sr.services[name]; exists {
		sr.logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.logger.Info().Msgf("Registered service: %s", name)
}

// StartServices starts everything in order. On failure the already
// started services are stopped in reverse before the error returns.
func (sr *ServiceRegistry) StartServices() error {
	started := []string{}

	for _, name := range sr.serviceKeys {
		sr.logger.Info().Msgf("Starting service: %s", name)
		if err := sr.services[name].Start(); err != nil {
			sr.logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			sr.logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(started) - 1; i >= 0; i-- {
				_ = sr.services[started[i]].Stop()
			}
			return err
		}
		started = append(started, name)
	}

	return nil
}

// StopServices stops everything in reverse registration order and joins
// any stop errors.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}

	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}
