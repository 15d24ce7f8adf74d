package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/cyberwave-os/cyberwave-edge/internal/constants"
	"github.com/cyberwave-os/cyberwave-edge/internal/models"
)

// Actuator is a named device action invoked by the actuate command
// category. Implementations must honor ctx for cancellation.
type Actuator func(ctx context.Context, params json.RawMessage) (string, error)

// ActuateService runs registered actuators on command. Each execution is
// bounded by a timeout; results and failures are reported as events.
type ActuateService struct {
	timeout   time.Duration
	actuators cmap.ConcurrentMap[string, Actuator]
	events    *EventPublisher
	logger    zerolog.Logger
}

// NewActuateService initializes an ActuateService with no actuators.
func NewActuateService(timeout time.Duration, events *EventPublisher, logger zerolog.Logger) *ActuateService {
	if timeout <= 0 {
		timeout = constants.DefaultActuateTimeoutSeconds * time.Second
	}
	return &ActuateService{
		timeout:   timeout,
		actuators: cmap.New[Actuator](),
		events:    events,
		logger:    logger,
	}
}

// RegisterActuator binds a named action. Later registrations under the
// same name replace earlier ones.
func (as *ActuateService) RegisterActuator(name string, fn Actuator) {
	as.actuators.Set(name, fn)
	as.logger.Info().Str("actuator", name).Msg("Registered actuator")
}

// Category implements CommandHandler.
func (as *ActuateService) Category() string {
	return constants.CategoryActuate
}

// Handle looks up the actuator named by the command and runs it under
// the execution timeout.
func (as *ActuateService) Handle(ctx context.Context, msg models.CommandMessage) error {
	name := msg.Payload.Command

	actuator, ok := as.actuators.Get(name)
	if !ok {
		return fmt.Errorf("unknown actuator: %s", name)
	}

	execCtx, cancel := context.WithTimeout(ctx, as.timeout)
	defer cancel()

	result, err := actuator(execCtx, msg.Payload.Params)
	if err != nil {
		as.logger.Error().Err(err).Str("actuator", name).Msg("Actuator execution failed")
		as.events.Publish(constants.EventActuateResult, "actuator failed", map[string]string{
			"actuator": name,
			"error":    err.Error(),
		})
		return fmt.Errorf("actuator %s: %w", name, err)
	}

	as.logger.Info().Str("actuator", name).Msg("Actuator executed successfully")
	as.events.Publish(constants.EventActuateResult, "actuator executed", map[string]string{
		"actuator": name,
		"result":   result,
	})
	return nil
}

// Start implements the service lifecycle.
func (as *ActuateService) Start() error {
	as.logger.Info().Int("actuators", as.actuators.Count()).Msg("ActuateService started successfully")
	return nil
}

// Stop implements the service lifecycle.
func (as *ActuateService) Stop() error {
	as.logger.Info().Msg("ActuateService stopped successfully")
	return nil
}
