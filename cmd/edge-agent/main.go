package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cyberwave-os/cyberwave-edge/internal/constants"
	"github.com/cyberwave-os/cyberwave-edge/internal/models"
	"github.com/cyberwave-os/cyberwave-edge/internal/service_registry"
	"github.com/cyberwave-os/cyberwave-edge/internal/services"
	"github.com/cyberwave-os/cyberwave-edge/internal/utils"
	"github.com/cyberwave-os/cyberwave-edge/pkg/backend"
	"github.com/cyberwave-os/cyberwave-edge/pkg/camera"
	"github.com/cyberwave-os/cyberwave-edge/pkg/file"
	"github.com/cyberwave-os/cyberwave-edge/pkg/identity"
	"github.com/cyberwave-os/cyberwave-edge/pkg/mqtt"
	"github.com/cyberwave-os/cyberwave-edge/pkg/sensors"
	"github.com/cyberwave-os/cyberwave-edge/pkg/stream"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "configs/config.yaml", "path to the agent configuration file")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	fileClient := file.NewFileService()

	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return constants.ExitConfig
	}

	if level, err := zerolog.ParseLevel(config.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	deviceInfo := identity.NewDeviceInfo(config.Backend.StateFile, fileClient)
	if err := deviceInfo.Load(config.Backend.EdgeUUID, config.Backend.TwinUUID, config.Backend.Token); err != nil {
		log.Error().Err(err).Msg("Failed to load device identity")
		return constants.ExitConfig
	}
	deviceID := deviceInfo.GetEdgeUUID()
	log.Info().Str("edge_uuid", deviceID).Str("twin_uuid", deviceInfo.GetTwinUUID()).Msg("Device identity loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Register against the control plane. Retryable failures already
	// backed off inside the client; what comes out is final.
	backendClient := backend.NewClient(config.Backend.BaseURL,
		config.Backoff.Base, config.Backoff.Max, config.Backoff.MaxRetries, log)

	authReq := models.AuthRequest{
		Token:    deviceInfo.GetToken(),
		TwinUUID: deviceInfo.GetTwinUUID(),
		EdgeUUID: deviceID,
	}
	authResp, err := backendClient.Authenticate(ctx, authReq)
	if err != nil {
		var authErr *backend.AuthError
		if errors.As(err, &authErr) {
			log.Error().Err(err).Msg("Device authentication rejected")
			return constants.ExitAuth
		}
		log.Error().Err(err).Msg("Backend registration failed")
		return constants.ExitTransport
	}

	outdated, err := backend.VersionOutdated(constants.AgentVersion, authResp.MinAgentVersion)
	if err != nil {
		log.Warn().Err(err).Msg("Could not compare agent version")
	} else if outdated {
		log.Warn().
			Str("agent_version", constants.AgentVersion).
			Str("min_version", authResp.MinAgentVersion).
			Msg("Agent version below backend minimum")
	}

	// Locally configured broker parameters win over resolved ones.
	connConfig := mqtt.ConnectionConfig{
		Host:        config.MQTT.Host,
		Port:        config.MQTT.Port,
		Username:    config.MQTT.Username,
		Password:    config.MQTT.Password,
		ClientID:    config.MQTT.ClientID + "-" + uuid.New().String(),
		QueueSize:   config.Queues.Publish,
		BackoffBase: config.Backoff.Base,
		BackoffMax:  config.Backoff.Max,
		MaxRetries:  config.Backoff.MaxRetries,
	}
	if connConfig.Host == "" {
		connConfig.Host = authResp.MQTTHost
		connConfig.Port = authResp.MQTTPort
		connConfig.Username = authResp.MQTTUsername
		connConfig.Password = authResp.MQTTPassword
	}

	transport := mqtt.NewTransport(connConfig, log)
	if err := transport.Connect(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to connect to MQTT broker")
		return constants.ExitTransport
	}

	qos := config.MQTT.QOS
	events := services.NewEventPublisher(deviceID, byte(qos), transport, log)
	if outdated {
		events.Publish(constants.EventVersionOutdated, "agent version below backend minimum", map[string]string{
			"agent_version": constants.AgentVersion,
			"min_version":   authResp.MinAgentVersion,
		})
	}

	streamURL := config.Stream.URL
	if streamURL == "" {
		streamURL = authResp.StreamURL
	}

	videoService := services.NewVideoService(
		deviceInfo.GetTwinUUID(),
		camera.Params{
			ID:     config.Camera.ID,
			FPS:    config.Camera.FPS,
			Width:  config.Camera.Width,
			Height: config.Camera.Height,
		},
		camera.NewSyntheticDevice(),
		stream.NewWebsocketDialer(streamURL, log),
		events,
		log,
	)

	statusService := services.NewStatusService(deviceID, config.Status.Interval, qos,
		transport, videoService.State, log)

	provider, err := buildSensorProvider(config)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create sensor provider")
		return constants.ExitConfig
	}
	telemetryService := services.NewTelemetryService(deviceID, qos, transport, provider, events, log)

	actuateService := services.NewActuateService(0, events, log)
	actuateService.RegisterActuator("ping", func(_ context.Context, _ json.RawMessage) (string, error) {
		return "pong", nil
	})
	actuateService.RegisterActuator("restart_stream", func(_ context.Context, _ json.RawMessage) (string, error) {
		if err := videoService.StopVideo(); err != nil {
			return "", err
		}
		if err := videoService.StartVideo(); err != nil {
			return "", err
		}
		return "stream restarted", nil
	})

	configService := services.NewConfigService(authReq, statusService, videoService, backendClient, events, log)

	commandService := services.NewCommandService(deviceID, qos, config.Queues.Command, transport, events, log)
	for _, handler := range []services.CommandHandler{videoService, telemetryService, actuateService, configService} {
		if err := commandService.RegisterHandler(handler); err != nil {
			log.Error().Err(err).Msg("Failed to register command handler")
			return constants.ExitConfig
		}
	}

	registry := service_registry.NewServiceRegistry(log)
	registry.Register("status", statusService)
	registry.Register("video", videoService)
	registry.Register("telemetry", telemetryService)
	registry.Register("actuate", actuateService)
	registry.Register("config", configService)
	registry.Register("command", commandService)

	if err := registry.StartServices(); err != nil {
		log.Error().Err(err).Msg("Failed to start services")
		transport.Disconnect(250)
		return constants.ExitTransport
	}
	log.Info().Msg("All services started successfully")

	<-ctx.Done()
	log.Info().Msg("Shutting down gracefully...")

	if err := registry.StopServices(); err != nil {
		log.Error().Err(err).Msg("Errors during service shutdown")
	}
	transport.Disconnect(250)

	// Give queued paho work a moment to settle before exit.
	time.Sleep(100 * time.Millisecond)
	return constants.ExitOK
}

func buildSensorProvider(config *utils.Config) (sensors.Provider, error) {
	if config.Sensors.Provider == "geo" {
		return sensors.NewGeoProvider(config.Sensors.MapsAPIKey)
	}
	return sensors.NewGPSProvider(config.Sensors.GPSPort, config.Sensors.GPSBaudRate), nil
}
