package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cyberwave-os/cyberwave-edge/internal/constants"
	"github.com/cyberwave-os/cyberwave-edge/internal/health"
	"github.com/cyberwave-os/cyberwave-edge/internal/models"
	"github.com/cyberwave-os/cyberwave-edge/internal/utils"
	"github.com/cyberwave-os/cyberwave-edge/pkg/mqtt"
)

// StreamStateFunc reports the current video session state for inclusion
// in status snapshots.
type StreamStateFunc func() models.StreamState

// StatusService publishes a StatusSnapshot on a fixed period. A missed
// publish (transport down, collector failure) is not fatal: the reporter
// keeps ticking and the next snapshot supersedes the lost one; snapshots
// are never queued.
type StatusService struct {
	deviceID    string
	qos         int
	mqttClient  mqtt.Client
	registry    *health.Registry
	streamState StreamStateFunc
	workerPool  *utils.WorkerPool
	logger      zerolog.Logger

	startTime  time.Time
	intervalMu sync.Mutex
	interval   time.Duration
	intervalCh chan time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStatusService initializes a StatusService with the default health
// collectors registered.
func NewStatusService(deviceID string, interval time.Duration, qos int, mqttClient mqtt.Client,
	streamState StreamStateFunc, logger zerolog.Logger) *StatusService {

	registry := health.NewRegistry()
	registry.Register(&health.CPUCollector{})
	registry.Register(&health.MemoryCollector{})
	registry.Register(&health.DiskCollector{})
	registry.Register(&health.GoroutineCollector{})

	return &StatusService{
		deviceID:    deviceID,
		qos:         qos,
		mqttClient:  mqttClient,
		registry:    registry,
		streamState: streamState,
		workerPool:  utils.NewWorkerPool(4, 16),
		logger:      logger,
		startTime:   time.Now(),
		interval:    interval,
		intervalCh:  make(chan time.Duration, 1),
	}
}

// Start launches the reporting loop.
func (s *StatusService) Start() error {
	if s.ctx != nil {
		s.logger.Warn().Msg("StatusService is already running")
		return errors.New("status service is already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runStatusLoop()
	}()

	s.logger.Info().
		Str("topic", constants.StatusTopic(s.deviceID)).
		Dur("interval", s.Interval()).
		Msg("StatusService started successfully")
	return nil
}

// Stop halts the reporting loop.
func (s *StatusService) Stop() error {
	if s.ctx == nil {
		s.logger.Warn().Msg("StatusService is not running")
		return errors.New("status service is not running")
	}

	s.cancel()
	s.wg.Wait()
	s.workerPool.Shutdown()

	s.ctx = nil
	s.cancel = nil

	s.logger.Info().Msg("StatusService stopped successfully")
	return nil
}

// Interval returns the current reporting period.
func (s *StatusService) Interval() time.Duration {
	s.intervalMu.Lock()
	defer s.intervalMu.Unlock()
	return s.interval
}

// SetInterval adjusts the reporting period at runtime (config command).
func (s *StatusService) SetInterval(interval time.Duration) error {
	if interval < time.Second {
		return errors.New("status interval must be at least one second")
	}

	s.intervalMu.Lock()
	s.interval = interval
	s.intervalMu.Unlock()

	// Non-blocking: the loop picks up the latest value.
	select {
	case s.intervalCh <- interval:
	default:
	}
	return nil
}

func (s *StatusService) runStatusLoop() {
	ticker := time.NewTicker(s.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.publishSnapshot()

		case interval := <-s.intervalCh:
			ticker.Reset(interval)
			s.logger.Info().Dur("interval", interval).Msg("Status interval updated")

		case <-s.ctx.Done():
			s.logger.Info().Msg("StatusService stopping gracefully")
			return
		}
	}
}

// publishSnapshot builds and publishes one snapshot. Collector failures
// leave their field empty; the tick itself is never skipped.
func (s *StatusService) publishSnapshot() {
	snapshot := s.buildSnapshot()

	payload, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to serialize status snapshot")
		return
	}

	topic := constants.StatusTopic(s.deviceID)
	if err := s.mqttClient.PublishTransient(topic, byte(s.qos), false, payload); err != nil {
		if errors.Is(err, mqtt.ErrNotConnected) {
			s.logger.Debug().Msg("Transport disconnected, skipping status snapshot")
		} else {
			s.logger.Error().Err(err).Msg("Failed to publish status snapshot")
		}
		return
	}

	s.logger.Debug().Msg("Status snapshot published successfully")
}

func (s *StatusService) buildSnapshot() *models.StatusSnapshot {
	snapshot := &models.StatusSnapshot{
		DeviceID:      s.deviceID,
		Timestamp:     time.Now(),
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		Connected:     s.mqttClient.IsConnected(),
		StreamState:   string(s.streamState()),
		AgentVersion:  constants.AgentVersion,
	}

	collectCtx, cancel := context.WithTimeout(s.ctx, collectTimeout(s.Interval()))
	defer cancel()

	var wg sync.WaitGroup
	for _, collector := range s.registry.Collectors() {
		collector := collector
		wg.Add(1)
		s.workerPool.Submit(func() {
			defer wg.Done()
			if err := collector.Collect(collectCtx, snapshot); err != nil {
				s.logger.Warn().Err(err).Str("collector", collector.Name()).Msg("Health collector failed")
			}
		})
	}
	wg.Wait()

	return snapshot
}

// collectTimeout bounds collection well inside the reporting period so a
// hung probe cannot push a tick into the next interval.
func collectTimeout(interval time.Duration) time.Duration {
	timeout := interval / 2
	if timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	if timeout < time.Second {
		timeout = time.Second
	}
	return timeout
}
