package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/cyberwave-os/cyberwave-edge/internal/constants"
	"github.com/cyberwave-os/cyberwave-edge/internal/models"
	"github.com/cyberwave-os/cyberwave-edge/pkg/mqtt"
)

// CommandHandler processes commands of one category. Handle returns an
// error to produce an error ack; the router never lets a handler failure
// escape past the dispatch boundary.
type CommandHandler interface {
	Category() string
	Handle(ctx context.Context, msg models.CommandMessage) error
}

// CommandService routes incoming commands to category handlers. One
// dispatch goroutine per category keeps arrival order within a category
// while categories run concurrently, so a slow video start never delays
// sensor or config commands.
type CommandService struct {
	deviceID  string
	qos       int
	queueSize int

	mqttClient mqtt.Client
	events     *EventPublisher
	logger     zerolog.Logger

	workers cmap.ConcurrentMap[string, *categoryWorker]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

type categoryWorker struct {
	handler CommandHandler
	queue   chan models.CommandMessage
}

// NewCommandService initializes a router with no handlers registered.
func NewCommandService(deviceID string, qos, queueSize int, mqttClient mqtt.Client,
	events *EventPublisher, logger zerolog.Logger) *CommandService {

	if queueSize <= 0 {
		queueSize = constants.DefaultCommandQueueSize
	}

	return &CommandService{
		deviceID:   deviceID,
		qos:        qos,
		queueSize:  queueSize,
		mqttClient: mqttClient,
		events:     events,
		logger:     logger,
		workers:    cmap.New[*categoryWorker](),
	}
}

// RegisterHandler binds a handler to its category. Must be called before
// Start; each category maps to exactly one handler.
func (cs *CommandService) RegisterHandler(handler CommandHandler) error {
	category := handler.Category()
	worker := &categoryWorker{
		handler: handler,
		queue:   make(chan models.CommandMessage, cs.queueSize),
	}
	if !cs.workers.SetIfAbsent(category, worker) {
		return errors.New("command service: handler already registered for category " + category)
	}
	cs.logger.Info().Str("category", category).Msg("Registered command handler")
	return nil
}

// Start spawns the dispatch goroutines and subscribes to the command
// topic wildcard.
func (cs *CommandService) Start() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ctx != nil {
		cs.logger.Warn().Msg("CommandService is already running")
		return errors.New("command service is already running")
	}

	cs.ctx, cs.cancel = context.WithCancel(context.Background())

	for entry := range cs.workers.IterBuffered() {
		worker := entry.Val
		cs.wg.Add(1)
		go cs.runDispatchLoop(worker)
	}

	topic := constants.CommandWildcardTopic(cs.deviceID)
	if err := cs.mqttClient.Subscribe(topic, byte(cs.qos), cs.onMessage); err != nil {
		cs.logger.Error().Err(err).Str("topic", topic).Msg("Failed to subscribe to command topic")
		cs.cancel()
		cs.wg.Wait()
		cs.ctx = nil
		cs.cancel = nil
		return err
	}

	cs.logger.Info().Str("topic", topic).Msg("CommandService started successfully")
	return nil
}

// Stop unsubscribes and drains the dispatch goroutines.
func (cs *CommandService) Stop() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ctx == nil {
		cs.logger.Warn().Msg("CommandService is not running")
		return errors.New("command service is not running")
	}

	topic := constants.CommandWildcardTopic(cs.deviceID)
	if err := cs.mqttClient.Unsubscribe(topic); err != nil {
		cs.logger.Error().Err(err).Str("topic", topic).Msg("Failed to unsubscribe from command topic")
	}

	cs.cancel()
	cs.wg.Wait()

	cs.ctx = nil
	cs.cancel = nil

	cs.logger.Info().Msg("CommandService stopped successfully")
	return nil
}

// onMessage is the MQTT callback: decode, skip acks, enqueue for the
// category. Runs on the transport's callback goroutine, so it never
// blocks; a full category queue drops the command with an event.
func (cs *CommandService) onMessage(_ MQTT.Client, msg MQTT.Message) {
	category := categoryFromTopic(msg.Topic())

	var payload models.CommandPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		cs.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("Malformed command payload")
		cs.events.Publish(constants.EventDecodeError, "malformed command payload", map[string]string{
			"category": category,
			"error":    err.Error(),
		})
		return
	}

	// Acks published by this agent are echoed back on the command topic.
	if payload.Status != "" {
		return
	}

	if payload.Command == "" {
		cs.logger.Warn().Str("topic", msg.Topic()).Msg("Command message missing command field")
		cs.events.Publish(constants.EventDecodeError, "command message missing command field", map[string]string{
			"category": category,
		})
		return
	}

	worker, ok := cs.workers.Get(category)
	if !ok {
		cs.logger.Warn().Str("category", category).Msg("No handler for command category")
		cs.events.Publish(constants.EventUnknownCategory, "no handler for command category", map[string]string{
			"category": category,
			"command":  payload.Command,
		})
		return
	}

	command := models.CommandMessage{
		Category:   category,
		Payload:    payload,
		ReceivedAt: time.Now(),
	}

	select {
	case worker.queue <- command:
	default:
		cs.logger.Warn().Str("category", category).Msg("Command queue full, dropping command")
		cs.events.Publish(constants.EventQueueFull, "command queue full", map[string]string{
			"category": category,
			"command":  payload.Command,
		})
	}
}

// runDispatchLoop consumes one category's queue in arrival order.
func (cs *CommandService) runDispatchLoop(worker *categoryWorker) {
	defer cs.wg.Done()

	for {
		select {
		case msg := <-worker.queue:
			cs.dispatch(worker, msg)
		case <-cs.ctx.Done():
			return
		}
	}
}

func (cs *CommandService) dispatch(worker *categoryWorker, msg models.CommandMessage) {
	cs.logger.Info().
		Str("category", msg.Category).
		Str("command", msg.Payload.Command).
		Msg("Dispatching command")

	err := worker.handler.Handle(cs.ctx, msg)

	ack := models.CommandAck{
		Status:    constants.AckOK,
		Command:   msg.Payload.Command,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
	}
	if err != nil {
		cs.logger.Error().Err(err).
			Str("category", msg.Category).
			Str("command", msg.Payload.Command).
			Msg("Command handler failed")
		ack.Status = constants.AckError
		ack.Detail = err.Error()
	}

	payload, err := json.Marshal(ack)
	if err != nil {
		cs.logger.Error().Err(err).Msg("Failed to serialize command ack")
		return
	}

	topic := constants.CommandTopic(cs.deviceID, msg.Category)
	if err := cs.mqttClient.Publish(topic, byte(cs.qos), false, payload); err != nil {
		cs.logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish command ack")
	}
}

func categoryFromTopic(topic string) string {
	idx := strings.LastIndex(topic, "/")
	if idx < 0 || idx == len(topic)-1 {
		return topic
	}
	return topic[idx+1:]
}
