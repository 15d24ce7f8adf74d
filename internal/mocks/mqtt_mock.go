package mocks

import (
	"context"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/mock"
)

// MQTTClient is a mock implementation of the mqtt.Client interface.
type MQTTClient struct {
	mock.Mock
}

func (m *MQTTClient) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MQTTClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	args := m.Called(topic, qos, retained, payload)
	return args.Error(0)
}

func (m *MQTTClient) PublishTransient(topic string, qos byte, retained bool, payload []byte) error {
	args := m.Called(topic, qos, retained, payload)
	return args.Error(0)
}

func (m *MQTTClient) Subscribe(topic string, qos byte, callback MQTT.MessageHandler) error {
	args := m.Called(topic, qos, callback)
	return args.Error(0)
}

func (m *MQTTClient) Unsubscribe(topics ...string) error {
	args := m.Called(topics)
	return args.Error(0)
}

func (m *MQTTClient) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MQTTClient) Disconnect(quiesce uint) {
	m.Called(quiesce)
}

// PublishedTopics returns the topics of all Publish calls, in order.
func (m *MQTTClient) PublishedTopics() []string {
	var topics []string
	for _, call := range m.Calls {
		if call.Method == "Publish" {
			topics = append(topics, call.Arguments.String(0))
		}
	}
	return topics
}

// PublishedPayloads returns the payloads of Publish calls to the given
// topic, in order.
func (m *MQTTClient) PublishedPayloads(topic string) [][]byte {
	var payloads [][]byte
	for _, call := range m.Calls {
		if call.Method == "Publish" && call.Arguments.String(0) == topic {
			payloads = append(payloads, call.Arguments.Get(3).([]byte))
		}
	}
	return payloads
}
