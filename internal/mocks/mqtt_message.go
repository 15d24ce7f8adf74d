package mocks

// MQTTMessage is a canned paho message for handler tests.
type MQTTMessage struct {
	TopicValue   string
	PayloadValue []byte
}

func (m *MQTTMessage) Duplicate() bool {
	return false
}

func (m *MQTTMessage) Qos() byte {
	return 1
}

func (m *MQTTMessage) Retained() bool {
	return false
}

func (m *MQTTMessage) Topic() string {
	return m.TopicValue
}

func (m *MQTTMessage) MessageID() uint16 {
	return 0
}

func (m *MQTTMessage) Payload() []byte {
	return m.PayloadValue
}

func (m *MQTTMessage) Ack() {
}
