package tele

import (
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomsp/msp-go/log2"
	"github.com/gomsp/msp-go/msp"
)

type mockMsg struct {
	topic   string
	qos     byte
	payload []byte
}

type mqttMock struct {
	pub chan mockMsg
}

func newMqttMock() *mqttMock { return &mqttMock{pub: make(chan mockMsg, 32)} }

func (self *mqttMock) IsConnected() bool      { return true }
func (self *mqttMock) IsConnectionOpen() bool { return true }
func (self *mqttMock) Connect() mqtt.Token    { return mockToken{} }
func (self *mqttMock) Disconnect(uint)        {}

func (self *mqttMock) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	self.pub <- mockMsg{topic: topic, qos: qos, payload: payload.([]byte)}
	return mockToken{}
}

func (self *mqttMock) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token {
	panic("not implemented")
}
func (self *mqttMock) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	panic("not implemented")
}
func (self *mqttMock) Unsubscribe(...string) mqtt.Token     { panic("not implemented") }
func (self *mqttMock) AddRoute(string, mqtt.MessageHandler) { panic("not implemented") }
func (self *mqttMock) OptionsReader() mqtt.ClientOptionsReader {
	panic("not implemented")
}

type mockToken struct{}

func (mockToken) Wait() bool                     { return true }
func (mockToken) WaitTimeout(time.Duration) bool { return true }
func (mockToken) Error() error                   { return nil }

func TestPublish(t *testing.T) {
	t.Parallel()

	m := newMqttMock()
	tele := NewWithClient(m, Config{TopicPrefix: "copter1", QOS: 1}, log2.NewTest(t, log2.LDebug))
	defer tele.Close()

	tele.Publish(101, []byte{0x01, 0x02})
	msg := <-m.pub
	assert.Equal(t, "copter1/101", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.Equal(t, []byte{0x01, 0x02}, msg.payload)
}

func TestDefaultPrefix(t *testing.T) {
	t.Parallel()

	m := newMqttMock()
	tele := NewWithClient(m, Config{}, log2.NewTest(t, log2.LDebug))
	tele.Publish(105, nil)
	msg := <-m.pub
	assert.Equal(t, "fcu/105", msg.topic)
}

// Every frame a bound subscription sees lands on the broker.
func TestBind(t *testing.T) {
	t.Parallel()

	m := newMqttMock()
	tele := NewWithClient(m, Config{TopicPrefix: "copter1"}, log2.NewTest(t, log2.LDebug))
	c, dev, cio := msp.NewTestClient(t)
	defer c.Close()
	defer dev.Stop()

	tele.Bind(c, 102, 0)

	frame, err := msp.Encode(msp.V1, msp.DirFromFC, 102, []byte{0x0a, 0x0b, 0x0c})
	require.NoError(t, err)
	cio.In <- frame
	require.NoError(t, c.Handle())

	msg := <-m.pub
	assert.Equal(t, "copter1/102", msg.topic)
	assert.Equal(t, []byte{0x0a, 0x0b, 0x0c}, msg.payload)
}
