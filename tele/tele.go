// Package tele republishes subscribed telemetry frames to MQTT.
package tele

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"

	"github.com/gomsp/msp-go/log2"
	"github.com/gomsp/msp-go/msp"
)

const defaultConnectTimeout = 10 * time.Second

type Config struct {
	Enable      bool   `hcl:"enable"`
	Broker      string `hcl:"broker"` // e.g. tcp://host:1883
	ClientId    string `hcl:"client_id"`
	TopicPrefix string `hcl:"topic_prefix"`
	QOS         int    `hcl:"qos"`
}

type Tele struct {
	log    *log2.Log
	m      mqtt.Client
	prefix string
	qos    byte
}

func New(cfg Config, log *log2.Log) (*Tele, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientId).
		SetAutoReconnect(true)
	m := mqtt.NewClient(opts)
	t := m.Connect()
	if !t.WaitTimeout(defaultConnectTimeout) {
		return nil, errors.Timeoutf("tele connect broker=%s", cfg.Broker)
	}
	if err := t.Error(); err != nil {
		return nil, errors.Annotatef(err, "tele connect broker=%s", cfg.Broker)
	}
	return NewWithClient(m, cfg, log), nil
}

// NewWithClient skips connecting; tests inject a stub mqtt.Client.
func NewWithClient(m mqtt.Client, cfg Config, log *log2.Log) *Tele {
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = "fcu"
	}
	return &Tele{log: log, m: m, prefix: prefix, qos: byte(cfg.QOS)}
}

// Bind subscribes id on the engine and republishes every matching
// frame's payload. period>0 keeps the telemetry flowing by itself.
func (self *Tele) Bind(c *msp.Client, id uint8, period time.Duration) {
	c.SubscribeRaw(id, func(b []byte) { self.Publish(id, b) }, period)
}

func (self *Tele) Publish(id uint8, payload []byte) {
	topic := fmt.Sprintf("%s/%d", self.prefix, id)
	// fire-and-forget: telemetry must not stall the dispatch loop
	self.m.Publish(topic, self.qos, false, payload)
	self.log.Debugf("tele publish topic=%s bytes=%d", topic, len(payload))
}

func (self *Tele) Close() error {
	self.m.Disconnect(250)
	return nil
}
