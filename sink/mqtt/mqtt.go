package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/luhtfiimanal/go-thermo-serial/display"
	"github.com/luhtfiimanal/go-thermo-serial/sink"
)

const (
	// defaults
	DefaultServer            = "tcp://localhost:1883"
	DefaultClientID          = "thermodash"
	DefaultStateTopic        = "thermodash/state"
	DefaultAvailabilityTopic = "thermodash/availability"

	payloadOnline  = "online"
	payloadOffline = "offline"

	publishTimeout = 5 * time.Second
)

// Config selects the broker and topics.
type Config struct {
	Server            string
	Username          string
	Password          string
	ClientID          string
	StateTopic        string
	AvailabilityTopic string
}

func (c Config) withDefaults() Config {
	if c.Server == "" {
		c.Server = DefaultServer
	}
	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}
	if c.StateTopic == "" {
		c.StateTopic = DefaultStateTopic
	}
	if c.AvailabilityTopic == "" {
		c.AvailabilityTopic = DefaultAvailabilityTopic
	}
	return c
}

// publisher is the part of mqtt.Client this sink needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTOutput publishes each state as JSON and tracks sensor availability with
// a retained online/offline message. The broker marks it offline through the
// last will if the process dies.
type MQTTOutput struct {
	client            publisher
	stateTopic        string
	availabilityTopic string
	online            *bool
}

func NewMQTT(cfg Config) (sink.Sink, error) {
	cfg = cfg.withDefaults()
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Server).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10*time.Second).
		SetWill(cfg.AvailabilityTopic, payloadOffline, 1, true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return newOutput(client, cfg), nil
}

func newOutput(client publisher, cfg Config) *MQTTOutput {
	return &MQTTOutput{client: client, stateTopic: cfg.StateTopic, availabilityTopic: cfg.AvailabilityTopic}
}

func (m *MQTTOutput) Name() string { return "mqtt" }

func (m *MQTTOutput) Publish(ctx context.Context, st display.State) error {
	known := st.Known()
	if m.online == nil || *m.online != known {
		payload := payloadOffline
		if known {
			payload = payloadOnline
		}
		if err := m.send(ctx, m.availabilityTopic, true, []byte(payload)); err != nil {
			return err
		}
		m.online = &known
	}
	if !known {
		return nil
	}
	b, err := json.Marshal(statePayload(st))
	if err != nil {
		return err
	}
	return m.send(ctx, m.stateTopic, false, b)
}

// stateMessage carries both the formatted strings and the numeric values so
// consumers do not have to parse units back out.
type stateMessage struct {
	display.State
	Background display.Gradient `json:"background"`
	Values     any              `json:"values,omitempty"`
}

func statePayload(st display.State) stateMessage {
	msg := stateMessage{State: st, Background: display.Background(st.TemperatureC)}
	if r, ok := st.Reading(); ok {
		msg.Values = r
	}
	return msg
}

func (m *MQTTOutput) send(ctx context.Context, topic string, retained bool, payload []byte) error {
	token := m.client.Publish(topic, 1, retained, payload)
	timeout := publishTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return fmt.Errorf("mqtt publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}

func (m *MQTTOutput) Close() error {
	if m.client != nil {
		// Best effort: the will covers an unclean exit.
		token := m.client.Publish(m.availabilityTopic, 1, true, []byte(payloadOffline))
		token.WaitTimeout(time.Second)
		m.client.Disconnect(250)
	}
	return nil
}
