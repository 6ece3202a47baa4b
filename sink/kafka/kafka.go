package kafka

import (
	"context"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/luhtfiimanal/go-thermo-serial/display"
	"github.com/luhtfiimanal/go-thermo-serial/sink"
)

const DefaultTopic = "thermo.readings"

// Config selects the cluster and topic. Key identifies this station and is
// used as the message key, so one station's readings stay in one partition.
type Config struct {
	Brokers []string
	Topic   string
	Key     string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaOutput forwards the raw JSON line of every known state. Unknown states
// carry no reading and are not sent.
type KafkaOutput struct {
	w   messageWriter
	key []byte
}

func NewKafka(cfg Config) (sink.Sink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
	return newOutput(w, cfg.Key), nil
}

func newOutput(w messageWriter, key string) *KafkaOutput {
	return &KafkaOutput{w: w, key: []byte(strings.TrimSpace(key))}
}

func (k *KafkaOutput) Name() string { return "kafka" }

func (k *KafkaOutput) Publish(ctx context.Context, st display.State) error {
	if !st.Known() {
		return nil
	}
	msg := kafka.Message{
		Key:   k.key,
		Value: []byte(st.Raw),
		Time:  st.UpdatedAt,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (k *KafkaOutput) Close() error { return k.w.Close() }
