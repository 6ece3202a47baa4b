package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

type SerialConfig struct {
	Device         string `json:"device"` // empty: first discovered USB serial port
	BaudRate       int    `json:"baud_rate"`
	ReadTimeoutMs  int    `json:"read_timeout_ms"`
	ChunkSize      int    `json:"chunk_size"`
	DTR            bool   `json:"dtr"`
	RTS            bool   `json:"rts"`
	ScanIntervalMs int    `json:"scan_interval_ms"`
}

type MQTTConfig struct {
	Server            string `json:"server"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	ClientID          string `json:"client_id"`
	StateTopic        string `json:"state_topic"`
	AvailabilityTopic string `json:"availability_topic"`
}

type KafkaConfig struct {
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
	Key     string   `json:"key"`
}

type OutputConfig struct {
	Type  string       `json:"type"` // console | mqtt | kafka
	MQTT  *MQTTConfig  `json:"mqtt,omitempty"`
	Kafka *KafkaConfig `json:"kafka,omitempty"`
}

type Config struct {
	Serial   SerialConfig   `json:"serial"`
	HTTPAddr string         `json:"http_addr"`
	LogFile  string         `json:"log_file"`
	LogLevel string         `json:"log_level"`
	Outputs  []OutputConfig `json:"outputs"`
}

func DefaultConfig() Config {
	return Config{
		Serial: SerialConfig{
			BaudRate:       115200,
			ReadTimeoutMs:  1000,
			ChunkSize:      256,
			DTR:            true,
			RTS:            true,
			ScanIntervalMs: 1000,
		},
		HTTPAddr: ":8080",
		LogLevel: "info",
	}
}

func (s SerialConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMs) * time.Millisecond
}

func (s SerialConfig) ScanInterval() time.Duration {
	return time.Duration(s.ScanIntervalMs) * time.Millisecond
}

// Load reads an optional JSON file and applies flag overrides from args
// (without the program name). Flags override values present in the file.
func Load(args []string) (Config, error) {
	fs := flag.NewFlagSet("thermodash", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to JSON config file")
	flagDevice := fs.String("device", "", "Serial device (default: first /dev/ttyUSB* or /dev/ttyACM*)")
	flagBaud := fs.Int("baud", -1, "Serial baud rate")
	flagReadTimeout := fs.Int("read-timeout-ms", -1, "Serial read timeout in ms")
	flagScan := fs.Int("scan-interval-ms", -1, "Device discovery interval in ms")
	flagHTTP := fs.String("http-addr", "", "Dashboard listen address")
	flagLogFile := fs.String("log-file", "", "Also write logs to this file")
	flagLogLevel := fs.String("log-level", "", "Log level: debug|info|warn|error")
	flagOutputs := fs.String("outputs", "", "Comma-separated outputs (console,mqtt,kafka)")
	flagMQTTServer := fs.String("mqtt-server", "", "MQTT server (tcp://host:port)")
	flagMQTTUser := fs.String("mqtt-user", "", "MQTT username")
	flagMQTTPass := fs.String("mqtt-pass", "", "MQTT password")
	flagMQTTTopic := fs.String("mqtt-topic", "", "MQTT state topic")
	flagKafkaBrokers := fs.String("kafka-brokers", "", "Comma-separated Kafka brokers")
	flagKafkaTopic := fs.String("kafka-topic", "", "Kafka topic")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()

	if *cfgPath != "" {
		b, err := os.ReadFile(*cfgPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if *flagDevice != "" {
		cfg.Serial.Device = *flagDevice
	}
	if *flagBaud != -1 {
		cfg.Serial.BaudRate = *flagBaud
	}
	if *flagReadTimeout != -1 {
		cfg.Serial.ReadTimeoutMs = *flagReadTimeout
	}
	if *flagScan != -1 {
		cfg.Serial.ScanIntervalMs = *flagScan
	}
	if *flagHTTP != "" {
		cfg.HTTPAddr = *flagHTTP
	}
	if *flagLogFile != "" {
		cfg.LogFile = *flagLogFile
	}
	if *flagLogLevel != "" {
		cfg.LogLevel = *flagLogLevel
	}
	if *flagOutputs != "" {
		parts := parseCSV(*flagOutputs)
		outs := make([]OutputConfig, 0, len(parts))
		for _, p := range parts {
			outs = append(outs, OutputConfig{Type: strings.ToLower(p)})
		}
		cfg.Outputs = outs
	}
	if *flagMQTTServer != "" || *flagMQTTUser != "" || *flagMQTTPass != "" || *flagMQTTTopic != "" {
		out := output(&cfg, "mqtt")
		if out.MQTT == nil {
			out.MQTT = &MQTTConfig{}
		}
		if *flagMQTTServer != "" {
			out.MQTT.Server = *flagMQTTServer
		}
		if *flagMQTTUser != "" {
			out.MQTT.Username = *flagMQTTUser
		}
		if *flagMQTTPass != "" {
			out.MQTT.Password = *flagMQTTPass
		}
		if *flagMQTTTopic != "" {
			out.MQTT.StateTopic = *flagMQTTTopic
		}
	}
	if *flagKafkaBrokers != "" || *flagKafkaTopic != "" {
		out := output(&cfg, "kafka")
		if out.Kafka == nil {
			out.Kafka = &KafkaConfig{}
		}
		if *flagKafkaBrokers != "" {
			out.Kafka.Brokers = parseCSV(*flagKafkaBrokers)
		}
		if *flagKafkaTopic != "" {
			out.Kafka.Topic = *flagKafkaTopic
		}
	}

	return cfg, cfg.Validate()
}

// output returns the first output of type typ, appending one if missing.
func output(cfg *Config, typ string) *OutputConfig {
	for i := range cfg.Outputs {
		if strings.EqualFold(cfg.Outputs[i].Type, typ) {
			return &cfg.Outputs[i]
		}
	}
	cfg.Outputs = append(cfg.Outputs, OutputConfig{Type: typ})
	return &cfg.Outputs[len(cfg.Outputs)-1]
}

func (c Config) Validate() error {
	if c.Serial.ReadTimeoutMs <= 0 {
		return errors.New("read timeout must be > 0")
	}
	if c.Serial.ScanIntervalMs <= 0 {
		return errors.New("scan interval must be > 0")
	}
	if c.Serial.ChunkSize <= 0 {
		return errors.New("chunk size must be > 0")
	}
	for _, o := range c.Outputs {
		switch strings.ToLower(o.Type) {
		case "console", "mqtt":
		case "kafka":
			if o.Kafka == nil || len(o.Kafka.Brokers) == 0 {
				return errors.New("kafka output needs at least one broker")
			}
		default:
			return fmt.Errorf("unknown output type %q", o.Type)
		}
	}
	return nil
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
