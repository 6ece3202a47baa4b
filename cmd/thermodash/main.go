package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	serial "github.com/luhtfiimanal/go-thermo-serial"
	"github.com/luhtfiimanal/go-thermo-serial/decoder"
	"github.com/luhtfiimanal/go-thermo-serial/display"
	"github.com/luhtfiimanal/go-thermo-serial/internal/config"
	"github.com/luhtfiimanal/go-thermo-serial/internal/httpapi"
	"github.com/luhtfiimanal/go-thermo-serial/internal/logging"
	"github.com/luhtfiimanal/go-thermo-serial/session"
	"github.com/luhtfiimanal/go-thermo-serial/sink"
	"github.com/luhtfiimanal/go-thermo-serial/sink/console"
	"github.com/luhtfiimanal/go-thermo-serial/sink/kafka"
	"github.com/luhtfiimanal/go-thermo-serial/sink/mqtt"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log, closeLog, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(2)
	}
	defer closeLog.Close()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("thermodash exited", "err", err)
		closeLog.Close()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := display.NewStore()
	storeCtx, stopStore := context.WithCancel(context.Background())
	defer stopStore()
	go store.Run(storeCtx)

	sinks, err := buildSinks(cfg.Outputs)
	if err != nil {
		return err
	}
	defer sink.CloseAll(sinks, log)
	states, unsubscribe := store.Subscribe(16)
	defer unsubscribe()
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		sink.Forward(storeCtx, states, sinks, log)
	}()

	mgr := session.NewManager(
		session.SerialOpener(serial.Config{
			BaudRate: cfg.Serial.BaudRate,
			DTR:      cfg.Serial.DTR,
			RTS:      cfg.Serial.RTS,
		}, log),
		store,
		decoder.Decoder{ReadTimeout: cfg.Serial.ReadTimeout(), ChunkSize: cfg.Serial.ChunkSize},
		log,
	)

	w := &session.Watcher{Interval: cfg.Serial.ScanInterval(), Logger: log}
	if dev := cfg.Serial.Device; dev != "" {
		w.List = fixedDevice(dev)
	}
	managerDone := make(chan struct{})
	go func() {
		defer close(managerDone)
		mgr.Run(ctx, w.Run(ctx))
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(store, mgr, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srvErr := make(chan error, 1)
	go func() {
		log.Info("dashboard listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-srvErr:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Warn("http shutdown", "err", serr)
	}

	// The manager resets the display on its way out; let that reach the sinks
	// before the store stops.
	<-managerDone
	mgr.Wait()
	unsubscribe()
	<-forwarded
	stopStore()
	return err
}

// fixedDevice reports dev as present while its node exists, so a configured
// device is reopened after it is unplugged and plugged back in.
func fixedDevice(dev string) func() ([]string, error) {
	return func() ([]string, error) {
		if _, err := os.Stat(dev); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, nil
			}
			return nil, err
		}
		return []string{dev}, nil
	}
}

func buildSinks(outs []config.OutputConfig) ([]sink.Sink, error) {
	var sinks []sink.Sink
	for _, o := range outs {
		var (
			s   sink.Sink
			err error
		)
		switch strings.ToLower(o.Type) {
		case "console":
			s = console.NewConsole(nil)
		case "mqtt":
			var mc mqtt.Config
			if o.MQTT != nil {
				mc = mqtt.Config{
					Server:            o.MQTT.Server,
					Username:          o.MQTT.Username,
					Password:          o.MQTT.Password,
					ClientID:          o.MQTT.ClientID,
					StateTopic:        o.MQTT.StateTopic,
					AvailabilityTopic: o.MQTT.AvailabilityTopic,
				}
			}
			s, err = mqtt.NewMQTT(mc)
		case "kafka":
			var kc kafka.Config
			if o.Kafka != nil {
				kc = kafka.Config{Brokers: o.Kafka.Brokers, Topic: o.Kafka.Topic, Key: o.Kafka.Key}
			}
			s, err = kafka.NewKafka(kc)
		default:
			err = fmt.Errorf("unknown output type %q", o.Type)
		}
		if err != nil {
			sink.CloseAll(sinks, nil)
			return nil, fmt.Errorf("output %s: %w", o.Type, err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}
