// Package ingest subscribes to device readings on MQTT and feeds them to the
// wells service.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"wellwatch/internal/config"
	"wellwatch/internal/types"
	"wellwatch/internal/wells"
)

const (
	qos            = byte(1) // at least once
	messageTimeout = 10 * time.Second
)

// Ingester is satisfied by *wells.Service.
type Ingester interface {
	IngestReading(ctx context.Context, req wells.IngestRequest) (*wells.IngestResult, error)
}

// Recorder counts ingested readings. *telemetry.Metrics implements it.
type Recorder interface {
	RecordIngest(source types.ReadingSource, n int)
}

// Subscriber consumes device readings from MQTT and ingests them.
type Subscriber struct {
	client   mqtt.Client
	cfg      config.MQTTConfig
	ingester Ingester
	recorder Recorder
	logger   *slog.Logger

	mu        sync.RWMutex
	connected bool
	baseCtx   context.Context

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSubscriber builds a paho client from cfg. recorder may be nil.
func NewSubscriber(cfg config.MQTTConfig, ingester Ingester, recorder Recorder, logger *slog.Logger) *Subscriber {
	s := newSubscriber(cfg, ingester, recorder, logger)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg))
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password.Unmask())
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Subscriptions are re-established on every (re)connect because the
	// session is clean.
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		s.setConnected(true)
		s.logger.Info("mqtt connected", "broker", brokerURL(cfg))
		if err := s.subscribe(c); err != nil {
			s.logger.Error("mqtt subscribe failed", "topic", cfg.Topic, "error", err)
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.setConnected(false)
		s.logger.Warn("mqtt connection lost", "error", err)
	})

	s.client = mqtt.NewClient(opts)
	return s
}

func newSubscriber(cfg config.MQTTConfig, ingester Ingester, recorder Recorder, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		cfg:      cfg,
		ingester: ingester,
		recorder: recorder,
		logger:   logger.With("component", "mqtt"),
		baseCtx:  context.Background(),
		stopCh:   make(chan struct{}),
	}
}

// brokerURL accepts a bare host or a full tcp://, ssl:// or ws:// URL.
func brokerURL(cfg config.MQTTConfig) string {
	if strings.Contains(cfg.Broker, "://") {
		return cfg.Broker
	}
	return fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)
}

// Connect blocks until the first connection succeeds, ctx is done or the
// subscriber is stopped. Message handling inherits ctx values (not its
// cancellation).
func (s *Subscriber) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return errors.New("subscriber stopped")
	default:
	}
	if s.IsConnected() {
		return nil
	}

	s.mu.Lock()
	s.baseCtx = context.WithoutCancel(ctx)
	s.mu.Unlock()

	token := s.client.Connect()
	const poll = 200 * time.Millisecond
	for !token.WaitTimeout(poll) {
		select {
		case <-ctx.Done():
			s.client.Disconnect(0)
			return ctx.Err()
		case <-s.stopCh:
			s.client.Disconnect(0)
			return errors.New("subscriber stopped")
		default:
		}
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (s *Subscriber) subscribe(c mqtt.Client) error {
	token := c.Subscribe(s.cfg.Topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", s.cfg.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.cfg.Topic, err)
	}
	s.logger.Info("subscribed to mqtt topic", "topic", s.cfg.Topic, "qos", qos)
	return nil
}

// handleMessage never returns an error to paho: a bad payload is logged and
// dropped so that one device cannot stall the subscription.
func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.mu.RLock()
	base := s.baseCtx
	s.mu.RUnlock()
	ctx, cancel := context.WithTimeout(base, messageTimeout)
	defer cancel()

	raw, err := decodePayload(payload)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to parse reading message", "topic", topic, "error", err, "size", len(payload))
		return
	}

	req := wells.IngestRequestFromMap(WellIDFromTopic(s.cfg.Topic, topic), raw)
	if req.Source == "" {
		req.Source = types.SourceDevice
	}
	if req.WellID == "" {
		s.logger.WarnContext(ctx, "reading message without well id", "topic", topic)
		return
	}

	res, err := s.ingester.IngestReading(ctx, req)
	if err != nil {
		s.logger.ErrorContext(ctx, "device reading rejected", "topic", topic, "well_id", req.WellID, "error", err)
		return
	}
	if s.recorder != nil {
		s.recorder.RecordIngest(req.Source, 1)
	}
	s.logger.DebugContext(ctx, "device reading ingested",
		"well_id", req.WellID,
		"reading_id", res.Reading.ID,
		"status", res.Status,
	)
}

func decodePayload(payload []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("payload is not a JSON object")
	}
	return raw, nil
}

// WellIDFromTopic returns the topic level matched by the first "+" in
// pattern, or "" when the topic does not match the pattern's shape.
func WellIDFromTopic(pattern, topic string) string {
	p := strings.Split(pattern, "/")
	t := strings.Split(topic, "/")
	for i, level := range p {
		if level == "#" || i >= len(t) {
			return ""
		}
		if level == "+" {
			return t[i]
		}
		if level != t[i] {
			return ""
		}
	}
	return ""
}

// IsConnected reports whether the broker connection is up.
func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client != nil && s.client.IsConnected()
}

// Disconnect is idempotent.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.client != nil && s.IsConnected() {
		s.client.Unsubscribe(s.cfg.Topic).WaitTimeout(2 * time.Second)
	}
	if s.client != nil {
		s.client.Disconnect(250)
	}
	s.setConnected(false)
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

// Name and Check make the subscriber a core.HealthProbe.
func (s *Subscriber) Name() string { return "mqtt" }

func (s *Subscriber) Check(context.Context) error {
	if !s.IsConnected() {
		return errors.New("not connected to broker")
	}
	return nil
}
