package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ai_receptionist/internal/config"
	"ai_receptionist/internal/logger"

	"github.com/bytedance/sonic"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Event types
const (
	AppointmentBooked    = "appointment.booked"
	AppointmentCancelled = "appointment.cancelled"
	AppointmentFailed    = "appointment.failed"
	CallCompleted        = "call.completed"
)

// Event is the envelope published for booking and call outcomes
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	SessionID string         `json:"session_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent stamps an event with an id and the current time
func NewEvent(eventType, sessionID string, data map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Publisher delivers events; failures are reported but never block a turn
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }

// TopicEvent is the topic an event type is published on
func TopicEvent(prefix, eventType string) string {
	return fmt.Sprintf("%s/events/%s", prefix, eventType)
}

// TopicAllEvents subscribes to every event
func TopicAllEvents(prefix string) string {
	return fmt.Sprintf("%s/events/#", prefix)
}

// MQTTPublisher publishes events as JSON with QoS 1
type MQTTPublisher struct {
	cfg    config.MQTTConfig
	client paho.Client
}

// NewMQTTPublisher connects to the broker. The connection is closed when ctx ends.
func NewMQTTPublisher(ctx context.Context, cfg config.MQTTConfig) (*MQTTPublisher, error) {
	if cfg.BrokerURL == "" {
		return nil, fmt.Errorf("mqtt broker URL is required")
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(10 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	log := logger.With("events")
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Error().Err(err).Msg("MQTT connection lost")
	})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(15*time.Second) {
		return nil, fmt.Errorf("mqtt connect timed out")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}

	go func() {
		<-ctx.Done()
		client.Disconnect(250)
	}()

	log.Info().Str("broker", cfg.BrokerURL).Msg("MQTT publisher connected")
	return &MQTTPublisher{cfg: cfg, client: client}, nil
}

// Publish implements Publisher
func (p *MQTTPublisher) Publish(ctx context.Context, event Event) error {
	body, err := sonic.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	token := p.client.Publish(TopicEvent(p.cfg.TopicPrefix, event.Type), 1, false, body)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher
func (r *Recorder) Publish(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of what was published
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
