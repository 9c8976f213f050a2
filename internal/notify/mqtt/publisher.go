package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

// Topics published under the topic root.
const (
	AlarmTopic   = "alarm"
	SensorsTopic = "sensors"
)

// disconnectQuiesce is how long Disconnect waits for in-flight work, in milliseconds.
const disconnectQuiesce = 250

// errTopicRequired is returned when a relative topic is empty.
var errTopicRequired = errors.New("topic is empty")

// Client is the subset of paho.Client used by the publisher.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload any) paho.Token
}

// SensorSource lists sensors for the sensors topic. It is called while the
// controller notifies listeners and therefore must not call back into it.
type SensorSource func(ctx context.Context) ([]*domain.Sensor, error)

// AlarmMessage is the payload of the alarm topic.
type AlarmMessage struct {
	Status      string `json:"status"`
	Description string `json:"description"`
}

// SensorMessage is one element of the sensors topic payload.
type SensorMessage struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

// Publisher implements domain.StatusListener on top of an MQTT client.
type Publisher struct {
	client    Client
	topicRoot string
	sensors   SensorSource
	timeout   time.Duration
}

// NewPublisher creates a publisher. Topics are prefixed with topicRoot.
func NewPublisher(client Client, topicRoot string, sensors SensorSource, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	return &Publisher{
		client:    client,
		topicRoot: topicRoot,
		sensors:   sensors,
		timeout:   timeout,
	}
}

// Connect opens a broker connection described by settings. The password is
// resolved from config.MQTTPassword when a username is configured.
func Connect(ctx context.Context, settings *config.MQTT, timeout time.Duration) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(settings.Broker).
		SetClientID(settings.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)

	if settings.Username != "" {
		opts.SetUsername(settings.Username)

		password, err := config.MQTTPassword.Resolve()
		if err != nil && !errors.Is(err, config.ErrSecretNotFound) {
			return nil, err
		}

		opts.SetPassword(password)
	}

	client := paho.NewClient(opts)

	token := client.Connect()
	if err := waitToken(ctx, token, timeout); err != nil {
		return nil, fmt.Errorf("connect mqtt broker %s: %w", settings.Broker, err)
	}

	logger.InfoKV(ctx, "Connected to MQTT broker", "broker", settings.Broker, "client_id", settings.ClientID)

	return client, nil
}

// Disconnect closes the client connection if it is open.
func Disconnect(client paho.Client) {
	if client == nil {
		return
	}

	client.Disconnect(disconnectQuiesce)
}

// AlarmStatusChanged publishes the new alarm status.
func (p *Publisher) AlarmStatusChanged(ctx context.Context, status domain.AlarmStatus) {
	message := AlarmMessage{
		Status:      status.String(),
		Description: status.Description(),
	}

	if err := p.Publish(ctx, AlarmTopic, message); err != nil {
		logger.WarnKV(ctx, "Failed to publish alarm status", "error", err)
	}
}

// SensorStatusChanged publishes the current sensor list.
func (p *Publisher) SensorStatusChanged(ctx context.Context) {
	if p.sensors == nil {
		return
	}

	sensors, err := p.sensors(ctx)
	if err != nil {
		logger.WarnKV(ctx, "Failed to list sensors for MQTT", "error", err)
		return
	}

	messages := make([]SensorMessage, 0, len(sensors))
	for _, sensor := range sensors {
		messages = append(messages, SensorMessage{
			Name:   sensor.Name,
			Type:   sensor.Type.String(),
			Active: sensor.Active,
		})
	}

	if err = p.Publish(ctx, SensorsTopic, messages); err != nil {
		logger.WarnKV(ctx, "Failed to publish sensors", "error", err)
	}
}

// Publish encodes payload as JSON and publishes it retained under the topic root.
// The broker acknowledgement is awaited in the background.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) error {
	if topic == "" {
		return errTopicRequired
	}

	scopedTopic := p.scope(topic)

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload for %s: %w", scopedTopic, err)
	}

	token := p.client.Publish(scopedTopic, 0, true, data)

	// Detached from ctx so that the caller finishing does not cancel the wait.
	waitCtx := context.WithoutCancel(ctx)

	go func() {
		if err := waitToken(waitCtx, token, p.timeout); err != nil {
			logger.WarnKV(waitCtx, "MQTT publish not acknowledged", "topic", scopedTopic, "error", err)
		}
	}()

	return nil
}

// scope prefixes topic with the topic root.
func (p *Publisher) scope(topic string) string {
	if p.topicRoot == "" {
		return topic
	}

	return p.topicRoot + "/" + topic
}

// waitToken blocks until the token completes, the timeout passes or ctx is done.
func waitToken(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
