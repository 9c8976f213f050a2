package server

import (
	"context"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/notify/mqtt"
	repo "github.com/oshokin/catpoint/internal/repository/state"
	"github.com/oshokin/catpoint/internal/service/controller"
	"github.com/oshokin/catpoint/internal/vision"
)

// service owns the controller and the collaborators wired around it.
type service struct {
	// controller applies the alarm rules.
	controller *controller.Controller
	// repo persists the security state.
	repo repo.Repository
	// mqttClient is the broker connection, nil when MQTT is disabled.
	mqttClient paho.Client
	// unsubscribe removes the listeners registered by newService.
	unsubscribe []func()
}

// newService assembles the controller from settings. The state file is
// read eagerly so that a corrupt file stops the server at startup.
func newService(ctx context.Context, settings *config.Config, repository repo.Repository) (*service, error) {
	// Fail fast on unreadable state.
	if _, err := repository.ArmingStatus(ctx); err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	visionService, err := vision.New(ctx, &settings.Vision)
	if err != nil {
		return nil, fmt.Errorf("create vision service: %w", err)
	}

	s := &service{
		controller: controller.New(repository, visionService),
		repo:       repository,
	}

	s.subscribe(controller.LogListener{})

	if settings.MQTT.Broker == "" {
		return s, nil
	}

	if err = s.connectMQTT(ctx, settings); err != nil {
		s.Close()

		return nil, err
	}

	return s, nil
}

// connectMQTT connects the status publisher and seeds the retained topics.
func (s *service) connectMQTT(ctx context.Context, settings *config.Config) error {
	client, err := mqtt.Connect(ctx, &settings.MQTT, settings.Timeout)
	if err != nil {
		return err
	}

	s.mqttClient = client

	// The repository is read directly because listeners run under the controller lock.
	publisher := mqtt.NewPublisher(client, settings.MQTT.TopicRoot, s.repo.Sensors, settings.Timeout)
	s.subscribe(publisher)

	alarm, err := s.repo.AlarmStatus(ctx)
	if err != nil {
		return fmt.Errorf("read alarm status: %w", err)
	}

	publisher.AlarmStatusChanged(ctx, alarm)
	publisher.SensorStatusChanged(ctx)

	return nil
}

// subscribe registers a listener that Close removes.
func (s *service) subscribe(listener domain.StatusListener) {
	s.unsubscribe = append(s.unsubscribe, s.controller.AddStatusListener(listener))
}

// Close removes the listeners and disconnects from the broker.
func (s *service) Close() {
	for _, remove := range s.unsubscribe {
		remove()
	}

	s.unsubscribe = nil

	if s.mqttClient != nil {
		mqtt.Disconnect(s.mqttClient)
		logger.Info(context.Background(), "Disconnected from MQTT broker")

		s.mqttClient = nil
	}
}
