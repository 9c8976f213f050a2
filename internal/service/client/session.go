package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	api "github.com/oshokin/catpoint/internal/api/grpc/security"
	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/service/common"
)

// defaultRetryInterval defines the delay between attempts when Retry is set.
const defaultRetryInterval = 1 * time.Second

// Options configures a CLI session.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides server address from config when specified.
	ServerAddress string
	// Retry keeps retrying failed requests until they succeed or the context ends.
	Retry bool
	// Output receives the printed results, os.Stdout when nil.
	Output io.Writer
}

// securityClient is the part of common.Client used by sessions.
type securityClient interface {
	GetStatus(ctx context.Context) (*api.Status, error)
	SetArmingStatus(ctx context.Context, arming domain.ArmingStatus) (*api.Status, error)
	SetAlarmStatus(ctx context.Context, alarm domain.AlarmStatus) (*api.Status, error)
	ListSensors(ctx context.Context) ([]*domain.Sensor, error)
	AddSensor(ctx context.Context, sensor *domain.Sensor) error
	RemoveSensor(ctx context.Context, sensor *domain.Sensor) error
	ChangeSensorActivation(ctx context.Context, key domain.SensorKey, active bool) (*api.Status, error)
	ProcessImage(ctx context.Context, image []byte) (*api.Status, error)
	WatchStatus(ctx context.Context, handle func(*api.Status) error) error
	Close() error
}

// errImageEmpty is returned when the scanned file has no content.
var errImageEmpty = errors.New("image file is empty")

// Session is one connection to the security server.
type Session struct {
	client        securityClient
	out           io.Writer
	retry         bool
	retryInterval time.Duration
}

// Open loads settings and connects to the server.
func Open(ctx context.Context, opts *Options) (*Session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if err = logger.SetLevelName(cfg.LogLevel); err != nil {
		return nil, err
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Connected to security server", "server_address", serverAddress)

	return newSession(client, opts), nil
}

// newSession wraps an already connected client.
func newSession(client securityClient, opts *Options) *Session {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	return &Session{
		client:        client,
		out:           out,
		retry:         opts.Retry,
		retryInterval: defaultRetryInterval,
	}
}

// Close releases the connection.
func (s *Session) Close() error {
	return s.client.Close()
}

// Status prints the current status.
func (s *Session) Status(ctx context.Context) error {
	return s.printStatus(ctx, s.client.GetStatus)
}

// SetArmingStatus arms or disarms the system and prints the result.
func (s *Session) SetArmingStatus(ctx context.Context, arming domain.ArmingStatus) error {
	return s.printStatus(ctx, func(ctx context.Context) (*api.Status, error) {
		return s.client.SetArmingStatus(ctx, arming)
	})
}

// SetAlarmStatus overrides the alarm status and prints the result.
func (s *Session) SetAlarmStatus(ctx context.Context, alarm domain.AlarmStatus) error {
	return s.printStatus(ctx, func(ctx context.Context) (*api.Status, error) {
		return s.client.SetAlarmStatus(ctx, alarm)
	})
}

// ListSensors prints the installed sensors.
func (s *Session) ListSensors(ctx context.Context) error {
	var sensors []*domain.Sensor

	err := s.do(ctx, func(ctx context.Context) error {
		var err error

		sensors, err = s.client.ListSensors(ctx)

		return err
	})
	if err != nil {
		return err
	}

	return writeSensors(s.out, sensors)
}

// AddSensor installs a sensor.
func (s *Session) AddSensor(ctx context.Context, sensor *domain.Sensor) error {
	err := s.do(ctx, func(ctx context.Context) error {
		return s.client.AddSensor(ctx, sensor)
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(s.out, "Added %s\n", sensor.Key())

	return err
}

// RemoveSensor uninstalls a sensor.
func (s *Session) RemoveSensor(ctx context.Context, sensor *domain.Sensor) error {
	err := s.do(ctx, func(ctx context.Context) error {
		return s.client.RemoveSensor(ctx, sensor)
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(s.out, "Removed %s\n", sensor.Key())

	return err
}

// SetSensorActive trips or clears a sensor and prints the result.
func (s *Session) SetSensorActive(ctx context.Context, key domain.SensorKey, active bool) error {
	return s.printStatus(ctx, func(ctx context.Context) (*api.Status, error) {
		return s.client.ChangeSensorActivation(ctx, key, active)
	})
}

// Scan sends the image file to the server and prints the classification and status.
func (s *Session) Scan(ctx context.Context, imagePath string) error {
	image, err := os.ReadFile(filepath.Clean(imagePath))
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	if len(image) == 0 {
		return fmt.Errorf("%w: %s", errImageEmpty, imagePath)
	}

	return s.printStatus(ctx, func(ctx context.Context) (*api.Status, error) {
		return s.client.ProcessImage(ctx, image)
	})
}

// Watch prints every status change until ctx is done.
func (s *Session) Watch(ctx context.Context) error {
	err := s.client.WatchStatus(ctx, func(status *api.Status) error {
		return writeStatus(s.out, status)
	})
	if err != nil && ctx.Err() != nil {
		return nil
	}

	return err
}

// printStatus performs call and prints the returned status.
func (s *Session) printStatus(ctx context.Context, call func(ctx context.Context) (*api.Status, error)) error {
	var status *api.Status

	err := s.do(ctx, func(ctx context.Context) error {
		var err error

		status, err = call(ctx)

		return err
	})
	if err != nil {
		return err
	}

	return writeStatus(s.out, status)
}

// do runs attempt once or, with retry enabled, until it succeeds or ctx ends.
func (s *Session) do(ctx context.Context, attempt func(ctx context.Context) error) error {
	err := attempt(ctx)
	if err == nil || !s.retry {
		return err
	}

	ticker := time.NewTicker(s.retryInterval)
	defer ticker.Stop()

	for {
		// Log error but continue retrying for transient failures.
		logger.WarnKV(ctx, "Request failed, retrying", "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err = attempt(ctx); err == nil {
				return nil
			}
		}
	}
}
