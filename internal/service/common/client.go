//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	api "github.com/oshokin/catpoint/internal/api/grpc/security"
	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Client wraps the security service client with per-call timeouts and actor metadata.
type Client struct {
	// conn is the underlying gRPC connection to the server.
	conn *grpc.ClientConn
	// api is the security service client.
	api *api.Client

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// actor identifies the caller in server logs.
	actor string
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for unary calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActorName overrides the detected actor.
func WithActorName(actor string) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the security server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial security server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	if actor, err := DetectActor(); err == nil {
		client.actor = actor
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetStatus retrieves the current status.
func (c *Client) GetStatus(ctx context.Context) (*api.Status, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	result, err := c.api.GetStatus(callCtx)
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	return result, nil
}

// SetArmingStatus arms or disarms the system.
func (c *Client) SetArmingStatus(ctx context.Context, arming domain.ArmingStatus) (*api.Status, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	result, err := c.api.SetArmingStatus(callCtx, arming)
	if err != nil {
		return nil, fmt.Errorf("set arming status: %w", err)
	}

	return result, nil
}

// SetAlarmStatus overrides the alarm status.
func (c *Client) SetAlarmStatus(ctx context.Context, alarm domain.AlarmStatus) (*api.Status, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	result, err := c.api.SetAlarmStatus(callCtx, alarm)
	if err != nil {
		return nil, fmt.Errorf("set alarm status: %w", err)
	}

	return result, nil
}

// ListSensors returns the installed sensors.
func (c *Client) ListSensors(ctx context.Context) ([]*domain.Sensor, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	result, err := c.api.ListSensors(callCtx)
	if err != nil {
		return nil, fmt.Errorf("list sensors: %w", err)
	}

	return result, nil
}

// AddSensor installs a sensor.
func (c *Client) AddSensor(ctx context.Context, sensor *domain.Sensor) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if err := c.api.AddSensor(callCtx, sensor); err != nil {
		return fmt.Errorf("add sensor: %w", err)
	}

	return nil
}

// RemoveSensor uninstalls a sensor.
func (c *Client) RemoveSensor(ctx context.Context, sensor *domain.Sensor) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if err := c.api.RemoveSensor(callCtx, sensor); err != nil {
		return fmt.Errorf("remove sensor: %w", err)
	}

	return nil
}

// ChangeSensorActivation trips or clears an installed sensor.
func (c *Client) ChangeSensorActivation(ctx context.Context, key domain.SensorKey, active bool) (*api.Status, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	result, err := c.api.ChangeSensorActivation(callCtx, key, active)
	if err != nil {
		return nil, fmt.Errorf("change sensor activation: %w", err)
	}

	return result, nil
}

// ProcessImage sends a camera frame for classification.
func (c *Client) ProcessImage(ctx context.Context, image []byte) (*api.Status, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	result, err := c.api.ProcessImage(callCtx, image)
	if err != nil {
		return nil, fmt.Errorf("process image: %w", err)
	}

	return result, nil
}

// WatchStatus streams status changes until ctx is done. The call timeout
// does not apply to the stream.
func (c *Client) WatchStatus(ctx context.Context, handle func(*api.Status) error) error {
	if err := c.api.WatchStatus(WithActor(ctx, c.actor), handle); err != nil {
		return fmt.Errorf("watch status: %w", err)
	}

	return nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline. The actor is
// attached as call metadata.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = WithActor(ctx, c.actor)

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
