package security

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/service/controller"
)

// Client calls the security service over a gRPC connection.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient creates a client on top of conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{
		conn: conn,
	}
}

// GetStatus returns the current status.
func (c *Client) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*Status, error) {
	return c.invokeStatus(ctx, GetStatusMethod, new(emptypb.Empty), opts...)
}

// SetArmingStatus arms or disarms the system.
func (c *Client) SetArmingStatus(
	ctx context.Context,
	arming domain.ArmingStatus,
	opts ...grpc.CallOption,
) (*Status, error) {
	req, err := structpb.NewStruct(map[string]any{"arming_status": arming.String()})
	if err != nil {
		return nil, fmt.Errorf("encode arming status: %w", err)
	}

	return c.invokeStatus(ctx, SetArmingStatusMethod, req, opts...)
}

// SetAlarmStatus overrides the alarm status.
func (c *Client) SetAlarmStatus(ctx context.Context, alarm domain.AlarmStatus, opts ...grpc.CallOption) (*Status, error) {
	req, err := structpb.NewStruct(map[string]any{"alarm_status": alarm.String()})
	if err != nil {
		return nil, fmt.Errorf("encode alarm status: %w", err)
	}

	return c.invokeStatus(ctx, SetAlarmStatusMethod, req, opts...)
}

// ListSensors returns the installed sensors.
func (c *Client) ListSensors(ctx context.Context, opts ...grpc.CallOption) ([]*domain.Sensor, error) {
	reply := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, ListSensorsMethod, new(emptypb.Empty), reply, opts...); err != nil {
		return nil, err
	}

	return sensorsFromStruct(reply)
}

// AddSensor installs a sensor.
func (c *Client) AddSensor(ctx context.Context, sensor *domain.Sensor, opts ...grpc.CallOption) error {
	return c.invokeSensor(ctx, AddSensorMethod, sensor, opts...)
}

// RemoveSensor uninstalls a sensor.
func (c *Client) RemoveSensor(ctx context.Context, sensor *domain.Sensor, opts ...grpc.CallOption) error {
	return c.invokeSensor(ctx, RemoveSensorMethod, sensor, opts...)
}

// ChangeSensorActivation trips or clears an installed sensor.
func (c *Client) ChangeSensorActivation(
	ctx context.Context,
	key domain.SensorKey,
	active bool,
	opts ...grpc.CallOption,
) (*Status, error) {
	req, err := sensorToStruct(&domain.Sensor{Name: key.Name, Type: key.Type, Active: active})
	if err != nil {
		return nil, err
	}

	return c.invokeStatus(ctx, ChangeSensorActivationMethod, req, opts...)
}

// ProcessImage sends a camera frame for classification.
func (c *Client) ProcessImage(ctx context.Context, image []byte, opts ...grpc.CallOption) (*Status, error) {
	return c.invokeStatus(ctx, ProcessImageMethod, wrapperspb.Bytes(image), opts...)
}

// WatchStatus calls handle with the current status and then with every change
// until ctx is done, the server ends the stream or handle returns an error.
func (c *Client) WatchStatus(ctx context.Context, handle func(*Status) error, opts ...grpc.CallOption) error {
	desc := &ServiceDesc.Streams[0]

	stream, err := c.conn.NewStream(ctx, desc, WatchStatusMethod, opts...)
	if err != nil {
		return err
	}

	typed := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}

	if err = typed.SendMsg(new(emptypb.Empty)); err != nil {
		return err
	}

	if err = typed.CloseSend(); err != nil {
		return err
	}

	for {
		message, err := typed.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		value, err := statusFromStruct(message)
		if err != nil {
			return err
		}

		if err = handle(value); err != nil {
			return err
		}
	}
}

// invokeStatus performs a unary call whose reply is a status.
func (c *Client) invokeStatus(ctx context.Context, method string, req any, opts ...grpc.CallOption) (*Status, error) {
	reply := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, req, reply, opts...); err != nil {
		return nil, err
	}

	return statusFromStruct(reply)
}

// invokeSensor performs a unary sensor call.
func (c *Client) invokeSensor(ctx context.Context, method string, sensor *domain.Sensor, opts ...grpc.CallOption) error {
	if sensor == nil {
		return controller.ErrSensorRequired
	}

	req, err := sensorToStruct(sensor)
	if err != nil {
		return err
	}

	return c.conn.Invoke(ctx, method, req, new(emptypb.Empty), opts...)
}
