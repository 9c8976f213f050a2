package security

import (
	"context"
	"errors"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/service/controller"
)

// watchBuffer is the number of events queued per watch stream before new ones are dropped.
const watchBuffer = 16

// Controller abstracts the controller operations the transport depends on.
type Controller interface {
	Snapshot(ctx context.Context) (*controller.Snapshot, error)
	SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error
	SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error
	Sensors(ctx context.Context) ([]*domain.Sensor, error)
	AddSensor(ctx context.Context, sensor *domain.Sensor) error
	RemoveSensor(ctx context.Context, sensor *domain.Sensor) error
	SetSensorActive(ctx context.Context, key domain.SensorKey, active bool) (*domain.Sensor, error)
	ProcessImage(ctx context.Context, image []byte) (bool, error)
	AddStatusListener(listener domain.StatusListener) (remove func())
}

// Server implements SecurityServiceServer.
type Server struct {
	// controller owns the alarm rules.
	controller Controller
	// done is closed by Shutdown to end open watch streams.
	done chan struct{}
	// shutdownOnce guards done.
	shutdownOnce sync.Once
}

// NewServer wires the controller into a gRPC handler.
func NewServer(c Controller) *Server {
	return &Server{
		controller: c,
		done:       make(chan struct{}),
	}
}

// Shutdown ends every open watch stream so that a graceful stop can complete.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.done)
	})
}

// GetStatus returns the arming status, alarm status and sensors.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.status(ctx, "")
}

// SetArmingStatus arms or disarms the system and returns the resulting status.
func (s *Server) SetArmingStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	arming, err := armingFromRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = s.controller.SetArmingStatus(ctx, arming); err != nil {
		return nil, toStatusError(ctx, err)
	}

	return s.status(ctx, "")
}

// SetAlarmStatus overrides the alarm status and returns the resulting status.
func (s *Server) SetAlarmStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	alarm, err := alarmFromRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = s.controller.SetAlarmStatus(ctx, alarm); err != nil {
		return nil, toStatusError(ctx, err)
	}

	return s.status(ctx, "")
}

// ListSensors returns the installed sensors.
func (s *Server) ListSensors(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	sensors, err := s.controller.Sensors(ctx)
	if err != nil {
		return nil, toStatusError(ctx, err)
	}

	result, err := sensorsToStruct(sensors)
	if err != nil {
		return nil, toStatusError(ctx, err)
	}

	return result, nil
}

// AddSensor installs a sensor.
func (s *Server) AddSensor(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	sensor, err := sensorFromRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = s.controller.AddSensor(ctx, sensor); err != nil {
		return nil, toStatusError(ctx, err)
	}

	return new(emptypb.Empty), nil
}

// RemoveSensor uninstalls a sensor.
func (s *Server) RemoveSensor(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	sensor, err := sensorFromRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = s.controller.RemoveSensor(ctx, sensor); err != nil {
		return nil, toStatusError(ctx, err)
	}

	return new(emptypb.Empty), nil
}

// ChangeSensorActivation trips or clears an installed sensor and returns the resulting status.
func (s *Server) ChangeSensorActivation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sensor, err := sensorFromRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if _, err = s.controller.SetSensorActive(ctx, sensor.Key(), sensor.Active); err != nil {
		return nil, toStatusError(ctx, err)
	}

	return s.status(ctx, "")
}

// ProcessImage classifies a camera frame and returns the resulting status.
func (s *Server) ProcessImage(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	if len(req.GetValue()) == 0 {
		return nil, status.Error(codes.InvalidArgument, "image is required")
	}

	catDetected, err := s.controller.ProcessImage(ctx, req.GetValue())
	if err != nil {
		return nil, toStatusError(ctx, err)
	}

	snapshot, err := s.snapshot(ctx, "")
	if err != nil {
		return nil, err
	}

	snapshot.CatDetected = catDetected

	return encodeStatus(ctx, snapshot)
}

// WatchStatus streams the current status followed by one message per change.
// Events are queued per stream; when a client falls behind, new events are
// dropped and the next delivered message still carries the latest status.
func (s *Server) WatchStatus(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := logger.WithName(stream.Context(), "watch")
	events := make(chan string, watchBuffer)

	offer := func(event string) {
		select {
		case events <- event:
		default:
			logger.DebugKV(ctx, "Watch event dropped", "event", event)
		}
	}

	remove := s.controller.AddStatusListener(domain.ListenerFuncs{
		OnAlarm:   func(context.Context, domain.AlarmStatus) { offer(EventAlarm) },
		OnSensors: func(context.Context) { offer(EventSensors) },
	})
	defer remove()

	logger.Debug(ctx, "Watch stream opened")

	if err := s.send(ctx, stream, EventSnapshot); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			logger.Debug(ctx, "Watch stream closed")

			return nil
		case <-s.done:
			return status.Error(codes.Unavailable, "server is shutting down")
		case event := <-events:
			if err := s.send(ctx, stream, event); err != nil {
				return err
			}
		}
	}
}

// send writes one status message to the stream.
func (s *Server) send(ctx context.Context, stream grpc.ServerStreamingServer[structpb.Struct], event string) error {
	message, err := s.status(ctx, event)
	if err != nil {
		return err
	}

	return stream.Send(message)
}

// status reads a snapshot and encodes it.
func (s *Server) status(ctx context.Context, event string) (*structpb.Struct, error) {
	snapshot, err := s.snapshot(ctx, event)
	if err != nil {
		return nil, err
	}

	return encodeStatus(ctx, snapshot)
}

// snapshot reads the controller state into a Status.
func (s *Server) snapshot(ctx context.Context, event string) (*Status, error) {
	snapshot, err := s.controller.Snapshot(ctx)
	if err != nil {
		return nil, toStatusError(ctx, err)
	}

	return &Status{
		ArmingStatus: snapshot.ArmingStatus,
		AlarmStatus:  snapshot.AlarmStatus,
		Sensors:      snapshot.Sensors,
		Event:        event,
	}, nil
}

// encodeStatus converts the status into a response message.
func encodeStatus(ctx context.Context, value *Status) (*structpb.Struct, error) {
	result, err := value.toStruct()
	if err != nil {
		return nil, toStatusError(ctx, err)
	}

	return result, nil
}

// toStatusError maps controller errors to gRPC status codes.
func toStatusError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrUnknownArmingStatus),
		errors.Is(err, domain.ErrUnknownAlarmStatus),
		errors.Is(err, domain.ErrUnknownSensorType),
		errors.Is(err, domain.ErrSensorNameRequired),
		errors.Is(err, controller.ErrSensorRequired):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, controller.ErrSensorNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, controller.ErrCollaboratorUnavailable):
		logger.WarnKV(ctx, "Collaborator unavailable", "error", err)

		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		logger.ErrorKV(ctx, "Request failed", "error", err)

		return status.Error(codes.Internal, err.Error())
	}
}
