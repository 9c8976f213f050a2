package client

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	api "github.com/oshokin/catpoint/internal/api/grpc/security"
	domain "github.com/oshokin/catpoint/internal/domain/security"
)

var errTestUnavailable = errors.New("server unavailable")

// fakeClient implements securityClient for unit testing sessions.
type fakeClient struct {
	// status is returned by every status call.
	status *api.Status
	// failures is the number of calls that fail before calls succeed.
	failures int
	// calls counts every request.
	calls int
	// image is the last frame sent to ProcessImage.
	image []byte
	// sensors are installed by AddSensor.
	sensors []*domain.Sensor
	// events are delivered by WatchStatus.
	events []*api.Status
}

func (f *fakeClient) fail() error {
	f.calls++

	if f.failures > 0 {
		f.failures--

		return errTestUnavailable
	}

	return nil
}

func (f *fakeClient) statusResult() (*api.Status, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}

	return f.status, nil
}

func (f *fakeClient) GetStatus(context.Context) (*api.Status, error) {
	return f.statusResult()
}

func (f *fakeClient) SetArmingStatus(_ context.Context, arming domain.ArmingStatus) (*api.Status, error) {
	f.status.ArmingStatus = arming

	return f.statusResult()
}

func (f *fakeClient) SetAlarmStatus(_ context.Context, alarm domain.AlarmStatus) (*api.Status, error) {
	f.status.AlarmStatus = alarm

	return f.statusResult()
}

func (f *fakeClient) ListSensors(context.Context) ([]*domain.Sensor, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}

	return f.sensors, nil
}

func (f *fakeClient) AddSensor(_ context.Context, sensor *domain.Sensor) error {
	if err := f.fail(); err != nil {
		return err
	}

	f.sensors = append(f.sensors, sensor)

	return nil
}

func (f *fakeClient) RemoveSensor(context.Context, *domain.Sensor) error {
	return f.fail()
}

func (f *fakeClient) ChangeSensorActivation(_ context.Context, key domain.SensorKey, active bool) (*api.Status, error) {
	f.status.Sensors = []*domain.Sensor{{Name: key.Name, Type: key.Type, Active: active}}

	return f.statusResult()
}

func (f *fakeClient) ProcessImage(_ context.Context, image []byte) (*api.Status, error) {
	f.image = image
	f.status.CatDetected = true

	return f.statusResult()
}

func (f *fakeClient) WatchStatus(ctx context.Context, handle func(*api.Status) error) error {
	for _, event := range f.events {
		if err := handle(event); err != nil {
			return err
		}
	}

	<-ctx.Done()

	return ctx.Err()
}

func (f *fakeClient) Close() error { return nil }

// newTestSession returns a session printing into a buffer.
func newTestSession(client *fakeClient, retry bool) (*Session, *bytes.Buffer) {
	out := new(bytes.Buffer)
	session := newSession(client, &Options{Output: out, Retry: retry})
	session.retryInterval = time.Millisecond

	return session, out
}

// TestSession_Status prints statuses with descriptions and sensors.
func TestSession_Status(t *testing.T) {
	t.Parallel()

	client := &fakeClient{status: &api.Status{
		ArmingStatus: domain.ArmedHome,
		AlarmStatus:  domain.PendingAlarm,
		Sensors:      []*domain.Sensor{{Name: "Front", Type: domain.SensorDoor, Active: true}},
	}}
	session, out := newTestSession(client, false)

	require.NoError(t, session.Status(context.Background()))
	require.Contains(t, out.String(), "ARMED_HOME (Armed - At Home)")
	require.Contains(t, out.String(), "PENDING_ALARM")
	require.Regexp(t, `Front\s+DOOR\s+active`, out.String())
}

// TestSession_Commands runs the mutating commands against the fake.
func TestSession_Commands(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := &fakeClient{status: new(api.Status)}
	session, out := newTestSession(client, false)

	require.NoError(t, session.SetArmingStatus(ctx, domain.ArmedAway))
	require.Equal(t, domain.ArmedAway, client.status.ArmingStatus)

	require.NoError(t, session.SetAlarmStatus(ctx, domain.Alarm))
	require.Contains(t, out.String(), "Awooga!")

	require.NoError(t, session.AddSensor(ctx, domain.NewSensor("Hall", domain.SensorMotion)))
	require.Contains(t, out.String(), "Added Hall/MOTION")

	require.NoError(t, session.RemoveSensor(ctx, domain.NewSensor("Hall", domain.SensorMotion)))
	require.Contains(t, out.String(), "Removed Hall/MOTION")

	require.NoError(t, session.SetSensorActive(ctx, domain.SensorKey{Name: "Hall", Type: domain.SensorMotion}, true))
	require.Regexp(t, `Hall\s+MOTION\s+active`, out.String())

	out.Reset()
	require.NoError(t, session.ListSensors(ctx))
	require.Contains(t, out.String(), "NAME")
	require.Contains(t, out.String(), "Hall")
}

// TestSession_Scan reads the image file and reports the detection.
func TestSession_Scan(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := &fakeClient{status: new(api.Status)}
	session, out := newTestSession(client, false)

	dir := t.TempDir()
	image := filepath.Join(dir, "frame.jpg")
	require.NoError(t, os.WriteFile(image, []byte("jpeg"), 0o600))

	require.NoError(t, session.Scan(ctx, image))
	require.Equal(t, []byte("jpeg"), client.image)
	require.Contains(t, out.String(), "cat detected")

	empty := filepath.Join(dir, "empty.jpg")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	require.ErrorIs(t, session.Scan(ctx, empty), errImageEmpty)

	require.Error(t, session.Scan(ctx, filepath.Join(dir, "missing.jpg")))
}

// TestSession_Retry verifies failed requests are retried only when asked to.
func TestSession_Retry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	client := &fakeClient{status: new(api.Status), failures: 2}
	session, _ := newTestSession(client, false)
	require.ErrorIs(t, session.Status(ctx), errTestUnavailable)
	require.Equal(t, 1, client.calls)

	client = &fakeClient{status: new(api.Status), failures: 2}
	session, _ = newTestSession(client, true)
	require.NoError(t, session.Status(ctx))
	require.Equal(t, 3, client.calls)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	client = &fakeClient{status: new(api.Status), failures: 100}
	session, _ = newTestSession(client, true)
	require.ErrorIs(t, session.Status(cancelled), context.Canceled)
}

// TestSession_Watch prints events and returns cleanly on cancellation.
func TestSession_Watch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := &fakeClient{events: []*api.Status{
		{Event: api.EventSnapshot},
		{Event: api.EventAlarm, AlarmStatus: domain.Alarm},
	}}
	session, out := newTestSession(client, false)

	require.NoError(t, session.Watch(ctx))
	require.Contains(t, out.String(), "[alarm changed]")
	require.NotContains(t, out.String(), "[snapshot changed]")
}

// TestWriteSensors_Empty prints a placeholder for no sensors.
func TestWriteSensors_Empty(t *testing.T) {
	t.Parallel()

	out := new(bytes.Buffer)
	require.NoError(t, writeSensors(out, nil))
	require.Equal(t, "No sensors installed.\n", out.String())
}
