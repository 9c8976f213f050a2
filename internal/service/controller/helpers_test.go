package controller

import (
	"context"
	"errors"
	"sync"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/repository/state"
)

var errTestCollaborator = errors.New("test collaborator failure")

// recordingListener remembers every notification it receives.
type recordingListener struct {
	mu            sync.Mutex
	alarms        []domain.AlarmStatus
	sensorChanges int
}

// AlarmStatusChanged records the status.
func (l *recordingListener) AlarmStatusChanged(_ context.Context, status domain.AlarmStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.alarms = append(l.alarms, status)
}

// SensorStatusChanged counts the call.
func (l *recordingListener) SensorStatusChanged(context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sensorChanges++
}

// stubVision returns a fixed answer and remembers the threshold it was asked for.
type stubVision struct {
	cat       bool
	err       error
	threshold float32
	calls     int
}

// ImageContainsCat returns the configured answer.
func (s *stubVision) ImageContainsCat(_ context.Context, _ []byte, threshold float32) (bool, error) {
	s.calls++
	s.threshold = threshold

	return s.cat, s.err
}

// recordingRepository wraps the in-memory repository, records write order
// and can fail selected operations.
type recordingRepository struct {
	*state.MemoryRepository

	writes []string
	failOn string
}

// newRecordingRepository creates a repository with the given state.
func newRecordingRepository(
	arming domain.ArmingStatus,
	alarm domain.AlarmStatus,
	sensors ...*domain.Sensor,
) *recordingRepository {
	memory := state.NewMemoryRepository(sensors...)
	_ = memory.SetArmingStatus(context.Background(), arming)
	_ = memory.SetAlarmStatus(context.Background(), alarm)

	return &recordingRepository{MemoryRepository: memory}
}

func (r *recordingRepository) fail(operation string) error {
	if r.failOn == operation {
		return errTestCollaborator
	}

	return nil
}

func (r *recordingRepository) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	if err := r.fail("SetArmingStatus"); err != nil {
		return err
	}

	r.writes = append(r.writes, "arming:"+status.String())

	return r.MemoryRepository.SetArmingStatus(ctx, status)
}

func (r *recordingRepository) SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error {
	if err := r.fail("SetAlarmStatus"); err != nil {
		return err
	}

	r.writes = append(r.writes, "alarm:"+status.String())

	return r.MemoryRepository.SetAlarmStatus(ctx, status)
}

func (r *recordingRepository) UpdateSensor(ctx context.Context, sensor *domain.Sensor) error {
	if err := r.fail("UpdateSensor"); err != nil {
		return err
	}

	r.writes = append(r.writes, "sensor:"+sensor.Name)

	return r.MemoryRepository.UpdateSensor(ctx, sensor)
}

func (r *recordingRepository) Sensors(ctx context.Context) ([]*domain.Sensor, error) {
	if err := r.fail("Sensors"); err != nil {
		return nil, err
	}

	return r.MemoryRepository.Sensors(ctx)
}

// alarmWrites returns only the alarm status writes.
func (r *recordingRepository) alarmWrites() []string {
	var result []string

	for _, write := range r.writes {
		if len(write) > 6 && write[:6] == "alarm:" {
			result = append(result, write)
		}
	}

	return result
}

// newTestController builds a controller with a recording listener attached.
func newTestController(repo state.Repository, vision *stubVision) (*Controller, *recordingListener) {
	if vision == nil {
		vision = new(stubVision)
	}

	c := New(repo, vision)
	listener := new(recordingListener)
	c.AddStatusListener(listener)

	return c, listener
}

// activeSensors returns a door and a window sensor, both tripped.
func activeSensors() []*domain.Sensor {
	return []*domain.Sensor{
		{Name: "Sensor1", Type: domain.SensorDoor, Active: true},
		{Name: "Sensor2", Type: domain.SensorWindow, Active: true},
	}
}
