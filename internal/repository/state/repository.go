package state

import (
	"context"
	"sync"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Repository defines persistence operations for the security state.
// It stores values as given and applies no business rules.
type Repository interface {
	ArmingStatus(ctx context.Context) (domain.ArmingStatus, error)
	SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error
	AlarmStatus(ctx context.Context) (domain.AlarmStatus, error)
	SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error
	// Sensors returns the stored sensors. Callers may mutate them in place
	// and must call UpdateSensor to persist the change.
	Sensors(ctx context.Context) ([]*domain.Sensor, error)
	// AddSensor stores a new sensor. A sensor whose key is already stored is
	// left untouched.
	AddSensor(ctx context.Context, sensor *domain.Sensor) error
	RemoveSensor(ctx context.Context, sensor *domain.Sensor) error
	// UpdateSensor stores the sensor under its key, adding it if it is unknown.
	UpdateSensor(ctx context.Context, sensor *domain.Sensor) error
}

// document is the complete persisted state. It is not safe for concurrent use.
type document struct {
	arming  domain.ArmingStatus
	alarm   domain.AlarmStatus
	sensors map[domain.SensorKey]*domain.Sensor
}

// newDocument returns the state of a freshly installed system.
func newDocument() *document {
	return &document{
		arming:  domain.Disarmed,
		alarm:   domain.NoAlarm,
		sensors: make(map[domain.SensorKey]*domain.Sensor),
	}
}

// sensorList returns the stored sensor pointers in stable order.
func (d *document) sensorList() []*domain.Sensor {
	result := make([]*domain.Sensor, 0, len(d.sensors))
	for _, sensor := range d.sensors {
		result = append(result, sensor)
	}

	domain.SortSensors(result)

	return result
}

// putSensor stores the sensor pointer, replacing any sensor with the same key.
func (d *document) putSensor(sensor *domain.Sensor) {
	d.sensors[sensor.Key()] = sensor
}

// addSensor stores the sensor unless one with the same key is already
// present. It reports whether the sensor was stored.
func (d *document) addSensor(sensor *domain.Sensor) bool {
	if _, ok := d.sensors[sensor.Key()]; ok {
		return false
	}

	d.sensors[sensor.Key()] = sensor

	return true
}

// clone returns a copy of the document sharing the sensor pointers.
func (d *document) clone() *document {
	sensors := make(map[domain.SensorKey]*domain.Sensor, len(d.sensors))
	for key, sensor := range d.sensors {
		sensors[key] = sensor
	}

	return &document{
		arming:  d.arming,
		alarm:   d.alarm,
		sensors: sensors,
	}
}

// MemoryRepository keeps the security state in memory.
type MemoryRepository struct {
	// doc is the current state.
	doc *document
	// mu protects doc.
	mu sync.Mutex
}

// NewMemoryRepository creates a disarmed repository with the given sensors.
func NewMemoryRepository(sensors ...*domain.Sensor) *MemoryRepository {
	doc := newDocument()
	for _, sensor := range sensors {
		doc.putSensor(sensor)
	}

	return &MemoryRepository{
		doc: doc,
	}
}

// ArmingStatus returns the stored arming status.
func (r *MemoryRepository) ArmingStatus(context.Context) (domain.ArmingStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.doc.arming, nil
}

// SetArmingStatus stores the arming status.
func (r *MemoryRepository) SetArmingStatus(_ context.Context, status domain.ArmingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doc.arming = status

	return nil
}

// AlarmStatus returns the stored alarm status.
func (r *MemoryRepository) AlarmStatus(context.Context) (domain.AlarmStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.doc.alarm, nil
}

// SetAlarmStatus stores the alarm status.
func (r *MemoryRepository) SetAlarmStatus(_ context.Context, status domain.AlarmStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doc.alarm = status

	return nil
}

// Sensors returns the stored sensors ordered by name and type.
func (r *MemoryRepository) Sensors(context.Context) ([]*domain.Sensor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.doc.sensorList(), nil
}

// AddSensor stores the sensor unless its key is already present.
func (r *MemoryRepository) AddSensor(_ context.Context, sensor *domain.Sensor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doc.addSensor(sensor)

	return nil
}

// RemoveSensor deletes the sensor with the same key. Unknown sensors are ignored.
func (r *MemoryRepository) RemoveSensor(_ context.Context, sensor *domain.Sensor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.doc.sensors, sensor.Key())

	return nil
}

// UpdateSensor stores the sensor under its key.
func (r *MemoryRepository) UpdateSensor(_ context.Context, sensor *domain.Sensor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doc.putSensor(sensor)

	return nil
}
