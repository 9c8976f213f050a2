package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/repository/state"
	"github.com/oshokin/catpoint/internal/vision"
)

// ConfidenceThreshold is the minimum cat confidence, in percent, requested from the vision service.
const ConfidenceThreshold float32 = 50.0

var (
	// ErrCollaboratorUnavailable wraps every repository or vision failure.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrSensorRequired is returned when a nil sensor is passed.
	ErrSensorRequired = errors.New("sensor is required")
	// ErrSensorNotFound is returned when a sensor key is not stored.
	ErrSensorNotFound = errors.New("sensor not found")
)

// Snapshot is a consistent view of the whole security state.
type Snapshot struct {
	// ArmingStatus is the current arming status.
	ArmingStatus domain.ArmingStatus
	// AlarmStatus is the current alarm status.
	AlarmStatus domain.AlarmStatus
	// Sensors are copies of the stored sensors.
	Sensors []*domain.Sensor
}

// Controller owns the alarm transition rules.
type Controller struct {
	// repo stores arming status, alarm status and sensors.
	repo state.Repository
	// vision classifies camera frames.
	vision vision.Service
	// mu serializes every public operation.
	mu sync.Mutex

	// listeners are the current subscriptions in subscription order.
	listeners []subscription
	// nextID numbers subscriptions.
	nextID uint64
	// listenersMu protects listeners and nextID.
	listenersMu sync.Mutex
}

// subscription is one registered listener.
type subscription struct {
	id       uint64
	listener domain.StatusListener
}

// New creates a controller backed by the given collaborators.
func New(repo state.Repository, visionService vision.Service) *Controller {
	return &Controller{
		repo:   repo,
		vision: visionService,
	}
}

// AddStatusListener subscribes listener to status changes and returns a
// function that cancels the subscription. The controller never owns the
// listener; the returned function is safe to call more than once.
func (c *Controller) AddStatusListener(listener domain.StatusListener) (remove func()) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, subscription{id: id, listener: listener})

	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()

		for i, sub := range c.listeners {
			if sub.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// SetArmingStatus arms or disarms the system. Disarming clears the alarm;
// any arming change resets every sensor to inactive. The new arming status
// is persisted last.
func (c *Controller) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %d", domain.ErrUnknownArmingStatus, int(status))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if alarm, ok := armingTransition(status); ok {
		// Disarm bypasses the pending guard.
		if err := c.writeAlarmStatus(ctx, alarm); err != nil {
			return err
		}
	}

	if armingResetsSensors(status) {
		if err := c.resetSensorsInactive(ctx); err != nil {
			return err
		}
	}

	if err := c.repo.SetArmingStatus(ctx, status); err != nil {
		return unavailable("set arming status", err)
	}

	logger.InfoKV(ctx, "Arming status updated", "arming_status", status.String())

	return nil
}

// SetAlarmStatus requests an alarm status. A request for PENDING_ALARM while
// any sensor is active is stored as NO_ALARM instead. Every listener is
// notified with the stored value.
func (c *Controller) SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %d", domain.ErrUnknownAlarmStatus, int(status))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.requestAlarmStatus(ctx, status, nil)
}

// ChangeSensorActivationStatus sets sensor.Active in place, persists the
// sensor and applies the activation or deactivation rule. Listeners are told
// about the sensor change whether or not the alarm status moved.
func (c *Controller) ChangeSensorActivationStatus(ctx context.Context, sensor *domain.Sensor, active bool) error {
	if sensor == nil {
		return ErrSensorRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.changeSensorActivation(ctx, sensor, active)
}

// SetSensorActive changes the activation of the stored sensor with the given key
// and returns a copy of it.
func (c *Controller) SetSensorActive(ctx context.Context, key domain.SensorKey, active bool) (*domain.Sensor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sensors, err := c.repo.Sensors(ctx)
	if err != nil {
		return nil, unavailable("get sensors", err)
	}

	for _, sensor := range sensors {
		if sensor.Key() != key {
			continue
		}

		if err = c.changeSensorActivation(ctx, sensor, active); err != nil {
			return nil, err
		}

		return sensor.Clone(), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrSensorNotFound, key)
}

// ProcessImage asks the vision service about the frame and, while
// ARMED_HOME, raises the alarm for a cat or clears it when there is no cat
// but a sensor is active. It returns the classification result.
func (c *Controller) ProcessImage(ctx context.Context, image []byte) (bool, error) {
	// The frame is classified in every arming status; only the alarm rule depends on it.
	catDetected, err := c.vision.ImageContainsCat(ctx, image, ConfidenceThreshold)
	if err != nil {
		return false, unavailable("classify image", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	arming, err := c.repo.ArmingStatus(ctx)
	if err != nil {
		return catDetected, unavailable("get arming status", err)
	}

	anyActive, err := c.anySensorActive(ctx, nil)
	if err != nil {
		return catDetected, err
	}

	logger.DebugKV(ctx, "Camera frame classified", "cat_detected", catDetected, "arming_status", arming.String())

	alarm, ok := visionTransition(arming, catDetected, anyActive)
	if !ok {
		return catDetected, nil
	}

	return catDetected, c.requestAlarmStatus(ctx, alarm, nil)
}

// AlarmStatus returns the stored alarm status.
func (c *Controller) AlarmStatus(ctx context.Context) (domain.AlarmStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status, err := c.repo.AlarmStatus(ctx)
	if err != nil {
		return status, unavailable("get alarm status", err)
	}

	return status, nil
}

// ArmingStatus returns the stored arming status.
func (c *Controller) ArmingStatus(ctx context.Context) (domain.ArmingStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status, err := c.repo.ArmingStatus(ctx)
	if err != nil {
		return status, unavailable("get arming status", err)
	}

	return status, nil
}

// Sensors returns copies of the stored sensors.
func (c *Controller) Sensors(ctx context.Context) ([]*domain.Sensor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sensorCopies(ctx)
}

// Snapshot returns arming status, alarm status and sensors read atomically.
func (c *Controller) Snapshot(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	arming, err := c.repo.ArmingStatus(ctx)
	if err != nil {
		return nil, unavailable("get arming status", err)
	}

	alarm, err := c.repo.AlarmStatus(ctx)
	if err != nil {
		return nil, unavailable("get alarm status", err)
	}

	sensors, err := c.sensorCopies(ctx)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		ArmingStatus: arming,
		AlarmStatus:  alarm,
		Sensors:      sensors,
	}, nil
}

// AddSensor stores a sensor. Adding a sensor whose key is already stored
// changes nothing; activation goes through ChangeSensorActivationStatus.
func (c *Controller) AddSensor(ctx context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return ErrSensorRequired
	}

	if err := sensor.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.repo.AddSensor(ctx, sensor); err != nil {
		return unavailable("add sensor", err)
	}

	return nil
}

// RemoveSensor deletes a sensor by key.
func (c *Controller) RemoveSensor(ctx context.Context, sensor *domain.Sensor) error {
	if sensor == nil {
		return ErrSensorRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.repo.RemoveSensor(ctx, sensor); err != nil {
		return unavailable("remove sensor", err)
	}

	return nil
}

// changeSensorActivation implements ChangeSensorActivationStatus. Callers must hold c.mu.
func (c *Controller) changeSensorActivation(ctx context.Context, sensor *domain.Sensor, active bool) error {
	wasActive := sensor.Active

	sensor.Active = active
	if err := c.repo.UpdateSensor(ctx, sensor); err != nil {
		sensor.Active = wasActive

		return unavailable("update sensor", err)
	}

	arming, err := c.repo.ArmingStatus(ctx)
	if err != nil {
		return unavailable("get arming status", err)
	}

	current, err := c.repo.AlarmStatus(ctx)
	if err != nil {
		return unavailable("get alarm status", err)
	}

	logger.DebugKV(ctx, "Sensor activation changed",
		"sensor", sensor.Key().String(), "was_active", wasActive, "active", active)

	if alarm, ok := sensorTransition(arming, current, wasActive, active); ok {
		key := sensor.Key()
		if err = c.requestAlarmStatus(ctx, alarm, &key); err != nil {
			return err
		}
	}

	c.notifySensorStatusChanged(ctx)

	return nil
}

// requestAlarmStatus applies the pending guard and stores the result. The
// sensor identified by trigger, if any, caused the request and does not
// count as already tripped. Callers must hold c.mu.
func (c *Controller) requestAlarmStatus(ctx context.Context, status domain.AlarmStatus, trigger *domain.SensorKey) error {
	if status == domain.PendingAlarm {
		tripped, err := c.anySensorActive(ctx, trigger)
		if err != nil {
			return err
		}

		if tripped {
			logger.DebugKV(ctx, "Pending alarm suppressed by active sensor")

			status = domain.NoAlarm
		}
	}

	return c.writeAlarmStatus(ctx, status)
}

// writeAlarmStatus persists the status and notifies listeners. Callers must hold c.mu.
func (c *Controller) writeAlarmStatus(ctx context.Context, status domain.AlarmStatus) error {
	if err := c.repo.SetAlarmStatus(ctx, status); err != nil {
		return unavailable("set alarm status", err)
	}

	logger.InfoKV(ctx, "Alarm status updated", "alarm_status", status.String())

	for _, listener := range c.currentListeners() {
		listener.AlarmStatusChanged(ctx, status)
	}

	return nil
}

// resetSensorsInactive clears every sensor and notifies listeners once.
// Callers must hold c.mu.
func (c *Controller) resetSensorsInactive(ctx context.Context) error {
	sensors, err := c.repo.Sensors(ctx)
	if err != nil {
		return unavailable("get sensors", err)
	}

	for _, sensor := range sensors {
		if !sensor.Active {
			continue
		}

		sensor.Active = false
		if err = c.repo.UpdateSensor(ctx, sensor); err != nil {
			sensor.Active = true

			return unavailable("update sensor", err)
		}
	}

	c.notifySensorStatusChanged(ctx)

	return nil
}

// anySensorActive reports whether a stored sensor other than exclude is active.
func (c *Controller) anySensorActive(ctx context.Context, exclude *domain.SensorKey) (bool, error) {
	sensors, err := c.repo.Sensors(ctx)
	if err != nil {
		return false, unavailable("get sensors", err)
	}

	for _, sensor := range sensors {
		if exclude != nil && sensor.Key() == *exclude {
			continue
		}

		if sensor.Active {
			return true, nil
		}
	}

	return false, nil
}

// sensorCopies returns clones of the stored sensors. Callers must hold c.mu.
func (c *Controller) sensorCopies(ctx context.Context) ([]*domain.Sensor, error) {
	sensors, err := c.repo.Sensors(ctx)
	if err != nil {
		return nil, unavailable("get sensors", err)
	}

	result := make([]*domain.Sensor, 0, len(sensors))
	for _, sensor := range sensors {
		result = append(result, sensor.Clone())
	}

	return result, nil
}

// notifySensorStatusChanged tells every listener that sensors changed.
func (c *Controller) notifySensorStatusChanged(ctx context.Context) {
	for _, listener := range c.currentListeners() {
		listener.SensorStatusChanged(ctx)
	}
}

// currentListeners returns a copy of the subscribed listeners so that
// listeners may subscribe or unsubscribe while being notified.
func (c *Controller) currentListeners() []domain.StatusListener {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	result := make([]domain.StatusListener, 0, len(c.listeners))
	for _, sub := range c.listeners {
		result = append(result, sub.listener)
	}

	return result
}

// unavailable wraps a collaborator failure.
func unavailable(operation string, err error) error {
	return fmt.Errorf("%s: %w: %w", operation, ErrCollaboratorUnavailable, err)
}
