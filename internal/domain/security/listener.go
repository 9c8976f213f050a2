package security

import "context"

// StatusListener is notified by the alarm controller about status changes.
// Notifications are delivered synchronously on the caller's goroutine.
type StatusListener interface {
	// AlarmStatusChanged is called after every alarm status write with the persisted value.
	AlarmStatusChanged(ctx context.Context, status AlarmStatus)
	// SensorStatusChanged is called after one or more sensors changed activation.
	SensorStatusChanged(ctx context.Context)
}

// ListenerFuncs adapts plain functions to StatusListener. Nil fields are skipped.
type ListenerFuncs struct {
	// OnAlarm handles alarm status changes.
	OnAlarm func(ctx context.Context, status AlarmStatus)
	// OnSensors handles sensor status changes.
	OnSensors func(ctx context.Context)
}

// AlarmStatusChanged implements StatusListener.
func (f ListenerFuncs) AlarmStatusChanged(ctx context.Context, status AlarmStatus) {
	if f.OnAlarm != nil {
		f.OnAlarm(ctx, status)
	}
}

// SensorStatusChanged implements StatusListener.
func (f ListenerFuncs) SensorStatusChanged(ctx context.Context) {
	if f.OnSensors != nil {
		f.OnSensors(ctx)
	}
}
