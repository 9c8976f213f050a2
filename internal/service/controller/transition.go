package controller

import (
	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// armingTransition returns the alarm status forced by entering arming.
// Disarming always clears the alarm; arming leaves it untouched.
func armingTransition(arming domain.ArmingStatus) (domain.AlarmStatus, bool) {
	if arming == domain.Disarmed {
		return domain.NoAlarm, true
	}

	return domain.NoAlarm, false
}

// armingResetsSensors reports whether entering arming clears every sensor.
func armingResetsSensors(arming domain.ArmingStatus) bool {
	return arming == domain.Disarmed || arming.IsArmed()
}

// sensorTransition returns the alarm status requested after a sensor moved
// from wasActive to active. Nothing changes while disarmed.
func sensorTransition(
	arming domain.ArmingStatus,
	alarm domain.AlarmStatus,
	wasActive bool,
	active bool,
) (domain.AlarmStatus, bool) {
	if arming == domain.Disarmed {
		return alarm, false
	}

	if active {
		switch alarm {
		case domain.PendingAlarm:
			return domain.Alarm, true
		case domain.NoAlarm:
			return domain.PendingAlarm, true
		default:
			return alarm, false
		}
	}

	switch {
	case alarm == domain.Alarm:
		// A sounding alarm is never downgraded by a sensor going quiet.
		return alarm, false
	case alarm == domain.PendingAlarm && wasActive:
		return domain.NoAlarm, true
	case alarm == domain.PendingAlarm:
		// Deactivating an already quiet sensor while pending escalates.
		return domain.Alarm, true
	default:
		return alarm, false
	}
}

// visionTransition returns the alarm status requested after a camera frame
// was classified. Only ARMED_HOME honours the camera.
func visionTransition(
	arming domain.ArmingStatus,
	catDetected bool,
	anySensorActive bool,
) (domain.AlarmStatus, bool) {
	if arming != domain.ArmedHome {
		return domain.NoAlarm, false
	}

	switch {
	case catDetected:
		return domain.Alarm, true
	case anySensorActive:
		return domain.NoAlarm, true
	default:
		return domain.NoAlarm, false
	}
}
