// Package security contains the core domain types of the premises security system.
//
// It defines the closed ArmingStatus, AlarmStatus and SensorType enumerations,
// the Sensor entity keyed by name and type, and the StatusListener capability
// notified by the alarm controller.
package security
