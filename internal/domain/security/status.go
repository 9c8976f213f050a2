package security

import (
	"errors"
	"fmt"
	"strings"
)

// ArmingStatus describes whether and how the system is armed.
type ArmingStatus int

const (
	// Disarmed means no sensor or camera event can raise the alarm.
	Disarmed ArmingStatus = iota
	// ArmedHome means the occupants are at home; camera detections are honoured.
	ArmedHome
	// ArmedAway means the premises are empty.
	ArmedAway
)

// AlarmStatus describes the danger level of the premises.
type AlarmStatus int

const (
	// NoAlarm is the resting state.
	NoAlarm AlarmStatus = iota
	// PendingAlarm means a single trigger was seen and the system waits for confirmation.
	PendingAlarm
	// Alarm means the alarm is sounding.
	Alarm
)

var (
	// ErrUnknownArmingStatus is returned when an arming status cannot be parsed.
	ErrUnknownArmingStatus = errors.New("unknown arming status")
	// ErrUnknownAlarmStatus is returned when an alarm status cannot be parsed.
	ErrUnknownAlarmStatus = errors.New("unknown alarm status")
)

//nolint:gochecknoglobals // Lookup tables for the closed enumerations.
var (
	armingNames = map[ArmingStatus]string{
		Disarmed:  "DISARMED",
		ArmedHome: "ARMED_HOME",
		ArmedAway: "ARMED_AWAY",
	}
	armingDescriptions = map[ArmingStatus]string{
		Disarmed:  "Disarmed",
		ArmedHome: "Armed - At Home",
		ArmedAway: "Armed - Away",
	}
	alarmNames = map[AlarmStatus]string{
		NoAlarm:      "NO_ALARM",
		PendingAlarm: "PENDING_ALARM",
		Alarm:        "ALARM",
	}
	alarmDescriptions = map[AlarmStatus]string{
		NoAlarm:      "Cool and Good",
		PendingAlarm: "I'm in Danger...",
		Alarm:        "Awooga!",
	}
)

// ArmingStatuses lists every arming status in declaration order.
func ArmingStatuses() []ArmingStatus {
	return []ArmingStatus{Disarmed, ArmedHome, ArmedAway}
}

// AlarmStatuses lists every alarm status in declaration order.
func AlarmStatuses() []AlarmStatus {
	return []AlarmStatus{NoAlarm, PendingAlarm, Alarm}
}

// IsValid reports whether s is one of the declared arming statuses.
func (s ArmingStatus) IsValid() bool {
	_, ok := armingNames[s]

	return ok
}

// IsArmed reports whether the system is armed in any mode.
func (s ArmingStatus) IsArmed() bool {
	return s == ArmedHome || s == ArmedAway
}

// String returns the canonical upper-case name.
func (s ArmingStatus) String() string {
	if name, ok := armingNames[s]; ok {
		return name
	}

	return fmt.Sprintf("ArmingStatus(%d)", int(s))
}

// Description returns the human-readable label shown to users.
func (s ArmingStatus) Description() string {
	return armingDescriptions[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s ArmingStatus) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownArmingStatus, int(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ArmingStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseArmingStatus(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// ParseArmingStatus converts a case-insensitive name into an ArmingStatus.
// Dashes are accepted in place of underscores.
func ParseArmingStatus(value string) (ArmingStatus, error) {
	normalized := normalizeName(value)

	for status, name := range armingNames {
		if name == normalized {
			return status, nil
		}
	}

	return Disarmed, fmt.Errorf("%w: %q", ErrUnknownArmingStatus, value)
}

// IsValid reports whether s is one of the declared alarm statuses.
func (s AlarmStatus) IsValid() bool {
	_, ok := alarmNames[s]

	return ok
}

// String returns the canonical upper-case name.
func (s AlarmStatus) String() string {
	if name, ok := alarmNames[s]; ok {
		return name
	}

	return fmt.Sprintf("AlarmStatus(%d)", int(s))
}

// Description returns the human-readable label shown to users.
func (s AlarmStatus) Description() string {
	return alarmDescriptions[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s AlarmStatus) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlarmStatus, int(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *AlarmStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseAlarmStatus(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// ParseAlarmStatus converts a case-insensitive name into an AlarmStatus.
func ParseAlarmStatus(value string) (AlarmStatus, error) {
	normalized := normalizeName(value)

	for status, name := range alarmNames {
		if name == normalized {
			return status, nil
		}
	}

	return NoAlarm, fmt.Errorf("%w: %q", ErrUnknownAlarmStatus, value)
}

// normalizeName upper-cases the value and turns dashes and spaces into underscores.
func normalizeName(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))

	return strings.NewReplacer("-", "_", " ", "_").Replace(value)
}
