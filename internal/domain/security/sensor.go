package security

import (
	"errors"
	"fmt"
	"sort"
)

// SensorType is the kind of physical sensor.
type SensorType int

const (
	// SensorDoor is a door contact.
	SensorDoor SensorType = iota
	// SensorWindow is a window contact.
	SensorWindow
	// SensorMotion is a motion detector.
	SensorMotion
)

var (
	// ErrUnknownSensorType is returned when a sensor type cannot be parsed.
	ErrUnknownSensorType = errors.New("unknown sensor type")
	// ErrSensorNameRequired is returned when a sensor has an empty name.
	ErrSensorNameRequired = errors.New("sensor name is required")
)

//nolint:gochecknoglobals // Lookup table for the closed enumeration.
var sensorTypeNames = map[SensorType]string{
	SensorDoor:   "DOOR",
	SensorWindow: "WINDOW",
	SensorMotion: "MOTION",
}

// SensorTypes lists every sensor type in declaration order.
func SensorTypes() []SensorType {
	return []SensorType{SensorDoor, SensorWindow, SensorMotion}
}

// IsValid reports whether t is one of the declared sensor types.
func (t SensorType) IsValid() bool {
	_, ok := sensorTypeNames[t]

	return ok
}

// String returns the canonical upper-case name.
func (t SensorType) String() string {
	if name, ok := sensorTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("SensorType(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t SensorType) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSensorType, int(t))
	}

	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *SensorType) UnmarshalText(text []byte) error {
	parsed, err := ParseSensorType(string(text))
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}

// ParseSensorType converts a case-insensitive name into a SensorType.
func ParseSensorType(value string) (SensorType, error) {
	normalized := normalizeName(value)

	for sensorType, name := range sensorTypeNames {
		if name == normalized {
			return sensorType, nil
		}
	}

	return SensorDoor, fmt.Errorf("%w: %q", ErrUnknownSensorType, value)
}

// SensorKey identifies a sensor inside a set. Two sensors with the same
// name and type are the same sensor regardless of their activation state.
type SensorKey struct {
	// Name is the user-facing sensor name.
	Name string
	// Type is the kind of sensor.
	Type SensorType
}

// String renders the key as NAME/TYPE.
func (k SensorKey) String() string {
	return k.Name + "/" + k.Type.String()
}

// Sensor is a binary sensor installed on the premises.
type Sensor struct {
	// Name is the user-facing sensor name.
	Name string
	// Type is the kind of sensor.
	Type SensorType
	// Active is true while the sensor is tripped.
	Active bool
}

// NewSensor creates an inactive sensor.
func NewSensor(name string, sensorType SensorType) *Sensor {
	return &Sensor{
		Name: name,
		Type: sensorType,
	}
}

// Key returns the identity of the sensor.
func (s *Sensor) Key() SensorKey {
	return SensorKey{
		Name: s.Name,
		Type: s.Type,
	}
}

// Validate checks that the sensor can be stored.
func (s *Sensor) Validate() error {
	if s.Name == "" {
		return ErrSensorNameRequired
	}

	if !s.Type.IsValid() {
		return fmt.Errorf("%w: %d", ErrUnknownSensorType, int(s.Type))
	}

	return nil
}

// Clone returns a copy of the sensor.
func (s *Sensor) Clone() *Sensor {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}

// AnyActive reports whether at least one of the sensors is tripped.
func AnyActive(sensors []*Sensor) bool {
	for _, sensor := range sensors {
		if sensor.Active {
			return true
		}
	}

	return false
}

// SortSensors orders sensors by name, then type, for stable output.
func SortSensors(sensors []*Sensor) {
	sort.Slice(sensors, func(i, j int) bool {
		if sensors[i].Name != sensors[j].Name {
			return sensors[i].Name < sensors[j].Name
		}

		return sensors[i].Type < sensors[j].Type
	})
}
