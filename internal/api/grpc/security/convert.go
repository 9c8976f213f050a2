package security

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Watch event kinds.
const (
	// EventSnapshot is the first message of every watch stream.
	EventSnapshot = "snapshot"
	// EventAlarm follows an alarm status write.
	EventAlarm = "alarm"
	// EventSensors follows a sensor activation change.
	EventSensors = "sensors"
)

// errRequestRequired is returned when a request message is nil.
var errRequestRequired = errors.New("request is required")

// Status is the transport view of the security state.
type Status struct {
	// ArmingStatus is the current arming status.
	ArmingStatus domain.ArmingStatus `mapstructure:"arming_status"`
	// AlarmStatus is the current alarm status.
	AlarmStatus domain.AlarmStatus `mapstructure:"alarm_status"`
	// Sensors are the installed sensors.
	Sensors []*domain.Sensor `mapstructure:"sensors"`
	// Event names the change that produced a watch message.
	Event string `mapstructure:"event"`
	// CatDetected is the classification result of ProcessImage.
	CatDetected bool `mapstructure:"cat_detected"`
}

// sensorRequest is the payload of the sensor methods.
type sensorRequest struct {
	Name   string `mapstructure:"name"`
	Type   string `mapstructure:"type"`
	Active bool   `mapstructure:"active"`
}

// armingRequest is the payload of SetArmingStatus.
type armingRequest struct {
	ArmingStatus string `mapstructure:"arming_status"`
}

// alarmRequest is the payload of SetAlarmStatus.
type alarmRequest struct {
	AlarmStatus string `mapstructure:"alarm_status"`
}

// toStruct encodes the status.
func (s *Status) toStruct() (*structpb.Struct, error) {
	fields := map[string]any{
		"arming_status": s.ArmingStatus.String(),
		"alarm_status":  s.AlarmStatus.String(),
		"sensors":       sensorsToList(s.Sensors),
	}

	if s.Event != "" {
		fields["event"] = s.Event
	}

	if s.CatDetected {
		fields["cat_detected"] = true
	}

	result, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode status: %w", err)
	}

	return result, nil
}

// statusFromStruct decodes a status message.
func statusFromStruct(message *structpb.Struct) (*Status, error) {
	var result Status
	if err := decode(message, &result, false); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}

	return &result, nil
}

// sensorsToStruct encodes a ListSensors response.
func sensorsToStruct(sensors []*domain.Sensor) (*structpb.Struct, error) {
	result, err := structpb.NewStruct(map[string]any{
		"sensors": sensorsToList(sensors),
	})
	if err != nil {
		return nil, fmt.Errorf("encode sensors: %w", err)
	}

	return result, nil
}

// sensorsFromStruct decodes a ListSensors response.
func sensorsFromStruct(message *structpb.Struct) ([]*domain.Sensor, error) {
	var result struct {
		Sensors []*domain.Sensor `mapstructure:"sensors"`
	}

	if err := decode(message, &result, false); err != nil {
		return nil, fmt.Errorf("decode sensors: %w", err)
	}

	return result.Sensors, nil
}

// sensorsToList converts sensors into structpb-compatible values.
func sensorsToList(sensors []*domain.Sensor) []any {
	result := make([]any, 0, len(sensors))
	for _, sensor := range sensors {
		result = append(result, sensorToMap(sensor))
	}

	return result
}

// sensorToMap converts a sensor into structpb-compatible values.
func sensorToMap(sensor *domain.Sensor) map[string]any {
	return map[string]any{
		"name":   sensor.Name,
		"type":   sensor.Type.String(),
		"active": sensor.Active,
	}
}

// sensorToStruct encodes a sensor request.
func sensorToStruct(sensor *domain.Sensor) (*structpb.Struct, error) {
	result, err := structpb.NewStruct(sensorToMap(sensor))
	if err != nil {
		return nil, fmt.Errorf("encode sensor: %w", err)
	}

	return result, nil
}

// sensorFromRequest decodes and validates a sensor request.
func sensorFromRequest(message *structpb.Struct) (*domain.Sensor, error) {
	var request sensorRequest
	if err := decode(message, &request, true); err != nil {
		return nil, err
	}

	sensorType, err := domain.ParseSensorType(request.Type)
	if err != nil {
		return nil, err
	}

	sensor := &domain.Sensor{
		Name:   request.Name,
		Type:   sensorType,
		Active: request.Active,
	}

	if err = sensor.Validate(); err != nil {
		return nil, err
	}

	return sensor, nil
}

// armingFromRequest decodes a SetArmingStatus request.
func armingFromRequest(message *structpb.Struct) (domain.ArmingStatus, error) {
	var request armingRequest
	if err := decode(message, &request, true); err != nil {
		return domain.Disarmed, err
	}

	return domain.ParseArmingStatus(request.ArmingStatus)
}

// alarmFromRequest decodes a SetAlarmStatus request.
func alarmFromRequest(message *structpb.Struct) (domain.AlarmStatus, error) {
	var request alarmRequest
	if err := decode(message, &request, true); err != nil {
		return domain.NoAlarm, err
	}

	return domain.ParseAlarmStatus(request.AlarmStatus)
}

// decode copies the struct fields into result. Enumerations are parsed from
// their text form. Strict decoding rejects unknown fields.
func decode(message *structpb.Struct, result any, strict bool) error {
	if message == nil {
		return errRequestRequired
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.TextUnmarshallerHookFunc(),
		ErrorUnused: strict,
		Result:      result,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}

	return decoder.Decode(message.AsMap())
}
