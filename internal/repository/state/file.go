package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mitchellh/mapstructure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// FileRepository persists the security state to a JSON file on disk.
// JSON is produced and consumed via protobuf JSON (protojson) over a
// structpb.Struct so the file matches what the gRPC API returns.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// doc caches the state; nil until the first access loads it.
	doc *document
	// mu protects doc and the state file.
	mu sync.Mutex
}

// persistedState mirrors the JSON document for decoding.
type persistedState struct {
	ArmingStatus domain.ArmingStatus `mapstructure:"arming_status"`
	AlarmStatus  domain.AlarmStatus  `mapstructure:"alarm_status"`
	Sensors      []persistedSensor   `mapstructure:"sensors"`
}

// persistedSensor mirrors one sensor entry of the JSON document.
type persistedSensor struct {
	Name   string            `mapstructure:"name"`
	Type   domain.SensorType `mapstructure:"type"`
	Active bool              `mapstructure:"active"`
}

// ErrNotFound is returned when the state file does not exist yet.
var ErrNotFound = errors.New("state not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
// The file is read lazily on first access; a missing file yields a disarmed system.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// ArmingStatus returns the stored arming status.
func (r *FileRepository) ArmingStatus(context.Context) (domain.ArmingStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.loaded()
	if err != nil {
		return domain.Disarmed, err
	}

	return doc.arming, nil
}

// SetArmingStatus stores the arming status and writes the file.
func (r *FileRepository) SetArmingStatus(_ context.Context, status domain.ArmingStatus) error {
	return r.mutate(func(doc *document) bool {
		doc.arming = status

		return true
	})
}

// AlarmStatus returns the stored alarm status.
func (r *FileRepository) AlarmStatus(context.Context) (domain.AlarmStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.loaded()
	if err != nil {
		return domain.NoAlarm, err
	}

	return doc.alarm, nil
}

// SetAlarmStatus stores the alarm status and writes the file.
func (r *FileRepository) SetAlarmStatus(_ context.Context, status domain.AlarmStatus) error {
	return r.mutate(func(doc *document) bool {
		doc.alarm = status

		return true
	})
}

// Sensors returns the cached sensors ordered by name and type.
func (r *FileRepository) Sensors(context.Context) ([]*domain.Sensor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.loaded()
	if err != nil {
		return nil, err
	}

	return doc.sensorList(), nil
}

// AddSensor stores the sensor and writes the file. A sensor whose key is
// already stored is left untouched and nothing is written.
func (r *FileRepository) AddSensor(_ context.Context, sensor *domain.Sensor) error {
	return r.mutate(func(doc *document) bool {
		return doc.addSensor(sensor)
	})
}

// RemoveSensor deletes the sensor with the same key and writes the file.
func (r *FileRepository) RemoveSensor(_ context.Context, sensor *domain.Sensor) error {
	return r.mutate(func(doc *document) bool {
		delete(doc.sensors, sensor.Key())

		return true
	})
}

// UpdateSensor stores the sensor under its key and writes the file.
func (r *FileRepository) UpdateSensor(_ context.Context, sensor *domain.Sensor) error {
	return r.mutate(func(doc *document) bool {
		doc.putSensor(sensor)

		return true
	})
}

// mutate applies fn to a copy of the cached state and persists it. The cache
// only moves to the new state once the file is written. fn reports whether
// it changed anything; unchanged state is not written.
func (r *FileRepository) mutate(fn func(doc *document) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.loaded()
	if err != nil {
		return err
	}

	next := current.clone()
	if !fn(next) {
		return nil
	}

	if err = r.save(next); err != nil {
		return err
	}

	r.doc = next

	return nil
}

// loaded returns the cached state, reading the file on first use.
// Callers must hold r.mu.
func (r *FileRepository) loaded() (*document, error) {
	if r.doc != nil {
		return r.doc, nil
	}

	doc, err := r.load()

	switch {
	case err == nil:
		r.doc = doc
	case errors.Is(err, ErrNotFound):
		r.doc = newDocument()
	default:
		return nil, err
	}

	return r.doc, nil
}

// load reads the state from disk.
func (r *FileRepository) load() (*document, error) {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var protoState structpb.Struct
	if err = protojson.Unmarshal(contents, &protoState); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return fromStruct(&protoState)
}

// save writes the state to disk using JSON representation.
func (r *FileRepository) save(doc *document) error {
	protoState, err := toStruct(doc)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline:       true,
		EmitUnpopulated: true,
	}

	data, err := marshalOptions.Marshal(protoState)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}

// fromStruct converts the protobuf Struct into the cached document.
func fromStruct(protoState *structpb.Struct) (*document, error) {
	var persisted persistedState

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.TextUnmarshallerHookFunc(),
		Result:     &persisted,
	})
	if err != nil {
		return nil, fmt.Errorf("create state decoder: %w", err)
	}

	if err = decoder.Decode(protoState.AsMap()); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	doc := newDocument()
	doc.arming = persisted.ArmingStatus
	doc.alarm = persisted.AlarmStatus

	for _, sensor := range persisted.Sensors {
		doc.putSensor(&domain.Sensor{
			Name:   sensor.Name,
			Type:   sensor.Type,
			Active: sensor.Active,
		})
	}

	return doc, nil
}

// toStruct converts the document into a protobuf Struct.
func toStruct(doc *document) (*structpb.Struct, error) {
	sensors := make([]any, 0, len(doc.sensors))
	for _, sensor := range doc.sensorList() {
		sensors = append(sensors, map[string]any{
			"name":   sensor.Name,
			"type":   sensor.Type.String(),
			"active": sensor.Active,
		})
	}

	return structpb.NewStruct(map[string]any{
		"arming_status": doc.arming.String(),
		"alarm_status":  doc.alarm.String(),
		"sensors":       sensors,
	})
}
