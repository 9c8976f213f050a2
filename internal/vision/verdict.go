package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// errNoVerdict is returned when a model reply has no JSON object in it.
var errNoVerdict = errors.New("no verdict object in model reply")

// verdict is the model's answer about a frame.
type verdict struct {
	// Cat is true when the model saw a cat.
	Cat bool `mapstructure:"cat"`
	// Confidence is the model's confidence in percent.
	Confidence float32 `mapstructure:"confidence"`
}

// parseVerdict extracts the first JSON object from a model reply. Models
// sometimes wrap JSON in code fences or quote numbers, so the object is
// decoded weakly.
func parseVerdict(reply string) (*verdict, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")

	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: %q", errNoVerdict, reply)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode model reply: %w", err)
	}

	var result verdict
	if err := mapstructure.WeakDecode(raw, &result); err != nil {
		return nil, fmt.Errorf("decode model verdict: %w", err)
	}

	return &result, nil
}
