package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the catpoint binaries.
type Config struct {
	// ServerAddress is the gRPC server address for security service connections.
	ServerAddress string `yaml:"server_addr"`
	// StateFile is the path to the JSON file storing the security state.
	StateFile string `yaml:"state_file"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum level written by the logger.
	LogLevel string `yaml:"log_level"`
	// Vision selects and configures the image classification backend.
	Vision Vision `yaml:"vision"`
	// MQTT configures the optional status publisher.
	MQTT MQTT `yaml:"mqtt"`
}

// Vision configures the image classification backend.
type Vision struct {
	// Backend is one of VisionBackendFake, VisionBackendAzure or VisionBackendLabels.
	Backend string `yaml:"backend"`
	// Endpoint is the Azure OpenAI endpoint or the label-detection URL.
	Endpoint string `yaml:"endpoint"`
	// Deployment is the Azure OpenAI deployment name.
	Deployment string `yaml:"deployment"`
	// TokenURL is the OAuth2 token endpoint for the labels backend.
	TokenURL string `yaml:"token_url"`
	// ClientID is the OAuth2 client identifier for the labels backend.
	ClientID string `yaml:"client_id"`
}

// MQTT configures the status publisher. An empty Broker disables it.
type MQTT struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883.
	Broker string `yaml:"broker"`
	// ClientID identifies this publisher to the broker.
	ClientID string `yaml:"client_id"`
	// TopicRoot prefixes every published topic.
	TopicRoot string `yaml:"topic_root"`
	// Username is the optional broker user; the password is a secret.
	Username string `yaml:"username"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "catpoint-settings.yaml"

	// DefaultStateFilename is the default filename for the security state JSON.
	DefaultStateFilename = "catpoint-state.json"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config and state files.
	DefaultFilePermissions = 0o600

	// DefaultMQTTClientID is used when the MQTT section has no client id.
	DefaultMQTTClientID = "catpoint"

	// DefaultMQTTTopicRoot is used when the MQTT section has no topic root.
	DefaultMQTTTopicRoot = "catpoint"
)

// Vision backends.
const (
	VisionBackendFake   = "fake"
	VisionBackendAzure  = "azure"
	VisionBackendLabels = "labels"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errUnknownVisionBackend is returned for an unsupported vision backend.
	errUnknownVisionBackend = errors.New("unknown vision backend")
	// errVisionEndpointRequired is returned when a remote backend has no endpoint.
	errVisionEndpointRequired = errors.New("vision endpoint must be provided")
	// errVisionDeploymentRequired is returned when the Azure backend has no deployment.
	errVisionDeploymentRequired = errors.New("vision deployment must be provided")
	// errVisionOAuthRequired is returned when the labels backend lacks OAuth2 settings.
	errVisionOAuthRequired = errors.New("vision token_url and client_id must be provided")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills defaults.
func Validate(settings *Config) error {
	if settings.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.StateFile == "" {
		settings.StateFile = DefaultStateFilename
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	if err := validateVision(&settings.Vision); err != nil {
		return err
	}

	return validateMQTT(&settings.MQTT)
}

// validateVision checks the backend-specific settings.
func validateVision(vision *Vision) error {
	if vision.Backend == "" {
		vision.Backend = VisionBackendFake
	}

	switch vision.Backend {
	case VisionBackendFake:
		return nil
	case VisionBackendAzure:
		if vision.Endpoint == "" {
			return errVisionEndpointRequired
		}

		if vision.Deployment == "" {
			return errVisionDeploymentRequired
		}
	case VisionBackendLabels:
		if vision.Endpoint == "" {
			return errVisionEndpointRequired
		}

		if vision.TokenURL == "" || vision.ClientID == "" {
			return errVisionOAuthRequired
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownVisionBackend, vision.Backend)
	}

	if _, err := url.ParseRequestURI(vision.Endpoint); err != nil {
		return fmt.Errorf("invalid vision endpoint: %w", err)
	}

	return nil
}

// validateMQTT checks the broker URL and fills defaults when a broker is configured.
func validateMQTT(mqtt *MQTT) error {
	if mqtt.Broker == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(mqtt.Broker); err != nil {
		return fmt.Errorf("invalid mqtt broker: %w", err)
	}

	if mqtt.ClientID == "" {
		mqtt.ClientID = DefaultMQTTClientID
	}

	if mqtt.TopicRoot == "" {
		mqtt.TopicRoot = DefaultMQTTTopicRoot
	}

	return nil
}
