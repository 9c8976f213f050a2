package vision

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/oshokin/catpoint/internal/config"
)

// Service classifies camera frames.
type Service interface {
	// ImageContainsCat reports whether the image contains a cat with at least
	// confidenceThreshold percent confidence (0..100).
	ImageContainsCat(ctx context.Context, image []byte, confidenceThreshold float32) (bool, error)
}

// ErrEmptyImage is returned when a remote backend is asked to classify no data.
var ErrEmptyImage = errors.New("image is empty")

// New creates the backend selected by cfg. Secrets are resolved through the
// config package.
//
//nolint:ireturn // Callers depend on the Service interface only.
func New(ctx context.Context, cfg *config.Vision) (Service, error) {
	switch cfg.Backend {
	case "", config.VisionBackendFake:
		return NewFakeService(), nil
	case config.VisionBackendAzure:
		apiKey, err := config.VisionAPIKey.Resolve()
		if err != nil {
			return nil, fmt.Errorf("resolve vision api key: %w", err)
		}

		return NewAzureService(cfg.Endpoint, apiKey, cfg.Deployment, nil)
	case config.VisionBackendLabels:
		secret, err := config.VisionClientSecret.Resolve()
		if err != nil {
			return nil, fmt.Errorf("resolve vision client secret: %w", err)
		}

		credentials := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: secret,
			TokenURL:     cfg.TokenURL,
		}

		return NewLabelService(ctx, cfg.Endpoint, credentials), nil
	default:
		return nil, fmt.Errorf("unknown vision backend %q", cfg.Backend)
	}
}
