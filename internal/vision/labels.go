package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2/clientcredentials"
)

// catLabel is the label name that counts as a cat.
const catLabel = "cat"

// maxErrorBody caps how much of an error response is echoed back.
const maxErrorBody = 512

// Label is one detected object with its confidence in percent.
type Label struct {
	Name       string  `json:"name"`
	Confidence float32 `json:"confidence"`
}

// labelResponse is the body returned by the label-detection endpoint.
type labelResponse struct {
	Labels []Label `json:"labels"`
}

// LabelService posts frames to a label-detection endpoint protected by
// OAuth2 client credentials.
type LabelService struct {
	// endpoint receives the raw image as the POST body.
	endpoint string
	// client attaches and refreshes the bearer token.
	client *http.Client
}

// NewLabelService creates a LabelService. ctx is used for token requests.
func NewLabelService(ctx context.Context, endpoint string, credentials *clientcredentials.Config) *LabelService {
	return &LabelService{
		endpoint: endpoint,
		client:   credentials.Client(ctx),
	}
}

// ImageContainsCat reports whether a "cat" label meets the threshold.
func (s *LabelService) ImageContainsCat(ctx context.Context, image []byte, confidenceThreshold float32) (bool, error) {
	labels, err := s.DetectLabels(ctx, image)
	if err != nil {
		return false, err
	}

	for _, label := range labels {
		if strings.EqualFold(label.Name, catLabel) && label.Confidence >= confidenceThreshold {
			return true, nil
		}
	}

	return false, nil
}

// DetectLabels returns every label the endpoint found in the image.
func (s *LabelService) DetectLabels(ctx context.Context, image []byte) ([]Label, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("create label request: %w", err)
	}

	req.Header.Set("Content-Type", http.DetectContentType(image))
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect labels: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return nil, fmt.Errorf("detect labels: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded labelResponse
	if err = json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}

	return decoded.Labels, nil
}
