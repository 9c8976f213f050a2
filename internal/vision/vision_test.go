package vision

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/oshokin/catpoint/internal/config"
)

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// TestFakeService_Deterministic verifies seeded fakes repeat their sequence.
func TestFakeService_Deterministic(t *testing.T) {
	t.Parallel()

	a := NewSeededFakeService(7)
	b := NewSeededFakeService(7)

	var seenTrue, seenFalse bool

	for range 64 {
		x, err := a.ImageContainsCat(context.Background(), nil, 50)
		require.NoError(t, err)

		y, err := b.ImageContainsCat(context.Background(), nil, 50)
		require.NoError(t, err)
		require.Equal(t, x, y)

		seenTrue = seenTrue || x
		seenFalse = seenFalse || !x
	}

	require.True(t, seenTrue)
	require.True(t, seenFalse)
}

// TestParseVerdict covers fenced, quoted and malformed replies.
func TestParseVerdict(t *testing.T) {
	t.Parallel()

	v, err := parseVerdict("```json\n{\"cat\": true, \"confidence\": 87.5}\n```")
	require.NoError(t, err)
	require.True(t, v.Cat)
	require.InDelta(t, 87.5, v.Confidence, 0.001)

	v, err = parseVerdict(`{"cat": "false", "confidence": "12"}`)
	require.NoError(t, err)
	require.False(t, v.Cat)
	require.InDelta(t, 12, v.Confidence, 0.001)

	_, err = parseVerdict("I think so")
	require.ErrorIs(t, err, errNoVerdict)

	_, err = parseVerdict("{not json}")
	require.Error(t, err)
}

// newLabelServer serves an OAuth2 token endpoint and a label endpoint that
// requires the issued token.
func newLabelServer(t *testing.T, labels []Label) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"secret-token","token_type":"bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/labels", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NotEmpty(t, body)
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(labelResponse{Labels: labels})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

// newLabelService builds a LabelService against the test server.
func newLabelService(server *httptest.Server, secret string) *LabelService {
	return NewLabelService(context.Background(), server.URL+"/labels", &clientcredentials.Config{
		ClientID:     "catpoint",
		ClientSecret: secret,
		TokenURL:     server.URL + "/token",
	})
}

// TestLabelService_Threshold verifies label matching against the threshold.
func TestLabelService_Threshold(t *testing.T) {
	t.Parallel()

	server := newLabelServer(t, []Label{
		{Name: "Furniture", Confidence: 99},
		{Name: "Cat", Confidence: 62.5},
	})
	svc := newLabelService(server, "s3cret")

	found, err := svc.ImageContainsCat(context.Background(), pngHeader, 50)
	require.NoError(t, err)
	require.True(t, found)

	found, err = svc.ImageContainsCat(context.Background(), pngHeader, 90)
	require.NoError(t, err)
	require.False(t, found)

	_, err = svc.ImageContainsCat(context.Background(), nil, 50)
	require.ErrorIs(t, err, ErrEmptyImage)
}

// TestLabelService_HTTPError verifies non-2xx responses surface as errors.
func TestLabelService_HTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"access_token":"t","token_type":"bearer"}`)

			return
		}

		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	_, err := newLabelService(server, "x").ImageContainsCat(context.Background(), pngHeader, 50)
	require.ErrorContains(t, err, "status 503")
}

// TestAzureService_ParsesCompletion runs the Azure backend against a fake chat-completions endpoint.
func TestAzureService_ParsesCompletion(t *testing.T) {
	t.Parallel()

	reply := `{"cat": true, "confidence": 73}`

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("api-key"))
		assert.Contains(t, r.URL.Path, "/openai/deployments/vision/chat/completions")

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "messages")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"created": 1700000000,
			"model":   "gpt-4o",
			"choices": []any{
				map[string]any{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": reply,
					},
				},
			},
		})
	}))
	t.Cleanup(server.Close)

	options := &azopenai.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: server.Client(),
		},
	}

	svc, err := NewAzureService(server.URL, "test-key", "vision", options)
	require.NoError(t, err)

	found, err := svc.ImageContainsCat(context.Background(), pngHeader, 50)
	require.NoError(t, err)
	require.True(t, found)

	found, err = svc.ImageContainsCat(context.Background(), pngHeader, 80)
	require.NoError(t, err)
	require.False(t, found)

	_, err = svc.ImageContainsCat(context.Background(), nil, 50)
	require.ErrorIs(t, err, ErrEmptyImage)
}

// TestNew_SelectsBackend verifies the factory for the fake backend and unknown names.
func TestNew_SelectsBackend(t *testing.T) {
	t.Parallel()

	svc, err := New(context.Background(), &config.Vision{Backend: config.VisionBackendFake})
	require.NoError(t, err)
	require.IsType(t, &FakeService{}, svc)

	_, err = New(context.Background(), &config.Vision{Backend: "oracle"})
	require.Error(t, err)
}
