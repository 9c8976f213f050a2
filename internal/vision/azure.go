package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
)

// azurePrompt asks the model for a machine-readable verdict.
const azurePrompt = `Does this camera frame contain a cat? ` +
	`Answer with JSON only, no prose: {"cat": true|false, "confidence": <0-100>}.`

// errNoCompletion is returned when the model produced no message.
var errNoCompletion = errors.New("no completion received from model")

// AzureService classifies frames with an Azure OpenAI vision-capable deployment.
type AzureService struct {
	// client is the Azure OpenAI client.
	client *azopenai.Client
	// deployment is the model deployment name used for every call.
	deployment string
}

// NewAzureService creates an AzureService. options may be nil.
func NewAzureService(endpoint, apiKey, deployment string, options *azopenai.ClientOptions) (*AzureService, error) {
	keyCredential := azcore.NewKeyCredential(apiKey)

	client, err := azopenai.NewClientWithKeyCredential(endpoint, keyCredential, options)
	if err != nil {
		return nil, fmt.Errorf("create azure openai client: %w", err)
	}

	return &AzureService{
		client:     client,
		deployment: deployment,
	}, nil
}

// ImageContainsCat sends the frame as a data URL and parses the model's verdict.
func (s *AzureService) ImageContainsCat(ctx context.Context, image []byte, confidenceThreshold float32) (bool, error) {
	if len(image) == 0 {
		return false, ErrEmptyImage
	}

	dataURL := "data:" + http.DetectContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := s.client.GetChatCompletions(
		ctx,
		azopenai.ChatCompletionsOptions{
			DeploymentName: to.Ptr(s.deployment),
			Temperature:    to.Ptr[float32](0),
			Messages: []azopenai.ChatRequestMessageClassification{
				&azopenai.ChatRequestUserMessage{
					Content: azopenai.NewChatRequestUserMessageContent(
						[]azopenai.ChatCompletionRequestMessageContentPartClassification{
							&azopenai.ChatCompletionRequestMessageContentPartText{
								Text: to.Ptr(azurePrompt),
							},
							&azopenai.ChatCompletionRequestMessageContentPartImage{
								ImageURL: &azopenai.ChatCompletionRequestMessageContentPartImageURL{
									URL: to.Ptr(dataURL),
								},
							},
						},
					),
				},
			},
		},
		nil,
	)
	if err != nil {
		return false, fmt.Errorf("get chat completions: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == nil {
		return false, errNoCompletion
	}

	verdict, err := parseVerdict(*resp.Choices[0].Message.Content)
	if err != nil {
		return false, err
	}

	return verdict.Cat && verdict.Confidence >= confidenceThreshold, nil
}
