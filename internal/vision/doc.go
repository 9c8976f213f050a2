// Package vision answers a single question about a camera frame: does it
// contain a cat?
//
// Service is the narrow interface the alarm controller calls. FakeService
// answers randomly, AzureService asks an Azure OpenAI vision deployment, and
// LabelService posts the frame to an OAuth2-protected label-detection
// endpoint. New picks one according to the configuration.
package vision
