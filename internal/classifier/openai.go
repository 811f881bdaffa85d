package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tablevox/prefsel/internal/conf"
	"github.com/tablevox/prefsel/internal/errors"
	"github.com/tablevox/prefsel/internal/httpclient"
)

// maxResponseBody caps how much of the classifier response is read, the
// expected answer is a short comma-separated list.
const maxResponseBody = 64 * 1024

// OpenAIClassifier implements Capability against an OpenAI-compatible
// chat-completions endpoint.
type OpenAIClassifier struct {
	settings conf.ClassifierSettings
	client   *httpclient.Client
}

// NewOpenAIClassifier creates a classifier client from settings. A nil
// httpClient gets a default client bounded by the configured timeout.
func NewOpenAIClassifier(settings conf.ClassifierSettings, httpClient *httpclient.Client) *OpenAIClassifier {
	if httpClient == nil {
		cfg := httpclient.DefaultConfig()
		cfg.DefaultTimeout = settings.RequestTimeout()
		httpClient = httpclient.New(&cfg)
	}
	return &OpenAIClassifier{
		settings: settings,
		client:   httpClient,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// unavailable wraps err as a ClassifierUnavailable error with call context.
func (c *OpenAIClassifier) unavailable(err error, reason string) error {
	return errors.New(err).
		Component("classifier").
		Category(errors.CategoryClassifierUnavailable).
		Context("reason", reason).
		Context("endpoint", c.settings.Endpoint).
		Context("model", c.settings.Model).
		Build()
}

// Classify sends the utterance and the closed label set to the configured
// endpoint and parses the comma-separated answer into candidate names.
func (c *OpenAIClassifier) Classify(ctx context.Context, utterance string, labels []string) ([]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.settings.RequestTimeout())
	defer cancel()

	reqBody := chatCompletionRequest{
		Model: c.settings.Model,
		Messages: []chatMessage{
			{Role: "user", Content: BuildPrompt(utterance, labels)},
		},
		Temperature: 0,
	}

	headers := map[string]string{}
	if c.settings.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.settings.APIKey
	}

	resp, err := c.client.PostJSON(ctx, c.settings.Endpoint, reqBody, headers)
	if err != nil {
		return nil, c.unavailable(err, "request-failed")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, c.unavailable(err, "read-failed")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.unavailable(
			fmt.Errorf("classifier endpoint returned status %d", resp.StatusCode),
			"bad-status")
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, c.unavailable(fmt.Errorf("decoding response: %w", err), "malformed-payload")
	}
	if completion.Error != nil {
		return nil, c.unavailable(
			fmt.Errorf("classifier API error: %s", completion.Error.Message),
			"api-error")
	}
	if len(completion.Choices) == 0 {
		return nil, c.unavailable(fmt.Errorf("classifier returned no choices"), "empty-response")
	}

	candidates := ParseCandidates(completion.Choices[0].Message.Content)
	logger.Debug("classified utterance",
		"labels", len(labels),
		"candidates", len(candidates))
	return candidates, nil
}
