// internal/llmclient/gemini_client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/flux-cli/api/schemas"
	"github.com/xkilldash9x/flux-cli/internal/config"
)

// ErrMissingAPIKey is returned when the critic has no credentials.
var ErrMissingAPIKey = errors.New("Gemini API Key is required")

// GeminiClient implements schemas.LLMClient on top of the Gemini API.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature *float32
	maxRetries  int
	logger      *zap.Logger

	// backoffFactory creates the retry policy for one Generate call.
	backoffFactory func() backoff.BackOff
}

// NewGeminiClient initializes the client for model. httpClient may be nil,
// in which case one bounded by cfg.APITimeout is created.
func NewGeminiClient(ctx context.Context, cfg config.CriticConfig, model string, httpClient *http.Client, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = cfg.Model
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.APITimeout}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.Endpoint},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	var temperature *float32
	if cfg.Temperature > 0 {
		t := cfg.Temperature
		temperature = &t
	}

	return &GeminiClient{
		client:      client,
		model:       model,
		temperature: temperature,
		maxRetries:  cfg.MaxRetries,
		logger:      logger.Named("llm_client.gemini"),
		backoffFactory: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 2 * time.Minute
			b.MaxInterval = 30 * time.Second
			return b
		},
	}, nil
}

// Model returns the model name requests are sent to.
func (c *GeminiClient) Model() string {
	return c.model
}

// Generate sends the request to the Gemini API and returns the reply text,
// retrying transient failures with exponential backoff.
func (c *GeminiClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	contents := buildContents(req)
	genConfig := c.buildConfig(req)

	var b backoff.BackOff = backoff.WithContext(c.backoffFactory(), ctx)
	if c.maxRetries >= 0 {
		b = backoff.WithMaxRetries(b, uint64(c.maxRetries))
	}

	var responseContent string
	operation := func() error {
		startTime := time.Now()
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, genConfig)
		duration := time.Since(startTime)
		if err != nil {
			return c.classifyError(ctx, err)
		}

		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return backoff.Permanent(fmt.Errorf("gemini API blocked the prompt (Reason: %s)", resp.PromptFeedback.BlockReason))
		}
		if len(resp.Candidates) == 0 {
			return backoff.Permanent(errors.New("gemini API returned no candidates"))
		}

		candidate := resp.Candidates[0]
		text := resp.Text()
		if text == "" {
			switch candidate.FinishReason {
			case genai.FinishReasonSafety, genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent:
				return backoff.Permanent(fmt.Errorf("gemini API blocked the request (Reason: %s)", candidate.FinishReason))
			}
			return fmt.Errorf("gemini API returned empty content parts (Reason: %s)", candidate.FinishReason)
		}

		fields := []zap.Field{zap.Duration("duration", duration), zap.String("model", c.model)}
		if u := resp.UsageMetadata; u != nil {
			fields = append(fields,
				zap.Int32("prompt_tokens", u.PromptTokenCount),
				zap.Int32("completion_tokens", u.CandidatesTokenCount),
				zap.Int32("total_tokens", u.TotalTokenCount),
			)
		}
		c.logger.Info("LLM generation complete (Gemini)", fields...)

		responseContent = text
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Transient LLM error, retrying...", zap.Error(err), zap.Duration("backoff", wait))
	}
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return "", err
	}
	return responseContent, nil
}

// Close releases client resources. The Gemini client holds none beyond its
// HTTP client.
func (c *GeminiClient) Close() error {
	return nil
}

// classifyError marks API errors as transient or permanent.
func (c *GeminiClient) classifyError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return backoff.Permanent(err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		c.logger.Error("Gemini API returned error status", zap.Int("status", apiErr.Code), zap.String("response", apiErr.Message))
		wrapped := fmt.Errorf("gemini API error: status %d: %w", apiErr.Code, err)
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return wrapped // Transient errors, retry.
		default:
			return backoff.Permanent(wrapped)
		}
	}

	c.logger.Warn("Network error during LLM request", zap.Error(err))
	return fmt.Errorf("failed to execute Gemini request: %w", err)
}

// buildContents places attachments before the prompt text in a single user turn.
func buildContents(req schemas.GenerationRequest) []*genai.Content {
	parts := make([]*genai.Part, 0, len(req.Attachments)+1)
	for _, a := range req.Attachments {
		parts = append(parts, genai.NewPartFromBytes(a.Data, a.MIMEType))
	}
	if req.UserPrompt != "" {
		parts = append(parts, genai.NewPartFromText(req.UserPrompt))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func (c *GeminiClient) buildConfig(req schemas.GenerationRequest) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{Temperature: c.temperature}
	if req.Options.Temperature != nil {
		gc.Temperature = req.Options.Temperature
	}
	if req.SystemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Options.ForceJSONFormat || len(req.Options.ResponseFields) > 0 {
		gc.ResponseMIMEType = "application/json"
	}
	if len(req.Options.ResponseFields) > 0 {
		gc.ResponseSchema = objectSchema(req.Options.ResponseFields)
	}
	return gc
}

// objectSchema builds an OBJECT schema with required STRING properties.
func objectSchema(fields []schemas.SchemaField) *genai.Schema {
	s := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(fields)),
	}
	for _, f := range fields {
		s.Properties[f.Name] = &genai.Schema{Type: genai.TypeString, Description: f.Description}
		s.Required = append(s.Required, f.Name)
		s.PropertyOrdering = append(s.PropertyOrdering, f.Name)
	}
	return s
}
