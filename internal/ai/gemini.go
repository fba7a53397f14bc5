package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when the configuration names none.
const DefaultModel = "gemini-pro"

// Model generates free text for a prompt.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiOption adjusts the client configuration of a GeminiModel.
type GeminiOption func(*genai.ClientConfig)

// WithBaseURL sends requests to url instead of the public endpoint.
func WithBaseURL(url string) GeminiOption {
	return func(cfg *genai.ClientConfig) { cfg.HTTPOptions.BaseURL = url }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) GeminiOption {
	return func(cfg *genai.ClientConfig) { cfg.HTTPClient = client }
}

// GeminiModel calls the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates a client authenticated with apiKey.
func NewGeminiModel(ctx context.Context, apiKey, model string, opts ...GeminiOption) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if model == "" {
		model = DefaultModel
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gemini client: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

// Name returns the model id requests are sent to.
func (g *GeminiModel) Name() string {
	return strings.TrimPrefix(g.model, "models/")
}

// Generate sends prompt as a single user turn and returns the concatenated
// text of the first candidate that has any.
func (g *GeminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.Name(), genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range cand.Content.Parts {
			if part != nil {
				sb.WriteString(part.Text)
			}
		}
		if sb.Len() > 0 {
			return sb.String(), nil
		}
	}
	return "", errors.New("model returned no text")
}
