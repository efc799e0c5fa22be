package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrimind/agrimind/internal/apperr"
	"github.com/agrimind/agrimind/internal/provider/resilience"
)

const (
	// ProviderName identifies the LLM in logs and the provider registry.
	ProviderName = "ollama"

	// DefaultBaseURL is the local Ollama address.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel is the model asked for completions.
	DefaultModel = "llama3"
)

// ErrLLMUnavailable is returned when the LLM cannot produce an answer.
var ErrLLMUnavailable = fmt.Errorf("llm unavailable: %w", apperr.ErrUpstreamUnavailable)

const systemPrompt = `You are AgriMind, an expert agriculture assistant for Indian farmers,
especially in Tamil Nadu.

You can answer questions about crops and crop seasons, kharif, rabi and summer
farming, pests and plant diseases, soil health and irrigation, organic farming,
and climate and monsoon patterns.

Rules:
- Answer clearly and practically.
- Use Tamil if the question is in Tamil.
- Use English otherwise.
- Do not mention AI models, APIs, or system details.`

// BuildPrompt wraps a farmer's question in the assistant instructions.
func BuildPrompt(question string) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nFarmer Question:\n")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nAnswer:\n")
	return b.String()
}

// OllamaConfig holds configuration for the Ollama client.
type OllamaConfig struct {
	BaseURL string
	Model   string

	// HTTPClient is optional. If nil, a resilient client with a 60s timeout is used.
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// OllamaClient generates completions from an Ollama-compatible server.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		hc := resilience.DefaultClientConfig(ProviderName)
		hc.Timeout = 60 * time.Second
		httpClient = resilience.NewClient(hc)
	}
	return &OllamaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *OllamaClient) Name() string {
	return ProviderName
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Generate returns the completion for prompt.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	var out generateResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error", out.Error).
			Msg("llm returned error status")
		return "", fmt.Errorf("unexpected status code %d: %w", resp.StatusCode, ErrLLMUnavailable)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decoding response: %v: %w", decodeErr, ErrLLMUnavailable)
	}

	answer := strings.TrimSpace(out.Response)
	if answer == "" {
		return "", fmt.Errorf("empty completion: %w", ErrLLMUnavailable)
	}
	return answer, nil
}
