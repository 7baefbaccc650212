package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the primary model used for embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultFallbackEmbeddingModel is the known-good older model tried when
	// the primary model is unavailable at the provider
	DefaultFallbackEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultChatModel is the model used for text generation
	DefaultChatModel = openai.GPT4oMini
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrEmptyPrompt is returned when a generation prompt is empty
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// EmbeddingAPI defines the provider interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbedding(ctx context.Context, text string, model openai.EmbeddingModel) ([]float32, error)
}

// CompletionAPI defines the provider interface for text generation
type CompletionAPI interface {
	CreateCompletion(ctx context.Context, model, prompt string) (string, error)
}

// Client wraps the OpenAI API with model fallback for embeddings.
type Client struct {
	api           EmbeddingAPI
	completion    CompletionAPI
	primaryModel  openai.EmbeddingModel
	fallbackModel openai.EmbeddingModel
	chatModel     string
}

// OpenAIAdapter adapts the go-openai client to the provider interfaces.
type OpenAIAdapter struct {
	client *openai.Client
}

// NewOpenAIAdapter creates an adapter with an optional request timeout.
func NewOpenAIAdapter(apiKey string, timeout time.Duration) *OpenAIAdapter {
	cfg := openai.DefaultConfig(apiKey)
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &OpenAIAdapter{client: openai.NewClientWithConfig(cfg)}
}

// CreateEmbedding calls the OpenAI API to embed a single input.
func (a *OpenAIAdapter) CreateEmbedding(ctx context.Context, text string, model openai.EmbeddingModel) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// CreateCompletion calls the OpenAI chat API and returns the first choice.
func (a *OpenAIAdapter) CreateCompletion(ctx context.Context, model, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey                 string
	EmbeddingModel         openai.EmbeddingModel
	FallbackEmbeddingModel openai.EmbeddingModel
	ChatModel              string
	Timeout                time.Duration
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.FallbackEmbeddingModel == "" {
		cfg.FallbackEmbeddingModel = DefaultFallbackEmbeddingModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}

	adapter := NewOpenAIAdapter(cfg.APIKey, cfg.Timeout)
	return &Client{
		api:           adapter,
		completion:    adapter,
		primaryModel:  cfg.EmbeddingModel,
		fallbackModel: cfg.FallbackEmbeddingModel,
		chatModel:     cfg.ChatModel,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// GenerateEmbedding generates an embedding for the given text. When the
// primary model is unavailable at the provider, the call is retried once
// against the fallback model. Any other failure propagates.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := c.api.CreateEmbedding(ctx, text, c.primaryModel)
	if err == nil {
		return embedding, nil
	}

	if !isModelUnavailable(err) || c.fallbackModel == "" || c.fallbackModel == c.primaryModel {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	embedding, fallbackErr := c.api.CreateEmbedding(ctx, text, c.fallbackModel)
	if fallbackErr != nil {
		return nil, fmt.Errorf("failed to create embedding with fallback model: %w", fallbackErr)
	}

	return embedding, nil
}

// GenerateText generates a completion for the given prompt.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	text, err := c.completion.CreateCompletion(ctx, c.chatModel, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}

	return text, nil
}

// EmbeddingModelFromString converts a configured model name. Empty input
// selects the default model.
func EmbeddingModelFromString(name string) openai.EmbeddingModel {
	if name == "" {
		return DefaultEmbeddingModel
	}
	return openai.EmbeddingModel(name)
}

// isModelUnavailable classifies errors that indicate the requested model does
// not exist at the provider, as opposed to transient or auth failures.
func isModelUnavailable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "model") && (strings.Contains(msg, "not found") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "unknown") ||
		strings.Contains(msg, "404"))
}
