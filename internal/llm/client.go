// Package llm talks to an OpenAI compatible chat and embeddings API.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/oggyb/tubematch/internal/config"
)

var ErrNotConfigured = errors.New("llm api key is not configured")

// APIError is a non-2xx answer from the provider.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api returned status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

type Message = openai.ChatCompletionMessage

func System(content string) Message {
	return Message{Role: openai.ChatMessageRoleSystem, Content: content}
}

func User(content string) Message {
	return Message{Role: openai.ChatMessageRoleUser, Content: content}
}

type Client struct {
	api            *openai.Client
	configured     bool
	model          string
	embeddingModel openai.EmbeddingModel
}

// NewClient points go-openai at cfg.BaseURL, so any provider speaking the
// same API works.
func NewClient(cfg config.LLMConfig) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		oc.BaseURL = base
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		api:            openai.NewClientWithConfig(oc),
		configured:     cfg.APIKey != "",
		model:          cfg.Model,
		embeddingModel: openai.EmbeddingModel(cfg.EmbeddingModel),
	}
}

// Chat returns the first completion for messages.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	return c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   800,
		Temperature: 0.7,
	})
}

// ChatJSON asks for a JSON object and decodes it into out.
func (c *Client) ChatJSON(ctx context.Context, messages []Message, out any) error {
	content, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   1200,
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripFence(content)), out); err != nil {
		return fmt.Errorf("decode completion: %w", err)
	}
	return nil
}

// Embed returns the embedding of text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.embeddingModel,
	})
	if err != nil {
		return nil, apiError(err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("empty embedding")
	}
	return resp.Data[0].Embedding, nil
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if !c.configured {
		return "", ErrNotConfigured
	}
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", apiError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.New("empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

// apiError keeps the upstream status of go-openai errors. Transport and
// context errors stay reachable through errors.Is.
func apiError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Status: apiErr.HTTPStatusCode, Message: truncate(apiErr.Message, 512), Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &APIError{Status: reqErr.HTTPStatusCode, Message: reqErr.HTTPStatus, Err: err}
	}
	return fmt.Errorf("llm request: %w", err)
}

// stripFence removes a ```json fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
