// Package llm generates questions by prompting an OpenAI-compatible model
// with the text of project source documents.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/exampaper/internal/generate"
	"github.com/pavelanni/exampaper/internal/llm/prompts"
	"github.com/pavelanni/exampaper/internal/model"
)

// DocumentSource looks up the source documents a request refers to.
type DocumentSource interface {
	SourceDocuments(ctx context.Context, ownerID, projectID string, ids []string) ([]model.SourceDocument, error)
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
	docs  DocumentSource
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string, docs DocumentSource) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
		docs:  docs,
	}
}

type generated struct {
	Questions []generate.RawItem `json:"questions"`
}

// Generate asks the model for one batch of questions. It returns at most
// req.Count items.
func (c *Client) Generate(ctx context.Context, req generate.Request) ([]generate.RawItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	docs, err := c.docs.SourceDocuments(ctx, req.OwnerID, req.ProjectID, req.DocumentIDs)
	if err != nil {
		return nil, &generate.ServiceError{Message: "load source documents", Err: err}
	}
	prompt, err := prompts.BuildGeneratePrompt(req.Type, generate.ExternalType(req.Type), req.Difficulty, req.Count, docs)
	if err != nil {
		return nil, &generate.ServiceError{Message: "build prompt", Err: err}
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &generate.ServiceError{Status: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
		}
		return nil, &generate.ServiceError{Err: fmt.Errorf("LLM API call: %w", err)}
	}

	if len(resp.Choices) == 0 {
		return nil, &generate.ServiceError{Message: "LLM returned no choices"}
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	var out generated
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &generate.ServiceError{Message: "unreadable LLM response", Err: err}
	}
	if len(out.Questions) > req.Count {
		out.Questions = out.Questions[:req.Count]
	}
	slog.Info("LLM generated questions", "model", c.model, "requested", req.Count, "received", len(out.Questions))
	return out.Questions, nil
}

// Ping checks that the endpoint is reachable and the credentials work.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM list models: %w", err)
	}
	return nil
}
