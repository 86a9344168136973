// Package openai provides an LLMClient implementation using OpenAI's chat
// completion API.
package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ersonp/hindsight-core/internal/domain/ports"
	"github.com/ersonp/hindsight-core/internal/infrastructure/config"
)

// Client implements ports.LLMClient using OpenAI.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new OpenAI LLM client.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	model := "gpt-4o-mini"
	if cfg.Model != "" {
		model = cfg.Model
	}

	return &Client{
		client: openai.NewClient(cfg.APIKey),
		model:  model,
	}, nil
}

// Call sends a single chat completion request and returns the raw response
// text. Truncation due to the model's own output limit (finish_reason
// "length") is surfaced as ports.ErrOutputTooLong so the caller can recover
// via auto-split rather than treat it as a hard failure.
func (c *Client) Call(ctx context.Context, systemPrompt, userPrompt string, opts ports.CallOptions) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 65000
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: opts.Temperature,
		MaxTokens:   maxTokens,
	}
	if !opts.SkipValidation {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("calling OpenAI (scope=%s): %w", opts.Scope, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI (scope=%s)", opts.Scope)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		return choice.Message.Content, ports.ErrOutputTooLong
	}
	return choice.Message.Content, nil
}
