// Package generation renders analysis prompts and sends them to the
// chat-completions API.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/propertyscope/propertyscope-api/app/config"
	"github.com/propertyscope/propertyscope-api/app/metrics"
)

const defaultModel = "gpt-4o"

// ErrEmptyCompletion is returned when the model answers without any text.
var ErrEmptyCompletion = errors.New("empty completion")

// ChatAPI is the subset of the OpenAI client used here.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Client struct {
	api     ChatAPI
	model   string
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewClient(cfg config.OpenAIConfig, m *metrics.Metrics, logger *zap.Logger) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return NewClientWithAPI(openai.NewClientWithConfig(oc), cfg.Model, m, logger)
}

func NewClientWithAPI(api ChatAPI, model string, m *metrics.Metrics, logger *zap.Logger) *Client {
	if model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{api: api, model: model, metrics: m, logger: logger}
}

// Complete sends p as a single request. There are no retries.
func (c *Client) Complete(ctx context.Context, p Prompt) (string, error) {
	start := time.Now()
	text, err := c.complete(ctx, p)
	elapsed := time.Since(start)

	if c.metrics != nil {
		c.metrics.ObserveGeneration(string(p.Kind), elapsed, err)
	}
	if err != nil {
		c.logger.Warn("generation failed",
			zap.String("kind", string(p.Kind)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return "", err
	}
	c.logger.Debug("generation complete",
		zap.String("kind", string(p.Kind)),
		zap.Duration("elapsed", elapsed),
		zap.Int("chars", len(text)),
	)
	return text, nil
}

func (c *Client) complete(ctx context.Context, p Prompt) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
