// Package llm produces short clinical summaries from session transcripts.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Alijeyrad/mindcare_backend/config"
)

var (
	ErrDisabled        = errors.New("llm: summaries are disabled")
	ErrEmptyTranscript = errors.New("llm: transcript is empty")
)

const summaryPrompt = "You assist a psychotherapist. Summarize the following session transcript " +
	"in at most five sentences. Mention the main concerns, the patient's mood and any risk indicators. " +
	"Do not invent facts that are not in the transcript."

// Summarizer is satisfied by *Client; services depend on it.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// Client calls an OpenAI-compatible chat completion API.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

// New builds a client. A disabled config returns a client whose Summarize
// always fails with ErrDisabled.
func New(cfg config.LLMConfig) *Client {
	if !cfg.Enabled {
		return &Client{}
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       model,
		temperature: cfg.Temperature,
		timeout:     timeout,
	}
}

// Enabled reports whether Summarize will call the API.
func (c *Client) Enabled() bool { return c.client != nil }

// Summarize returns a summary of transcript.
func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", ErrEmptyTranscript
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summaryPrompt},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
