// Package genai provides the chat-completion collaborator using the OpenAI API.
package genai

import (
	"context"
	"fmt"
	"os"

	"github.com/NeuroPulse-App/neuropulse/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Reply is the assistant's answer plus the emotional context it was
// generated under.
type Reply struct {
	Text                  string `json:"text"`
	EmotionalContextLabel string `json:"emotional_context_label"`
}

// Provider produces assistant replies modulated by the user's current
// emotional state.
type Provider interface {
	Respond(ctx context.Context, message string, state *models.EmotionalState) (Reply, error)
}

// completionService defines the minimal interface for chat completions.
type completionService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	completions completionService
}

// NewClient initializes a GenAI client using the OPENAI_API_KEY environment variable.
func NewClient() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	cli := openai.NewClient(option.WithAPIKey(apiKey))
	completions := cli.Chat.Completions
	return &Client{completions: &completions}, nil
}

// NewClientWithService creates a Client around an existing completion
// service. Used by tests to inject fakes.
func NewClientWithService(svc completionService) *Client {
	return &Client{completions: svc}
}

const basePrompt = "You are a supportive assistant in a wellbeing chat application. " +
	"Keep replies short and conversational."

// Respond generates a reply to the user's message, folding the current
// emotional state into the system prompt so the tone matches how the user is
// feeling.
func (c *Client) Respond(ctx context.Context, message string, state *models.EmotionalState) (Reply, error) {
	system := basePrompt
	label := ""
	if state != nil {
		label = string(state.Label)
		system = fmt.Sprintf("%s The user's current emotional state is %q (level %.0f/100). "+
			"Adapt your tone accordingly: be calming when they are stressed, energizing when they are calm.",
			basePrompt, state.Label, state.Level)
	}

	resp, err := c.completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModelGPT4oMini,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(message),
		},
	})
	if err != nil {
		return Reply{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Reply{}, fmt.Errorf("no choices returned")
	}
	return Reply{Text: resp.Choices[0].Message.Content, EmotionalContextLabel: label}, nil
}
