// Package gemini wraps the Gemini completion API behind the narrow surface
// the chat service needs: create a chat bound to a system instruction and
// prior history, send a message, read back the canonical history.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	chatmodel "github.com/arashpm/atlas-chat/internal/model/chat"
)

// Config carries the completion backend settings.
type Config struct {
	APIKey      string
	Model       string
	Temperature *float32
	TopP        *float32
	MaxTokens   *int
}

// Chat is one live model conversation. The underlying API keeps the curated
// history server-side in the session object; History exposes it in the
// persisted turn shape.
type Chat interface {
	Send(ctx context.Context, message string) (string, error)
	SendStream(ctx context.Context, message string, fn func(chunk string) error) error
	History() []chatmodel.Turn
}

// Gateway creates Gemini chats. A nil *Gateway is a valid "not configured"
// gateway whose NewChat always fails.
type Gateway struct {
	client *genai.Client
	cfg    Config
}

// New builds a Gateway from the given configuration.
func New(ctx context.Context, cfg Config) (*Gateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Gateway{client: client, cfg: cfg}, nil
}

// Model returns the configured model name.
func (g *Gateway) Model() string {
	if g == nil {
		return ""
	}
	return g.cfg.Model
}

// NewChat opens a model conversation carrying the system instruction and the
// supplied prior turns.
func (g *Gateway) NewChat(ctx context.Context, systemInstruction string, history []chatmodel.Turn) (Chat, error) {
	if g == nil {
		return nil, fmt.Errorf("gemini gateway not configured")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       g.cfg.Temperature,
		TopP:              g.cfg.TopP,
	}
	if g.cfg.MaxTokens != nil {
		config.MaxOutputTokens = int32(*g.cfg.MaxTokens)
	}

	chat, err := g.client.Chats.Create(ctx, g.cfg.Model, config, chatmodel.ToGenaiHistory(history))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini chat: %w", err)
	}

	return &liveChat{chat: chat}, nil
}

type liveChat struct {
	chat *genai.Chat
}

func (c *liveChat) Send(ctx context.Context, message string) (string, error) {
	resp, err := c.chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}
	return resp.Text(), nil
}

func (c *liveChat) SendStream(ctx context.Context, message string, fn func(chunk string) error) error {
	for resp, err := range c.chat.SendMessageStream(ctx, genai.Part{Text: message}) {
		if err != nil {
			return fmt.Errorf("gemini streaming completion failed: %w", err)
		}
		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}

// History returns the full curated history including the system-visible
// user/model turns, in persisted shape.
func (c *liveChat) History() []chatmodel.Turn {
	return chatmodel.FromGenaiHistory(c.chat.History(false))
}
