package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"lifelog-ai/internal/rag"
)

// systemPrompt instructs the model to stay grounded in the retrieved
// personal data. The context block is appended beneath it per request.
const systemPrompt = "You are a personal life-log assistant. Answer the user's question using only " +
	"the personal data entries provided below. If the entries do not contain enough information, " +
	"say so and ask the user for more details. Never invent facts about the user's life.\n\n"

// Client talks to an OpenAI-compatible chat completions API and satisfies
// the query engine's Completer interface.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	client  *http.Client
}

// NewClient creates a new completion client.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		client:  http.DefaultClient,
	}
}

// ChatMessage represents a single message in a chat completions payload.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents the request payload for chat completions.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
}

// ChatChoiceMessage represents the message in a chat choice.
type ChatChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatChoice represents a single choice in the chat response.
type ChatChoice struct {
	Index        int               `json:"index"`
	Message      ChatChoiceMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

// ChatResponse represents the response from the chat completions API.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Choices []ChatChoice `json:"choices"`
}

// Complete sends the conversation plus the grounding context to the chat
// completions API and returns the generated text. The grounding context
// rides in the system message; message ordering is forwarded unchanged.
// No retry happens here or below; a failed call surfaces to the caller.
func (c *Client) Complete(ctx context.Context, messages []rag.Message, grounding string) (string, error) {
	url := fmt.Sprintf("%s/v1/chat/completions", c.BaseURL)

	chatMessages := make([]ChatMessage, 0, len(messages)+1)
	chatMessages = append(chatMessages, ChatMessage{
		Role:    "system",
		Content: systemPrompt + grounding,
	})
	for _, m := range messages {
		chatMessages = append(chatMessages, ChatMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	payload := ChatRequest{
		Model:       c.Model,
		Messages:    chatMessages,
		Temperature: 0.7,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	return chatResp.Choices[0].Message.Content, nil
}
