// Package assistant sends prompts to the Anthropic messages API.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "https://api.anthropic.com/v1/messages"
	DefaultModel    = "claude-sonnet-4-20250514"
	apiVersion      = "2023-06-01"
)

// Client turns a prompt into text
type Client struct {
	apiKey   string
	model    string
	endpoint string
	http     *http.Client
}

// Option customizes a Client
type Option func(*Client)

// WithEndpoint points the client at another messages endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithModel selects the model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// New creates a Client. The key usually comes from ANTHROPIC_API_KEY.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}
	c := &Client{
		apiKey:   apiKey,
		model:    DefaultModel,
		endpoint: DefaultEndpoint,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a single user prompt and returns the first text block of
// the reply.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	jsonBody, err := json.Marshal(apiRequest{
		Model:     c.model,
		MaxTokens: 2048,
		Messages:  []apiMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("api error: %s", apiResp.Error.Message)
	}
	for _, block := range apiResp.Content {
		if block.Type == "" || block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("empty response")
}

// Completer is anything that answers a prompt with text
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ExtractBooking asks for structured booking details found in page text.
// A reply that is not JSON is returned wrapped as {"raw": text}.
func ExtractBooking(ctx context.Context, c Completer, itemType, pageText string) (json.RawMessage, error) {
	reply, err := c.Complete(ctx, buildExtractPrompt(itemType, pageText))
	if err != nil {
		return nil, fmt.Errorf("extract booking: %w", err)
	}
	return parseReply(reply), nil
}

func buildExtractPrompt(itemType, pageText string) string {
	var sb strings.Builder
	sb.WriteString("Extract structured data for item type ")
	sb.WriteString(itemType)
	sb.WriteString(" from this page content. Return a single JSON object only.\n")
	sb.WriteString(pageText)
	return sb.String()
}

func parseReply(reply string) json.RawMessage {
	// Models sometimes wrap JSON in a markdown fence
	cleaned := strings.TrimSpace(reply)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned != "" && json.Valid([]byte(cleaned)) {
		return json.RawMessage(cleaned)
	}
	raw, _ := json.Marshal(map[string]string{"raw": reply})
	return raw
}
