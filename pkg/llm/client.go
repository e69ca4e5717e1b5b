// Package llm calls OpenAI-compatible chat-completion endpoints. One
// HTTPClient serves one configured endpoint; the agent wires three of them
// ([llm], [llm_fast], [vlm]) and hands the small Client interface to the
// pipelines so tests can stub replies.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/maicraft/maicraft-go/pkg/config"
)

// Client is the calling surface consumed by the combat and planning layers.
type Client interface {
	// Chat sends a single user prompt and returns the reply text.
	Chat(ctx context.Context, prompt string) (string, error)
	// Vision sends a prompt plus one base64 image and returns the reply.
	Vision(ctx context.Context, prompt, imageB64 string) (string, error)
}

// HTTPClient talks to one OpenAI-compatible endpoint.
type HTTPClient struct {
	cfg  config.LLMConfig
	http *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the given endpoint config.
func NewHTTPClient(cfg config.LLMConfig) *HTTPClient {
	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.RequestTimeout()},
	}
}

// Wire shapes of the chat-completions API. Content is a string for text
// chat and a part list for vision requests.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Chat implements Client.
func (c *HTTPClient) Chat(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, chatMessage{Role: "user", Content: prompt})
}

// Vision implements Client. imageB64 may be bare base64 or a complete data
// URI; bare input is wrapped as JPEG.
func (c *HTTPClient) Vision(ctx context.Context, prompt, imageB64 string) (string, error) {
	url := imageB64
	if !strings.HasPrefix(url, "data:") {
		url = "data:image/jpeg;base64," + imageB64
	}
	return c.complete(ctx, chatMessage{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &imageURL{URL: url}},
		},
	})
}

func (c *HTTPClient) complete(ctx context.Context, msg chatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{msg},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", c.cfg.Model, err)
	}
	defer resp.Body.Close()

	// Bound the read: error bodies from misconfigured gateways can be huge.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("%s returned status %d: %s", c.cfg.Model, resp.StatusCode, excerpt(raw))
		}
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%s API error: %s (%s)", c.cfg.Model, parsed.Error.Message, parsed.Error.Type)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned status %d: %s", c.cfg.Model, resp.StatusCode, excerpt(raw))
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", c.cfg.Model)
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func excerpt(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		return s[:200] + "…"
	}
	return s
}
