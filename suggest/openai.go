package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client performs completions via an OpenAI-compatible API. It implements
// Backend for both the chat completions and responses request shapes.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	apiType string // "responses" or "chat_completions"
	client  *http.Client
}

// NewClient creates a completion client from config.
func NewClient(baseURL, apiKey, model, apiType string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		apiType: apiType,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Run sends the conversation to the API and returns the response text.
// Entries of params are forwarded verbatim into the request body and may
// override the configured model; "messages" and "input" are reserved.
func (c *Client) Run(ctx context.Context, messages []Message, params map[string]any) (string, error) {
	if c.apiType == "chat_completions" {
		return c.runChatCompletions(ctx, messages, params)
	}
	return c.runResponses(ctx, messages, params)
}

// Close is a no-op (no subprocess to manage).
func (c *Client) Close() {}

// body assembles the request body: forwarded params first, then the
// configured model unless params already set one, then the messages under
// the given key.
func (c *Client) body(messages []Message, params map[string]any, messagesKey string) map[string]any {
	body := make(map[string]any, len(params)+2)
	for k, v := range params {
		if k == "messages" || k == "input" {
			continue
		}
		body[k] = v
	}
	if _, ok := body["model"]; !ok {
		body["model"] = c.model
	}
	body[messagesKey] = messages
	return body
}

func (c *Client) post(ctx context.Context, path string, body map[string]any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// --- Responses API ---

type responsesResponse struct {
	Output []responsesOutput `json:"output"`
	Error  *apiError         `json:"error,omitempty"`
}

type responsesOutput struct {
	Type    string             `json:"type"`
	Content []responsesContent `json:"content,omitempty"`
}

type responsesContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *Client) runResponses(ctx context.Context, messages []Message, params map[string]any) (string, error) {
	body, err := c.post(ctx, "/responses", c.body(messages, params, "input"))
	if err != nil {
		return "", err
	}

	var result responsesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w (body: %s)", err, string(body))
	}

	if result.Error != nil {
		return "", fmt.Errorf("API error: %s", result.Error.Message)
	}

	// Extract text from output
	for _, out := range result.Output {
		if out.Type == "message" {
			for _, content := range out.Content {
				if content.Type == "output_text" {
					return content.Text, nil
				}
			}
		}
	}

	return "", fmt.Errorf("no text content in response")
}

// --- Chat Completions API ---

type chatCompletionsResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message Message `json:"message"`
}

func (c *Client) runChatCompletions(ctx context.Context, messages []Message, params map[string]any) (string, error) {
	body, err := c.post(ctx, "/chat/completions", c.body(messages, params, "messages"))
	if err != nil {
		return "", err
	}

	var result chatCompletionsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w (body: %s)", err, string(body))
	}

	if result.Error != nil {
		return "", fmt.Errorf("API error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return result.Choices[0].Message.Content, nil
}
