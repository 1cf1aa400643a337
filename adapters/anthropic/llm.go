// Package anthropic implements the llm.LLM interface against the
// Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/clickagent/clickagent/llm"
)

var _ llm.LLM = (*LLMClient)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-sonnet-latest"
	DefaultTimeout = 120 * time.Second

	// APIKeyEnvVar names the environment variable checked when Config.APIKey
	// is empty.
	APIKeyEnvVar = "ANTHROPIC_API_KEY"

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic client.
type Config struct {
	// APIKey is the Anthropic API key. When empty, ANTHROPIC_API_KEY is
	// read from the environment.
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the model to use (default: claude-3-5-sonnet-latest).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMClient provides chat and completion using the Anthropic Messages API.
type LLMClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// messagesRequest is the /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float32           `json:"temperature,omitempty"`
	TopP        float32           `json:"top_p,omitempty"`
	StopSeqs    []string          `json:"stop_sequences,omitempty"`
}

type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClient creates a new Anthropic client. It fails before any network
// call when no API key is configured.
func NewClient(cfg Config) (*LLMClient, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(APIKeyEnvVar)
	}
	if cfg.APIKey == "" {
		return nil, llm.NewMissingCredentialError("anthropic.NewClient", APIKeyEnvVar)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &LLMClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Chat conducts a conversation. A leading system message is lifted into
// the request's system field, as required by the Messages API.
func (c *LLMClient) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (*llm.Message, error) {
	options := &llm.ChatOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var systemPrompt string
	var chatMessages []messagesMessage
	for _, msg := range messages {
		if msg.Role == llm.RoleSystem {
			systemPrompt = msg.Content
			continue
		}
		chatMessages = append(chatMessages, messagesMessage{Role: msg.Role, Content: msg.Content})
	}
	if len(chatMessages) == 0 {
		return nil, &llm.LLMError{
			Op:      "Chat",
			Code:    llm.ErrCodeInvalidInput,
			Message: "at least one non-system message is required",
		}
	}

	text, err := c.sendMessages(ctx, systemPrompt, chatMessages, options)
	if err != nil {
		return nil, err
	}
	return &llm.Message{Role: llm.RoleAssistant, Content: text}, nil
}

// Complete generates a completion for a single prompt.
func (c *LLMClient) Complete(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	msg, err := c.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// ModelName returns the configured model.
func (c *LLMClient) ModelName() string {
	return c.model
}

func (c *LLMClient) sendMessages(ctx context.Context, systemPrompt string, messages []messagesMessage, opts *llm.ChatOptions) (string, error) {
	// The Messages API requires max_tokens.
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	reqBody := messagesRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: maxTokens,
		System:    systemPrompt,
	}
	if opts.Temperature > 0 {
		reqBody.Temperature = opts.Temperature
	}
	if opts.TopP > 0 {
		reqBody.TopP = opts.TopP
	}
	if len(opts.Stop) > 0 {
		reqBody.StopSeqs = opts.Stop
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", c.wrap("sendMessages", llm.ErrCodeInternal, "marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return "", c.wrap("sendMessages", llm.ErrCodeInternal, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", c.wrap("sendMessages", llm.ErrCodeAPIError, "send request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.wrap("sendMessages", llm.ErrCodeAPIError, "read response", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", c.wrap("sendMessages", llm.ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return "", c.wrap("sendMessages", llm.ErrCodeAPIError,
			fmt.Sprintf("decode response (status %d)", resp.StatusCode), err)
	}
	if msgResp.Error != nil {
		return "", c.wrap("sendMessages", llm.ErrCodeAPIError, msgResp.Error.Message, nil)
	}
	if resp.StatusCode != http.StatusOK {
		return "", c.wrap("sendMessages", llm.ErrCodeAPIError,
			fmt.Sprintf("status %d: %s", resp.StatusCode, body), nil)
	}
	if len(msgResp.Content) == 0 {
		return "", c.wrap("sendMessages", llm.ErrCodeAPIError, "no response content returned", nil)
	}

	var result strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	return result.String(), nil
}

func (c *LLMClient) wrap(op, code, message string, err error) error {
	return &llm.LLMError{Op: "anthropic." + op, Code: code, Message: message, Err: err}
}
