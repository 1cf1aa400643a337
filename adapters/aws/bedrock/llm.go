// Package bedrock implements the llm.LLM interface for Anthropic models
// hosted on Amazon Bedrock. Credentials come from the standard AWS
// credential chain resolved by the caller's aws.Config.
package bedrock

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go/ptr"

	"github.com/clickagent/clickagent/llm"
)

// LLMModelID represents available Bedrock models
type LLMModelID string

const (
	Claude3Sonnet LLMModelID = "anthropic.claude-3-sonnet-20240229-v1:0"
	Claude3Haiku  LLMModelID = "anthropic.claude-3-haiku-20240307-v1:0"
	Claude35      LLMModelID = "anthropic.claude-3-5-sonnet-20241022-v2:0"
)

var _ llm.LLM = (*BedrockLLM)(nil)

type BedrockLLM struct {
	client *bedrockruntime.Client
	model  LLMModelID
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Messages         []anthropicMessage `json:"messages"`
	System           string             `json:"system,omitempty"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float32            `json:"temperature,omitempty"`
	TopP             float32            `json:"top_p,omitempty"`
	StopSequences    []string           `json:"stop_sequences,omitempty"`
	AnthropicVersion string             `json:"anthropic_version"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason,omitempty"`
	Model      string `json:"model,omitempty"`
}

func NewBedrockLLM(client *bedrockruntime.Client, model LLMModelID) *BedrockLLM {
	if model == "" {
		model = Claude35
	}
	return &BedrockLLM{
		client: client,
		model:  model,
	}
}

func (b *BedrockLLM) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (*llm.Message, error) {
	options := &llm.ChatOptions{
		Temperature: 0.7,
		MaxTokens:   2000,
	}
	for _, opt := range opts {
		opt(options)
	}

	// The Bedrock Anthropic schema carries system text in its own field.
	var systemPrompt string
	var chatMessages []anthropicMessage
	for _, msg := range messages {
		if msg.Role == llm.RoleSystem {
			systemPrompt = msg.Content
			continue
		}
		chatMessages = append(chatMessages, anthropicMessage{Role: msg.Role, Content: msg.Content})
	}
	if len(chatMessages) == 0 {
		return nil, &llm.LLMError{
			Op:      "Chat",
			Code:    llm.ErrCodeInvalidInput,
			Message: "at least one non-system message is required",
		}
	}

	requestBody, err := json.Marshal(anthropicRequest{
		Messages:         chatMessages,
		System:           systemPrompt,
		MaxTokens:        options.MaxTokens,
		Temperature:      options.Temperature,
		TopP:             options.TopP,
		StopSequences:    options.Stop,
		AnthropicVersion: "bedrock-2023-05-31",
	})
	if err != nil {
		return nil, &llm.LLMError{
			Op:      "Chat",
			Code:    llm.ErrCodeInternal,
			Message: "failed to marshal request",
			Err:     err,
		}
	}

	output, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     ptr.String(string(b.model)),
		Body:        requestBody,
		ContentType: ptr.String("application/json"),
	})
	if err != nil {
		return nil, handleBedrockError("Chat", err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, &llm.LLMError{
			Op:      "Chat",
			Code:    llm.ErrCodeAPIError,
			Message: "failed to unmarshal response",
			Err:     err,
		}
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &llm.Message{
		Role:    llm.RoleAssistant,
		Content: content.String(),
	}, nil
}

func (b *BedrockLLM) Complete(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	messages := []llm.Message{
		{
			Role:    llm.RoleUser,
			Content: prompt,
		},
	}

	resp, err := b.Chat(ctx, messages, opts...)
	if err != nil {
		return "", err
	}

	return resp.Content, nil
}

// ModelName returns the configured Bedrock model id.
func (b *BedrockLLM) ModelName() string {
	return string(b.model)
}

func handleBedrockError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &llm.LLMError{
		Op:      op,
		Code:    llm.ErrCodeAPIError,
		Message: "Bedrock API error",
		Err:     err,
	}
}
