package openai

import (
	"context"
	"errors"
	"os"

	"github.com/sashabaranov/go-openai"

	"github.com/clickagent/clickagent/llm"
)

var _ llm.LLM = (*OpenAILLM)(nil)

type OpenAILLM struct {
	client *openai.Client
	model  string
}

// NewOpenAILLM creates a chat client for the given model. When apiKey is
// empty, OPENAI_API_KEY is read from the environment.
func NewOpenAILLM(apiKey string, model string) (*OpenAILLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, llm.NewMissingCredentialError("openai.NewOpenAILLM", "OPENAI_API_KEY")
	}
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAILLM{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

func (o *OpenAILLM) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (*llm.Message, error) {
	options := &llm.ChatOptions{}
	for _, opt := range opts {
		opt(options)
	}

	openAIMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		openAIMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    openAIMessages,
		Temperature: options.Temperature,
		TopP:        options.TopP,
		MaxTokens:   options.MaxTokens,
		Stop:        options.Stop,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, handleOpenAIError("Chat", err)
	}

	if len(resp.Choices) == 0 {
		return nil, &llm.LLMError{
			Op:      "Chat",
			Code:    llm.ErrCodeAPIError,
			Message: "no response choices returned",
		}
	}

	return &llm.Message{
		Role:    resp.Choices[0].Message.Role,
		Content: resp.Choices[0].Message.Content,
	}, nil
}

func (o *OpenAILLM) Complete(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	messages := []llm.Message{
		{
			Role:    llm.RoleUser,
			Content: prompt,
		},
	}

	resp, err := o.Chat(ctx, messages, opts...)
	if err != nil {
		return "", err
	}

	return resp.Content, nil
}

// ModelName returns the configured chat model.
func (o *OpenAILLM) ModelName() string {
	return o.model
}

func handleOpenAIError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 400:
			return &llm.LLMError{
				Op:      op,
				Code:    llm.ErrCodeInvalidInput,
				Message: "invalid request",
				Err:     err,
			}
		case 401:
			return &llm.LLMError{
				Op:      op,
				Code:    llm.ErrCodeAPIError,
				Message: "invalid API key",
				Err:     err,
			}
		case 429:
			return &llm.LLMError{
				Op:      op,
				Code:    llm.ErrCodeRateLimitExceeded,
				Message: "rate limit exceeded",
				Err:     err,
			}
		case 500:
			return &llm.LLMError{
				Op:      op,
				Code:    llm.ErrCodeAPIError,
				Message: "OpenAI server error",
				Err:     err,
			}
		}
	}

	return &llm.LLMError{
		Op:      op,
		Code:    llm.ErrCodeInternal,
		Message: "unexpected error",
		Err:     err,
	}
}
