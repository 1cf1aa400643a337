package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clickagent/clickagent/llm"
)

func messagesServer(t *testing.T, record *messagesRequest) *httptest.Server {
	t.Helper()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") == "" {
			t.Error("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("anthropic-version = %q", r.Header.Get("anthropic-version"))
		}
		if err := json.NewDecoder(r.Body).Decode(record); err != nil {
			t.Errorf("decode request: %v", err)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{
				{"type": "text", "text": "They discussed lunch plans."},
			},
			"stop_reason": "end_turn",
		})
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient_MissingCredential(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "")

	_, err := NewClient(Config{})
	if !llm.IsMissingCredential(err) {
		t.Errorf("NewClient() error = %v, want missing-credential", err)
	}
}

func TestNewClient_KeyFromEnv(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "sk-test")

	client, err := NewClient(Config{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if client.ModelName() != DefaultModel {
		t.Errorf("ModelName() = %q, want %q", client.ModelName(), DefaultModel)
	}
}

func TestChat(t *testing.T) {
	var got messagesRequest
	srv := messagesServer(t, &got)

	client, err := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "claude-test"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	reply, err := client.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "You answer from chat context."},
		{Role: llm.RoleUser, Content: "What did they discuss?"},
	},
		llm.WithMaxTokens(1000),
		llm.WithTemperature(0.7),
	)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply.Role != llm.RoleAssistant {
		t.Errorf("reply role = %q", reply.Role)
	}
	if reply.Content != "They discussed lunch plans." {
		t.Errorf("reply content = %q", reply.Content)
	}

	// The system message must be lifted out of the messages array.
	if got.System != "You answer from chat context." {
		t.Errorf("system = %q", got.System)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != llm.RoleUser {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.Model != "claude-test" {
		t.Errorf("model = %q", got.Model)
	}
	if got.MaxTokens != 1000 {
		t.Errorf("max_tokens = %d, want 1000", got.MaxTokens)
	}
	if got.Temperature != 0.7 {
		t.Errorf("temperature = %f, want 0.7", got.Temperature)
	}
}

func TestChat_OnlySystemMessage(t *testing.T) {
	client, err := NewClient(Config{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = client.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "system only"},
	})
	if err == nil {
		t.Error("Chat() should reject a conversation with no user messages")
	}
}

func TestChat_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{
				"type":    "invalid_request_error",
				"message": "max_tokens is required",
			},
		})
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = client.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	var llmErr *llm.LLMError
	if !errors.As(err, &llmErr) || llmErr.Code != llm.ErrCodeAPIError {
		t.Errorf("Chat() error = %v, want API error", err)
	}
}

func TestComplete(t *testing.T) {
	var got messagesRequest
	srv := messagesServer(t, &got)

	client, err := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	text, err := client.Complete(context.Background(), "Summarize the chat.")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "They discussed lunch plans." {
		t.Errorf("Complete() = %q", text)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "Summarize the chat." {
		t.Errorf("messages = %+v", got.Messages)
	}
}
