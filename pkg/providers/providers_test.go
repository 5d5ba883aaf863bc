package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tabletalk-io/tabletalk/pkg/config"
)

func TestNormalizeProviderName(t *testing.T) {
	cases := map[string]string{
		"":           ProviderAnthropic,
		"Anthropic":  ProviderAnthropic,
		"  openai  ": ProviderOpenAI,
	}
	for in, want := range cases {
		if got := NormalizeProviderName(in); got != want {
			t.Errorf("NormalizeProviderName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateProviderConfig_MissingKey(t *testing.T) {
	cfg := config.DefaultConfig()

	if err := ValidateProviderConfig(cfg); err == nil {
		t.Fatal("expected validation error without anthropic api key")
	}

	cfg.Providers.Anthropic.APIKey = "sk-test"
	if err := ValidateProviderConfig(cfg); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestCreateProvider_UnsupportedName(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Responder.Provider = "nope"

	if _, err := CreateProvider(cfg); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestParseChatCompletionsResponse_ToolCalls(t *testing.T) {
	body := []byte(`{
		"choices": [{
			"message": {
				"content": null,
				"tool_calls": [{
					"id": "call_1",
					"type": "function",
					"function": {"name": "find_restaurants", "arguments": "{\"location\":\"Shibuya\"}"}
				}]
			},
			"finish_reason": "tool_calls"
		}]
	}`)

	resp, err := parseChatCompletionsResponse(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(resp.ToolCalls))
	}
	tc := resp.ToolCalls[0]
	if tc.Name != "find_restaurants" {
		t.Errorf("tool name = %q", tc.Name)
	}
	if tc.Arguments["location"] != "Shibuya" {
		t.Errorf("arguments = %v", tc.Arguments)
	}
}

func TestParseChatCompletionsResponse_MalformedArgumentsPreserved(t *testing.T) {
	body := []byte(`{
		"choices": [{
			"message": {
				"tool_calls": [{
					"id": "call_1",
					"type": "function",
					"function": {"name": "x", "arguments": "not json"}
				}]
			},
			"finish_reason": "tool_calls"
		}]
	}`)

	resp, err := parseChatCompletionsResponse(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if resp.ToolCalls[0].Arguments["raw"] != "not json" {
		t.Errorf("expected raw arguments fallback, got %v", resp.ToolCalls[0].Arguments)
	}
}

func TestChatCompletionsProvider_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["model"] != "test-model" {
			t.Errorf("model = %v", req["model"])
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{
				"message":       map[string]interface{}{"content": "hello back"},
				"finish_reason": "stop",
			}},
		})
	}))
	defer srv.Close()

	p, err := newChatCompletionsProvider("openai", srv.URL, "sk-test", "test-model", "")
	if err != nil {
		t.Fatalf("newChatCompletionsProvider failed: %v", err)
	}

	resp, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil, "", nil)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "hello back" {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestChatCompletionsProvider_APIErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "bad model"}}`))
	}))
	defer srv.Close()

	p, err := newChatCompletionsProvider("openai", srv.URL, "sk-test", "m", "")
	if err != nil {
		t.Fatalf("newChatCompletionsProvider failed: %v", err)
	}

	_, err = p.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil, "", nil)
	if err == nil {
		t.Fatal("expected error from 400 response")
	}
}

func TestAnthropicProvider_RequiresKey(t *testing.T) {
	if _, err := newAnthropicProvider("", "", ""); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestToStringSlice(t *testing.T) {
	if got := toStringSlice([]interface{}{"a", "b"}); len(got) != 2 || got[0] != "a" {
		t.Errorf("unexpected slice: %v", got)
	}
	if got := toStringSlice(42); got != nil {
		t.Errorf("expected nil for non-slice, got %v", got)
	}
}
