package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCompletionMessages_Order(t *testing.T) {
	msgs := completionMessages(ChatRequest{
		Prompt:  "sys",
		History: []ChatMessage{{Role: RoleUser, Content: "q1"}, {Role: RoleAssistant, Content: "a1"}},
		Message: "q2",
	})
	want := []struct{ role, content string }{
		{"system", "sys"}, {"user", "q1"}, {"assistant", "a1"}, {"user", "q2"},
	}
	if len(msgs) != len(want) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(want))
	}
	for i, w := range want {
		if msgs[i].Role != w.role || msgs[i].Content != w.content {
			t.Errorf("message %d = %s/%s, want %s/%s", i, msgs[i].Role, msgs[i].Content, w.role, w.content)
		}
	}
}

func newCompletionServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["model"] != "gpt-4o-mini" {
			t.Errorf("model = %v", req["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func TestOpenAICompatibleClient_Chat(t *testing.T) {
	srv := newCompletionServer(t, `{"choices":[{"index":0,"message":{"role":"assistant","content":"We bill monthly."}}]}`)
	defer srv.Close()

	client := NewOpenAICompatibleClient(LLMConfig{BaseURL: srv.URL + "/", APIKey: "k", Model: "gpt-4o-mini"})
	content, err := client.Chat(context.Background(), ChatRequest{Prompt: "sys", Message: "How do you bill?"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if content != "We bill monthly." {
		t.Errorf("content = %q", content)
	}
}

func TestOpenAICompatibleClient_NoChoices(t *testing.T) {
	srv := newCompletionServer(t, `{"choices":[]}`)
	defer srv.Close()

	client := NewOpenAICompatibleClient(LLMConfig{BaseURL: srv.URL, APIKey: "k", Model: "gpt-4o-mini"})
	if _, err := client.Chat(context.Background(), ChatRequest{Message: "hi"}); !errors.Is(err, ErrContractViolation) {
		t.Errorf("expected ErrContractViolation, got %v", err)
	}
}
