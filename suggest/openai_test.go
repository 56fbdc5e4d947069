package suggest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRunChatCompletions(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"a quiet morning"}}]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "test-key", "test-model", "chat_completions")
	got, err := c.Run(context.Background(), []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Name: NameTextBeforeCursor, Content: "It was "},
	}, map[string]any{"temperature": 0.7})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != "a quiet morning" {
		t.Errorf("output = %q", got)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotBody["model"] != "test-model" {
		t.Errorf("model = %v", gotBody["model"])
	}
	if gotBody["temperature"] != 0.7 {
		t.Errorf("temperature = %v", gotBody["temperature"])
	}

	msgs, ok := gotBody["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("messages = %v", gotBody["messages"])
	}
	second, _ := msgs[1].(map[string]any)
	if second["name"] != NameTextBeforeCursor {
		t.Errorf("name field = %v, want %q", second["name"], NameTextBeforeCursor)
	}
	first, _ := msgs[0].(map[string]any)
	if _, present := first["name"]; present {
		t.Errorf("empty name should be omitted: %v", first)
	}
}

func TestRunResponses(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Errorf("path = %q", r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.Write([]byte(`{"output":[{"type":"reasoning"},{"type":"message","content":[{"type":"output_text","text":"rewritten"}]}]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "k", "m", "responses")
	got, err := c.Run(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != "rewritten" {
		t.Errorf("output = %q", got)
	}
	if _, ok := gotBody["input"]; !ok {
		t.Error("responses API should send messages under input")
	}
	if _, ok := gotBody["messages"]; ok {
		t.Error("responses API should not send a messages key")
	}
}

func TestRunParamsOverrideModel(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "k", "configured-model", "chat_completions")
	_, err := c.Run(context.Background(), []Message{{Role: RoleUser, Content: "x"}},
		map[string]any{"model": "override-model", "messages": "ignored"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if gotBody["model"] != "override-model" {
		t.Errorf("model = %v, want params override", gotBody["model"])
	}
}

func TestRunAPIErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(429)
		w.Write([]byte(`rate limited`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "k", "m", "chat_completions")
	_, err := c.Run(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "status 429") {
		t.Errorf("error = %v", err)
	}
}

func TestRunNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "k", "m", "chat_completions")
	_, err := c.Run(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, nil)
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Errorf("error = %v", err)
	}
}

func TestRunCancelledRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(server.URL, "k", "m", "chat_completions")
	_, err := c.Run(ctx, []Message{{Role: RoleUser, Content: "x"}}, nil)
	if err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}
