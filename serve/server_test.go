package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	inkwell "github.com/inkfall/inkwell"
)

// stubSuggester returns a fixed response for testing.
type stubSuggester struct {
	resp *inkwell.Response
}

func (s *stubSuggester) Suggest(_ context.Context, _ *inkwell.Request) *inkwell.Response {
	// Return a copy to avoid race conditions when server sets RequestID
	return &inkwell.Response{
		Mode:       s.resp.Mode,
		Suggestion: s.resp.Suggestion,
		Error:      s.resp.Error,
	}
}

func (s *stubSuggester) WarmContext(_ context.Context, _ string) {}

func (s *stubSuggester) Close() {}

var testSocketCounter atomic.Int64

func newTestServer(t *testing.T, suggester Suggester) *Server {
	t.Helper()
	// Use /tmp directly to avoid macOS 104-char Unix socket path limit
	n := testSocketCounter.Add(1)
	sockPath := fmt.Sprintf("/tmp/inkwell-t%d.sock", n)
	srv, err := NewServerWithSuggester(sockPath, suggester)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srv.Close() })
	go srv.Serve()
	return srv
}

func sendRequest(t *testing.T, sockPath string, req *inkwell.Request) *inkwell.Response {
	t.Helper()
	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	conn.Write(append(data, '\n'))

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		t.Fatal("no response from server")
	}

	var resp inkwell.Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return &resp
}

func TestHandleConnEchoesRequestID(t *testing.T) {
	stub := &stubSuggester{
		resp: &inkwell.Response{Mode: inkwell.ModeInsertion, Suggestion: "next words"},
	}
	srv := newTestServer(t, stub)

	resp := sendRequest(t, srv.sockPath, &inkwell.Request{
		RequestID:  17,
		TextBefore: "The rain ",
		Prompt:     "continue",
	})

	if resp.RequestID != 17 {
		t.Errorf("expected request_id 17, got %d", resp.RequestID)
	}
	if resp.Suggestion != "next words" {
		t.Errorf("suggestion = %q", resp.Suggestion)
	}
}

func TestHandleConnSequentialIDs(t *testing.T) {
	stub := &stubSuggester{
		resp: &inkwell.Response{Mode: inkwell.ModeInsertion},
	}
	srv := newTestServer(t, stub)

	for _, id := range []int{1, 2, 3} {
		resp := sendRequest(t, srv.sockPath, &inkwell.Request{
			RequestID: id,
			Prompt:    "test",
		})
		if resp.RequestID != id {
			t.Errorf("expected request_id %d, got %d", id, resp.RequestID)
		}
	}
}

// slowSuggester blocks until its context is cancelled.
type slowSuggester struct {
	mu        sync.Mutex
	cancelled []int // request IDs whose contexts were cancelled
}

func (s *slowSuggester) Suggest(ctx context.Context, req *inkwell.Request) *inkwell.Response {
	<-ctx.Done()
	s.mu.Lock()
	s.cancelled = append(s.cancelled, req.RequestID)
	s.mu.Unlock()
	return &inkwell.Response{Mode: inkwell.ModeInsertion}
}

func (s *slowSuggester) WarmContext(_ context.Context, _ string) {}

func (s *slowSuggester) Close() {}

func sendConfigRequest(t *testing.T, sockPath string, req *inkwell.ConfigRequest) *inkwell.ConfigResponse {
	t.Helper()
	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	conn.Write(append(data, '\n'))

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		t.Fatal("no response from server")
	}

	var resp inkwell.ConfigResponse
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return &resp
}

func TestConfigDefaultsAction(t *testing.T) {
	stub := &stubSuggester{resp: &inkwell.Response{}}
	srv := newTestServer(t, stub)

	resp := sendConfigRequest(t, srv.sockPath, &inkwell.ConfigRequest{Action: "defaults"})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %s", resp.Error.Message)
	}
	if resp.Config == nil {
		t.Fatal("expected non-nil config")
	}
	if resp.Config.API.BaseURL == "" {
		t.Error("expected non-empty API base URL")
	}
	if resp.Config.Purpose == "" {
		t.Error("expected non-empty purpose")
	}
}

func TestConfigDefaultPromptsAction(t *testing.T) {
	stub := &stubSuggester{resp: &inkwell.Response{}}
	srv := newTestServer(t, stub)

	resp := sendConfigRequest(t, srv.sockPath, &inkwell.ConfigRequest{Action: "default_prompts"})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %s", resp.Error.Message)
	}
	if resp.InsertionPrompt == "" {
		t.Error("expected non-empty insertion prompt")
	}
	if resp.EditingPrompt == "" {
		t.Error("expected non-empty editing prompt")
	}
}

func TestConfigUnknownAction(t *testing.T) {
	stub := &stubSuggester{resp: &inkwell.Response{}}
	srv := newTestServer(t, stub)

	resp := sendConfigRequest(t, srv.sockPath, &inkwell.ConfigRequest{Action: "frobnicate"})
	if resp.Error == nil || resp.Error.Code != "unknown_action" {
		t.Errorf("error = %+v, want unknown_action", resp.Error)
	}
}

func TestHandleConnCancelsOldSession(t *testing.T) {
	slow := &slowSuggester{}
	srv := newTestServer(t, slow)

	// Send first request (will block in Suggest until cancelled).
	conn1, err := net.Dial("unix", srv.sockPath)
	if err != nil {
		t.Fatal(err)
	}
	defer conn1.Close()

	req1, _ := json.Marshal(&inkwell.Request{
		RequestID: 1,
		Prompt:    "continue the paragraph",
		SessionID: "sess1",
	})
	conn1.Write(append(req1, '\n'))

	// Give the server time to start processing req1.
	time.Sleep(50 * time.Millisecond)

	// Send second request for the same session — should cancel req1.
	conn2, err := net.Dial("unix", srv.sockPath)
	if err != nil {
		t.Fatal(err)
	}
	defer conn2.Close()

	req2, _ := json.Marshal(&inkwell.Request{
		RequestID: 2,
		Prompt:    "continue the paragraph, shorter",
		SessionID: "sess1",
	})
	conn2.Write(append(req2, '\n'))

	// Give the server time to cancel req1 and start processing req2.
	time.Sleep(50 * time.Millisecond)

	slow.mu.Lock()
	found := false
	for _, id := range slow.cancelled {
		if id == 1 {
			found = true
			break
		}
	}
	slow.mu.Unlock()

	if !found {
		t.Error("expected request 1 to be cancelled when request 2 arrived for the same session")
	}
}

func sendContextRequest(t *testing.T, sockPath string, req *inkwell.ContextRequest) *inkwell.ContextResponse {
	t.Helper()
	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	conn.Write(append(data, '\n'))

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		t.Fatal("no response from server")
	}

	var resp inkwell.ContextResponse
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return &resp
}

func TestHandleConnContextRequest(t *testing.T) {
	stub := &stubSuggester{resp: &inkwell.Response{}}
	srv := newTestServer(t, stub)

	resp := sendContextRequest(t, srv.sockPath, &inkwell.ContextRequest{
		Type:    "context",
		DocPath: "/tmp/draft.md",
	})

	if !resp.OK {
		t.Errorf("expected OK=true, got false")
	}
	if resp.Error != nil {
		t.Errorf("expected no error, got %+v", resp.Error)
	}
}

func TestHandleConnContextRequestNoDocPath(t *testing.T) {
	stub := &stubSuggester{resp: &inkwell.Response{}}
	srv := newTestServer(t, stub)

	resp := sendContextRequest(t, srv.sockPath, &inkwell.ContextRequest{
		Type:    "context",
		DocPath: "",
	})

	if resp.OK {
		t.Errorf("expected OK=false for empty doc_path")
	}
	if resp.Error == nil {
		t.Errorf("expected error for empty doc_path")
	}
}

func TestConfigReloadSwapsEngine(t *testing.T) {
	t.Setenv("INKWELL_CONFIG_DIR", t.TempDir())
	t.Setenv("INKWELL_API_KEY", "")

	stub := &stubSuggester{
		resp: &inkwell.Response{Mode: inkwell.ModeInsertion, Suggestion: "from the stub"},
	}
	srv := newTestServer(t, stub)

	resp := sendConfigRequest(t, srv.sockPath, &inkwell.ConfigRequest{Action: "reload"})
	if resp.Error != nil {
		t.Fatalf("unexpected reload error: %s", resp.Error.Message)
	}
	if resp.Config == nil {
		t.Fatal("expected config in reload response")
	}

	// The swap happens in the background; give it a moment.
	time.Sleep(100 * time.Millisecond)

	// A freshly built engine has no API key configured, so a suggestion
	// after the reload proves the stub was replaced.
	sug := sendRequest(t, srv.sockPath, &inkwell.Request{RequestID: 4, Prompt: "continue"})
	if sug.Suggestion == "from the stub" {
		t.Fatal("request still served by the pre-reload engine")
	}
	if sug.Error == nil || sug.Error.Code != "not_configured" {
		t.Errorf("error = %+v, want not_configured from the reloaded engine", sug.Error)
	}
}
