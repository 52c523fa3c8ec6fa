package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMockProviderFixedResponse(t *testing.T) {
	p := NewMockProvider("canned answer")

	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "anything"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "canned answer" {
		t.Errorf("Content = %q, want %q", resp.Content, "canned answer")
	}
}

func TestMockProviderEchoMode(t *testing.T) {
	p := NewMockProvider("")

	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "system prompt"},
			{Role: RoleUser, Content: "first"},
			{Role: RoleAssistant, Content: "reply"},
			{Role: RoleUser, Content: "second"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Content, "second") {
		t.Errorf("echo response %q does not contain the last user message", resp.Content)
	}
}

func TestMockProviderJSONMode(t *testing.T) {
	p := NewMockProvider("")

	resp, err := p.Complete(context.Background(), CompletionRequest{
		JSONMode: true,
		Messages: []Message{{Role: RoleUser, Content: "summarize"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(strings.TrimSpace(resp.Content), "{") {
		t.Errorf("JSON-mode response %q is not a JSON object", resp.Content)
	}
}

func TestMockProviderError(t *testing.T) {
	wantErr := errors.New("backend down")
	p := &MockProvider{Err: wantErr}

	if _, err := p.Complete(context.Background(), CompletionRequest{}); !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}
}

func TestMockProviderCancelledContext(t *testing.T) {
	p := NewMockProvider("answer")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Complete(ctx, CompletionRequest{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestNewProviderUnsupported(t *testing.T) {
	if _, err := NewProvider("vertex", "gemini"); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestNewProviderMock(t *testing.T) {
	p, err := NewProvider("mock", "")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "mock" {
		t.Errorf("Name() = %q, want mock", p.Name())
	}
}
