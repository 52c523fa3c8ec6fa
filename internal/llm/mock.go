package llm

import (
	"context"
	"sync"
)

// MockProvider is a deterministic offline Provider. It answers with a
// fixed response (or a canned echo of the last user message) and
// records the requests it receives. Used in offline mode and in tests.
type MockProvider struct {
	// Response, when non-empty, is returned for every completion.
	Response string
	// Err, when set, is returned instead of a response.
	Err error

	mu       sync.Mutex
	requests []CompletionRequest
}

// NewMockProvider creates a mock provider returning the given fixed
// response. An empty response enables echo mode.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Response: response}
}

func (p *MockProvider) Name() string {
	return "mock"
}

func (p *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}

	content := p.Response
	if content == "" {
		content = "[offline] " + lastUserMessage(req.Messages)
		if req.JSONMode {
			content = "{}"
		}
	}

	return &CompletionResponse{Content: content}, nil
}

// Requests returns a copy of the requests seen so far.
func (p *MockProvider) Requests() []CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CompletionRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

func lastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
