// Package answer assembles grounded prompts from retrieved passages
// and prior conversation turns, invokes the generative model, and
// validates the response.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/claro-ai/claro/internal/llm"
	"github.com/claro-ai/claro/internal/retriever"
)

// ErrGeneration indicates the model backend failed, timed out, or
// returned an empty response. Callers surface this as a degraded
// answer rather than a hard failure.
var ErrGeneration = errors.New("answer generation failed")

// Turn is one prior exchange message in a chat session.
type Turn struct {
	Role    llm.Role
	Content string
}

// Citation identifies one passage supplied to the model as grounding.
type Citation struct {
	DocID string `json:"doc_id"`
	Seq   int    `json:"chunk"`
}

// Answer is a grounded response. Citations list every passage supplied
// to the model, whether or not its text references them.
type Answer struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
	Degraded  bool       `json:"degraded,omitempty"`
}

const defaultHistoryWindow = 6

// Composer builds grounded prompts and calls the generative model.
type Composer struct {
	provider      llm.Provider
	model         string
	historyWindow int
}

// NewComposer creates a composer. historyWindow bounds how many prior
// turns are included in the prompt (0 uses the default).
func NewComposer(provider llm.Provider, model string, historyWindow int) *Composer {
	if historyWindow <= 0 {
		historyWindow = defaultHistoryWindow
	}
	return &Composer{provider: provider, model: model, historyWindow: historyWindow}
}

const systemPrompt = `You are a helpful legal document assistant. You answer questions about the user's uploaded documents using only the passages provided as context. Each passage is tagged with its source as [document#chunk]. Provide clear, concise, accurate answers. If the context does not contain enough information to answer, say so; do not make up information. If no passages are provided, tell the user that no relevant documents were found.`

// Compose builds the grounding context from the retrieved passages (in
// retriever order), appends a bounded window of conversation history,
// and invokes the model. With no passages it still asks the model to
// respond, so an empty corpus never crashes a chat.
func (c *Composer) Compose(ctx context.Context, query string, results []retriever.Result, history []Turn) (Answer, error) {
	var sb strings.Builder
	citations := make([]Citation, 0, len(results))
	for _, r := range results {
		fmt.Fprintf(&sb, "[%s#%d]\n%s\n\n", r.DocID, r.Chunk.Seq, r.Chunk.Text)
		citations = append(citations, Citation{DocID: r.DocID, Seq: r.Chunk.Seq})
	}
	grounding := sb.String()
	if grounding == "" {
		grounding = "(no relevant passages were found)"
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})

	if n := len(history); n > c.historyWindow {
		history = history[n-c.historyWindow:]
	}
	for _, t := range history {
		messages = append(messages, llm.Message{Role: t.Role, Content: t.Content})
	}

	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf("Document Context:\n%s\nUser Question: %s", grounding, query),
	})

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.3,
		MaxTokens:   2048,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return Answer{}, fmt.Errorf("%w: model returned an empty response", ErrGeneration)
	}

	return Answer{Text: resp.Content, Citations: citations}, nil
}
