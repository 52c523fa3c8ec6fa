package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/claro-ai/claro/internal/llm"
)

// maxAnalysisChars bounds how much document text goes into the
// analysis prompt to stay within model token limits.
const maxAnalysisChars = 10000

// Summarizer asks the model for a structured document analysis.
type Summarizer struct {
	provider llm.Provider
	model    string
}

func New(provider llm.Provider, model string) *Summarizer {
	return &Summarizer{provider: provider, model: model}
}

const analysisPrompt = `You are a legal clarity assistant specializing in analyzing legal documents and contracts.
Analyze the following document and provide a comprehensive structured analysis.

Document Text:
%s

Return a JSON object with this structure:
{
    "summary": ["point 1", "point 2"],
    "key_terms": ["term1", "term2"],
    "obligations": {"Party A": ["obligation 1"], "Party B": ["obligation 1"]},
    "costs_and_payments": ["cost or payment point"],
    "risks": [{"title": "Risk title", "why_it_matters": "explanation", "where_found": "clause reference", "mitigations": ["mitigation"]}],
    "red_flags": ["flag"],
    "questions_to_ask": ["question"],
    "negotiation_suggestions": ["suggestion"],
    "decision_assist": {"pros": ["pro"], "cons": ["con"], "overall_take": "overall assessment"}
}

IMPORTANT: Return ONLY valid JSON. Do not include any markdown formatting, code blocks, or additional text.`

// Summarize analyzes the given document text. On any model or parse
// failure it returns an error; callers store EmptyReport instead so
// ingestion never fails on analysis.
func (s *Summarizer) Summarize(ctx context.Context, text string) (*AnalysisReport, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no document text to analyze")
	}
	if runes := []rune(text); len(runes) > maxAnalysisChars {
		text = string(runes[:maxAnalysisChars])
	}

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model: s.model,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(analysisPrompt, text)},
		},
		Temperature: 0.2,
		MaxTokens:   4096,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis completion: %w", err)
	}

	var report AnalysisReport
	if err := json.Unmarshal([]byte(cleanJSON(resp.Content)), &report); err != nil {
		log.Printf("summarizer: unparseable analysis response: %v", err)
		return nil, fmt.Errorf("parsing analysis response: %w", err)
	}
	report.normalize()
	return &report, nil
}

// cleanJSON strips markdown fences and surrounding prose that models
// sometimes wrap around the JSON object.
func cleanJSON(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
