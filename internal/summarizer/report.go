// Package summarizer produces a structured analysis report for an
// ingested document by asking the generative model for JSON and
// coercing whatever comes back into a well-formed report.
package summarizer

// RiskItem is one identified risk in a document.
type RiskItem struct {
	Title        string   `json:"title"`
	WhyItMatters string   `json:"why_it_matters"`
	WhereFound   string   `json:"where_found,omitempty"`
	Mitigations  []string `json:"mitigations"`
}

// DecisionAssist weighs the document overall.
type DecisionAssist struct {
	Pros        []string `json:"pros"`
	Cons        []string `json:"cons"`
	OverallTake string   `json:"overall_take"`
}

// AnalysisReport is the structured analysis stored per document and
// served to clients.
type AnalysisReport struct {
	Summary                []string            `json:"summary"`
	KeyTerms               []string            `json:"key_terms"`
	Obligations            map[string][]string `json:"obligations"`
	CostsAndPayments       []string            `json:"costs_and_payments"`
	Risks                  []RiskItem          `json:"risks"`
	RedFlags               []string            `json:"red_flags"`
	QuestionsToAsk         []string            `json:"questions_to_ask"`
	NegotiationSuggestions []string            `json:"negotiation_suggestions"`
	DecisionAssist         DecisionAssist      `json:"decision_assist"`
}

// EmptyReport returns a minimal well-formed report. It is stored when
// analysis fails so that clients always receive a parseable shape.
func EmptyReport() *AnalysisReport {
	r := &AnalysisReport{}
	r.normalize()
	return r
}

// FallbackReport is the report stored when analysis fails during an
// upload: the document itself is fine, only the analysis is missing.
func FallbackReport() *AnalysisReport {
	r := EmptyReport()
	r.Summary = []string{"Document uploaded successfully. Analysis may be incomplete."}
	r.DecisionAssist.OverallTake = "Analysis pending"
	return r
}

// normalize replaces nil slices and maps so the report always
// marshals to the full JSON shape instead of nulls.
func (r *AnalysisReport) normalize() {
	if r.Summary == nil {
		r.Summary = []string{}
	}
	if r.KeyTerms == nil {
		r.KeyTerms = []string{}
	}
	if r.Obligations == nil {
		r.Obligations = map[string][]string{}
	}
	if r.CostsAndPayments == nil {
		r.CostsAndPayments = []string{}
	}
	for i := range r.Risks {
		if r.Risks[i].Title == "" {
			r.Risks[i].Title = "Untitled Risk"
		}
		if r.Risks[i].Mitigations == nil {
			r.Risks[i].Mitigations = []string{}
		}
	}
	if r.Risks == nil {
		r.Risks = []RiskItem{}
	}
	if r.RedFlags == nil {
		r.RedFlags = []string{}
	}
	if r.QuestionsToAsk == nil {
		r.QuestionsToAsk = []string{}
	}
	if r.NegotiationSuggestions == nil {
		r.NegotiationSuggestions = []string{}
	}
	if r.DecisionAssist.Pros == nil {
		r.DecisionAssist.Pros = []string{}
	}
	if r.DecisionAssist.Cons == nil {
		r.DecisionAssist.Cons = []string{}
	}
}
