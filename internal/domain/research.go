package domain

// Citation is a single source backing a research answer.
type Citation struct {
	Source    string  `json:"source"`
	URL       string  `json:"url,omitempty"`
	Relevance float64 `json:"relevance"`
}

// ResearchResult is the answer returned by the research API for a free-form
// query about a market's underlying event.
type ResearchResult struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}
