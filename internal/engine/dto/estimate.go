package dto

import "market-edge-engine/internal/entity"

// EstimateResult is the parsed output of one estimator call.
type EstimateResult struct {
	Probability   float64                `json:"probability"`
	Confidence    entity.ConfidenceLevel `json:"confidence"`
	Reasoning     string                 `json:"reasoning"`
	Evidence      []string               `json:"evidence"`
	Uncertainties []string               `json:"uncertainties"`
	Model         string                 `json:"-"`
}

// ResearchArticle is one piece of gathered context fed into the estimator
// prompt.
type ResearchArticle struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
	Content     string `json:"content"`
}
