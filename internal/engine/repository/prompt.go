package repository

import (
	"fmt"
	"strings"

	"market-edge-engine/internal/engine/dto"
	"market-edge-engine/internal/entity"
)

// BuildEstimatePrompt renders the probability-estimation prompt for one
// market, with any gathered research articles inlined as context.
func BuildEstimatePrompt(market *entity.Market, articles []dto.ResearchArticle) string {
	var research strings.Builder
	if len(articles) == 0 {
		research.WriteString("No recent articles were found; rely on general knowledge and state the resulting uncertainty.\n")
	}
	for i, a := range articles {
		research.WriteString(fmt.Sprintf("%d. Title: %q\n   Source: %s\n   Published: %s\n", i+1, a.Title, a.Source, a.PublishedAt))
		if a.Content != "" {
			research.WriteString(fmt.Sprintf("   Content: %s\n", a.Content))
		}
		research.WriteString("\n")
	}

	closeInfo := "unknown"
	if market.CloseTime != nil {
		closeInfo = market.CloseTime.Format("2006-01-02")
	}

	promptTemplate := `You are a forecaster estimating the probability that a prediction-market question resolves YES.
Do not anchor on any market price; produce an independent estimate.

Question: %s
Category: %s
Market closes: %s

Recent research:
%s
Respond with JSON only, no prose outside the JSON:

{
  "probability": {0.0 - 1.0, probability the question resolves YES},
  "confidence": "high | medium | low",
  "reasoning": "{2-4 sentences explaining the estimate}",
  "evidence": ["{short factual point supporting the estimate}"],
  "uncertainties": ["{short point that could move the estimate}"]
}`

	return fmt.Sprintf(promptTemplate, market.Question, market.Category, closeInfo, research.String())
}
