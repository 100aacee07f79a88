package ai

import (
	"fmt"
	"strings"

	"github.com/predictos/predictbot/internal/domain"
)

// defaultQuestion is asked when the caller supplies none.
const defaultQuestion = "Should I buy YES or NO on this prediction market?"

// BuildAnalysisPrompt renders the market snapshot into the analysis prompt.
// The model is instructed to answer with the exact JSON shape of
// domain.Analysis.
func BuildAnalysisPrompt(market domain.Market, question string) string {
	if question == "" {
		question = defaultQuestion
	}

	var outcomes strings.Builder
	for _, o := range market.Outcomes {
		fmt.Fprintf(&outcomes, "  - %s: $%.4f\n", o.Label, o.Price)
	}

	return fmt.Sprintf(`You are an expert prediction market analyst. Analyze the following market data and provide a recommendation.

Market Question: %s
Platform: %s
Volume: %.2f

Outcomes:
%s
User Question: %s

Provide your analysis in the following JSON format:
{
  "recommendation": "BUY_YES" | "BUY_NO" | "NO_TRADE",
  "confidence": 0.0-1.0,
  "reasoning": "Detailed explanation of your analysis",
  "key_factors": ["factor1", "factor2", ...]
}

Be concise but thorough. Focus on market dynamics, liquidity, and value opportunities.`,
		market.Question,
		market.Platform,
		market.Volume,
		outcomes.String(),
		question,
	)
}
