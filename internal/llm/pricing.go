package llm

import "prompt-manager/internal/domain"

// USD per 1K tokens: [prompt, completion].
var pricePer1K = map[string][2]float64{
	"gpt-4":                    {0.03, 0.06},
	"gpt-4-turbo":              {0.01, 0.03},
	"gpt-4o":                   {0.005, 0.015},
	"gpt-4o-mini":              {0.00015, 0.0006},
	"gpt-3.5-turbo":            {0.0005, 0.0015},
	"claude-3-opus-20240229":   {0.015, 0.075},
	"claude-3-sonnet-20240229": {0.003, 0.015},
	"claude-3-haiku-20240307":  {0.00025, 0.00125},
	"claude-sonnet-4-20250514": {0.003, 0.015},
	"claude-opus-4-20250514":   {0.015, 0.075},
}

// PricingFor returns nil for models without a known price.
func PricingFor(model string) *domain.Pricing {
	p, ok := pricePer1K[model]
	if !ok {
		return nil
	}
	return &domain.Pricing{
		PromptPerToken:     p[0] / 1000,
		CompletionPerToken: p[1] / 1000,
	}
}
