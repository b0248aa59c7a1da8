package llm

// price is USD per million tokens.
type price struct {
	in, out float64
}

// Per-million-token list prices for the models the aliases resolve to and
// their common neighbours.
var prices = map[string]price{
	"claude-haiku-4-5-20251001":  {1, 5},
	"claude-haiku-4-5":           {1, 5},
	"claude-sonnet-4-5-20250929": {3, 15},
	"claude-sonnet-4-5":          {3, 15},
	"gpt-4o-mini":                {0.15, 0.6},
	"gpt-4o":                     {2.5, 10},
	"gpt-4.1-mini":               {0.4, 1.6},
	"gpt-5-mini":                 {0.25, 2},
	"gemini-2.5-flash":           {0.3, 2.5},
	"gemini-2.5-flash-lite":      {0.1, 0.4},
	"gemini-2.5-pro":             {1.25, 10},
}

// EstimateCost returns the USD cost of a request, or false for models
// without a known price.
func EstimateCost(model string, inputTokens, outputTokens int) (float64, bool) {
	p, ok := prices[model]
	if !ok {
		return 0, false
	}
	return (float64(inputTokens)*p.in + float64(outputTokens)*p.out) / 1e6, true
}
