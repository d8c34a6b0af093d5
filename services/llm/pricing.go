package llm

// Token prices in USD per 1000 tokens.
var pricing = map[string]struct{ input, output float64 }{
	"models/gemini-1.5-pro":     {input: 0.00125, output: 0.005},
	"models/gemini-1.5-flash":   {input: 0.000075, output: 0.0003},
	"models/text-embedding-004": {input: 0.0, output: 0.0},
}

// Cost computes the USD cost of an invocation. Unknown models cost zero.
func Cost(model string, promptTokens, completionTokens int) float64 {
	p, ok := pricing[model]
	if !ok {
		return 0
	}
	return (float64(promptTokens)*p.input + float64(completionTokens)*p.output) / 1000
}
