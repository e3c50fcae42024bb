package metering

import "strings"

// modelPrice holds USD prices per million tokens for one model.
type modelPrice struct {
	input  float64
	output float64
}

// modelPrices lists published provider rates. Models not in the table,
// local Ollama models in particular, cost zero.
var modelPrices = map[string]modelPrice{
	"text-embedding-3-small": {input: 0.02},
	"text-embedding-3-large": {input: 0.13},
	"claude-sonnet-4-5":      {input: 3.00, output: 15.00},
	"claude-haiku-4-5":       {input: 1.00, output: 5.00},
	"claude-opus-4-1":        {input: 15.00, output: 75.00},
	"gpt-4o":                 {input: 2.50, output: 10.00},
	"gpt-4o-mini":            {input: 0.15, output: 0.60},
}

// Cost computes the USD cost of a call against a model. Dated aliases
// like claude-sonnet-4-5-20250929 match their base entry.
func Cost(model string, inputUnits, outputUnits int) float64 {
	p, ok := modelPrices[model]
	if !ok {
		p, ok = prefixPrice(model)
	}
	if !ok {
		return 0
	}

	const million = 1_000_000
	return float64(inputUnits)*p.input/million + float64(outputUnits)*p.output/million
}

// prefixPrice matches a model against table entries by prefix, so
// versioned model names inherit the base model's rate. The longest
// prefix wins: gpt-4o-mini-2024-07-18 must not match gpt-4o.
func prefixPrice(model string) (modelPrice, bool) {
	var (
		best    modelPrice
		bestLen = -1
	)
	for name, p := range modelPrices {
		if strings.HasPrefix(model, name+"-") && len(name) > bestLen {
			best = p
			bestLen = len(name)
		}
	}
	return best, bestLen >= 0
}
