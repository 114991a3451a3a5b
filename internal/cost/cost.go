// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cost estimates the price of a query from its token usage.
package cost

import (
	"fmt"
	"strings"

	"github.com/pdiddy/gemini-file-search-tool/pkg/types"
)

// Price is the USD cost per million tokens.
type Price struct {
	Input  float64
	Output float64
}

// Prices holds the published per-million-token prices. Versioned model
// names ("gemini-2.5-flash-001") use the entry whose key is their prefix.
var Prices = map[string]Price{
	types.ModelFlash: {Input: 0.075, Output: 0.30},
	types.ModelPro:   {Input: 1.25, Output: 5.00},
}

const note = "Estimated cost based on current pricing. Subject to change."

// Estimate prices usage for model. It returns nil when usage is nil and an
// error for a model with no known price.
func Estimate(usage *types.UsageMetadata, model string) (*types.CostEstimate, error) {
	if usage == nil {
		return nil, nil
	}
	key, price, err := lookup(model)
	if err != nil {
		return nil, err
	}
	in := float64(usage.PromptTokenCount) / 1_000_000 * price.Input
	out := float64(usage.CandidatesTokenCount) / 1_000_000 * price.Output
	return &types.CostEstimate{
		InputCostUSD:  in,
		OutputCostUSD: out,
		TotalCostUSD:  in + out,
		Currency:      "USD",
		Model:         key,
		Note:          note,
	}, nil
}

func lookup(model string) (string, Price, error) {
	if p, ok := Prices[model]; ok {
		return model, p, nil
	}
	best := ""
	for key := range Prices {
		if strings.HasPrefix(model, key) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return "", Price{}, fmt.Errorf("unknown model %q: supported models: %s, %s", model, types.ModelFlash, types.ModelPro)
	}
	return best, Prices[best], nil
}
