// Package ledger tracks provider spend: a static price table, a
// transactional usage recorder and rollup reports.
package ledger

import "github.com/lectern-ai/lectern/internal/domain"

// ModelPrice holds the billing rates for one model. Token rates are
// USD per million tokens; PerImage is USD per generated image.
type ModelPrice struct {
	InputPerMTok  float64
	OutputPerMTok float64
	PerImage      float64
}

var modelPrices = map[string]ModelPrice{
	"claude-opus-4-5-20251101":   {InputPerMTok: 15.00, OutputPerMTok: 75.00},
	"claude-sonnet-4-20250514":   {InputPerMTok: 3.00, OutputPerMTok: 15.00},
	"gemini-3-flash-preview":     {InputPerMTok: 0.10, OutputPerMTok: 0.40},
	"gemini-3-pro-image-preview": {PerImage: 0.025},
}

// PriceFor returns the price entry for a model.
func PriceFor(model string) (ModelPrice, bool) {
	price, ok := modelPrices[model]
	return price, ok
}

// Cost computes the USD cost of one provider call. Unknown models cost
// zero rather than failing the pipeline.
func Cost(model string, usage domain.Usage) float64 {
	price, ok := modelPrices[model]
	if !ok {
		return 0
	}
	return float64(usage.InputTokens)*price.InputPerMTok/1e6 +
		float64(usage.OutputTokens)*price.OutputPerMTok/1e6 +
		float64(usage.ImagesGenerated)*price.PerImage
}
