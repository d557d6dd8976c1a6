package normalizer

import (
	"sitemapcheck/internal/validator"
)

// Processor runs the repair and validation stages over a raw sitemap.
type Processor struct {
	normalize func(string) string
	validate  func(string) *validator.Result
}

// NewProcessor creates a new processor instance.
func NewProcessor() *Processor {
	return &Processor{
		normalize: Normalize,
		validate:  validator.Validate,
	}
}

// Process normalizes raw and validates the normalized text.
func (p *Processor) Process(raw string) (string, *validator.Result) {
	normalized := p.normalize(raw)

	return normalized, p.validate(normalized)
}

// ValidateOnly validates raw as-is, without repairing it first.
func (p *Processor) ValidateOnly(raw string) *validator.Result {
	return p.validate(raw)
}
