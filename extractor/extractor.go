// Package extractor resolves listing fields from a loaded page through
// ordered per-field fallback strategies.
package extractor

import (
	"github.com/use-agent/propscrape/models"
)

// Extractor runs a fixed set of fields against a page.
type Extractor struct {
	fields []Field
}

// New builds an Extractor over fields, resolved in the given order.
func New(fields ...Field) *Extractor {
	return &Extractor{fields: fields}
}

// Run resolves every field. It always returns a result; a field whose
// strategies all miss carries its default value.
func (e *Extractor) Run(p Page) *models.ExtractionResult {
	res := &models.ExtractionResult{
		Sources:  make(map[string]string, len(e.fields)),
		FinalURL: p.URL(),
	}
	for _, f := range e.fields {
		r := f.Extract(p)
		res.Listing.Set(f.Name, r.Value)
		res.Sources[f.Name] = r.Source
	}
	return res
}
