package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseJSONLDAddress(t *testing.T) {
	tests := []struct {
		name   string
		blocks []string
		want   string
	}{
		{
			name:   "nested address object",
			blocks: []string{`{"@type":"House","address":{"streetAddress":"1 Main St","addressLocality":"Pune","postalCode":"411001"}}`},
			want:   "1 Main St, Pune, 411001",
		},
		{
			name:   "graph with postal address node",
			blocks: []string{`{"@graph":[{"@type":"WebPage"},{"@type":"PostalAddress","addressLocality":"Goa","addressRegion":"GA"}]}`},
			want:   "Goa, GA",
		},
		{
			name:   "top level array",
			blocks: []string{`[{"@type":"Organization"},{"@type":"Residence","address":"Plot 9, Whitefield"}]`},
			want:   "Plot 9, Whitefield",
		},
		{
			name:   "region as place object",
			blocks: []string{`{"address":{"addressLocality":"Austin","addressRegion":{"@type":"Place","name":"TX"}}}`},
			want:   "Austin, TX",
		},
		{
			name:   "malformed block skipped",
			blocks: []string{`{not json`, `{"address":{"addressLocality":"Delhi"}}`},
			want:   "Delhi",
		},
		{
			name:   "empty address",
			blocks: []string{`{"address":{"streetAddress":"  "}}`},
			want:   "",
		},
		{
			name:   "no blocks",
			blocks: nil,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseJSONLDAddress(tt.blocks))
		})
	}
}
