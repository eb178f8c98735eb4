package extractor

import (
	"fmt"
	"log/slog"
	"strings"
)

// SourceDefault is the Resolution.Source reported when every strategy missed.
const SourceDefault = "default"

// Strategy is one technique for reading a field from a page. A strategy
// misses when Run returns an error or a blank value.
type Strategy struct {
	Name string
	Run  func(p Page) (string, error)
}

// attempt runs the strategy, converting a panic into a miss.
func (s Strategy) attempt(p Page) (value string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy %s panicked: %v", s.Name, r)
		}
	}()
	return s.Run(p)
}

// Field resolves one output value through an ordered strategy list.
type Field struct {
	Name       string
	Strategies []Strategy
	Default    string
}

// Resolution is the outcome of Field.Extract.
type Resolution struct {
	Value  string
	Source string // strategy name, or SourceDefault
}

// Extract returns the first non-blank value produced by the strategies, in
// order, and never runs a strategy after one has succeeded. It never fails:
// when every strategy misses it returns the field's Default.
func (f Field) Extract(p Page) Resolution {
	for _, s := range f.Strategies {
		v, err := s.attempt(p)
		if err == nil {
			if v = strings.TrimSpace(v); v != "" {
				return Resolution{Value: v, Source: s.Name}
			}
		}
		slog.Debug("strategy missed",
			"field", f.Name,
			"strategy", s.Name,
			"error", err,
		)
	}
	return Resolution{Value: f.Default, Source: SourceDefault}
}
