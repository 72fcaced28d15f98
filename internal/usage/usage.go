// Package usage resolves token counts reported by backends, estimates the
// missing ones, and formats them for display.
package usage

import (
	"fmt"
	"strings"

	"github.com/spachava753/oracle/internal/modelcatalog"
)

// EstimateMarker is appended to values that were estimated locally.
const EstimateMarker = "*"

const (
	IndexInput = iota
	IndexOutput
	IndexReasoning
	IndexTotal
)

// Usage is the token usage reported by a backend. A nil field was not reported.
type Usage struct {
	InputTokens     *int `json:"input_tokens,omitempty"`
	OutputTokens    *int `json:"output_tokens,omitempty"`
	ReasoningTokens *int `json:"reasoning_tokens,omitempty"`
	TotalTokens     *int `json:"total_tokens,omitempty"`
}

// Int returns a pointer to v, for building Usage literals.
func Int(v int) *int { return &v }

func (u *Usage) field(index int) *int {
	if u == nil {
		return nil
	}
	switch index {
	case IndexInput:
		return u.InputTokens
	case IndexOutput:
		return u.OutputTokens
	case IndexReasoning:
		return u.ReasoningTokens
	case IndexTotal:
		return u.TotalTokens
	}
	return nil
}

func (u *Usage) reported(index int) bool {
	return u.field(index) != nil
}

// Estimate holds the four usage positions with a flag for each estimated value.
type Estimate struct {
	Values    [4]int  `json:"values"`
	Estimated [4]bool `json:"estimated"`
}

// Input returns the resolved input token count.
func (e Estimate) Input() int { return e.Values[IndexInput] }

// Output returns the resolved output token count.
func (e Estimate) Output() int { return e.Values[IndexOutput] }

// Resolve fills every position of u, counting prompt and answer with tok for
// the positions the backend did not report.
func Resolve(u *Usage, tok modelcatalog.TokenizerFunc, prompt, answer string) Estimate {
	if tok == nil {
		tok = modelcatalog.HeuristicTokens
	}
	var e Estimate
	for i := range e.Values {
		if v := u.field(i); v != nil {
			e.Values[i] = *v
			continue
		}
		e.Estimated[i] = true
		switch i {
		case IndexInput:
			e.Values[i] = tok(prompt)
		case IndexOutput:
			e.Values[i] = tok(answer)
		case IndexReasoning:
			e.Values[i] = 0
		case IndexTotal:
			e.Values[i] = e.Values[IndexInput] + e.Values[IndexOutput] + e.Values[IndexReasoning]
		}
	}
	return e
}

// Cost returns the USD cost of e under pricing; ok is false when the price is unknown.
func Cost(pricing *modelcatalog.Pricing, e Estimate) (cost float64, ok bool) {
	if pricing == nil {
		return 0, false
	}
	return float64(e.Input())*pricing.InputPerToken + float64(e.Output())*pricing.OutputPerToken, true
}

// FormatUsageLine renders a one-line usage summary such as
// "gpt-5.1: 4.2k in · 512 out · 0* reasoning · 4.7k total · $0.01".
func FormatUsageLine(model string, e Estimate, pricing *modelcatalog.Pricing) string {
	labels := [4]string{"in", "out", "reasoning", "total"}
	parts := make([]string, 0, 5)
	for i, label := range labels {
		text := FormatTokenEstimate(e.Values[i])
		if e.Estimated[i] {
			text += EstimateMarker
		}
		parts = append(parts, text+" "+label)
	}
	if cost, ok := Cost(pricing, e); ok {
		parts = append(parts, fmt.Sprintf("$%.2f", cost))
	} else {
		parts = append(parts, "cost n/a")
	}
	return model + ": " + strings.Join(parts, " · ")
}
