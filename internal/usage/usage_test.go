package usage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spachava753/oracle/internal/modelcatalog"
)

func TestFormatTokenEstimate(t *testing.T) {
	tests := []struct {
		value int
		want  string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1k"},
		{1099, "1k"},
		{4252, "4.2k"},
		{12345, "12.3k"},
		{196000, "196k"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTokenEstimate(tt.value))
		})
	}
}

func TestFormatTokenValue(t *testing.T) {
	u := &Usage{OutputTokens: Int(1200), TotalTokens: Int(5000)}

	assert.Equal(t, "4,252*", FormatTokenValue(4252, u, IndexInput), "missing input must be marked")
	assert.Equal(t, "1,200", FormatTokenValue(1200, u, IndexOutput))
	assert.Equal(t, "0*", FormatTokenValue(0, u, IndexReasoning))
	assert.Equal(t, "5,000", FormatTokenValue(5000, u, IndexTotal))

	withInput := &Usage{InputTokens: Int(10)}
	assert.Equal(t, "10", FormatTokenValue(10, withInput, IndexInput), "present input must not be marked")

	assert.Equal(t, "7*", FormatTokenValue(7, nil, IndexInput), "nil usage marks every position")
}

func TestResolve(t *testing.T) {
	tok := func(s string) int { return len(s) }

	t.Run("all reported", func(t *testing.T) {
		u := &Usage{InputTokens: Int(1), OutputTokens: Int(2), ReasoningTokens: Int(3), TotalTokens: Int(6)}
		e := Resolve(u, tok, "prompt", "answer")
		assert.Equal(t, [4]int{1, 2, 3, 6}, e.Values)
		assert.Equal(t, [4]bool{}, e.Estimated)
	})

	t.Run("nothing reported", func(t *testing.T) {
		e := Resolve(nil, tok, "abcd", "xy")
		assert.Equal(t, [4]int{4, 2, 0, 6}, e.Values)
		assert.Equal(t, [4]bool{true, true, true, true}, e.Estimated)
	})

	t.Run("partial", func(t *testing.T) {
		u := &Usage{InputTokens: Int(100)}
		e := Resolve(u, tok, "ignored", "xyz")
		assert.Equal(t, 100, e.Input())
		assert.Equal(t, 3, e.Output())
		assert.Equal(t, 103, e.Values[IndexTotal])
		assert.Equal(t, [4]bool{false, true, true, true}, e.Estimated)
	})
}

func TestCost(t *testing.T) {
	e := Estimate{Values: [4]int{1_000_000, 100_000, 0, 1_100_000}}
	cost, ok := Cost(&modelcatalog.Pricing{InputPerToken: 15.0 / 1_000_000, OutputPerToken: 120.0 / 1_000_000}, e)
	assert.True(t, ok)
	assert.InDelta(t, 27.0, cost, 1e-9)

	_, ok = Cost(nil, e)
	assert.False(t, ok)
}

func TestFormatUsageLine(t *testing.T) {
	e := Estimate{
		Values:    [4]int{4252, 512, 0, 4764},
		Estimated: [4]bool{false, false, true, false},
	}
	line := FormatUsageLine("gpt-5.1", e, &modelcatalog.Pricing{InputPerToken: 1.25 / 1_000_000, OutputPerToken: 10.0 / 1_000_000})
	assert.True(t, strings.HasPrefix(line, "gpt-5.1: 4.2k in · 512 out · 0* reasoning · 4.7k total · $"), line)

	noPrice := FormatUsageLine("claude-4.1-opus", e, nil)
	assert.True(t, strings.HasSuffix(noPrice, "cost n/a"), noPrice)
}
