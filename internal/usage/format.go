package usage

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatTokenEstimate abbreviates values of 1000 and above to one floored
// decimal with a "k" suffix (4252 -> "4.2k", 1000 -> "1k"). Smaller values
// are rendered with locale digit grouping.
func FormatTokenEstimate(value int) string {
	if value >= 1000 {
		abbreviated := math.Floor(float64(value)/100) / 10
		text := strconv.FormatFloat(abbreviated, 'f', 1, 64)
		return strings.TrimSuffix(text, ".0") + "k"
	}
	return group(value)
}

// FormatTokenValue renders value with locale grouping and appends "*" when
// the usage field at index was not reported by the backend.
// Indexes: 0 input, 1 output, 2 reasoning, 3 total.
func FormatTokenValue(value int, u *Usage, index int) string {
	text := group(value)
	if !u.reported(index) {
		return text + EstimateMarker
	}
	return text
}

func group(value int) string {
	return printer.Sprintf("%d", value)
}
