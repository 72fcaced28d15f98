package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spachava753/oracle/internal/classify"
	"github.com/spachava753/oracle/internal/dispatch"
	"github.com/spachava753/oracle/internal/render"
	"github.com/spachava753/oracle/internal/usage"
)

// PrintSummary writes answers to stdout in requested model order, headed by
// the model name when more than one model ran. Usage lines and rejections go
// to stderr.
func PrintSummary(stdout, stderr io.Writer, s dispatch.Summary) {
	outStyles := render.NewStyles(stdout)
	errStyles := render.NewStyles(stderr)
	outcomes := s.Outcomes()
	multi := len(outcomes) > 1

	printed := 0
	for _, o := range outcomes {
		dispatch.Match(o,
			func(f dispatch.Fulfilled) struct{} {
				if multi {
					if printed > 0 {
						fmt.Fprintln(stdout)
					}
					fmt.Fprintln(stdout, outStyles.Header.Render("## "+f.Model))
					fmt.Fprintln(stdout)
				}
				printed++
				fmt.Fprintln(stdout, strings.TrimRight(f.Answer, "\n"))
				fmt.Fprintln(stderr, errStyles.Muted.Render(usage.FormatUsageLine(f.Model, f.Estimate, f.Pricing)))
				return struct{}{}
			},
			func(r dispatch.Rejected) struct{} {
				fmt.Fprintln(stderr, formatRejection(errStyles, r.Model, r.Reason))
				return struct{}{}
			},
		)
	}
}

// formatRejection tags reason with its classification and a hint when one applies.
func formatRejection(st render.Styles, model, reason string) string {
	kind := classify.Classify(reason)
	line := st.Fail.Render("✗ " + model + " failed")
	if kind != classify.KindOther {
		line += fmt.Sprintf(" [%s]", kind)
	}
	line += ": " + reason
	if hint := classify.Hint(kind); hint != "" {
		line += "\n  hint: " + hint
	}
	return line
}
