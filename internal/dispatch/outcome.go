package dispatch

import (
	"fmt"
	"time"

	"github.com/spachava753/oracle/internal/modelcatalog"
	"github.com/spachava753/oracle/internal/usage"
)

// Outcome is the settled result of one model. It is either Fulfilled or Rejected.
type Outcome interface {
	ModelName() string
	isOutcome()
}

// Fulfilled is a model that produced an answer.
type Fulfilled struct {
	Model  string
	Answer string
	// Usage holds only what the backend reported.
	Usage usage.Usage
	// Estimate fills the positions Usage left empty.
	Estimate usage.Estimate
	Pricing  *modelcatalog.Pricing
	Elapsed  time.Duration
}

// Rejected is a model that failed. Reason is the raw failure text; it is
// never interpreted here.
type Rejected struct {
	Model  string
	Reason string
}

func (f Fulfilled) ModelName() string { return f.Model }
func (Fulfilled) isOutcome()          {}

func (r Rejected) ModelName() string { return r.Model }
func (Rejected) isOutcome()          {}

// Match calls exactly one of the handlers for o.
func Match[T any](o Outcome, onFulfilled func(Fulfilled) T, onRejected func(Rejected) T) T {
	switch v := o.(type) {
	case Fulfilled:
		return onFulfilled(v)
	case Rejected:
		return onRejected(v)
	}
	panic(fmt.Sprintf("dispatch: unexpected outcome type %T", o))
}

// Summary aggregates the outcomes of a run. Both lists follow the requested
// model order, whatever order the models settled in.
type Summary struct {
	Fulfilled []Fulfilled
	Rejected  []Rejected

	outcomes []Outcome
}

// NewSummary splits outcomes, given in requested order.
func NewSummary(outcomes ...Outcome) Summary {
	s := Summary{outcomes: outcomes}
	for _, o := range outcomes {
		Match(o,
			func(f Fulfilled) struct{} { s.Fulfilled = append(s.Fulfilled, f); return struct{}{} },
			func(r Rejected) struct{} { s.Rejected = append(s.Rejected, r); return struct{}{} },
		)
	}
	return s
}

// Outcomes returns every outcome in requested order.
func (s Summary) Outcomes() []Outcome {
	out := make([]Outcome, len(s.outcomes))
	copy(out, s.outcomes)
	return out
}

// AllRejected reports whether no model produced an answer.
func (s Summary) AllRejected() bool {
	return len(s.Fulfilled) == 0
}
