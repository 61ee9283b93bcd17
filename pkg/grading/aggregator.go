package grading

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Policy selects how graded entries are combined into a final percentage.
type Policy string

const (
	// PolicyAuto uses weighted aggregation when any entry carries a weight, else a simple average.
	PolicyAuto Policy = "auto"
	// PolicyWeighted sums per-assessment percentages scaled by their weight.
	PolicyWeighted Policy = "weighted"
	// PolicyAverage averages per-assessment percentages ignoring weights.
	PolicyAverage Policy = "average"
)

// ErrNoEntries is returned when nothing gradable remains to aggregate.
var ErrNoEntries = errors.New("grading: no gradable entries")

// Entry is one graded assessment as seen by the aggregator.
type Entry struct {
	ObtainedMarks float64
	TotalMarks    float64
	// Weight is the percentage share of the course grade; nil means unweighted.
	Weight *float64
}

// Percentage returns the entry score scaled to 0..100 of its total.
func (e Entry) Percentage() float64 {
	return e.ObtainedMarks / e.TotalMarks * 100
}

// ParsePolicy maps configuration text to a Policy. Empty input yields PolicyAuto.
func ParsePolicy(raw string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyAuto:
		return PolicyAuto, nil
	case PolicyWeighted:
		return PolicyWeighted, nil
	case PolicyAverage:
		return PolicyAverage, nil
	default:
		return "", fmt.Errorf("grading: unknown aggregation policy %q", raw)
	}
}

// Aggregator combines graded entries under a single policy.
type Aggregator struct {
	policy Policy
}

// NewAggregator constructs an Aggregator. An empty policy behaves as PolicyAuto.
func NewAggregator(policy Policy) *Aggregator {
	if policy == "" {
		policy = PolicyAuto
	}
	return &Aggregator{policy: policy}
}

// Policy reports the configured policy.
func (a *Aggregator) Policy() Policy {
	return a.policy
}

// Aggregate computes the unrounded final percentage for the entries.
// Entries whose TotalMarks is not positive are dropped first.
func (a *Aggregator) Aggregate(entries []Entry) (float64, error) {
	usable := Usable(entries)
	if len(usable) == 0 {
		return 0, ErrNoEntries
	}

	switch a.modeFor(usable) {
	case PolicyWeighted:
		return weighted(usable), nil
	default:
		return average(usable), nil
	}
}

// Mode returns the policy that Aggregate would apply to entries.
func (a *Aggregator) Mode(entries []Entry) Policy {
	return a.modeFor(Usable(entries))
}

func (a *Aggregator) modeFor(entries []Entry) Policy {
	if a.policy != PolicyAuto {
		return a.policy
	}
	for _, e := range entries {
		if e.Weight != nil {
			return PolicyWeighted
		}
	}
	return PolicyAverage
}

// Usable filters out entries that cannot be scored.
func Usable(entries []Entry) []Entry {
	usable := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.TotalMarks > 0 {
			usable = append(usable, e)
		}
	}
	return usable
}

func weighted(entries []Entry) float64 {
	var sum, totalWeight float64
	for _, e := range entries {
		w := 0.0
		if e.Weight != nil {
			w = *e.Weight
		}
		sum += e.Percentage() * w / 100
		totalWeight += w
	}
	if totalWeight <= 0 {
		return 0
	}
	return sum
}

func average(entries []Entry) float64 {
	var sum float64
	for _, e := range entries {
		sum += e.Percentage()
	}
	return sum / float64(len(entries))
}

// Round2 rounds half away from zero to two decimals, the stored precision of results.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
