package grading

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Status is the pass/fail outcome of a result.
type Status string

const (
	StatusPass Status = "Pass"
	StatusFail Status = "Fail"
)

// DefaultPassMark is the minimum percentage for a Pass.
const DefaultPassMark = 50.0

// FailGrade is assigned when no boundary matches.
const FailGrade = "F"

// Boundary maps an inclusive lower percentage bound to a letter grade.
type Boundary struct {
	Min   float64
	Grade string
}

// StandardBoundaries is the canonical grade table.
var StandardBoundaries = []Boundary{
	{Min: 85, Grade: "A"},
	{Min: 80, Grade: "A-"},
	{Min: 75, Grade: "B+"},
	{Min: 70, Grade: "B"},
	{Min: 65, Grade: "B-"},
	{Min: 60, Grade: "C+"},
	{Min: 55, Grade: "C"},
	{Min: 50, Grade: "C-"},
	{Min: 45, Grade: "D"},
}

// LegacyBoundaries is the stricter table formerly used by single-enrollment calculation.
var LegacyBoundaries = []Boundary{
	{Min: 85, Grade: "A"},
	{Min: 80, Grade: "A-"},
	{Min: 75, Grade: "B+"},
	{Min: 70, Grade: "B"},
	{Min: 65, Grade: "B-"},
	{Min: 61, Grade: "C+"},
	{Min: 58, Grade: "C"},
	{Min: 55, Grade: "C-"},
	{Min: 50, Grade: "D"},
}

// Classification is the letter grade and status for a percentage.
type Classification struct {
	Grade  string
	Status Status
}

// Classifier maps percentages onto an ordered boundary table.
type Classifier struct {
	boundaries []Boundary
	passMark   float64
}

// NewClassifier builds a classifier. Boundaries are sorted descending by Min;
// a nil table falls back to StandardBoundaries and a non-positive pass mark to DefaultPassMark.
func NewClassifier(boundaries []Boundary, passMark float64) *Classifier {
	if len(boundaries) == 0 {
		boundaries = StandardBoundaries
	}
	sorted := make([]Boundary, len(boundaries))
	for i, b := range boundaries {
		sorted[i] = Boundary{Min: b.Min, Grade: Normalize(b.Grade)}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Min > sorted[j].Min })
	if passMark <= 0 {
		passMark = DefaultPassMark
	}
	return &Classifier{boundaries: sorted, passMark: passMark}
}

// Classify returns the first grade whose lower bound the percentage reaches.
func (c *Classifier) Classify(percentage float64) Classification {
	return Classification{Grade: c.Grade(percentage), Status: c.Status(percentage)}
}

// Grade returns only the letter grade.
func (c *Classifier) Grade(percentage float64) string {
	if math.IsNaN(percentage) {
		return FailGrade
	}
	for _, b := range c.boundaries {
		if percentage >= b.Min {
			return b.Grade
		}
	}
	return FailGrade
}

// Status returns Pass iff percentage reaches the pass mark.
func (c *Classifier) Status(percentage float64) Status {
	if percentage >= c.passMark {
		return StatusPass
	}
	return StatusFail
}

// Boundaries returns a copy of the active table, highest bound first.
func (c *Classifier) Boundaries() []Boundary {
	out := make([]Boundary, len(c.boundaries))
	copy(out, c.boundaries)
	return out
}

// Normalize trims padding left by fixed-width storage columns.
func Normalize(grade string) string {
	return strings.TrimSpace(grade)
}

// Preset returns a named boundary table.
func Preset(name string) ([]Boundary, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "standard":
		return StandardBoundaries, nil
	case "legacy":
		return LegacyBoundaries, nil
	default:
		return nil, fmt.Errorf("grading: unknown grade table %q", name)
	}
}

// ParseBoundaries reads a table such as "A:85,A-:80,B:70". An entry with a
// zero bound for the fail grade is accepted and ignored.
func ParseBoundaries(raw string) ([]Boundary, error) {
	var boundaries []Boundary
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.LastIndex(part, ":")
		if idx <= 0 || idx == len(part)-1 {
			return nil, fmt.Errorf("grading: malformed boundary %q", part)
		}
		grade := Normalize(part[:idx])
		min, err := strconv.ParseFloat(strings.TrimSpace(part[idx+1:]), 64)
		if err != nil {
			return nil, fmt.Errorf("grading: boundary %q: %w", part, err)
		}
		if min < 0 || min > 100 {
			return nil, fmt.Errorf("grading: boundary %q out of range", part)
		}
		if grade == FailGrade && min == 0 {
			continue
		}
		if seen[grade] {
			return nil, fmt.Errorf("grading: duplicate grade %q", grade)
		}
		seen[grade] = true
		boundaries = append(boundaries, Boundary{Min: min, Grade: grade})
	}
	if len(boundaries) == 0 {
		return nil, fmt.Errorf("grading: empty boundary table")
	}
	return boundaries, nil
}
