package coverage

import (
	"fmt"
	"math"
)

// Counter holds covered and total counts of one category.
type Counter struct {
	Covered int `json:"covered" yaml:"covered"`
	Total   int `json:"total" yaml:"total"`
}

// Statistics is the coverage summary of a file. Branch and Declaration are
// nil when the provider does not report them.
type Statistics struct {
	Statement   Counter
	Branch      *Counter
	Declaration *Counter
}

// DisplayPolicy selects which number is shown as "the" coverage of a file.
type DisplayPolicy string

const (
	TotalCoverage DisplayPolicy = "totalCoverage"
	StatementOnly DisplayPolicy = "statement"
	Minimum       DisplayPolicy = "minimum"
)

// Validate checks the policy is one of the known values.
func (p DisplayPolicy) Validate() error {
	switch p {
	case TotalCoverage, StatementOnly, Minimum:
		return nil
	}
	return fmt.Errorf("unknown displayed coverage percent %q", string(p))
}

// Weights scales each category in the TotalCoverage policy.
type Weights struct {
	Statement   float64 `mapstructure:"statement" yaml:"statement"`
	Branch      float64 `mapstructure:"branch" yaml:"branch"`
	Declaration float64 `mapstructure:"declaration" yaml:"declaration"`
}

// DefaultWeights counts every covered item once, so the category with the
// most items (statements) dominates.
var DefaultWeights = Weights{Statement: 1, Branch: 1, Declaration: 1}

// Thresholds are the lower bounds, in percentage points, of each color bucket.
type Thresholds struct {
	Red    float64 `mapstructure:"red" yaml:"red"`
	Yellow float64 `mapstructure:"yellow" yaml:"yellow"`
	Green  float64 `mapstructure:"green" yaml:"green"`
}

var DefaultThresholds = Thresholds{Red: 0, Yellow: 60, Green: 90}

// Validate checks the thresholds are ascending and inside [0, 100].
func (t Thresholds) Validate() error {
	for _, v := range []float64{t.Red, t.Yellow, t.Green} {
		if v < 0 || v > 100 {
			return fmt.Errorf("coverage bar threshold %v out of range [0, 100]", v)
		}
	}
	if t.Red > t.Yellow || t.Yellow > t.Green {
		return fmt.Errorf("coverage bar thresholds must be ascending, got red=%v yellow=%v green=%v", t.Red, t.Yellow, t.Green)
	}
	return nil
}

// Color is a coverage color bucket.
type Color string

const (
	Red    Color = "red"
	Yellow Color = "yellow"
	Green  Color = "green"
)

// Percent returns the covered fraction of c in [0, 1], and 0 when c is empty.
func Percent(c Counter) float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Covered) / float64(c.Total)
}

// DisplayPercent computes the fraction shown for the statistics under the policy.
func DisplayPercent(s Statistics, policy DisplayPolicy, w Weights) float64 {
	switch policy {
	case StatementOnly:
		return Percent(s.Statement)
	case Minimum:
		value := Percent(s.Statement)
		if s.Branch != nil {
			value = math.Min(value, Percent(*s.Branch))
		}
		if s.Declaration != nil {
			value = math.Min(value, Percent(*s.Declaration))
		}
		return value
	default:
		return totalPercent(s, w)
	}
}

func totalPercent(s Statistics, w Weights) float64 {
	covered := w.Statement * float64(s.Statement.Covered)
	total := w.Statement * float64(s.Statement.Total)
	if s.Branch != nil {
		covered += w.Branch * float64(s.Branch.Covered)
		total += w.Branch * float64(s.Branch.Total)
	}
	if s.Declaration != nil {
		covered += w.Declaration * float64(s.Declaration.Covered)
		total += w.Declaration * float64(s.Declaration.Total)
	}
	if total == 0 {
		return 0
	}
	return covered / total
}

// ColorFor picks the bucket whose threshold is the closest one at or below
// the percent. Zero thresholds are skipped, so anything below yellow is red.
func ColorFor(percent float64, t Thresholds) Color {
	pct := percent * 100
	best := Red
	distance := pct
	for _, bucket := range []struct {
		color     Color
		threshold float64
	}{
		{Red, t.Red},
		{Yellow, t.Yellow},
		{Green, t.Green},
	} {
		if bucket.threshold != 0 && pct >= bucket.threshold && pct-bucket.threshold < distance {
			best = bucket.color
			distance = pct - bucket.threshold
		}
	}
	return best
}

// FormatPercent renders a fraction as a percentage. Values just below one
// never round up to 100%.
func FormatPercent(percent float64) string {
	if percent >= 1 {
		return "100%"
	}
	s := fmt.Sprintf("%.2f", percent*100)
	if s == "100.00" {
		s = "99.99"
	}
	return s + "%"
}

// ComputeStatistics derives statistics from a detail set. Branches are
// counted from the statements that carry them.
func ComputeStatistics(details []*Detail) Statistics {
	var (
		stats       Statistics
		branch      Counter
		declaration Counter
		hasBranch   bool
		hasDecl     bool
	)
	for _, d := range details {
		switch d.Kind {
		case Statement:
			stats.Statement.Total++
			if d.Count.Hit() {
				stats.Statement.Covered++
			}
			for _, b := range d.Branches {
				hasBranch = true
				branch.Total++
				if b.Count.Hit() {
					branch.Covered++
				}
			}
		case Declaration:
			hasDecl = true
			declaration.Total++
			if d.Count.Hit() {
				declaration.Covered++
			}
		}
	}
	if hasBranch {
		stats.Branch = &branch
	}
	if hasDecl {
		stats.Declaration = &declaration
	}
	return stats
}
