package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	assertion := assert.New(t)

	assertion.Equal(0.0, Percent(Counter{}), "zero total is 0, not NaN")
	assertion.Equal(0.5, Percent(Counter{Covered: 5, Total: 10}))
	assertion.Equal(1.0, Percent(Counter{Covered: 3, Total: 3}))
}

func TestDisplayPercent(t *testing.T) {
	t.Run("statement policy", func(t *testing.T) {
		stats := Statistics{Statement: Counter{Covered: 5, Total: 10}}
		assert.Equal(t, 0.5, DisplayPercent(stats, StatementOnly, DefaultWeights))
	})

	t.Run("minimum policy", func(t *testing.T) {
		stats := Statistics{
			Statement: Counter{Covered: 5, Total: 10},
			Branch:    &Counter{Covered: 1, Total: 4},
		}
		assert.Equal(t, 0.25, DisplayPercent(stats, Minimum, DefaultWeights))
	})

	t.Run("minimum ignores missing categories", func(t *testing.T) {
		stats := Statistics{Statement: Counter{Covered: 9, Total: 10}}
		assert.Equal(t, 0.9, DisplayPercent(stats, Minimum, DefaultWeights))
	})

	t.Run("total coverage is count weighted", func(t *testing.T) {
		stats := Statistics{
			Statement:   Counter{Covered: 6, Total: 10},
			Branch:      &Counter{Covered: 1, Total: 4},
			Declaration: &Counter{Covered: 1, Total: 2},
		}
		assert.InDelta(t, 8.0/16.0, DisplayPercent(stats, TotalCoverage, DefaultWeights), 1e-9)
	})

	t.Run("total coverage with custom weights", func(t *testing.T) {
		stats := Statistics{
			Statement: Counter{Covered: 10, Total: 10},
			Branch:    &Counter{Covered: 0, Total: 10},
		}
		w := Weights{Statement: 3, Branch: 1, Declaration: 1}
		assert.InDelta(t, 0.75, DisplayPercent(stats, TotalCoverage, w), 1e-9)
	})

	t.Run("total coverage of empty statistics", func(t *testing.T) {
		assert.Equal(t, 0.0, DisplayPercent(Statistics{}, TotalCoverage, DefaultWeights))
	})
}

func TestColorFor(t *testing.T) {
	var testSuites = []struct {
		percent float64
		expect  Color
	}{
		{percent: 0, expect: Red},
		{percent: 0.59, expect: Red},
		{percent: 0.6, expect: Yellow},
		{percent: 0.899, expect: Yellow},
		{percent: 0.9, expect: Green},
		{percent: 1, expect: Green},
	}

	for _, testSuite := range testSuites {
		assert.Equalf(t, testSuite.expect, ColorFor(testSuite.percent, DefaultThresholds), "percent %v", testSuite.percent)
	}

	t.Run("non zero red threshold", func(t *testing.T) {
		th := Thresholds{Red: 10, Yellow: 50, Green: 80}
		assert.Equal(t, Red, ColorFor(0.05, th))
		assert.Equal(t, Red, ColorFor(0.2, th))
		assert.Equal(t, Yellow, ColorFor(0.5, th))
	})
}

func TestThresholdsValidate(t *testing.T) {
	assertion := assert.New(t)

	assertion.NoError(DefaultThresholds.Validate())
	assertion.Error(Thresholds{Red: 0, Yellow: 95, Green: 90}.Validate())
	assertion.Error(Thresholds{Red: -1, Yellow: 50, Green: 90}.Validate())
	assertion.Error(Thresholds{Red: 0, Yellow: 50, Green: 101}.Validate())
}

func TestFormatPercent(t *testing.T) {
	assertion := assert.New(t)

	assertion.Equal("100%", FormatPercent(1))
	assertion.Equal("50.00%", FormatPercent(0.5))
	assertion.Equal("99.99%", FormatPercent(0.99999))
	assertion.Equal("0.00%", FormatPercent(0))
}

func TestComputeStatistics(t *testing.T) {
	details := []*Detail{
		{Kind: Declaration, Count: Count(1)},
		{Kind: Declaration, Count: Count(0)},
		{Kind: Statement, Count: Count(2), Branches: []BranchInfo{
			{Count: Count(2)},
			{Count: Count(0)},
		}},
		{Kind: Statement, Count: Executed(false)},
	}

	stats := ComputeStatistics(details)
	assert.Equal(t, Counter{Covered: 1, Total: 2}, stats.Statement)
	if assert.NotNil(t, stats.Branch) {
		assert.Equal(t, Counter{Covered: 1, Total: 2}, *stats.Branch)
	}
	if assert.NotNil(t, stats.Declaration) {
		assert.Equal(t, Counter{Covered: 1, Total: 2}, *stats.Declaration)
	}

	stats = ComputeStatistics([]*Detail{{Kind: Statement, Count: Count(1)}})
	assert.Nil(t, stats.Branch)
	assert.Nil(t, stats.Declaration)
}
