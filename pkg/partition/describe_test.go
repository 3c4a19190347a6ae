package partition

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/Azure/coverlens/pkg/coverage"
)

func TestDescribe(t *testing.T) {
	text := lines{
		"   ",
		"x := compute()",
		strings.Repeat("a", 60),
		strings.Repeat("a", 39) + strings.Repeat("é", 20),
		strings.Repeat("é", 45),
	}
	stmt := &coverage.Detail{Kind: coverage.Statement, Range: coverage.NewRange(2, 1, 2, 15),
		Branches: []coverage.BranchInfo{
			{Count: coverage.Executed(true), Label: "ok`"},
			{Count: coverage.Count(0)},
		}}

	var testSuites = []struct {
		name   string
		detail *coverage.Detail
		expect string
	}{
		{
			name:   "declaration not executed",
			detail: &coverage.Detail{Kind: coverage.Declaration, Name: "Foo.Bar", Count: coverage.Count(0)},
			expect: "`Foo.Bar` was not executed.",
		},
		{
			name:   "declaration executed boolean",
			detail: &coverage.Detail{Kind: coverage.Declaration, Name: "main", Count: coverage.Executed(true)},
			expect: "`main` was executed.",
		},
		{
			name:   "statement with count",
			detail: &coverage.Detail{Kind: coverage.Statement, Range: coverage.NewRange(2, 1, 2, 15), Count: coverage.Count(3)},
			expect: "`x := compute()` was executed 3 time(s).",
		},
		{
			name:   "blank statement",
			detail: &coverage.Detail{Kind: coverage.Statement, Range: coverage.NewRange(1, 1, 1, 4), Count: coverage.Count(0)},
			expect: "`<empty statement>` was not executed.",
		},
		{
			name:   "long statement is wrapped",
			detail: &coverage.Detail{Kind: coverage.Statement, Range: coverage.NewRange(3, 1, 3, 61), Count: coverage.Count(1)},
			expect: "`" + strings.Repeat("a", 40) + "...` was executed 1 time(s).",
		},
		{
			name:   "wrapping keeps whole runes",
			detail: &coverage.Detail{Kind: coverage.Statement, Range: coverage.NewRange(4, 1, 4, 80), Count: coverage.Count(1)},
			expect: "`" + strings.Repeat("a", 39) + "é...` was executed 1 time(s).",
		},
		{
			name:   "length counts runes",
			detail: &coverage.Detail{Kind: coverage.Statement, Range: coverage.NewRange(5, 1, 5, 91), Count: coverage.Count(1)},
			expect: "`" + strings.Repeat("é", 45) + "` was executed 1 time(s).",
		},
		{
			name:   "statement with branches",
			detail: stmt,
			expect: "1 of 2 of branches in `x := compute()` were covered.",
		},
		{
			name:   "labelled boolean branch",
			detail: &coverage.Detail{Kind: coverage.Branch, Parent: stmt, BranchIndex: 0},
			expect: "Branch `ok` in `x := compute()` was executed.",
		},
		{
			name:   "unlabelled branch",
			detail: &coverage.Detail{Kind: coverage.Branch, Parent: stmt, BranchIndex: 1},
			expect: "Branch #2 in `x := compute()` was not covered.",
		},
	}

	for _, testSuite := range testSuites {
		t.Run(testSuite.name, func(t *testing.T) {
			description := Describe(testSuite.detail, text)
			assert.Equal(t, testSuite.expect, description)
			assert.True(t, utf8.ValidString(description))
		})
	}
}
