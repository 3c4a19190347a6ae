package partition

import (
	"fmt"
	"strings"

	"github.com/Azure/coverlens/pkg/coverage"
)

const (
	maxNameLength     = 50
	wrappedNameLength = 40
	emptyStatement    = "<empty statement>"
)

// TextSource gives access to the text of a document.
type TextSource interface {
	ValueInRange(r coverage.Range) string
}

// Describe returns the markdown hover message of a detail.
func Describe(d *coverage.Detail, text TextSource) string {
	switch d.Kind {
	case coverage.Declaration:
		return executedLabel(backticks(d.Name), d.Count)
	case coverage.Statement:
		code := wrapName(sourceText(text, d.Range))
		if len(d.Branches) > 0 {
			covered := 0
			for _, b := range d.Branches {
				if b.Count.Hit() {
					covered++
				}
			}
			return fmt.Sprintf("%d of %d of branches in %s were covered.", covered, len(d.Branches), code)
		}
		return executedLabel(code, d.Count)
	case coverage.Branch:
		return describeBranch(d, text)
	}
	return ""
}

func describeBranch(d *coverage.Detail, text TextSource) string {
	parent := d.Parent
	if parent == nil || d.BranchIndex < 0 || d.BranchIndex >= len(parent.Branches) {
		return executedLabel(backticks(d.Name), d.Count)
	}

	code := wrapName(sourceText(text, parent.Range))
	branch := parent.Branches[d.BranchIndex]
	label := fmt.Sprintf("#%d", d.BranchIndex+1)
	if branch.Label != "" {
		label = backticks(branch.Label)
	}

	switch {
	case !branch.Count.Hit():
		return fmt.Sprintf("Branch %s in %s was not covered.", label, code)
	case branch.Count.Boolean:
		return fmt.Sprintf("Branch %s in %s was executed.", label, code)
	default:
		return fmt.Sprintf("Branch %s in %s was executed %d time(s).", label, code, branch.Count.Value)
	}
}

func executedLabel(name string, count coverage.HitCount) string {
	switch {
	case !count.Hit():
		return fmt.Sprintf("%s was not executed.", name)
	case count.IsNumeric():
		return fmt.Sprintf("%s was executed %d time(s).", name, count.Value)
	default:
		return fmt.Sprintf("%s was executed.", name)
	}
}

func sourceText(text TextSource, r coverage.Range) string {
	if text == nil {
		return emptyStatement
	}
	s := strings.TrimSpace(text.ValueInRange(r))
	if s == "" {
		return emptyStatement
	}
	return s
}

func wrapName(name string) string {
	if runes := []rune(name); len(runes) > maxNameLength {
		name = string(runes[:wrappedNameLength]) + "..."
	}
	return backticks(name)
}

var backtickReplacer = strings.NewReplacer("\n", "", "\r", "", "`", "")

func backticks(s string) string {
	return "`" + backtickReplacer.Replace(s) + "`"
}
