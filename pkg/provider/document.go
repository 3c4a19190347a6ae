package provider

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/Azure/coverlens/pkg/coverage"
)

// Document is a coverage-detail document. JSON documents decode as well,
// JSON being a subset of YAML.
//
//	files:
//	  - path: pkg/a.go
//	    details:
//	      - kind: declaration
//	        name: Run
//	        range: "3:1-9:2"
//	        count: 2
//	      - kind: statement
//	        range: "4:2"          # a position covers the rest of its line
//	        count: true
//	        branches:
//	          - label: then
//	            location: "4:12-6:3"
//	            count: 0
//	    tests:
//	      TestRun:
//	        - kind: statement
//	          range: "4:2-4:20"
//	          count: 1
type Document struct {
	Files []DocumentFile `yaml:"files" json:"files"`
}

// DocumentFile is the coverage of one source file.
type DocumentFile struct {
	// Path is a file URI, an absolute path or a path relative to the document.
	Path    string                      `yaml:"path" json:"path"`
	Details []DocumentDetail            `yaml:"details" json:"details"`
	Tests   map[string][]DocumentDetail `yaml:"tests,omitempty" json:"tests,omitempty"`
}

// DocumentDetail is one detail of a document.
type DocumentDetail struct {
	Kind     string           `yaml:"kind" json:"kind"`
	Name     string           `yaml:"name,omitempty" json:"name,omitempty"`
	Range    string           `yaml:"range" json:"range"`
	Count    DocumentCount    `yaml:"count" json:"count"`
	Branches []DocumentBranch `yaml:"branches,omitempty" json:"branches,omitempty"`
}

// DocumentBranch is one branch of a statement.
type DocumentBranch struct {
	Label    string        `yaml:"label,omitempty" json:"label,omitempty"`
	Location string        `yaml:"location,omitempty" json:"location,omitempty"`
	Count    DocumentCount `yaml:"count" json:"count"`
}

// DocumentCount is a hit count written as an integer or a boolean.
type DocumentCount coverage.HitCount

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *DocumentCount) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: count must be an integer or a boolean", value.Line)
	}
	var b bool
	if value.ShortTag() == "!!bool" {
		if err := value.Decode(&b); err != nil {
			return err
		}
		*c = DocumentCount(coverage.Executed(b))
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("line %d: count must be an integer or a boolean: %w", value.Line, err)
	}
	if n < 0 {
		return fmt.Errorf("line %d: count must not be negative", value.Line)
	}
	*c = DocumentCount(coverage.Count(n))
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (c DocumentCount) MarshalYAML() (interface{}, error) {
	if c.Boolean {
		return c.Value > 0, nil
	}
	return c.Value, nil
}

// ParseRange parses "L:C-L:C". A lone position "L:C" covers the rest of its
// line.
func ParseRange(s string) (coverage.Range, error) {
	from, to, isRange := strings.Cut(strings.TrimSpace(s), "-")
	start, err := parsePosition(from)
	if err != nil {
		return coverage.Range{}, fmt.Errorf("parse range %q: %w", s, err)
	}
	if !isRange {
		return coverage.LineRange(start), nil
	}
	end, err := parsePosition(to)
	if err != nil {
		return coverage.Range{}, fmt.Errorf("parse range %q: %w", s, err)
	}
	if end.Before(start) {
		return coverage.Range{}, fmt.Errorf("parse range %q: end before start", s)
	}
	return coverage.Range{Start: start, End: end}, nil
}

func parsePosition(s string) (coverage.Position, error) {
	line, col, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return coverage.Position{}, fmt.Errorf("position %q is not line:column", s)
	}
	l, err := strconv.Atoi(line)
	if err != nil || l < 1 {
		return coverage.Position{}, fmt.Errorf("invalid line %q", line)
	}
	c, err := strconv.Atoi(col)
	if err != nil || c < 1 {
		return coverage.Position{}, fmt.Errorf("invalid column %q", col)
	}
	return coverage.Position{Line: l, Column: c}, nil
}

// LoadDocument reads a coverage-detail document from disk.
func LoadDocument(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open detail document: %w", err)
	}
	defer f.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("get absolute path of %s: %w", path, err)
	}
	return ParseDocument(f, filepath.Dir(abs))
}

// ParseDocument decodes a coverage-detail document. Relative file paths are
// resolved against baseDir.
func ParseDocument(r io.Reader, baseDir string) (*Report, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode detail document: %w", err)
	}

	report := NewReport()
	var finalErr error
	for _, df := range doc.Files {
		f, err := df.file(baseDir)
		if err != nil {
			finalErr = multierr.Append(finalErr, fmt.Errorf("%s: %w", df.Path, err))
			continue
		}
		report.Add(f)
	}
	if finalErr != nil {
		return nil, finalErr
	}
	return report, nil
}

func (df DocumentFile) file(baseDir string) (*File, error) {
	if df.Path == "" {
		return nil, fmt.Errorf("file without path")
	}
	uri := df.Path
	if !strings.HasPrefix(uri, fileScheme) && !filepath.IsAbs(uri) {
		uri = filepath.Join(baseDir, filepath.FromSlash(uri))
	}

	details, err := convertDetails(df.Details)
	if err != nil {
		return nil, err
	}

	var perTest map[string][]*coverage.Detail
	if len(df.Tests) > 0 {
		ids := make([]string, 0, len(df.Tests))
		for id := range df.Tests {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		perTest = make(map[string][]*coverage.Detail, len(ids))
		for _, id := range ids {
			d, err := convertDetails(df.Tests[id])
			if err != nil {
				return nil, fmt.Errorf("test %s: %w", id, err)
			}
			perTest[id] = d
		}
	}
	return NewFile(uri, details, perTest), nil
}

func convertDetails(in []DocumentDetail) ([]*coverage.Detail, error) {
	out := make([]*coverage.Detail, 0, len(in))
	for i, dd := range in {
		kind, err := coverage.ParseDetailKind(dd.Kind)
		if err != nil {
			return nil, fmt.Errorf("detail %d: %w", i, err)
		}
		if kind == coverage.Branch {
			return nil, fmt.Errorf("detail %d: branches belong to a statement", i)
		}
		r, err := ParseRange(dd.Range)
		if err != nil {
			return nil, fmt.Errorf("detail %d: %w", i, err)
		}

		d := &coverage.Detail{
			ID:    i + 1,
			Kind:  kind,
			Name:  dd.Name,
			Range: r,
			Count: coverage.HitCount(dd.Count),
		}
		for j, db := range dd.Branches {
			info := coverage.BranchInfo{Count: coverage.HitCount(db.Count), Label: db.Label}
			if db.Location != "" {
				loc, err := ParseRange(db.Location)
				if err != nil {
					return nil, fmt.Errorf("detail %d branch %d: %w", i, j, err)
				}
				info.Location = &loc
			}
			d.Branches = append(d.Branches, info)
		}
		out = append(out, d)
	}
	return out, nil
}
