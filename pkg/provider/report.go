package provider

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Azure/coverlens/pkg/coverage"
)

const fileScheme = "file://"

// FileURI returns the file URI of a local path. Relative paths are resolved
// against the working directory.
func FileURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return fileScheme + filepath.ToSlash(filepath.Clean(path))
}

// NormalizeURI maps a file URI or a local path to the canonical file URI.
func NormalizeURI(uri string) string {
	if strings.HasPrefix(uri, fileScheme) {
		return FileURI(filepath.FromSlash(strings.TrimPrefix(uri, fileScheme)))
	}
	return FileURI(uri)
}

// File is the coverage of one document. It hands out the same detail values
// on every call so ranges written back by the decorations survive a refetch.
type File struct {
	uri     string
	details []*coverage.Detail
	perTest map[string][]*coverage.Detail
	stats   coverage.Statistics
}

var _ coverage.FileCoverage = (*File)(nil)

// NewFile creates the coverage of uri. perTest may be nil.
func NewFile(uri string, details []*coverage.Detail, perTest map[string][]*coverage.Detail) *File {
	return &File{
		uri:     NormalizeURI(uri),
		details: details,
		perTest: perTest,
		stats:   coverage.ComputeStatistics(details),
	}
}

func (f *File) URI() string { return f.uri }

func (f *File) Statistics() coverage.Statistics { return f.stats }

// PerTestIDs returns the sorted ids of the tests that ran code in the file.
func (f *File) PerTestIDs() []string {
	ids := make([]string, 0, len(f.perTest))
	for id := range f.perTest {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (f *File) Details(ctx context.Context) ([]*coverage.Detail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f.details) == 0 {
		return nil, coverage.ErrNoCoverage
	}
	out := make([]*coverage.Detail, len(f.details))
	copy(out, f.details)
	return out, nil
}

func (f *File) DetailsForTest(ctx context.Context, testID string) ([]*coverage.Detail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	details, ok := f.perTest[testID]
	if !ok {
		return nil, coverage.ErrUnknownTest
	}
	out := make([]*coverage.Detail, len(details))
	copy(out, details)
	return out, nil
}

// Report is a set of file coverages keyed by URI.
type Report struct {
	files map[string]*File
	order []string
}

var _ coverage.Report = (*Report)(nil)

// NewReport creates a report holding files. A later file replaces an earlier
// one with the same URI.
func NewReport(files ...*File) *Report {
	r := &Report{files: map[string]*File{}}
	for _, f := range files {
		r.Add(f)
	}
	return r
}

// Add stores f in the report.
func (r *Report) Add(f *File) {
	if _, ok := r.files[f.uri]; !ok {
		r.order = append(r.order, f.uri)
	}
	r.files[f.uri] = f
}

// GetURI returns the coverage of the document, nil when the report has none.
func (r *Report) GetURI(uri string) coverage.FileCoverage {
	f, ok := r.files[NormalizeURI(uri)]
	if !ok {
		return nil
	}
	return f
}

// Files returns the files in insertion order.
func (r *Report) Files() []*File {
	files := make([]*File, 0, len(r.order))
	for _, uri := range r.order {
		files = append(files, r.files[uri])
	}
	return files
}
