package provider

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azure/coverlens/pkg/coverage"
)

func TestNormalizeURI(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "a.go")
	uri := FileURI(abs)

	assert.Equal(t, uri, NormalizeURI(abs))
	assert.Equal(t, uri, NormalizeURI(uri))
	assert.Equal(t, uri, NormalizeURI(filepath.Join(filepath.Dir(abs), "x", "..", "a.go")))
}

func TestFile(t *testing.T) {
	details := []*coverage.Detail{
		{ID: 1, Kind: coverage.Statement, Range: coverage.NewRange(1, 1, 1, 5), Count: coverage.Count(1)},
		{ID: 2, Kind: coverage.Statement, Range: coverage.NewRange(2, 1, 2, 5), Count: coverage.Count(0)},
	}

	t.Run("details", func(t *testing.T) {
		assertion := assert.New(t)
		f := NewFile("/src/a.go", details, nil)
		assertion.Equal("file:///src/a.go", f.URI())
		assertion.Equal(coverage.Counter{Covered: 1, Total: 2}, f.Statistics().Statement)
		assertion.Empty(f.PerTestIDs())

		got, err := f.Details(context.Background())
		require.NoError(t, err)
		assertion.Equal(details, got)
		got[0] = nil
		again, _ := f.Details(context.Background())
		assertion.NotNil(again[0], "each call yields a fresh sequence")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		f := NewFile("/src/a.go", details, map[string][]*coverage.Detail{"TestA": details})
		_, err := f.Details(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		_, err = f.DetailsForTest(ctx, "TestA")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("no details", func(t *testing.T) {
		_, err := NewFile("/src/a.go", nil, nil).Details(context.Background())
		assert.ErrorIs(t, err, coverage.ErrNoCoverage)
	})
}

func TestReport(t *testing.T) {
	assertion := assert.New(t)
	a := NewFile("/src/a.go", nil, nil)
	b := NewFile("/src/b.go", nil, nil)
	replacement := NewFile("file:///src/a.go", nil, nil)

	r := NewReport(a, b, replacement)
	assertion.Equal([]*File{replacement, b}, r.Files())
	assertion.Equal(replacement, r.GetURI("/src/a.go"))
	assertion.Nil(r.GetURI("/src/c.go"))
}
