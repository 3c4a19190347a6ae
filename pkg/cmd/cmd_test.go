package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `package sample

func Inc(x int) int {
	return x + 1
}

func Dec(x int) int {
	return x - 1
}
`

type sampleModule struct {
	dir     string
	source  string
	profile string
	config  string
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func profileText(inc, dec int) string {
	return "mode: count\n" +
		"example.com/sample/sample.go:3.21,5.2 1 " + strconv.Itoa(inc) + "\n" +
		"example.com/sample/sample.go:7.21,9.2 1 " + strconv.Itoa(dec) + "\n"
}

func newSampleModule(t *testing.T) *sampleModule {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "go.mod"), "module example.com/sample\n\ngo 1.22\n")
	m := &sampleModule{
		dir:     dir,
		source:  writeFile(t, filepath.Join(dir, "sample.go"), sampleSource),
		profile: writeFile(t, filepath.Join(dir, "coverage.out"), profileText(1, 0)),
		config: writeFile(t, filepath.Join(dir, "coverlens.yaml"), "coverageBarThresholds:\n  red: 0\n  yellow: 40\n  green: 90\n"),
	}
	return m
}

func (m *sampleModule) args(command string, extra ...string) []string {
	args := []string{command, "--cover-profile", m.profile, "--repository-path", m.dir, "--config", m.config}
	return append(args, extra...)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	command := NewCoverLensCommand("v1.0.0", "abc", "today")
	var out, errOut bytes.Buffer
	command.SetOut(&out)
	command.SetErr(&errOut)
	command.SetArgs(args)
	err := command.Execute()
	return out.String(), err
}

func exitCode(err error) int {
	var e *CoverLensError
	if errors.As(err, &e) {
		return e.ExitCode
	}
	return GeneralErrorExitCode
}

func TestRenderCommand(t *testing.T) {
	m := newSampleModule(t)

	t.Run("text", func(t *testing.T) {
		assertion := assert.New(t)
		out, err := execute(t, m.args("render", m.source)...)
		require.NoError(t, err)
		assertion.Contains(out, "4 + │ \treturn x + 1\n")
		assertion.Contains(out, "8 - │ \treturn x - 1\n")
		assertion.Contains(out, "3   │ func Inc(x int) int {\n")
		assertion.NotContains(out, "⟨1x⟩")
		assertion.Contains(out, "50.00%")
	})

	t.Run("inline", func(t *testing.T) {
		out, err := execute(t, m.args("render", "--inline", m.source)...)
		require.NoError(t, err)
		assert.Contains(t, out, "4 + │ \t⟨1x⟩return x + 1\n")
	})

	t.Run("hover", func(t *testing.T) {
		out, err := execute(t, m.args("render", "--hover-line", "4", m.source)...)
		require.NoError(t, err)
		assert.Contains(t, out, "⟨1x⟩return x + 1")
		assert.NotContains(t, out, "⟨0x⟩")
	})

	t.Run("all files as html", func(t *testing.T) {
		assertion := assert.New(t)
		output := filepath.Join(t.TempDir(), "coverage.html")
		_, err := execute(t, m.args("render", "--format", "html", "-o", output)...)
		require.NoError(t, err)

		page, err := os.ReadFile(output)
		require.NoError(t, err)
		assertion.Contains(string(page), "sample.go")
		assertion.Contains(string(page), "1 line missed")
		assertion.Contains(string(page), `class="yellow"`)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := execute(t, m.args("render", "--format", "pdf")...)
		assert.Error(t, err)
		assert.Equal(t, GeneralErrorExitCode, exitCode(err))
	})

	t.Run("no coverage source", func(t *testing.T) {
		_, err := execute(t, "render", m.source)
		assert.ErrorIs(t, err, ErrNoCoverageSource)
	})
}

func TestSummaryCommand(t *testing.T) {
	m := newSampleModule(t)

	t.Run("compact", func(t *testing.T) {
		out, err := execute(t, m.args("summary")...)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasSuffix(lines[0], "sample.go"))
		assert.Equal(t, "Coverage     █████░░░░░  50.00%", lines[1])
	})

	t.Run("detailed", func(t *testing.T) {
		out, err := execute(t, m.args("summary", "--detailed")...)
		require.NoError(t, err)
		assert.Contains(t, out, "(1/2)")
		assert.Contains(t, out, "Statement")
		assert.Contains(t, out, "Declaration")
	})

	t.Run("coverage baseline", func(t *testing.T) {
		_, err := execute(t, m.args("summary", "--coverage-baseline", "80")...)
		require.Error(t, err)
		assert.Equal(t, LowCoverageErrorExitCode, exitCode(err))

		_, err = execute(t, m.args("summary", "--coverage-baseline", "50")...)
		assert.NoError(t, err)
	})

	t.Run("no coverage", func(t *testing.T) {
		other := writeFile(t, filepath.Join(m.dir, "other.go"), "package sample\n")
		_, err := execute(t, m.args("summary", other)...)
		require.Error(t, err)
		assert.Equal(t, NoCoverageErrorExitCode, exitCode(err))
	})

	t.Run("invalid baseline", func(t *testing.T) {
		_, err := execute(t, m.args("summary", "--coverage-baseline", "120")...)
		assert.Error(t, err)
	})
}

func TestNavCommand(t *testing.T) {
	m := newSampleModule(t)

	var testSuites = []struct {
		name   string
		extra  []string
		expect string
	}{
		{name: "next", extra: []string{"--line", "1"}, expect: ":8\n"},
		{name: "next wraps around", extra: []string{"--line", "9"}, expect: ":8\n"},
		{name: "previous wraps around", extra: []string{"--line", "2", "--previous"}, expect: ":8\n"},
	}
	for _, testSuite := range testSuites {
		t.Run(testSuite.name, func(t *testing.T) {
			out, err := execute(t, append(m.args("nav", m.source), testSuite.extra...)...)
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(out, testSuite.expect), out)
		})
	}

	t.Run("single test", func(t *testing.T) {
		profile := writeFile(t, filepath.Join(m.dir, "dec.out"), profileText(0, 1))
		args := []string{"nav", m.source, "--cover-profile", "TestDec=" + profile,
			"--repository-path", m.dir, "--config", m.config, "--test", "TestDec"}
		out, err := execute(t, args...)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(out, ":4\n"), out)
	})

	t.Run("fully covered", func(t *testing.T) {
		profile := writeFile(t, filepath.Join(m.dir, "full.out"), profileText(1, 1))
		args := []string{"nav", m.source, "--cover-profile", profile, "--repository-path", m.dir, "--config", m.config}
		out, err := execute(t, args...)
		require.NoError(t, err)
		assert.Equal(t, "no missed lines\n", out)
	})

	t.Run("no coverage", func(t *testing.T) {
		other := writeFile(t, filepath.Join(m.dir, "other.go"), "package sample\n")
		_, err := execute(t, m.args("nav", other)...)
		assert.Equal(t, NoCoverageErrorExitCode, exitCode(err))
	})

	t.Run("requires a file", func(t *testing.T) {
		_, err := execute(t, m.args("nav")...)
		assert.Error(t, err)
	})
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "coverlens Version v1.0.0\nRuntime SHA: abc\nCreated At: today\n", out)
}
