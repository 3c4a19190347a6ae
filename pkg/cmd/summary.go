package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Azure/coverlens/pkg/coverage"
	"github.com/Azure/coverlens/pkg/summary"
)

// SummaryOptions contains the input to the summary command.
type SummaryOptions struct {
	*Options

	Detailed bool
	// CoverageBaseline is the minimum displayed coverage in percent.
	CoverageBaseline float64
}

// NewSummaryOptions returns SummaryOptions with default values.
func NewSummaryOptions() *SummaryOptions {
	return &SummaryOptions{Options: NewOptions()}
}

func (o *SummaryOptions) Validate() error {
	if o.CoverageBaseline < 0 || o.CoverageBaseline > 100 {
		return fmt.Errorf("coverage baseline must be within [0, 100], got %v", o.CoverageBaseline)
	}
	return o.Options.Validate()
}

func newSummaryCommand() *cobra.Command {
	o := NewSummaryOptions()
	cmd := &cobra.Command{
		Use:     "summary [files...]",
		Short:   "print the coverage bars of source files",
		Long:    summaryLong,
		Example: summaryExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := prepare(cmd, o.Options); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return WrapError(err, "invalid options")
			}
			return o.Run(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}

	o.addFlags(cmd)
	cmd.Flags().BoolVar(&o.Detailed, "detailed", o.Detailed, "show one bar per statement, branch and declaration coverage")
	cmd.Flags().Float64Var(&o.CoverageBaseline, "coverage-baseline", o.CoverageBaseline, "returns an error code if the displayed coverage of a file is less than coverage baseline")
	return cmd
}

// Run prints the bars of the files, or of every covered file when none is
// given.
func (o *SummaryOptions) Run(ctx context.Context, out io.Writer, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mode := summary.Compact
	if o.Detailed {
		mode = summary.Detailed
	}
	s, err := newSession(o.Options, mode)
	if err != nil {
		return WrapError(err, "load coverage failed")
	}
	defer s.Close()

	color := summary.ColorEnabled(out)
	var shown int
	var low []string
	for _, path := range s.files(args) {
		name := displayName(path)
		if !s.hasCoverage(path) {
			o.Logger.Warnf("no coverage for %s", name)
			continue
		}
		if _, err := s.open(ctx, path); err != nil {
			return WrapError(err, "open file failed")
		}

		snapshot := s.lens.Summary()
		if !snapshot.Visible {
			continue
		}
		shown++
		if _, err := fmt.Fprintln(out, name); err != nil {
			return WrapError(err, "write summary failed")
		}
		if err := snapshot.Render(out, color); err != nil {
			return WrapError(err, "write summary failed")
		}
		if o.CoverageBaseline > 0 && snapshot.Bars[0].Percent*100 < o.CoverageBaseline {
			low = append(low, fmt.Sprintf("%s (%s)", name, coverage.FormatPercent(snapshot.Bars[0].Percent)))
		}
	}

	if shown == 0 {
		return WrapErrorWithCode(coverage.ErrNoCoverage, NoCoverageErrorExitCode, "no coverage to summarize")
	}
	if len(low) > 0 {
		err := fmt.Errorf("coverage is lower than %.2f%%: %s", o.CoverageBaseline, strings.Join(low, ", "))
		return WrapErrorWithCode(err, LowCoverageErrorExitCode, "coverage is too low")
	}
	return nil
}
