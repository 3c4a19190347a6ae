package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Azure/coverlens/pkg/coverage"
	"github.com/Azure/coverlens/pkg/summary"
)

// NavOptions contains the input to the nav command.
type NavOptions struct {
	*Options

	Line     int
	Previous bool
}

// NewNavOptions returns NavOptions with default values.
func NewNavOptions() *NavOptions {
	return &NavOptions{Options: NewOptions(), Line: 1}
}

func (o *NavOptions) Validate() error {
	if o.Line < 1 {
		return fmt.Errorf("line must be positive, got %d", o.Line)
	}
	return o.Options.Validate()
}

func newNavCommand() *cobra.Command {
	o := NewNavOptions()
	cmd := &cobra.Command{
		Use:     "nav file",
		Short:   "find the next or previous missed line of a file",
		Example: navExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := prepare(cmd, o.Options); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return WrapError(err, "invalid options")
			}
			return o.Run(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	o.addFlags(cmd)
	cmd.Flags().IntVar(&o.Line, "line", o.Line, "line of the caret")
	cmd.Flags().BoolVar(&o.Previous, "previous", o.Previous, "search backwards")
	return cmd
}

// Run prints "file:line" of the missed line found from the caret line.
func (o *NavOptions) Run(ctx context.Context, out io.Writer, file string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := newSession(o.Options, summary.Compact)
	if err != nil {
		return WrapError(err, "load coverage failed")
	}
	defer s.Close()

	path := s.files([]string{file})[0]
	if !s.hasCoverage(path) {
		return WrapErrorWithCode(fmt.Errorf("%s: %w", file, coverage.ErrNoCoverage), NoCoverageErrorExitCode, "no coverage for file")
	}
	if _, err := s.open(ctx, path); err != nil {
		return WrapError(err, "open file failed")
	}

	s.editor.SetPosition(coverage.Position{Line: o.Line, Column: 1})
	moved := s.lens.GoToNextMissedLine
	if o.Previous {
		moved = s.lens.GoToPreviousMissedLine
	}
	if !moved() {
		_, err := fmt.Fprintln(out, "no missed lines")
		return err
	}
	_, err = fmt.Fprintf(out, "%s:%d\n", displayName(path), s.editor.Position().Line)
	return err
}
