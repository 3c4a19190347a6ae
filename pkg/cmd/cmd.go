package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	renderLong = `Render source files with their coverage decorations.

Each line is prefixed with a gutter marker: "+" for covered lines and "-" for
lines with a miss. Inline coverage shows the count badges of the statements and
branches.
`

	renderExample = `# Render the coverage of a go package in the terminal
coverlens render --cover-profile coverage.out pkg/foo/foo.go

# Render an HTML page of every covered file, showing inline coverage
coverlens render --cover-profile coverage.out --format html --inline -o coverage.html

# Render the coverage recorded by a single test
coverlens render --cover-profile TestFoo=foo.out --test TestFoo pkg/foo/foo.go
`

	summaryLong = `Print the coverage bars of source files.

The displayed percent and the bar colors follow the configuration file
(coverlens.yaml), which can be overridden by COVERLENS_ environment variables.
`

	summaryExample = `# Print the coverage bars of every covered file, failing below 80%
coverlens summary --cover-profile coverage.out --detailed --coverage-baseline 80

# Print the bars of a coverage detail document
coverlens summary --details coverage.yaml
`

	navExample = `# Find the first missed line after line 10
coverlens nav --cover-profile coverage.out --line 10 pkg/foo/foo.go

# Find the last missed line before line 10
coverlens nav --cover-profile coverage.out --line 10 --previous pkg/foo/foo.go
`
)

const (
	FlagVerbose      = "verbose"
	FlagVerboseShort = "v"
	FlagConfig       = "config"
)

func createLogger(cmd *cobra.Command) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	verbose, err := cmd.Flags().GetBool(FlagVerbose)
	if err != nil {
		// no verbose flag on the command, It's OK.
		verbose = false
	}
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// NewCoverLensCommand creates the root command of coverlens.
func NewCoverLensCommand(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "coverlens",
		Short:         "show test coverage as editor decorations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP(FlagVerbose, FlagVerboseShort, false, "verbose output")
	cmd.PersistentFlags().String(FlagConfig, "", "configuration file, defaults to coverlens.yaml")

	cmd.AddCommand(newRenderCommand())
	cmd.AddCommand(newSummaryCommand())
	cmd.AddCommand(newNavCommand())
	cmd.AddCommand(newVersionCommand(version, commit, date))
	return cmd
}

// prepare fills the options shared by every coverage command.
func prepare(cmd *cobra.Command, o *Options) error {
	o.Logger = createLogger(cmd)
	configFile, err := cmd.Flags().GetString(FlagConfig)
	if err != nil {
		return err
	}
	o.ConfigFile = configFile
	return nil
}
