package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Azure/coverlens/pkg/provider"
)

var ErrNoCoverageSource = errors.New("one of --cover-profile or --details is required")

// Options contains the input shared by the commands that show coverage.
type Options struct {
	CoverProfiles  []string
	DetailDocument string
	RepositoryPath string
	ModuleDir      string
	Excludes       []string
	TestID         string
	ConfigFile     string

	Logger logrus.FieldLogger
}

// NewOptions returns Options with default values.
func NewOptions() *Options {
	return &Options{
		RepositoryPath: "./",
	}
}

func (o *Options) Validate() error {
	if len(o.CoverProfiles) == 0 && o.DetailDocument == "" {
		return ErrNoCoverageSource
	}
	if len(o.CoverProfiles) > 0 && o.DetailDocument != "" {
		return fmt.Errorf("--cover-profile and --details are mutually exclusive")
	}
	return nil
}

func (o *Options) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&o.CoverProfiles, "cover-profile", []string{}, `coverage profiles produced by 'go test', "TestName=path" records a single test`)
	cmd.Flags().StringVar(&o.DetailDocument, "details", "", "coverage detail document in YAML or JSON")
	cmd.Flags().StringVar(&o.RepositoryPath, "repository-path", o.RepositoryPath, "any directory inside the git repository")
	cmd.Flags().StringVar(&o.ModuleDir, "module-dir", "", "directory of go.mod relative to the repository root")
	cmd.Flags().StringSliceVar(&o.Excludes, "excludes", []string{}, "exclude files matching the glob patterns")
	cmd.Flags().StringVar(&o.TestID, "test", "", "show the coverage of a single test")
}

// loadReport reads the coverage report from the configured source.
func (o *Options) loadReport() (*provider.Report, error) {
	if o.DetailDocument != "" {
		return provider.LoadDocument(o.DetailDocument)
	}
	return provider.LoadProfiles(provider.ProfileOptions{
		Profiles:       o.CoverProfiles,
		RepositoryPath: o.RepositoryPath,
		ModuleDir:      o.ModuleDir,
		Excludes:       o.Excludes,
		Logger:         o.Logger,
	})
}

// localPath maps a file URI or a path to a local path.
func localPath(uri string) string {
	return filepath.FromSlash(strings.TrimPrefix(uri, "file://"))
}

// displayName shortens a path relative to the working directory.
func displayName(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
