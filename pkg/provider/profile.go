package provider

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-git/v5"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/mod/modfile"
	"golang.org/x/tools/cover"

	"github.com/Azure/coverlens/pkg/annotation"
	"github.com/Azure/coverlens/pkg/coverage"
	"github.com/Azure/coverlens/pkg/parser"
)

var (
	ErrModuleNotFound = errors.New("cannot find module path")
)

// ProfileOptions contains the input for loading Go cover profiles.
type ProfileOptions struct {
	// Profiles are cover profile files. A "testID=path" entry records the
	// profile as the coverage of a single test.
	Profiles []string
	// RepositoryPath is any directory inside the repository.
	RepositoryPath string
	// ModuleDir is the directory of go.mod relative to the repository root.
	ModuleDir string
	// Excludes are doublestar patterns matched against module relative paths.
	Excludes []string

	Logger logrus.FieldLogger
}

type profileSpec struct {
	testID string
	path   string
}

// parseProfileSpec splits "testID=path". A path containing "=" is kept whole
// when the part before it looks like a path.
func parseProfileSpec(s string) profileSpec {
	id, path, ok := strings.Cut(s, "=")
	if !ok || id == "" || strings.ContainsAny(id, `/\`) {
		return profileSpec{path: s}
	}
	return profileSpec{testID: id, path: path}
}

// fileProfiles gathers the profiles of one source file.
type fileProfiles struct {
	local    string
	all      []*cover.Profile
	perTest  map[string][]*cover.Profile
	testIDs  []string
	relative string
}

// LoadProfiles reads Go cover profiles and maps their blocks onto the
// declarations, statements and branches of the source files.
func LoadProfiles(o ProfileOptions) (*Report, error) {
	logger := o.Logger
	if logger == nil {
		logger = logrus.New()
	}
	logger = logger.WithField("source", "ProfileProvider")

	for _, pattern := range o.Excludes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	root, err := repositoryRoot(o.RepositoryPath, logger)
	if err != nil {
		return nil, err
	}
	moduleDir := filepath.Join(root, o.ModuleDir)
	modulePath, err := parseGoModulePath(moduleDir)
	if err != nil {
		return nil, fmt.Errorf("parse go module path: %w", err)
	}
	logger.Debugf("repository path: %s, module path: %s", root, modulePath)

	files := map[string]*fileProfiles{}
	var order []*fileProfiles
	for _, s := range o.Profiles {
		spec := parseProfileSpec(s)
		profiles, err := cover.ParseProfiles(spec.path)
		if err != nil {
			logger.WithError(err).Error("parse cover profile")
			return nil, fmt.Errorf("parse cover profile %s: %w", spec.path, err)
		}

		for _, p := range profiles {
			local, rel, ok := resolveProfileFile(p.FileName, modulePath, moduleDir)
			if !ok {
				logger.Debugf("skip %s outside module %s", p.FileName, modulePath)
				continue
			}
			if excluded(rel, o.Excludes) {
				logger.Debugf("exclude %s", rel)
				continue
			}

			fp, ok := files[local]
			if !ok {
				fp = &fileProfiles{local: local, relative: rel, perTest: map[string][]*cover.Profile{}}
				files[local] = fp
				order = append(order, fp)
			}
			fp.all = append(fp.all, p)
			if spec.testID != "" {
				if _, seen := fp.perTest[spec.testID]; !seen {
					fp.testIDs = append(fp.testIDs, spec.testID)
				}
				fp.perTest[spec.testID] = append(fp.perTest[spec.testID], p)
			}
		}
	}

	results := make([]*File, len(order))
	var wg sync.WaitGroup
	errorChannel := make(chan error, len(order))
	for i, fp := range order {
		wg.Add(1)
		go func(i int, fp *fileProfiles) {
			defer wg.Done()
			f, err := convertProfiles(fp, logger)
			if err != nil {
				logger.WithError(err).Errorf("convert profiles of %s", fp.relative)
			}
			results[i] = f
			errorChannel <- err
		}(i, fp)
	}
	wg.Wait()
	close(errorChannel)

	var finalErr error
	for err := range errorChannel {
		finalErr = multierr.Append(finalErr, err)
	}
	if finalErr != nil {
		return nil, finalErr
	}

	report := NewReport()
	for _, f := range results {
		if f != nil {
			report.Add(f)
		}
	}
	return report, nil
}

// convertProfiles builds the coverage of one source file. It returns nil
// when the file is ignored by annotation.
func convertProfiles(fp *fileProfiles, logger logrus.FieldLogger) (*File, error) {
	ignore, err := annotation.ParseIgnoreProfile(fp.local)
	if err != nil {
		return nil, err
	}
	if ignore.Type == annotation.FileIgnore {
		logger.Debugf("hit file ignore on [%s]", fp.relative)
		return nil, nil
	}

	src, err := parser.ParseFile(fp.local, nil)
	if err != nil {
		return nil, err
	}

	build := func(profiles []*cover.Profile) []*coverage.Detail {
		blocks, boolean := parser.MergeProfiles(profiles...)
		return src.Details(blocks, parser.DetailOptions{Boolean: boolean, Ignored: ignore.Ignored})
	}

	var perTest map[string][]*coverage.Detail
	if len(fp.testIDs) > 0 {
		perTest = make(map[string][]*coverage.Detail, len(fp.testIDs))
		for _, id := range fp.testIDs {
			perTest[id] = build(fp.perTest[id])
		}
	}
	details := build(fp.all)
	logger.Debugf("%s: %d details, %d tests", fp.relative, len(details), len(fp.testIDs))
	return NewFile(fp.local, details, perTest), nil
}

// repositoryRoot finds the work tree containing path. A path outside any
// git repository is its own root.
func repositoryRoot(path string, logger logrus.FieldLogger) (string, error) {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("get absolute path of repo: %w", err)
	}

	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		logger.Debugf("%s is not inside a git repository", abs)
		return abs, nil
	}
	if err != nil {
		return "", fmt.Errorf("open git repository %s: %w", abs, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("get worktree of %s: %w", abs, err)
	}
	return wt.Filesystem.Root(), nil
}

// parseGoModulePath uses modfile package to parse go module path
func parseGoModulePath(goModDir string) (string, error) {
	goModFilename := filepath.Join(goModDir, "go.mod")
	bs, err := os.ReadFile(goModFilename)
	if err != nil {
		return "", err
	}

	result := modfile.ModulePath(bs)
	if result == "" {
		return "", fmt.Errorf("%w: %s", ErrModuleNotFound, goModFilename)
	}

	return result, nil
}

// resolveProfileFile maps a profile file name to a local path and the slash
// separated path relative to the module.
func resolveProfileFile(name, modulePath, moduleDir string) (local, rel string, ok bool) {
	if filepath.IsAbs(name) {
		rel, err := filepath.Rel(moduleDir, name)
		if err != nil || strings.HasPrefix(rel, "..") {
			return name, filepath.ToSlash(name), true
		}
		return name, filepath.ToSlash(rel), true
	}
	if !strings.HasPrefix(name, modulePath+"/") {
		return "", "", false
	}
	rel = strings.TrimPrefix(name, modulePath+"/")
	return filepath.Join(moduleDir, filepath.FromSlash(rel)), rel, true
}

func excluded(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
