package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Azure/coverlens/pkg/config"
	"github.com/Azure/coverlens/pkg/coverage"
	"github.com/Azure/coverlens/pkg/editor"
	"github.com/Azure/coverlens/pkg/lens"
	"github.com/Azure/coverlens/pkg/provider"
	"github.com/Azure/coverlens/pkg/summary"
)

// session drives a lens over an in-memory editor.
type session struct {
	lens   *lens.Lens
	editor *editor.Editor
	report *provider.Report
	logger logrus.FieldLogger

	cancel context.CancelFunc
	done   chan error
}

func newSession(o *Options, mode summary.Mode) (*session, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	report, err := o.loadReport()
	if err != nil {
		return nil, fmt.Errorf("load coverage: %w", err)
	}
	cfg, err := config.Load(o.ConfigFile, o.Logger)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	ed := editor.New()
	l := lens.New(lens.Options{
		Cursor:      ed,
		Config:      cfg,
		Logger:      o.Logger,
		SummaryMode: mode,
	})
	cfg.OnChange(func(config.Options) { l.ConfigChanged() })
	cfg.Watch()

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		lens:   l,
		editor: ed,
		report: report,
		logger: o.Logger.WithField("source", "Session"),
		cancel: cancel,
		done:   make(chan error, 1),
	}
	go func() {
		s.done <- l.Run(ctx)
	}()

	l.SetReport(report)
	if o.TestID != "" {
		l.SetFilterToTest(o.TestID)
	}
	return s, nil
}

// files returns the local paths of args, or of every file of the report.
func (s *session) files(args []string) []string {
	if len(args) > 0 {
		paths := make([]string, 0, len(args))
		for _, arg := range args {
			paths = append(paths, localPath(provider.NormalizeURI(arg)))
		}
		return paths
	}
	var paths []string
	for _, f := range s.report.Files() {
		paths = append(paths, localPath(f.URI()))
	}
	return paths
}

// open shows the file in the editor and waits for its coverage.
func (s *session) open(ctx context.Context, path string) (*editor.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc := editor.NewDocument(provider.FileURI(path), strings.TrimSuffix(string(content), "\n"))
	s.editor.SetModel(doc)
	s.lens.SetModel(doc)
	if err := s.lens.WaitIdle(ctx); err != nil {
		return nil, fmt.Errorf("wait for coverage of %s: %w", path, err)
	}
	s.logger.Debugf("opened %s with %d decorations", path, len(doc.AllDecorations()))
	return doc, nil
}

// hasCoverage reports whether the report covers path.
func (s *session) hasCoverage(path string) bool {
	return s.report.GetURI(path) != nil
}

// hover puts the pointer on the gutter of line.
func (s *session) hover(line int) {
	s.lens.MouseMove(lens.MouseTarget{
		Kind:     lens.MouseGutterLineNumbers,
		Position: coverage.Position{Line: line, Column: 1},
	})
}

func (s *session) Close() {
	s.lens.Close()
	s.cancel()
	<-s.done
}
