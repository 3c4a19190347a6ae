package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Azure/coverlens/pkg/render"
	"github.com/Azure/coverlens/pkg/summary"
)

const (
	FormatText = "text"
	FormatHTML = "html"
)

// RenderOptions contains the input to the render command.
type RenderOptions struct {
	*Options

	Format    string
	Output    string
	Style     string
	Inline    bool
	HoverLine int
}

// NewRenderOptions returns RenderOptions with default values.
func NewRenderOptions() *RenderOptions {
	return &RenderOptions{
		Options: NewOptions(),
		Format:  FormatText,
		Style:   render.DefaultStyle,
	}
}

func (o *RenderOptions) Validate() error {
	if o.Format != FormatText && o.Format != FormatHTML {
		return fmt.Errorf("unsupported format %q, one of: %s, %s", o.Format, FormatText, FormatHTML)
	}
	if o.HoverLine < 0 {
		return fmt.Errorf("hover line must not be negative")
	}
	return o.Options.Validate()
}

func newRenderCommand() *cobra.Command {
	o := NewRenderOptions()
	cmd := &cobra.Command{
		Use:     "render [files...]",
		Short:   "render source files with coverage decorations",
		Long:    renderLong,
		Example: renderExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := prepare(cmd, o.Options); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return WrapError(err, "invalid options")
			}
			if err := o.Run(cmd.Context(), cmd.OutOrStdout(), args); err != nil {
				return WrapError(fmt.Errorf("render coverage: %w", err), "render failed")
			}
			return nil
		},
	}

	o.addFlags(cmd)
	cmd.Flags().StringVar(&o.Format, "format", o.Format, "format of the rendering, one of: text, html")
	cmd.Flags().StringVarP(&o.Output, "output", "o", o.Output, "output file, defaults to stdout")
	cmd.Flags().StringVar(&o.Style, "style", o.Style, "html code style, refer to https://pygments.org/docs/styles for more information")
	cmd.Flags().BoolVar(&o.Inline, "inline", o.Inline, "show inline coverage regardless of the configuration")
	cmd.Flags().IntVar(&o.HoverLine, "hover-line", o.HoverLine, "render as if the pointer hovered the gutter of the line")
	return cmd
}

// Run renders the files, or every covered file when none is given.
func (o *RenderOptions) Run(ctx context.Context, stdout io.Writer, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := newSession(o.Options, summary.Detailed)
	if err != nil {
		return err
	}
	defer s.Close()

	out := stdout
	if o.Output != "" {
		f, err := os.Create(o.Output)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if o.Inline && !s.lens.InlineShown() {
		s.lens.ToggleInlineDisplay()
	}

	color := o.Output == "" && summary.ColorEnabled(stdout)
	var pages []render.Page
	for _, path := range s.files(args) {
		doc, err := s.open(ctx, path)
		if err != nil {
			return err
		}
		if o.HoverLine > 0 {
			s.hover(o.HoverLine)
		}
		snapshot := s.lens.Summary()
		name := displayName(path)

		if o.Format == FormatHTML {
			pages = append(pages, render.Page{Name: name, Document: doc, Summary: snapshot})
			continue
		}
		if _, err := fmt.Fprintf(out, "%s\n", name); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		if err := render.Text(out, doc, render.TextOptions{Color: color, Injected: true}); err != nil {
			return err
		}
		if err := snapshot.Render(out, color); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(out); err != nil {
			return fmt.Errorf("write separator: %w", err)
		}
	}

	if o.Format == FormatHTML {
		return render.NewHTMLRenderer(o.Style, o.Logger).Render(out, pages...)
	}
	return nil
}
