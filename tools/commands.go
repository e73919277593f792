package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/flanksource/svgdeck"
	"github.com/flanksource/svgdeck/mcp"
)

// Commands returns one cobra command per tool. Each prints its status
// string to the command's output and never returns an error, so exit
// codes stay zero. t is read when a command runs, so it may be filled in
// by a PersistentPreRunE.
func Commands(t *Tools) []*cobra.Command {
	return []*cobra.Command{
		insertSVGCommand(t),
		batchInsertCommand(t),
		deleteSlideCommand(t),
		insertBlankSlideCommand(t),
		moveSlideCommand(t),
		listFilesCommand(t),
		fileInfoCommand(t),
		pptxInfoCommand(t),
		convertCommand(t),
		saveSVGCommand(t),
		renderSlideCommand(t),
	}
}

func run(fn func(ctx context.Context) string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		status := guard(cmd.Name(), func() (string, error) { return "", missingFlags(cmd) })
		if status == "" {
			status = fn(ctx)
		}
		fmt.Fprintln(cmd.OutOrStdout(), status)
		return nil
	}
}

// markRequired records the flags a tool cannot run without. They are
// checked by run and reported in the status, since cobra's MarkFlagRequired
// would fail the command with a non-zero exit instead.
func markRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		_ = cmd.Flags().SetAnnotation(name, mcp.RequiredAnnotation, []string{"true"})
	}
}

func missingFlags(cmd *cobra.Command) error {
	var missing []string
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if v := f.Annotations[mcp.RequiredAnnotation]; len(v) > 0 && v[0] == "true" && !f.Changed {
			missing = append(missing, "--"+f.Name)
		}
	})
	if len(missing) == 0 {
		return nil
	}
	return &svgdeck.Error{Kind: svgdeck.MissingArgument, Op: cmd.Name(), Err: fmt.Errorf("required flag(s) %s not set", strings.Join(missing, ", "))}
}

// createDefault applies the configured createIfMissing unless the flag was
// given explicitly.
func createDefault(t *Tools, cmd *cobra.Command, create *bool) {
	if !cmd.Flags().Changed("create-if-not-exists") {
		*create = t.config().CreateIfMissing
	}
}

func bindRect(flags *pflag.FlagSet, x, y, w, h *string) {
	flags.StringVar(x, "x", "", "Left offset: a length such as 1in, 2.5cm, 72pt, 10% (bare numbers use the configured unit, default 0)")
	flags.StringVar(y, "y", "", "Top offset (default 0)")
	flags.StringVar(w, "width", "", "Width (default: slide width)")
	flags.StringVar(h, "height", "", "Height (default: slide height)")
}

func insertSVGCommand(t *Tools) *cobra.Command {
	var a InsertArgs
	cmd := &cobra.Command{
		Use:   "insert_svg",
		Short: "Insert an SVG graphic into a slide of a PPTX file",
		Long: `Insert an SVG graphic into a slide of a PPTX file.

Missing slides are appended as blanks. Without --pptx-path a new
presentation_<timestamp>.pptx is created; without --output-path the
input file is overwritten.`,
		Example: `  svgdeck insert_svg --pptx-path deck.pptx --svg-path chart.svg --slide-number 3
  svgdeck insert_svg --pptx-path deck.pptx --svg-path logo.svg --x 1in --y 1in --width 25% --keep-aspect`,
	}
	f := cmd.Flags()
	f.StringVar(&a.PPTXPath, "pptx-path", "", "PPTX file to modify")
	f.StringVar(&a.SVGPath, "svg-path", "", "SVG file to insert")
	f.IntVar(&a.Slide, "slide-number", 1, "Target slide, starting at 1")
	bindRect(f, &a.X, &a.Y, &a.Width, &a.Height)
	f.StringVar(&a.OutputPath, "output-path", "", "Output file or directory (default: overwrite the input)")
	f.BoolVar(&a.CreateIfMissing, "create-if-not-exists", true, "Create the PPTX file or a placeholder SVG when missing (default: createIfMissing from the config)")
	f.BoolVar(&a.KeepAspect, "keep-aspect", false, "Derive a missing width or height from the graphic's aspect ratio")
	markRequired(cmd, "svg-path")
	cmd.RunE = run(func(ctx context.Context) string {
		createDefault(t, cmd, &a.CreateIfMissing)
		return t.InsertSVG(ctx, a)
	})
	return cmd
}

func batchInsertCommand(t *Tools) *cobra.Command {
	var a BatchArgs
	cmd := &cobra.Command{
		Use:   "batch_insert_svgs",
		Short: "Insert several SVG graphics onto consecutive slides",
		Long: `Insert several SVG graphics onto consecutive slides, starting at --slide-number.

Graphics given with --svg come first, then the *.svg files of --svg-dir in
name order. A failed graphic is left out and does not stop the batch.`,
		Example: `  svgdeck batch_insert_svgs --pptx-path deck.pptx --svg-dir charts/
  svgdeck batch_insert_svgs --pptx-path deck.pptx --svg a.svg --svg b.svg --slide-number 2`,
	}
	f := cmd.Flags()
	f.StringVar(&a.PPTXPath, "pptx-path", "", "PPTX file to modify")
	f.StringArrayVar(&a.SVGPaths, "svg", nil, "SVG file to insert (repeatable)")
	f.StringVar(&a.SVGDir, "svg-dir", "", "Directory of SVG files to insert")
	f.IntVar(&a.Start, "slide-number", 1, "Slide for the first graphic")
	bindRect(f, &a.X, &a.Y, &a.Width, &a.Height)
	f.StringVar(&a.OutputPath, "output-path", "", "Output file or directory (default: overwrite the input)")
	f.BoolVar(&a.CreateIfMissing, "create-if-not-exists", true, "Create the PPTX file when missing (default: createIfMissing from the config)")
	f.BoolVar(&a.KeepAspect, "keep-aspect", false, "Derive a missing width or height from each graphic's aspect ratio")
	cmd.RunE = run(func(ctx context.Context) string {
		createDefault(t, cmd, &a.CreateIfMissing)
		return t.BatchInsertSVGs(ctx, a)
	})
	return cmd
}

func deleteSlideCommand(t *Tools) *cobra.Command {
	var a SlideArgs
	cmd := &cobra.Command{
		Use:   "delete_slide",
		Short: "Delete a slide from a PPTX file",
		RunE:  run(func(ctx context.Context) string { return t.DeleteSlide(ctx, a) }),
	}
	f := cmd.Flags()
	f.StringVar(&a.PPTXPath, "pptx-path", "", "PPTX file to modify")
	f.IntVar(&a.Slide, "slide-number", 0, "Slide to delete, starting at 1")
	f.StringVar(&a.OutputPath, "output-path", "", "Output file or directory (default: overwrite the input)")
	markRequired(cmd, "pptx-path", "slide-number")
	return cmd
}

func insertBlankSlideCommand(t *Tools) *cobra.Command {
	var a SlideArgs
	cmd := &cobra.Command{
		Use:   "insert_blank_slide",
		Short: "Insert a blank slide into a PPTX file",
	}
	f := cmd.Flags()
	f.StringVar(&a.PPTXPath, "pptx-path", "", "PPTX file to modify")
	f.IntVar(&a.Slide, "slide-number", 1, "Position of the new slide, from 1 to the slide count plus one")
	f.StringVar(&a.OutputPath, "output-path", "", "Output file or directory (default: overwrite the input)")
	f.BoolVar(&a.CreateIfMissing, "create-if-not-exists", true, "Create the PPTX file when missing (default: createIfMissing from the config)")
	cmd.RunE = run(func(ctx context.Context) string {
		createDefault(t, cmd, &a.CreateIfMissing)
		return t.InsertBlankSlide(ctx, a)
	})
	return cmd
}

func moveSlideCommand(t *Tools) *cobra.Command {
	var a MoveArgs
	cmd := &cobra.Command{
		Use:   "move_slide",
		Short: "Move a slide to another position",
		RunE:  run(func(ctx context.Context) string { return t.MoveSlide(ctx, a) }),
	}
	f := cmd.Flags()
	f.StringVar(&a.PPTXPath, "pptx-path", "", "PPTX file to modify")
	f.IntVar(&a.From, "from", 0, "Current position of the slide")
	f.IntVar(&a.To, "to", 0, "New position of the slide")
	f.StringVar(&a.OutputPath, "output-path", "", "Output file or directory (default: overwrite the input)")
	markRequired(cmd, "pptx-path", "from", "to")
	return cmd
}

func listFilesCommand(t *Tools) *cobra.Command {
	var dir, fileType string
	cmd := &cobra.Command{
		Use:   "list_files",
		Short: "List files in a directory, optionally filtered by type",
		RunE:  run(func(context.Context) string { return t.ListFiles(dir, fileType) }),
	}
	cmd.Flags().StringVar(&dir, "directory", ".", "Directory to list")
	cmd.Flags().StringVar(&fileType, "file-type", "", "Filter: svg, pptx or any extension")
	return cmd
}

func fileInfoCommand(t *Tools) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "get_file_info",
		Short: "Show the type, size and modification time of a file",
		RunE:  run(func(context.Context) string { return t.GetFileInfo(path) }),
	}
	cmd.Flags().StringVar(&path, "file-path", "", "File to describe")
	markRequired(cmd, "file-path")
	return cmd
}

func pptxInfoCommand(t *Tools) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "get_pptx_info",
		Short: "Show slide count, canvas size and pictures of a PPTX file",
		RunE:  run(func(context.Context) string { return t.GetPPTXInfo(path) }),
	}
	cmd.Flags().StringVar(&path, "pptx-path", "", "PPTX file to describe")
	markRequired(cmd, "pptx-path")
	return cmd
}

func convertCommand(t *Tools) *cobra.Command {
	var a ConvertArgs
	cmd := &cobra.Command{
		Use:   "convert_svg_to_png",
		Short: "Convert an SVG file to PNG",
		RunE:  run(func(ctx context.Context) string { return t.ConvertSVGToPNG(ctx, a) }),
	}
	f := cmd.Flags()
	f.StringVar(&a.SVGPath, "svg-path", "", "SVG file to convert")
	f.StringVar(&a.OutputPath, "output-path", "", "PNG file (default: the SVG path with a .png extension)")
	f.IntVar(&a.Width, "width", 0, "Width in pixels (default: intrinsic)")
	f.IntVar(&a.Height, "height", 0, "Height in pixels (default: intrinsic)")
	f.StringVar(&a.Background, "background", "", "Background color as #rrggbb (default: transparent)")
	markRequired(cmd, "svg-path")
	return cmd
}

func saveSVGCommand(t *Tools) *cobra.Command {
	var a SaveArgs
	cmd := &cobra.Command{
		Use:   "save_svg_code",
		Short: "Validate SVG markup and save it to a file",
		RunE:  run(func(context.Context) string { return t.SaveSVGCode(a) }),
	}
	cmd.Flags().StringVar(&a.Code, "svg-code", "", "SVG markup")
	cmd.Flags().StringVar(&a.Path, "output-path", "", "File to write (default: graphic_creation_<timestamp>.svg)")
	markRequired(cmd, "svg-code")
	return cmd
}

func renderSlideCommand(t *Tools) *cobra.Command {
	var a RenderArgs
	cmd := &cobra.Command{
		Use:   "render_slide",
		Short: "Render a slide of a PPTX file to PNG",
		RunE:  run(func(context.Context) string { return t.RenderSlide(a) }),
	}
	f := cmd.Flags()
	f.StringVar(&a.PPTXPath, "pptx-path", "", "PPTX file to render")
	f.IntVar(&a.Slide, "slide-number", 1, "Slide to render, starting at 1")
	f.StringVar(&a.OutputPath, "output-path", "", "PNG file (default: <pptx>_slide<N>.png)")
	markRequired(cmd, "pptx-path")
	return cmd
}
