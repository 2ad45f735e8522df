package upload

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/facewatch/internal/analysis"
	"github.com/tphakala/facewatch/internal/conf"
	"github.com/tphakala/facewatch/internal/datastore"
	"github.com/tphakala/facewatch/internal/detector/cascade"
)

// Command creates the command for analyzing a single image file.
func Command(settings *conf.Settings) *cobra.Command {
	var output, saveAs string

	cmd := &cobra.Command{
		Use:   "upload [image]",
		Short: "Detect faces in an image file",
		Long:  `Run face detection once on an image file, print the detections and write the annotated image.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := analysis.ImageOptions{
				OverlayPath: output,
				Save:        cmd.Flags().Changed("save-as"),
				SaveName:    saveAs,
			}
			if opts.OverlayPath == "" {
				opts.OverlayPath = defaultOverlayPath(args[0])
			}
			return run(cmd, settings, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Path of the annotated PNG (default <image>_faces.png)")
	cmd.Flags().StringVar(&saveAs, "save-as", "", "Save the annotated image to the gallery under this name")

	return cmd
}

func run(cmd *cobra.Command, settings *conf.Settings, path string, opts analysis.ImageOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	store, err := datastore.OpenStore(settings)
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := analysis.NewPipeline(ctx, settings, store, cascade.Loader(&settings.Detector))
	if err != nil {
		return err
	}
	defer p.Close()

	report, err := analysis.ImageAnalysis(ctx, p, path, opts)
	if report != nil {
		printReport(out, report)
	}
	for _, toast := range p.Notifications.Active() {
		fmt.Fprintln(out, toast.String())
	}
	return err
}

func printReport(w io.Writer, report *analysis.ImageReport) {
	if report.Result.Empty() {
		fmt.Fprintln(w, "No faces detected")
	}
	for _, a := range report.Annotations {
		fmt.Fprintf(w, "%s: (%d,%d)-(%d,%d)\n", a.Label, a.Rect.Min.X, a.Rect.Min.Y, a.Rect.Max.X, a.Rect.Max.Y)
	}
	fmt.Fprintf(w, "Detection time: %d ms\n", report.Result.ProcessingTime.Milliseconds())
	if report.OverlayPath != "" {
		fmt.Fprintf(w, "Annotated image written to %s\n", report.OverlayPath)
	}
}

// defaultOverlayPath places the annotated PNG next to the input.
func defaultOverlayPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_faces.png"
}
