package watch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/facewatch/internal/analysis"
	"github.com/tphakala/facewatch/internal/conf"
	"github.com/tphakala/facewatch/internal/datastore"
	"github.com/tphakala/facewatch/internal/detector/cascade"
	"github.com/tphakala/facewatch/internal/frame/webcam"
)

// Command creates the command for live face detection.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Detect faces on a live camera",
		Long: `Start detecting faces on the selected camera immediately.
Send SIGUSR1 to stop or resume detection and SIGHUP to move to the next stored camera.
Send SIGUSR2 to save the face on screen to the gallery under --name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, settings *conf.Settings) error {
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

	opener := webcam.Opener(settings.Capture.Width, settings.Capture.Height)
	return analysis.RealtimeAnalysis(ctx, p, opener, cmd.OutOrStdout())
}

// setupFlags configures flags specific to the watch command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Capture.Camera, "camera", viper.GetString("capture.camera"), "Camera to use: \"user\", a device index or a stream URL")
	cmd.Flags().IntVar(&settings.Capture.FPS, "fps", viper.GetInt("capture.fps"), "Detection cycles per second")
	cmd.Flags().StringVar(&settings.Output.SnapshotPath, "snapshotpath", viper.GetString("output.snapshotpath"), "Directory for detection snapshots")
	cmd.Flags().StringVar(&settings.Output.SaveName, "name", viper.GetString("output.savename"), "Gallery name for faces saved with SIGUSR2")
	cmd.Flags().BoolVar(&settings.Alert.Enabled, "alert", viper.GetBool("alert.enabled"), "Play a sound on every detection")
	cmd.Flags().BoolVar(&settings.Telemetry.Prometheus.Enabled, "telemetry", viper.GetBool("telemetry.prometheus.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Telemetry.Prometheus.Listen, "listen", viper.GetString("telemetry.prometheus.listen"), "Listen address and port of telemetry endpoint")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
