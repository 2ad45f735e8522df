package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/facewatch/cmd/cameras"
	"github.com/tphakala/facewatch/cmd/gallery"
	"github.com/tphakala/facewatch/cmd/upload"
	"github.com/tphakala/facewatch/cmd/watch"
	"github.com/tphakala/facewatch/internal/conf"
	"github.com/tphakala/facewatch/internal/errors"
	"github.com/tphakala/facewatch/internal/logger"
)

// Version is reported to error telemetry. It is set at build time.
var Version = "dev"

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "facewatch",
		Short:        "FaceWatch face detection",
		Long:         "Detect faces on a live camera or in an image file, keep a gallery of saved faces and manage capture sources.",
		SilenceUsage: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
	}

	rootCmd.AddCommand(
		watch.Command(settings),
		upload.Command(settings),
		gallery.Command(settings),
		cameras.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initialize(settings)
	}

	return rootCmd
}

// initialize is called before any subcommand runs, after flags are parsed.
func initialize(settings *conf.Settings) error {
	if settings.Debug {
		settings.Main.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Main.Logging.Console != nil {
			settings.Main.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	central, err := logger.NewCentralLogger(&settings.Main.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)

	if settings.Telemetry.Sentry.Enabled {
		reporter, err := errors.NewSentryReporter(settings.Telemetry.Sentry.DSN, Version)
		if err != nil {
			// telemetry is optional
			logger.Global().Module("main").Warn("error telemetry disabled", logger.Error(err))
		} else {
			errors.SetTelemetryReporter(reporter)
		}
	}

	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Output.SQLitePath, "sqlitepath", viper.GetString("output.sqlitepath"), "Path to the SQLite database")
	rootCmd.PersistentFlags().StringVar(&settings.Detector.ModelPath, "model", viper.GetString("detector.modelpath"), "Path to the face cascade model")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
