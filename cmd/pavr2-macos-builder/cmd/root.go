package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/pavr2-macos-builder/internal/logger"
	"github.com/oshokin/pavr2-macos-builder/internal/service/builder"
	"github.com/oshokin/pavr2-macos-builder/internal/version"
)

var (
	// configPath is an optional YAML file with build settings.
	configPath string
	// workDir is where the staging directory is created.
	workDir string
	// logLevel is the minimum level of printed messages.
	logLevel string

	// rootCmd stages the macOS installer inputs and archives them.
	rootCmd = &cobra.Command{
		Use:   "pavr2-macos-builder",
		Short: "Stage and archive the macOS installer files.",
		Long: `Assembles the inputs of the Pololu USB AVR Programmer v2 macOS installer.

Creates pavr2-macos-files/ in the working directory with the application bundle,
the PATH entry, installer resources, distribution.xml and build.sh, then archives
it to $out/pavr2-macos-files.tar. Run build.sh on macOS to produce the .pkg.

Settings come from the environment: _PATH, config_name, out, payload, src and
license. A YAML file passed with --config supplies defaults for any of them.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			// Interrupts cancel the archiver.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &builder.Options{
				ConfigPath: configPath,
				WorkDir:    workDir,
			}

			return builder.Run(ctx, options)
		},
	}
)

// Execute runs the CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error(context.Background(), err)

		_ = logger.Logger().Sync()

		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "optional YAML file with build settings")
	rootCmd.Flags().StringVarP(&workDir, "workdir", "w", "", "directory receiving the staging tree (default: current directory)")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "log level: debug, info, warn, error")
}
