package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/naga-nandyala/azure-cli-pkg-1/internal/logger"
	"github.com/naga-nandyala/azure-cli-pkg-1/internal/service/builder"
	"github.com/naga-nandyala/azure-cli-pkg-1/internal/version"
)

// errUnknownLogLevel is returned when the --log-level flag value is not recognized.
var errUnknownLogLevel = errors.New("unknown log level")

var (
	// configPath to the build settings YAML file.
	configPath string

	// outputDir optionally overrides the artifacts directory.
	outputDir string

	// logLevel selects the minimum diagnostic level.
	logLevel string

	// rootCmd represents the base command for building the installer.
	rootCmd = &cobra.Command{
		Use:   "azure-cli-pkg [platform-tag]",
		Short: "Build a native macOS .pkg installer for the Azure CLI",
		Long: "Build a native macOS installer package that installs the Azure CLI " +
			"directly to /usr/local with a self-contained Python runtime. " +
			"Supported platform tags: " + strings.Join(builder.PlatformTags(), ", ") + ".",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("%w: %q (expected one of: debug, info, warn or error)", errUnknownLogLevel, logLevel)
			}

			logger.SetLevel(level)

			options := &builder.Options{
				ConfigPath:  configPath,
				PlatformTag: args[0],
				OutputDir:   outputDir,
				Version:     os.Getenv(builder.VersionEnvVar),
			}

			return builder.Run(ctx, options)
		},
	}
)

// Execute runs the azure-cli-pkg CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to build settings file")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "artifacts directory (defaults to dist/macos_pkg)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
}
