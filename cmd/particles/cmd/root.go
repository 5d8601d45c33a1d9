// Package cmd implements the particles command line interface.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/particles/internal/config"
	"github.com/MeKo-Tech/particles/internal/version"
)

// app holds the state shared by the commands of one root command.
type app struct {
	v       *viper.Viper
	loader  *config.Loader
	cfgFile string
	config  *config.Config
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCommand()

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "particles",
		Short: "Binary image particle analysis",
		Long: `Particle analysis for binary and grayscale images.

Each image is thresholded with Otsu's method (or a fixed threshold), cleaned
with a morphological closing, labeled into 4-connected particles and
described by area, centroid, eccentricity, perimeter, circularity, convex
hull and diameter.

Examples:
  particles analyze sample.png
  particles analyze sample.png --format json --overlay-dir out/
  particles batch images/ --recursive --workers 8 --format csv -o results.csv
  particles serve --port 8080
  particles presets --masks`,
		Version:      version.String(),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Global flags that apply to all commands
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $XDG_CONFIG_HOME/particles, /etc/particles)")
	root.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	// Bind flags to viper
	_ = a.v.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))
	_ = a.v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := a.loadConfig(); err != nil {
			return err
		}
		setupLogging(cmd.ErrOrStderr(), a.config)
		return nil
	}

	root.AddCommand(
		newAnalyzeCommand(a),
		newBatchCommand(a),
		newServeCommand(a),
		newPresetsCommand(a),
		newConfigCommand(a),
	)
	return root
}

// loadConfig reads the config file, environment and bound flags.
func (a *app) loadConfig() error {
	a.loader = config.NewLoaderWith(a.v)
	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.config = cfg
	return nil
}

// configCopy returns a copy of the loaded configuration that a command may
// modify with its flags.
func (a *app) configCopy() config.Config {
	if a.config == nil {
		return config.DefaultConfig()
	}
	return *a.config
}

// setupLogging installs a JSON slog handler on w with the configured level.
func setupLogging(w io.Writer, cfg *config.Config) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// Execute runs the root command until it finishes or SIGINT/SIGTERM cancels
// its context. This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns a freshly built root command for testing purposes.
// Every call has its own flags and configuration, so in-process executions
// do not leak state into each other.
func GetRootCommand() *cobra.Command {
	return newRootCommand()
}
