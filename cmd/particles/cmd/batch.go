package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/particles/internal/batch"
	"github.com/MeKo-Tech/particles/internal/config"
)

func newBatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <path>...",
		Short: "Analyze many images in parallel",
		Long: `Analyze image files and directories on a pool of workers.

Directories are scanned for supported images (JPEG, PNG, GIF, BMP, TIFF);
files ending in _overlay.png are skipped so overlays can be written next to
their inputs.

Examples:
  particles batch images/
  particles batch images/ --recursive --workers 8
  particles batch a.png b.png --format json --output results.json
  particles batch images/ --include '*.tif' --exclude 'calib*' --overlay-dir out/`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, a, args)
		},
	}
	addAnalysisFlags(cmd)
	addOutputFlags(cmd)

	f := cmd.Flags()
	f.IntP("workers", "w", 4, "number of images analyzed concurrently")
	f.BoolP("recursive", "r", false, "scan directories recursively")
	f.StringSlice("include", nil, "only analyze files matching these patterns")
	f.StringSlice("exclude", nil, "skip files matching these patterns")
	f.Bool("continue-on-error", false, "keep going when an image fails")
	f.Bool("progress", false, "show a progress bar")
	f.BoolP("quiet", "q", false, "suppress progress and statistics")
	f.Bool("stats", false, "print processing statistics")
	return cmd
}

// configToBatchConfig maps the resolved configuration to batch.Config.
func configToBatchConfig(cmd *cobra.Command, cfg *config.Config) (*batch.Config, error) {
	f := cmd.Flags()
	if f.Changed("workers") {
		cfg.Batch.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("recursive") {
		cfg.Batch.Recursive, _ = f.GetBool("recursive")
	}
	if f.Changed("include") {
		cfg.Batch.Include, _ = f.GetStringSlice("include")
	}
	if f.Changed("exclude") {
		cfg.Batch.Exclude, _ = f.GetStringSlice("exclude")
	}
	if f.Changed("continue-on-error") {
		cfg.Batch.ContinueOnError, _ = f.GetBool("continue-on-error")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pc, err := cfg.ToPipelineConfig()
	if err != nil {
		return nil, err
	}

	bc := batch.DefaultConfig()
	bc.Pipeline = pc
	bc.OverlayDir = cfg.Output.OverlayDir
	bc.Format = cfg.Output.Format
	bc.OutputFile = cfg.Output.File
	bc.Precision = cfg.Output.Precision
	bc.Workers = cfg.Batch.Workers
	bc.ContinueOnError = cfg.Batch.ContinueOnError
	bc.Recursive = cfg.Batch.Recursive
	bc.IncludePatterns = cfg.Batch.Include
	bc.ExcludePatterns = cfg.Batch.Exclude
	bc.ShowProgress, _ = f.GetBool("progress")
	bc.Quiet, _ = f.GetBool("quiet")
	bc.ShowStats, _ = f.GetBool("stats")
	bc.Stderr = cmd.ErrOrStderr()
	return &bc, nil
}

func runBatch(cmd *cobra.Command, a *app, args []string) error {
	cfg := a.configCopy()
	if err := applyAnalysisFlags(cmd, &cfg); err != nil {
		return err
	}
	if err := applyOutputFlags(cmd, &cfg); err != nil {
		return err
	}
	bc, err := configToBatchConfig(cmd, &cfg)
	if err != nil {
		return err
	}

	result, err := batch.ProcessBatch(cmd.Context(), args, bc)
	if err != nil {
		return err
	}

	if err := result.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, bc.Precision, bc.Quiet); err != nil {
		return err
	}
	if bc.ShowStats {
		result.PrintStats(cmd.ErrOrStderr(), bc.Quiet)
	}
	if n := len(result.Failures); n > 0 {
		slog.Warn("some images failed", "failed", n, "total", len(result.ImagePaths))
		if !bc.Quiet {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d images failed\n", n, len(result.ImagePaths))
		}
	}
	return nil
}
