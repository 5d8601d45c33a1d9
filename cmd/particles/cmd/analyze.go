package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/particles/internal/batch"
	"github.com/MeKo-Tech/particles/internal/pipeline"
	"github.com/MeKo-Tech/particles/internal/utils"
)

func newAnalyzeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <image>...",
		Short: "Analyze the particles of one or more images",
		Long: `Analyze images one after another and print one row per particle.

Supported formats: JPEG, PNG, GIF, BMP, TIFF

Examples:
  particles analyze sample.png
  particles analyze dark.png --foreground dark --min-area 10
  particles analyze a.png b.png --format csv --output particles.csv
  particles analyze sample.png --morphology open --element square3 --overlay-dir out/`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, a, args)
		},
	}
	addAnalysisFlags(cmd)
	addOutputFlags(cmd)
	return cmd
}

func runAnalyze(cmd *cobra.Command, a *app, args []string) error {
	cfg := a.configCopy()
	if err := applyAnalysisFlags(cmd, &cfg); err != nil {
		return err
	}
	if err := applyOutputFlags(cmd, &cfg); err != nil {
		return err
	}

	pc, err := cfg.ToPipelineConfig()
	if err != nil {
		return err
	}
	pc.Render = cfg.Output.OverlayDir != ""
	pl, err := pipeline.New(pc)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	results := make([]*pipeline.Result, 0, len(args))
	for _, path := range args {
		res, err := pl.AnalyzeFile(path)
		if err != nil {
			return fmt.Errorf("failed to analyze %s: %w", path, err)
		}
		slog.Info("analyzed image",
			"path", path,
			"particles", len(res.Particles),
			"threshold", res.Threshold,
			"duration", res.Duration)

		if cfg.Output.OverlayDir != "" {
			out := batch.OverlayPath(cfg.Output.OverlayDir, path)
			if err := utils.SaveImage(out, res.Image); err != nil {
				return fmt.Errorf("failed to save overlay: %w", err)
			}
			slog.Debug("overlay written", "path", out)
		}
		results = append(results, res)
	}

	return writeReport(cmd.OutOrStdout(), cfg.Output.File, cfg.Output.Format, results, cfg.Output.Precision)
}

// writeReport writes results to file, or to w when file is empty.
func writeReport(w io.Writer, file, format string, results []*pipeline.Result, precision int) error {
	if file == "" {
		return pipeline.WriteResults(w, format, results, precision)
	}

	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := pipeline.WriteResults(f, format, results, precision); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Results written to %s\n", file)
	return nil
}
