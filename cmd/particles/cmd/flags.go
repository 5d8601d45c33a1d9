package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/particles/internal/config"
	"github.com/MeKo-Tech/particles/internal/morphology"
)

// addAnalysisFlags registers the analysis flags shared by analyze, batch
// and serve. Flags override configuration values only when set.
func addAnalysisFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("threshold", -1, "fixed binarization threshold 0..255 (-1 = Otsu)")
	f.String("foreground", "bright", "particle polarity: bright or dark")
	f.Bool("invert", false, "invert the image before analysis")
	f.String("morphology", "close", "cleanup operation: "+strings.Join(morphology.OperationNames(), ", "))
	f.String("element", "diamond5", "structuring element preset (see 'particles presets')")
	f.Int("iterations", 1, "morphology iterations")
	f.Int("min-area", 1, "drop particles with a smaller area in pixels")
	f.Int("row-workers", 0, "row workers per stage (0 = number of CPUs)")
	f.Bool("labels", false, "draw label numbers in overlays")
}

// applyAnalysisFlags copies the set analysis flags into cfg.
func applyAnalysisFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("threshold") {
		cfg.Analysis.Threshold, _ = f.GetInt("threshold")
	}
	if f.Changed("foreground") {
		fg, _ := f.GetString("foreground")
		switch strings.ToLower(fg) {
		case "bright":
			cfg.Analysis.ForegroundIsLow = false
		case "dark":
			cfg.Analysis.ForegroundIsLow = true
		default:
			return fmt.Errorf("invalid foreground %q (must be bright or dark)", fg)
		}
	}
	if f.Changed("invert") {
		cfg.Analysis.Invert, _ = f.GetBool("invert")
	}
	if f.Changed("morphology") {
		cfg.Analysis.Morphology.Operation, _ = f.GetString("morphology")
	}
	if f.Changed("element") {
		cfg.Analysis.Morphology.Element, _ = f.GetString("element")
	}
	if f.Changed("iterations") {
		cfg.Analysis.Morphology.Iterations, _ = f.GetInt("iterations")
	}
	if f.Changed("min-area") {
		cfg.Analysis.MinArea, _ = f.GetInt("min-area")
	}
	if f.Changed("row-workers") {
		cfg.Analysis.Workers, _ = f.GetInt("row-workers")
	}
	if f.Changed("labels") {
		cfg.Render.Labels, _ = f.GetBool("labels")
	}
	return cfg.Validate()
}

// addOutputFlags registers the report flags of analyze and batch.
func addOutputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("format", "f", "table", "output format (table, json, csv, yaml)")
	f.StringP("output", "o", "", "output file (default: stdout)")
	f.String("overlay-dir", "", "directory to write annotated overlay images")
	f.Int("precision", 4, "decimals of floating point CSV columns")
}

// applyOutputFlags copies the set output flags into cfg.
func applyOutputFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("format") {
		cfg.Output.Format, _ = f.GetString("format")
	}
	if f.Changed("output") {
		cfg.Output.File, _ = f.GetString("output")
	}
	if f.Changed("overlay-dir") {
		cfg.Output.OverlayDir, _ = f.GetString("overlay-dir")
	}
	if f.Changed("precision") {
		cfg.Output.Precision, _ = f.GetInt("precision")
	}
	return cfg.Validate()
}
