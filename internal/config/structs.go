//nolint:lll
package config

// Config represents the complete configuration for the particles application.
// It covers every command (analyze, batch, serve) and is loaded from
// configuration files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Analysis pipeline
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis" json:"analysis"`

	// Overlay rendering
	Render RenderConfig `mapstructure:"render" yaml:"render" json:"render"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// AnalysisConfig contains the threshold, cleanup and filter settings.
type AnalysisConfig struct {
	ForegroundIsLow bool             `mapstructure:"foreground_is_low" yaml:"foreground_is_low" json:"foreground_is_low"`
	Threshold       int              `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	Invert          bool             `mapstructure:"invert" yaml:"invert" json:"invert"`
	Morphology      MorphologyConfig `mapstructure:"morphology" yaml:"morphology" json:"morphology"`
	Workers         int              `mapstructure:"workers" yaml:"workers" json:"workers"`
	MinArea         int              `mapstructure:"min_area" yaml:"min_area" json:"min_area"`
}

// MorphologyConfig selects the cleanup operation applied to the binary mask.
type MorphologyConfig struct {
	Operation  string `mapstructure:"operation" yaml:"operation" json:"operation"`
	Element    string `mapstructure:"element" yaml:"element" json:"element"`
	Iterations int    `mapstructure:"iterations" yaml:"iterations" json:"iterations"`
}

// RenderConfig contains overlay drawing settings. Colours are hex strings.
type RenderConfig struct {
	FalseColor    bool   `mapstructure:"false_color" yaml:"false_color" json:"false_color"`
	BoundingBox   bool   `mapstructure:"bounding_box" yaml:"bounding_box" json:"bounding_box"`
	ConvexHull    bool   `mapstructure:"convex_hull" yaml:"convex_hull" json:"convex_hull"`
	Centroid      bool   `mapstructure:"centroid" yaml:"centroid" json:"centroid"`
	Labels        bool   `mapstructure:"labels" yaml:"labels" json:"labels"`
	BoxColor      string `mapstructure:"box_color" yaml:"box_color" json:"box_color"`
	HullColor     string `mapstructure:"hull_color" yaml:"hull_color" json:"hull_color"`
	CentroidColor string `mapstructure:"centroid_color" yaml:"centroid_color" json:"centroid_color"`
	LabelColor    string `mapstructure:"label_color" yaml:"label_color" json:"label_color"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format     string `mapstructure:"format" yaml:"format" json:"format"`
	File       string `mapstructure:"file" yaml:"file" json:"file"`
	OverlayDir string `mapstructure:"overlay_dir" yaml:"overlay_dir" json:"overlay_dir"`
	Precision  int    `mapstructure:"precision" yaml:"precision" json:"precision"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	OverlayEnabled  bool   `mapstructure:"overlay_enabled" yaml:"overlay_enabled" json:"overlay_enabled"`

	// Per-client limits, zero disables a limit
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	RateLimitPerHour   int `mapstructure:"rate_limit_per_hour" yaml:"rate_limit_per_hour" json:"rate_limit_per_hour"`
	MaxRequestsPerDay  int `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB    int `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}
