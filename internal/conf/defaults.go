// conf/defaults.go default values for settings
package conf

import "github.com/spf13/viper"

// Default values shared with the CLI flag definitions.
const (
	DefaultMetric               = "SPL"
	DefaultWeighting            = "None"
	DefaultThreshold            = 120.0
	DefaultDepthPolicy          = "depth_maximum"
	DefaultSingleConditionHours = 24.0
	DefaultOutputDir            = "output"
	DefaultCRS                  = 4326
	DefaultBins                 = 10
	DefaultLogLevel             = "info"
)

// setDefaultConfig registers default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("input.device_dir", "")
	v.SetDefault("input.baseline_dir", "")
	v.SetDefault("input.probabilities", "")
	v.SetDefault("input.species_dir", "")
	v.SetDefault("input.risk_layer", "")

	v.SetDefault("analysis.metric", DefaultMetric)
	v.SetDefault("analysis.weighting", DefaultWeighting)
	v.SetDefault("analysis.threshold", DefaultThreshold)
	v.SetDefault("analysis.depth_policy", DefaultDepthPolicy)
	v.SetDefault("analysis.species_resolution_km2", 0.0)
	v.SetDefault("analysis.single_condition_hours", DefaultSingleConditionHours)
	v.SetDefault("analysis.workers", 0)

	v.SetDefault("output.dir", DefaultOutputDir)
	v.SetDefault("output.crs", DefaultCRS)
	v.SetDefault("output.binned_csv", false)
	v.SetDefault("output.bins", DefaultBins)
	v.SetDefault("output.metrics_file", "")

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.file", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")
}
