// env.go - Environment variable configuration and validation for paracousti
package conf

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "PARACOUSTI"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"input.device_dir", "PARACOUSTI_INPUT_DEVICE_DIR", nil},
		{"input.baseline_dir", "PARACOUSTI_INPUT_BASELINE_DIR", nil},
		{"input.probabilities", "PARACOUSTI_INPUT_PROBABILITIES", nil},
		{"input.species_dir", "PARACOUSTI_INPUT_SPECIES_DIR", nil},
		{"input.risk_layer", "PARACOUSTI_INPUT_RISK_LAYER", nil},

		{"analysis.metric", "PARACOUSTI_ANALYSIS_METRIC", nil},
		{"analysis.weighting", "PARACOUSTI_ANALYSIS_WEIGHTING", nil},
		{"analysis.threshold", "PARACOUSTI_ANALYSIS_THRESHOLD", validateEnvFloat},
		{"analysis.depth_policy", "PARACOUSTI_ANALYSIS_DEPTH_POLICY", nil},
		{"analysis.species_resolution_km2", "PARACOUSTI_ANALYSIS_SPECIES_RESOLUTION_KM2", validateEnvNonNegativeFloat},
		{"analysis.single_condition_hours", "PARACOUSTI_ANALYSIS_SINGLE_CONDITION_HOURS", validateEnvNonNegativeFloat},
		{"analysis.workers", "PARACOUSTI_ANALYSIS_WORKERS", validateEnvNonNegativeInt},

		{"output.dir", "PARACOUSTI_OUTPUT_DIR", nil},
		{"output.crs", "PARACOUSTI_OUTPUT_CRS", validateEnvNonNegativeInt},
		{"output.binned_csv", "PARACOUSTI_OUTPUT_BINNED_CSV", validateEnvBool},
		{"output.bins", "PARACOUSTI_OUTPUT_BINS", validateEnvNonNegativeInt},
		{"output.metrics_file", "PARACOUSTI_OUTPUT_METRICS_FILE", nil},

		{"logging.level", "PARACOUSTI_LOGGING_LEVEL", nil},
		{"logging.file", "PARACOUSTI_LOGGING_FILE", nil},

		{"telemetry.enabled", "PARACOUSTI_TELEMETRY_ENABLED", validateEnvBool},
		{"telemetry.dsn", "PARACOUSTI_TELEMETRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvFloat(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("must be a finite number")
	}
	return nil
}

func validateEnvNonNegativeFloat(value string) error {
	if err := validateEnvFloat(value); err != nil {
		return err
	}
	if f, _ := strconv.ParseFloat(value, 64); f < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if n < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return bindEnvVars(v)
}
