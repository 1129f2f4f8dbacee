// Package conf provides configuration management for paracousti.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/logger"
)

// Settings contains all configuration options for a stressor run.
type Settings struct {
	Input     InputSettings     `mapstructure:"input" yaml:"input"`
	Analysis  AnalysisSettings  `mapstructure:"analysis" yaml:"analysis"`
	Output    OutputSettings    `mapstructure:"output" yaml:"output"`
	Logging   LoggingSettings   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetrySettings `mapstructure:"telemetry" yaml:"telemetry"`
}

// InputSettings locates the model runs and auxiliary layers.
type InputSettings struct {
	DeviceDir     string `mapstructure:"device_dir" yaml:"device_dir"`       // directory of with-device NetCDF runs
	BaselineDir   string `mapstructure:"baseline_dir" yaml:"baseline_dir"`   // directory of no-device runs, optional
	Probabilities string `mapstructure:"probabilities" yaml:"probabilities"` // boundary condition CSV
	SpeciesDir    string `mapstructure:"species_dir" yaml:"species_dir"`     // directory holding species files, optional
	RiskLayer     string `mapstructure:"risk_layer" yaml:"risk_layer"`       // secondary constraint raster, optional
}

// AnalysisSettings controls the aggregation.
type AnalysisSettings struct {
	Metric               string  `mapstructure:"metric" yaml:"metric"`                                 // metric variable suffix, e.g. SPL_flat
	Weighting            string  `mapstructure:"weighting" yaml:"weighting"`                           // weighting prefix, "None" for unweighted
	Threshold            float64 `mapstructure:"threshold" yaml:"threshold"`                           // dB threshold
	DepthPolicy          string  `mapstructure:"depth_policy" yaml:"depth_policy"`                     // depth_maximum, depth_average, bottom_bin, top_bin
	SpeciesResolutionKm2 float64 `mapstructure:"species_resolution_km2" yaml:"species_resolution_km2"` // 0 disables area scaling
	SingleConditionHours float64 `mapstructure:"single_condition_hours" yaml:"single_condition_hours"` // SEL exposure for per-scenario results
	Workers              int     `mapstructure:"workers" yaml:"workers"`                               // 0 uses GOMAXPROCS
}

// OutputSettings controls what gets written.
type OutputSettings struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`
	CRS         int    `mapstructure:"crs" yaml:"crs"` // EPSG code
	BinnedCSV   bool   `mapstructure:"binned_csv" yaml:"binned_csv"`
	Bins        int    `mapstructure:"bins" yaml:"bins"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"` // Prometheus textfile, optional
}

// LoggingSettings controls log verbosity and the optional JSON log file.
type LoggingSettings struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// TelemetrySettings controls optional Sentry error reporting.
type TelemetrySettings struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN     string `mapstructure:"dsn" yaml:"dsn"`
}

// ConfigName is the base name of the configuration file searched for by default.
const ConfigName = "paracousti"

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the configuration file and environment variables into Settings.
// An empty configFile searches the default locations; a missing file there is not an error.
func Load(configFile string) (*Settings, error) {
	settings, err := load(viper.GetViper(), configFile)
	if err != nil {
		return nil, err
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()

	return settings, nil
}

// GetSettings returns the most recently loaded settings, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

func load(v *viper.Viper, configFile string) (*Settings, error) {
	if err := initViper(v, configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_settings").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// initViper sets defaults, environment bindings and reads the configuration file.
func initViper(v *viper.Viper, configFile string) error {
	setDefaultConfig(v)

	if err := configureEnvironmentVariables(v); err != nil {
		GetLogger().Warn("environment configuration issues", logger.Error(err))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.New(err).
				Component("configuration").
				Category(errors.CategoryConfiguration).
				FileContext(configFile).
				Context("operation", "read_config").
				Build()
		}
		return nil
	}

	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	for _, path := range defaultConfigPaths() {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "read_config").
			Build()
	}

	GetLogger().Debug("configuration file loaded", logger.String("path", v.ConfigFileUsed()))
	return nil
}

// defaultConfigPaths lists the directories searched for paracousti.yaml.
func defaultConfigPaths() []string {
	paths := []string{"."}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", ConfigName))
	}
	return paths
}
