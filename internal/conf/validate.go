// conf/validate.go

package conf

import (
	"fmt"
	"math"
	"strings"

	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/logger"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ErrorCategory lets the errors package classify ValidationError.
func (ve ValidationError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryValidation
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateInputSettings(&settings.Input); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateAnalysisSettings(&settings.Analysis); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateOutputSettings(&settings.Output); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if !logger.ValidLevel(settings.Logging.Level) {
		ve.Errors = append(ve.Errors, fmt.Sprintf("logging.level %q is not a known level", settings.Logging.Level))
	}

	if settings.Telemetry.Enabled && strings.TrimSpace(settings.Telemetry.DSN) == "" {
		ve.Errors = append(ve.Errors, "telemetry.dsn is required when telemetry is enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateInputSettings(settings *InputSettings) error {
	var errs []string
	if strings.TrimSpace(settings.DeviceDir) == "" {
		errs = append(errs, "input.device_dir is required")
	}
	if strings.TrimSpace(settings.Probabilities) == "" {
		errs = append(errs, "input.probabilities is required")
	}
	return joinErrors(errs)
}

func validateAnalysisSettings(settings *AnalysisSettings) error {
	var errs []string

	if strings.TrimSpace(settings.Metric) == "" {
		errs = append(errs, "analysis.metric is required")
	}
	if strings.TrimSpace(settings.Weighting) == "" {
		settings.Weighting = DefaultWeighting
	}
	if math.IsNaN(settings.Threshold) || math.IsInf(settings.Threshold, 0) {
		errs = append(errs, "analysis.threshold must be a finite number")
	}
	if settings.SpeciesResolutionKm2 < 0 || math.IsNaN(settings.SpeciesResolutionKm2) {
		errs = append(errs, "analysis.species_resolution_km2 must not be negative")
	}
	if !(settings.SingleConditionHours > 0) {
		errs = append(errs, "analysis.single_condition_hours must be positive")
	}
	if settings.Workers < 0 {
		errs = append(errs, "analysis.workers must not be negative")
	}

	return joinErrors(errs)
}

func validateOutputSettings(settings *OutputSettings) error {
	var errs []string

	if strings.TrimSpace(settings.Dir) == "" {
		errs = append(errs, "output.dir is required")
	}
	if settings.CRS <= 0 {
		errs = append(errs, "output.crs must be a positive EPSG code")
	}
	if settings.BinnedCSV && settings.Bins <= 0 {
		errs = append(errs, "output.bins must be positive when binned_csv is enabled")
	}

	return joinErrors(errs)
}

func joinErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}
