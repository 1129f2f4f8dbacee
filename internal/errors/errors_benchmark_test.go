package errors

import (
	"fmt"
	"testing"
)

// BenchmarkErrorCreationNoTelemetry tests error creation performance when telemetry is disabled
func BenchmarkErrorCreationNoTelemetry(b *testing.B) {
	SetTelemetryReporter(nil)
	b.ReportAllocs()

	for b.Loop() {
		_ = New(fmt.Errorf("test error")).
			Component("acoustic").
			Category(CategoryNumericAnomaly).
			Build()
	}
}

// BenchmarkErrorCreationWithContext tests error creation with scenario context
func BenchmarkErrorCreationWithContext(b *testing.B) {
	SetTelemetryReporter(nil)
	b.ReportAllocs()

	for b.Loop() {
		_ = New(fmt.Errorf("test error")).
			Component("stressor").
			Category(CategoryShapeMismatch).
			ScenarioContext("site_1.nc", 0).
			Build()
	}
}
