package metrics

// Recorder defines a minimal interface for recording metrics.
// Writers depend on it rather than on a concrete metrics type so tests can
// capture what was recorded.
type Recorder interface {
	// RecordOperation records an operation (e.g. "netcdf_write") with its status.
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its category.
	RecordError(operation, errorType string)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordOperation(string, string) {}
func (NopRecorder) RecordDuration(string, float64) {}
func (NopRecorder) RecordError(string, string) {}
