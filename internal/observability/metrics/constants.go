// Package metrics provides constants used across metric definitions.
package metrics

// Operation label values for output writers.
const (
	// OpNetCDFWrite represents writing one raster field.
	OpNetCDFWrite = "netcdf_write"
	// OpManifestWrite represents writing the run manifest.
	OpManifestWrite = "manifest_write"
	// OpReportWrite represents writing a binned CSV report.
	OpReportWrite = "report_write"
)

// Status label values.
const (
	// StatusSuccess marks a completed operation.
	StatusSuccess = "success"
	// StatusError marks a failed operation.
	StatusError = "error"
)

// Histogram bucket configuration constants.
// These define the base values and factors for exponential bucket generation.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart1KB is the starting bucket for 1KB histograms (1KB to ~1GB range).
	BucketStart1KB = 1024.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketFactor4 is used for byte sizes spanning several orders of magnitude.
	BucketFactor4 = 4

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)
