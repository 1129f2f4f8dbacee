// Package metrics provides Prometheus metrics for paracousti runs.
package metrics

import "github.com/seatkit/paracousti/internal/logger"

// Package-level cached logger instance for efficiency.
// All logging in this package should use this variable.
var log = logger.Global().Module("metrics")
