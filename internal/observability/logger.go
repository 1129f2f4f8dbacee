package observability

import "github.com/seatkit/paracousti/internal/logger"

// Package-level cached logger instance for efficiency.
var log = logger.Global().Module("observability")
