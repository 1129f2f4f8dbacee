package metrics

import "sync"

// MemoryRecorder is a Recorder that keeps counts in memory. It backs the
// writers when no registry is configured and lets tests inspect what was recorded.
type MemoryRecorder struct {
	mu         sync.RWMutex
	operations map[string]map[string]int // operation -> status -> count
	durations  map[string][]float64
	errors     map[string]map[string]int // operation -> error type -> count
}

// NewMemoryRecorder returns an empty MemoryRecorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		operations: make(map[string]map[string]int),
		durations:  make(map[string][]float64),
		errors:     make(map[string]map[string]int),
	}
}

// RecordOperation implements Recorder.
func (r *MemoryRecorder) RecordOperation(operation, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	increment(r.operations, operation, status)
}

// RecordDuration implements Recorder.
func (r *MemoryRecorder) RecordDuration(operation string, seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations[operation] = append(r.durations[operation], seconds)
}

// RecordError implements Recorder.
func (r *MemoryRecorder) RecordError(operation, errorType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	increment(r.errors, operation, errorType)
}

// OperationCount returns how often operation finished with status.
func (r *MemoryRecorder) OperationCount(operation, status string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.operations[operation][status]
}

// ErrorCount returns how often operation failed with errorType.
func (r *MemoryRecorder) ErrorCount(operation, errorType string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.errors[operation][errorType]
}

// Durations returns a copy of the durations recorded for operation.
func (r *MemoryRecorder) Durations(operation string) []float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]float64(nil), r.durations[operation]...)
}

// Empty reports whether nothing has been recorded.
func (r *MemoryRecorder) Empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.operations) == 0 && len(r.durations) == 0 && len(r.errors) == 0
}

func increment(m map[string]map[string]int, outer, inner string) {
	if m[outer] == nil {
		m[outer] = make(map[string]int)
	}
	m[outer][inner]++
}
