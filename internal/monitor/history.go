package monitor

import (
	"sync"

	"github.com/deepsky-data/starqc/internal/starfield"
)

// DefaultHistoryCapacity bounds the in-memory analysis history when the
// web server is constructed without an explicit capacity.
const DefaultHistoryCapacity = 32

// AnalysisHistory keeps the most recent analysis results for the web
// interface, newest last. Once capacity is reached the oldest entry is
// dropped. Results are treated as immutable after Add; accessors hand out
// the stored pointers.
type AnalysisHistory struct {
	mu       sync.Mutex
	capacity int
	results  []*starfield.AnalysisResult
}

// NewAnalysisHistory creates a history bounded to the given capacity.
// Non-positive capacities fall back to DefaultHistoryCapacity.
func NewAnalysisHistory(capacity int) *AnalysisHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &AnalysisHistory{capacity: capacity}
}

// Add records a result, evicting the oldest entry when full. Nil results
// are ignored.
func (h *AnalysisHistory) Add(res *starfield.AnalysisResult) {
	if res == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.results = append(h.results, res)
	if len(h.results) > h.capacity {
		// Shift rather than reslice so the evicted entry is released.
		copy(h.results, h.results[1:])
		h.results[len(h.results)-1] = nil
		h.results = h.results[:len(h.results)-1]
	}
}

// Latest returns the most recently added result, or nil when empty.
func (h *AnalysisHistory) Latest() *starfield.AnalysisResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.results) == 0 {
		return nil
	}
	return h.results[len(h.results)-1]
}

// ByID returns the result with the given analysis ID, or nil.
func (h *AnalysisHistory) ByID(id string) *starfield.AnalysisResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.results) - 1; i >= 0; i-- {
		if h.results[i].AnalysisID == id {
			return h.results[i]
		}
	}
	return nil
}

// Recent returns up to limit results, newest first. limit <= 0 returns
// everything.
func (h *AnalysisHistory) Recent(limit int) []*starfield.AnalysisResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.results)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*starfield.AnalysisResult, 0, n)
	for i := len(h.results) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.results[i])
	}
	return out
}

// Len returns the number of stored results.
func (h *AnalysisHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.results)
}
