package monitor

import (
	"testing"

	"github.com/deepsky-data/starqc/internal/starfield"
)

func historyResult(id string) *starfield.AnalysisResult {
	return &starfield.AnalysisResult{AnalysisID: id}
}

func TestNewAnalysisHistory_DefaultCapacity(t *testing.T) {
	h := NewAnalysisHistory(0)
	if h == nil {
		t.Fatal("NewAnalysisHistory returned nil")
	}
	if h.capacity != DefaultHistoryCapacity {
		t.Errorf("default capacity: got %v want %v", h.capacity, DefaultHistoryCapacity)
	}

	h = NewAnalysisHistory(-5)
	if h.capacity != DefaultHistoryCapacity {
		t.Errorf("negative capacity: got %v want %v", h.capacity, DefaultHistoryCapacity)
	}

	h = NewAnalysisHistory(7)
	if h.capacity != 7 {
		t.Errorf("explicit capacity: got %v want %v", h.capacity, 7)
	}
}

func TestAnalysisHistory_AddAndLen(t *testing.T) {
	h := NewAnalysisHistory(4)

	if h.Len() != 0 {
		t.Errorf("empty history Len: got %v want %v", h.Len(), 0)
	}

	h.Add(historyResult("a"))
	h.Add(historyResult("b"))

	if h.Len() != 2 {
		t.Errorf("Len after two adds: got %v want %v", h.Len(), 2)
	}

	// Nil results are ignored
	h.Add(nil)
	if h.Len() != 2 {
		t.Errorf("Len after nil add: got %v want %v", h.Len(), 2)
	}
}

func TestAnalysisHistory_Eviction(t *testing.T) {
	h := NewAnalysisHistory(3)

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		h.Add(historyResult(id))
	}

	if h.Len() != 3 {
		t.Errorf("Len after overflow: got %v want %v", h.Len(), 3)
	}

	// Oldest entries are gone
	if h.ByID("a") != nil {
		t.Error("evicted result 'a' still retrievable")
	}
	if h.ByID("b") != nil {
		t.Error("evicted result 'b' still retrievable")
	}

	// Newest survive
	for _, id := range []string{"c", "d", "e"} {
		if h.ByID(id) == nil {
			t.Errorf("result %q missing after eviction", id)
		}
	}
}

func TestAnalysisHistory_Latest(t *testing.T) {
	h := NewAnalysisHistory(4)

	if h.Latest() != nil {
		t.Error("Latest on empty history should be nil")
	}

	h.Add(historyResult("first"))
	h.Add(historyResult("second"))

	latest := h.Latest()
	if latest == nil {
		t.Fatal("Latest returned nil after adds")
	}
	if latest.AnalysisID != "second" {
		t.Errorf("Latest: got %v want %v", latest.AnalysisID, "second")
	}
}

func TestAnalysisHistory_ByID(t *testing.T) {
	h := NewAnalysisHistory(4)
	h.Add(historyResult("alpha"))
	h.Add(historyResult("beta"))

	res := h.ByID("alpha")
	if res == nil {
		t.Fatal("ByID failed to find stored result")
	}
	if res.AnalysisID != "alpha" {
		t.Errorf("ByID: got %v want %v", res.AnalysisID, "alpha")
	}

	if h.ByID("gamma") != nil {
		t.Error("ByID returned a result for an unknown id")
	}
}

func TestAnalysisHistory_RecentOrder(t *testing.T) {
	h := NewAnalysisHistory(8)
	for _, id := range []string{"a", "b", "c", "d"} {
		h.Add(historyResult(id))
	}

	recent := h.Recent(3)
	if len(recent) != 3 {
		t.Fatalf("Recent(3): got %v results want %v", len(recent), 3)
	}

	// Newest first
	want := []string{"d", "c", "b"}
	for i, id := range want {
		if recent[i].AnalysisID != id {
			t.Errorf("Recent[%d]: got %v want %v", i, recent[i].AnalysisID, id)
		}
	}

	// A non-positive limit returns everything
	all := h.Recent(0)
	if len(all) != 4 {
		t.Errorf("Recent(0): got %v results want %v", len(all), 4)
	}

	// A limit beyond the stored count is clamped
	over := h.Recent(100)
	if len(over) != 4 {
		t.Errorf("Recent(100): got %v results want %v", len(over), 4)
	}
}
