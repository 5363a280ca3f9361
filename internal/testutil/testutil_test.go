package testutil

import (
	"errors"
	"net/http"
	"testing"
)

// Passing paths run against the real t: a misfiring helper fails this test
// directly. Failure branches are exercised by every package that leans on
// these helpers.
func TestHelpersAcceptValidInputs(t *testing.T) {
	t.Parallel()

	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertNoError(t, nil)
	AssertError(t, errors.New("frame truncated"))
	AssertInDelta(t, "hfr", 2.35, 2.30, 0.1)
	AssertBetween(t, "eccentricity", 0.4, 0.0, 1.0)
	AssertBetween(t, "score at lower bound", 0, 0, 100)
	AssertBetween(t, "score at upper bound", 100, 0, 100)
	AssertFinite(t, "snr", 17.3)
	AssertFinite(t, "zero", 0)
	AssertFinite(t, "negative", -4.2)
}

func TestNewTestRequest(t *testing.T) {
	t.Parallel()

	req := NewTestRequest(http.MethodGet, "/api/analyses")
	if req.Method != http.MethodGet {
		t.Errorf("method = %s, want GET", req.Method)
	}
	if req.URL.Path != "/api/analyses" {
		t.Errorf("path = %s, want /api/analyses", req.URL.Path)
	}
}

func TestNewTestRecorder_InitialState(t *testing.T) {
	t.Parallel()

	w := NewTestRecorder()
	if w.Code != http.StatusOK {
		t.Errorf("initial Code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.Len() != 0 {
		t.Errorf("initial body length = %d, want 0", w.Body.Len())
	}
}
