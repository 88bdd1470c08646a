package scheduler

import (
	"testing"
	"time"
)

func jobResult(success bool) JobResult {
	now := time.Now()
	return JobResult{
		JobName:   "ranking_warmup",
		StartTime: now,
		EndTime:   now.Add(time.Second),
		Duration:  time.Second,
		Success:   success,
	}
}

func TestJobHistoryKeepsLast100(t *testing.T) {
	h := &JobHistory{}

	for i := 0; i < 150; i++ {
		h.AddResult(jobResult(true))
	}

	if len(h.Results) != 100 {
		t.Errorf("len(Results) = %d, want 100", len(h.Results))
	}
}

func TestGetLatestResults(t *testing.T) {
	h := &JobHistory{}

	for i := 0; i < 5; i++ {
		h.AddResult(jobResult(true))
	}

	if got := h.GetLatestResults(3); len(got) != 3 {
		t.Errorf("GetLatestResults(3) returned %d results", len(got))
	}
	if got := h.GetLatestResults(10); len(got) != 5 {
		t.Errorf("GetLatestResults(10) returned %d results, want all 5", len(got))
	}
	if got := h.GetLatestResults(0); len(got) != 0 {
		t.Errorf("GetLatestResults(0) returned %d results", len(got))
	}
}

func TestGetSuccessRate(t *testing.T) {
	h := &JobHistory{}

	if rate := h.GetSuccessRate(); rate != 0 {
		t.Errorf("empty history success rate = %v, want 0", rate)
	}

	h.AddResult(jobResult(true))
	h.AddResult(jobResult(true))
	h.AddResult(jobResult(false))
	h.AddResult(jobResult(false))

	if rate := h.GetSuccessRate(); rate != 0.5 {
		t.Errorf("success rate = %v, want 0.5", rate)
	}
}
