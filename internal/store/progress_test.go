package store

import (
	"testing"

	"github.com/keylia/api/internal/model"
)

func TestAdvanceProgressMonotonic(t *testing.T) {
	job := &model.RenderJob{ProgressPercent: 40}

	if !advanceProgress(job, 55) {
		t.Error("expected forward progress to apply")
	}
	if job.ProgressPercent != 55 {
		t.Errorf("got %d", job.ProgressPercent)
	}

	// Lower and equal values are ignored.
	if advanceProgress(job, 40) || advanceProgress(job, 55) {
		t.Error("backwards or equal progress must be ignored")
	}
	if job.ProgressPercent != 55 {
		t.Errorf("progress moved backwards: %d", job.ProgressPercent)
	}
}

func TestAdvanceProgressClampsAt100(t *testing.T) {
	job := &model.RenderJob{ProgressPercent: 90}
	advanceProgress(job, 120)
	if job.ProgressPercent != 100 {
		t.Errorf("got %d", job.ProgressPercent)
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, status := range []model.RenderStatus{
		model.RenderStatusCompleted,
		model.RenderStatusFailed,
		model.RenderStatusCancelled,
	} {
		if !status.Terminal() {
			t.Errorf("%s should be terminal", status)
		}
	}
	for _, status := range []model.RenderStatus{
		model.RenderStatusQueued,
		model.RenderStatusProcessing,
	} {
		if status.Terminal() {
			t.Errorf("%s should not be terminal", status)
		}
	}
}
