package service

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/keylia/api/internal/model"
)

func photos(n int) []model.PhotoDescriptor {
	out := make([]model.PhotoDescriptor, n)
	for i := range out {
		out[i] = model.PhotoDescriptor{URL: "https://cdn/photo.jpg"}
	}
	return out
}

func TestPlanScenesDurationTable(t *testing.T) {
	cases := []struct {
		duration   int
		wantCount  int
		wantLength int
	}{
		{15, 3, 5000},
		{30, 5, 6000},
		{60, 8, 7500},
		{45, 5, 6000}, // unknown durations fall back to the 30s plan
	}

	for _, c := range cases {
		scenes := PlanScenes(c.duration, photos(12))
		if len(scenes) != c.wantCount {
			t.Errorf("duration %d: got %d scenes, want %d", c.duration, len(scenes), c.wantCount)
			continue
		}
		for _, sc := range scenes {
			if sc.DurationMs != c.wantLength {
				t.Errorf("duration %d: scene length %d, want %d", c.duration, sc.DurationMs, c.wantLength)
			}
		}
	}
}

func TestPlanScenesCappedByPhotoCount(t *testing.T) {
	scenes := PlanScenes(60, photos(3))
	if len(scenes) != 3 {
		t.Errorf("got %d scenes, want 3", len(scenes))
	}
}

func TestPlanScenesCameraRoundRobin(t *testing.T) {
	scenes := PlanScenes(60, photos(8))

	want := []model.CameraMovement{
		model.CameraZoomIn, model.CameraPanRight, model.CameraZoomOut,
		model.CameraPanLeft, model.CameraOrbitRight,
		model.CameraZoomIn, model.CameraPanRight, model.CameraZoomOut,
	}
	for i, sc := range scenes {
		if sc.CameraMovement != want[i] {
			t.Errorf("scene %d camera = %s, want %s", i, sc.CameraMovement, want[i])
		}
	}
}

func TestPlanScenesTimelineAccountsForOverlap(t *testing.T) {
	scenes := PlanScenes(30, photos(5))

	// Consecutive starts advance by duration minus the 500ms crossfade.
	for i := 1; i < len(scenes); i++ {
		wantStart := scenes[i-1].StartTimeMs + scenes[i-1].DurationMs - transitionDurationMs
		if scenes[i].StartTimeMs != wantStart {
			t.Errorf("scene %d start = %d, want %d", i, scenes[i].StartTimeMs, wantStart)
		}
	}
	for _, sc := range scenes {
		if sc.TransitionType != model.TransitionCrossfade || sc.TransitionDuration != transitionDurationMs {
			t.Errorf("scene %d transition = %s/%d", sc.SequenceOrder, sc.TransitionType, sc.TransitionDuration)
		}
	}
}

func TestDuplicateSubmitReplaysCachedAcceptance(t *testing.T) {
	original := &model.GenerateTourVideoResponse{
		ProjectID:   "proj-1",
		RenderJobID: "job-1",
		Status:      model.RenderStatusQueued,
		Message:     "Tour video generation started",
	}
	stored, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}

	cached, ok := decodeAcceptance(stored)
	if !ok {
		t.Fatal("cached acceptance did not decode")
	}
	if *cached != *original {
		t.Errorf("replayed response = %+v, want %+v", cached, original)
	}
	if cached.Message != original.Message {
		t.Errorf("message = %q, want %q", cached.Message, original.Message)
	}

	// A replay serializes back to the exact bytes the first submit returned.
	replayed, err := json.Marshal(cached)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(replayed, stored) {
		t.Errorf("replayed bytes %s differ from stored %s", replayed, stored)
	}
}

func TestDecodeAcceptanceRejectsBadCacheEntries(t *testing.T) {
	for _, data := range [][]byte{
		[]byte("not json"),
		[]byte("{}"),
		[]byte(`{"projectId":"p"}`),
	} {
		if _, ok := decodeAcceptance(data); ok {
			t.Errorf("decodeAcceptance(%s) = hit, want miss", data)
		}
	}
}

func TestEstimateRemaining(t *testing.T) {
	started := time.Now().Add(-60 * time.Second)
	job := &model.RenderJob{
		Status:          model.RenderStatusProcessing,
		ProgressPercent: 50,
		StartedAt:       &started,
	}

	remaining := estimateRemaining(job, time.Now())
	if remaining == nil {
		t.Fatal("expected an estimate for a running job")
	}
	// 60s elapsed at 50%: roughly 60s remaining.
	if *remaining < 55 || *remaining > 65 {
		t.Errorf("remaining = %d, want ~60", *remaining)
	}
}

func TestEstimateRemainingNotRunning(t *testing.T) {
	if got := estimateRemaining(&model.RenderJob{Status: model.RenderStatusQueued}, time.Now()); got != nil {
		t.Errorf("expected nil for queued job, got %v", got)
	}

	started := time.Now()
	job := &model.RenderJob{
		Status:          model.RenderStatusProcessing,
		ProgressPercent: 5,
		StartedAt:       &started,
	}
	if got := estimateRemaining(job, time.Now()); got != nil {
		t.Errorf("expected nil before meaningful progress, got %v", got)
	}
}
