package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/keylia/api/internal/generator"
	"github.com/keylia/api/internal/model"
)

type fakeVoiceoverSynth struct {
	delay time.Duration
	err   error
}

func (f *fakeVoiceoverSynth) Generate(ctx context.Context, script *model.GeneratedScript, voice model.VoiceSettings) (*model.VoiceoverResult, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &model.VoiceoverResult{AudioData: []byte("audio"), DurationSeconds: 12}, nil
}

type fakeClipGenerator struct {
	mu       sync.Mutex
	inFlight int
	peak     int
	failOn   string
}

func (f *fakeClipGenerator) Generate(ctx context.Context, req *generator.ClipRequest) (*model.SceneClipResult, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	time.Sleep(5 * time.Millisecond)

	if f.failOn != "" && strings.Contains(req.ImageURL, f.failOn) {
		return nil, errors.New("provider rejected image")
	}
	return &model.SceneClipResult{
		VideoURL:        "https://cdn/clip-" + req.ImageURL,
		DurationSeconds: float64(req.DurationMs) / 1000,
	}, nil
}

func tourPayload(sceneCount int) *model.TourJobPayload {
	scenes := make([]model.Scene, sceneCount)
	for i := range scenes {
		scenes[i] = model.Scene{
			ID:             fmt.Sprintf("scene-%d", i),
			SequenceOrder:  i + 1,
			ImageURL:       fmt.Sprintf("photo-%d.jpg", i),
			DurationMs:     5000,
			CameraMovement: model.CameraZoomIn,
		}
	}
	return &model.TourJobPayload{
		ProjectID: "proj-1",
		Scenes:    scenes,
		Style:     model.StyleSettings{Tone: model.ToneModern, VideoModel: model.VideoModelKling},
		Voice:     model.VoiceSettings{Enabled: true, Language: "en-US"},
	}
}

func testScript(sceneCount int) *model.GeneratedScript {
	scenes := make([]model.ScriptScene, sceneCount)
	for i := range scenes {
		scenes[i] = model.ScriptScene{Narration: "line", OnScreenText: "TEXT"}
	}
	return &model.GeneratedScript{Scenes: scenes}
}

func TestRunFanOutPreservesSceneOrder(t *testing.T) {
	payload := tourPayload(5)
	vo, clips, err := runFanOut(context.Background(), payload, testScript(5), &fakeVoiceoverSynth{}, &fakeClipGenerator{}, 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vo == nil || len(vo.AudioData) == 0 {
		t.Fatal("expected voiceover result")
	}
	if len(clips) != 5 {
		t.Fatalf("got %d clips, want 5", len(clips))
	}
	for i, clip := range clips {
		want := fmt.Sprintf("https://cdn/clip-photo-%d.jpg", i)
		if clip.VideoURL != want {
			t.Errorf("clip %d URL = %s, want %s", i, clip.VideoURL, want)
		}
	}
}

func TestRunFanOutFailureDiscardsPartialResults(t *testing.T) {
	payload := tourPayload(4)
	gen := &fakeClipGenerator{failOn: "photo-2"}

	vo, clips, err := runFanOut(context.Background(), payload, testScript(4), &fakeVoiceoverSynth{}, gen, 5, nil)
	if err == nil {
		t.Fatal("expected error when one clip fails")
	}
	if vo != nil || clips != nil {
		t.Error("expected no partial results on failure")
	}
	if !strings.Contains(err.Error(), "scene 3 clip") {
		t.Errorf("error should name the failing scene: %v", err)
	}
}

func TestRunFanOutVoiceoverFailureFailsAll(t *testing.T) {
	payload := tourPayload(3)
	synth := &fakeVoiceoverSynth{err: errors.New("synthesis failed")}

	_, _, err := runFanOut(context.Background(), payload, testScript(3), synth, &fakeClipGenerator{}, 5, nil)
	if err == nil {
		t.Fatal("expected error when voiceover fails")
	}
	if !strings.Contains(err.Error(), "voiceover") {
		t.Errorf("error should name the voiceover: %v", err)
	}
}

func TestRunFanOutRespectsConcurrencyLimit(t *testing.T) {
	payload := tourPayload(8)
	gen := &fakeClipGenerator{}

	_, _, err := runFanOut(context.Background(), payload, testScript(8), &fakeVoiceoverSynth{delay: 20 * time.Millisecond}, gen, 2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Limit is clips plus the one voiceover slot.
	if gen.peak > 3 {
		t.Errorf("peak concurrent clips = %d, want <= 3", gen.peak)
	}
}

func TestRunFanOutReportsClipCompletion(t *testing.T) {
	payload := tourPayload(4)

	var mu sync.Mutex
	calls := 0
	onDone := func() {
		mu.Lock()
		calls++
		mu.Unlock()
	}

	_, _, err := runFanOut(context.Background(), payload, testScript(4), &fakeVoiceoverSynth{}, &fakeClipGenerator{}, 5, onDone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 4 {
		t.Errorf("onClipDone called %d times, want 4", calls)
	}
}

func TestErrorType(t *testing.T) {
	if got := errorType(context.DeadlineExceeded); got != "Timeout" {
		t.Errorf("deadline = %s", got)
	}
	if got := errorType(fmt.Errorf("wrap: %w", context.Canceled)); got != "Cancelled" {
		t.Errorf("cancel = %s", got)
	}
	if got := errorType(errors.New("boom")); got != "GenerationError" {
		t.Errorf("generic = %s", got)
	}
}
