package generator

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/keylia/api/internal/breaker"
	"github.com/keylia/api/internal/client"
	"github.com/keylia/api/internal/model"
)

type fakeVideoGenerator struct {
	result    *client.VideoResult
	err       error
	lastModel string
	lastArgs  map[string]interface{}
}

func (f *fakeVideoGenerator) GenerateVideo(ctx context.Context, modelID string, args map[string]interface{}) (*client.VideoResult, error) {
	f.lastModel = modelID
	f.lastArgs = args
	return f.result, f.err
}

func TestModelIDMapping(t *testing.T) {
	cases := []struct {
		in   model.VideoModel
		want string
	}{
		{model.VideoModelKling, "fal-ai/kling-video/v1/standard/image-to-video"},
		{model.VideoModelKlingV2, "fal-ai/kling-video/v2.6/pro/image-to-video"},
		{model.VideoModelVeo3Fast, "fal-ai/veo3.1/fast/image-to-video"},
		{model.VideoModelRunway, "fal-ai/runway-gen3/turbo/image-to-video"},
		{model.VideoModel("unknown"), "fal-ai/kling-video/v1/standard/image-to-video"},
	}
	for _, c := range cases {
		if got := ModelID(c.in); got != c.want {
			t.Errorf("ModelID(%s) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBuildClipPromptTonesAndCameras(t *testing.T) {
	p := BuildClipPrompt(model.ToneLuxury, model.CameraOrbitRight)
	if !strings.Contains(p, "Architectural Digest") {
		t.Error("missing luxury look")
	}
	if !strings.Contains(p, "orbit shot rotating right") {
		t.Error("missing camera description")
	}

	// Unknown values fall back to modern / zoom_in.
	p = BuildClipPrompt(model.Tone("vaporwave"), model.CameraMovement("barrel_roll"))
	if !strings.Contains(p, "contemporary design showcase") {
		t.Error("missing modern fallback")
	}
	if !strings.Contains(p, "dolly push-in") {
		t.Error("missing zoom_in fallback")
	}
}

func TestBuildModelArgsPerFamily(t *testing.T) {
	kling := buildModelArgs(model.VideoModelKling, "p", "http://img")
	if kling["duration"] != "5" || kling["aspect_ratio"] != "9:16" {
		t.Errorf("kling args: %v", kling)
	}
	if _, ok := kling["negative_prompt"]; !ok {
		t.Error("kling args missing negative prompt")
	}

	veo := buildModelArgs(model.VideoModelVeo3, "p", "http://img")
	if veo["duration"] != "5s" {
		t.Errorf("veo args: %v", veo)
	}

	minimax := buildModelArgs(model.VideoModelMinimax, "p", "http://img")
	if len(minimax) != 2 {
		t.Errorf("minimax should carry prompt and image only: %v", minimax)
	}

	runway := buildModelArgs(model.VideoModelRunway, "p", "http://img")
	if runway["duration"] != 5 || runway["ratio"] != "9:16" {
		t.Errorf("runway args: %v", runway)
	}
}

func TestSceneClipGenerate(t *testing.T) {
	video := &fakeVideoGenerator{result: &client.VideoResult{URL: "https://cdn/clip.mp4", Seed: 7}}
	g := NewSceneClipGenerator(video, breaker.NewRegistry(), 0)

	result, err := g.Generate(context.Background(), &ClipRequest{
		ImageURL:       "data:image/jpeg;base64,xxxx",
		CameraMovement: model.CameraPanRight,
		DurationMs:     6000,
		Style:          model.StyleSettings{Tone: model.ToneCozy, VideoModel: model.VideoModelKlingPro},
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.VideoURL != "https://cdn/clip.mp4" || result.Seed != 7 {
		t.Errorf("unexpected result: %+v", result)
	}
	if video.lastModel != "fal-ai/kling-video/v1/pro/image-to-video" {
		t.Errorf("model: %s", video.lastModel)
	}
	prompt, _ := video.lastArgs["prompt"].(string)
	if !strings.Contains(prompt, "tracking shot moving right") {
		t.Errorf("prompt missing camera movement: %s", prompt)
	}
	if video.lastArgs["image_url"] != "data:image/jpeg;base64,xxxx" {
		t.Error("data URL must pass through untouched")
	}
}

func TestSceneClipGenerateDeadline(t *testing.T) {
	video := &slowVideoGenerator{delay: 50 * time.Millisecond}
	g := NewSceneClipGenerator(video, breaker.NewRegistry(), 10*time.Millisecond)

	_, err := g.Generate(context.Background(), &ClipRequest{
		ImageURL:       "data:image/jpeg;base64,xxxx",
		CameraMovement: model.CameraZoomIn,
		DurationMs:     5000,
		Style:          model.StyleSettings{VideoModel: model.VideoModelKling},
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

type slowVideoGenerator struct {
	delay time.Duration
}

func (s *slowVideoGenerator) GenerateVideo(ctx context.Context, modelID string, args map[string]interface{}) (*client.VideoResult, error) {
	select {
	case <-time.After(s.delay):
		return &client.VideoResult{URL: "https://cdn/clip.mp4"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestUpscaleToMinimum(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 150, 100))
	out := UpscaleToMinimum(src, 300)

	bounds := out.Bounds()
	if bounds.Dy() != 300 {
		t.Errorf("short edge should reach 300, got %d", bounds.Dy())
	}
	if bounds.Dx() != 450 {
		t.Errorf("aspect ratio not kept, width %d", bounds.Dx())
	}
}
