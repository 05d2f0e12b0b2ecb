package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"log"
	"net/http"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/keylia/api/internal/breaker"
	"github.com/keylia/api/internal/client"
	"github.com/keylia/api/internal/model"
)

// minImageSize is the smallest edge accepted by the video models. Smaller
// source photos are upscaled and inlined as a data URL.
const minImageSize = 300

// clipDurationSeconds is the fixed per-clip generation length. Scene timing
// is trimmed during composition, not at generation time.
const clipDurationSeconds = 5.0

// modelMap translates user-facing model names to hosted model paths.
var modelMap = map[model.VideoModel]string{
	model.VideoModelKling:    "fal-ai/kling-video/v1/standard/image-to-video",
	model.VideoModelKlingPro: "fal-ai/kling-video/v1/pro/image-to-video",
	model.VideoModelKlingV2:  "fal-ai/kling-video/v2.6/pro/image-to-video",
	model.VideoModelVeo3:     "fal-ai/veo3.1/image-to-video",
	model.VideoModelVeo3Fast: "fal-ai/veo3.1/fast/image-to-video",
	model.VideoModelMinimax:  "fal-ai/minimax/video-01/image-to-video",
	model.VideoModelRunway:   "fal-ai/runway-gen3/turbo/image-to-video",
}

// ModelID returns the hosted model path for a user-facing model name,
// defaulting to the standard Kling model.
func ModelID(m model.VideoModel) string {
	if id, ok := modelMap[m]; ok {
		return id
	}
	return modelMap[model.VideoModelKling]
}

type cinematicStyle struct {
	Look     string
	Lighting string
	Mood     string
	Color    string
}

var toneCinematics = map[model.Tone]cinematicStyle{
	model.ToneLuxury: {
		Look:     "luxury real estate commercial, Architectural Digest aesthetic",
		Lighting: "golden hour warm sunlight streaming through windows, soft shadows",
		Mood:     "aspirational, sophisticated, exclusive",
		Color:    "warm color grading, rich earth tones, subtle gold highlights",
	},
	model.ToneCozy: {
		Look:     "lifestyle home video, HGTV aesthetic",
		Lighting: "soft diffused natural light, warm ambient glow",
		Mood:     "inviting, comfortable, lived-in feel",
		Color:    "warm muted tones, soft contrast, homey atmosphere",
	},
	model.ToneModern: {
		Look:     "sleek real estate commercial, contemporary design showcase",
		Lighting: "bright natural daylight, clean shadows, high key lighting",
		Mood:     "fresh, clean, move-in ready",
		Color:    "neutral color palette, crisp whites, subtle blues",
	},
	model.ToneMinimal: {
		Look:     "minimalist architecture video, Kinfolk magazine aesthetic",
		Lighting: "soft natural light, gentle shadows, zen-like atmosphere",
		Mood:     "serene, peaceful, uncluttered",
		Color:    "desaturated, monochromatic, subtle earth tones",
	},
	model.ToneBold: {
		Look:     "dramatic real estate showcase, high-end production value",
		Lighting: "dramatic contrast, strong directional light, cinematic shadows",
		Mood:     "impressive, striking, memorable",
		Color:    "high contrast, saturated colors, film-like color grading",
	},
}

var cameraDescriptions = map[model.CameraMovement]string{
	model.CameraZoomIn:     "slow smooth dolly push-in, gradually revealing details, steadicam movement",
	model.CameraZoomOut:    "elegant pull-back shot revealing the full space, smooth dolly out",
	model.CameraPanLeft:    "cinematic lateral tracking shot moving left, gimbal-stabilized",
	model.CameraPanRight:   "cinematic lateral tracking shot moving right, gimbal-stabilized",
	model.CameraPanUp:      "smooth tilt up revealing height and grandeur, crane-like movement",
	model.CameraPanDown:    "gentle tilt down in welcoming motion, descending reveal",
	model.CameraOrbitLeft:  "elegant orbit shot rotating left around the space, 360 feel",
	model.CameraOrbitRight: "elegant orbit shot rotating right around the space, 360 feel",
	model.CameraStatic:     "subtle parallax movement, gentle floating camera, ambient motion",
}

const negativePrompt = `shaky camera, jerky motion, fast movement, blurry, distorted,
text, watermark, logo, low quality, amateur, handheld shake,
overexposed, underexposed, grainy, noisy, artifacts,
unnatural motion, morphing, warping, glitches`

// BuildClipPrompt assembles the cinematic generation prompt for one scene.
func BuildClipPrompt(tone model.Tone, movement model.CameraMovement) string {
	style, ok := toneCinematics[tone]
	if !ok {
		style = toneCinematics[model.ToneModern]
	}
	camera, ok := cameraDescriptions[movement]
	if !ok {
		camera = cameraDescriptions[model.CameraZoomIn]
	}

	return fmt.Sprintf(`%s, %s,
%s, %s, %s,
professional real estate cinematography, shot on RED camera,
shallow depth of field, smooth 24fps motion,
no text overlays, no watermarks, photorealistic, 4K ultra HD quality`,
		style.Look, camera, style.Lighting, style.Mood, style.Color)
}

// buildModelArgs returns the argument shape each model family expects.
func buildModelArgs(m model.VideoModel, prompt, imageURL string) map[string]interface{} {
	switch m {
	case model.VideoModelVeo3, model.VideoModelVeo3Fast:
		return map[string]interface{}{
			"prompt":          prompt,
			"negative_prompt": negativePrompt,
			"image_url":       imageURL,
			"aspect_ratio":    "9:16",
			"duration":        "5s",
		}
	case model.VideoModelMinimax:
		return map[string]interface{}{
			"prompt":    prompt,
			"image_url": imageURL,
		}
	case model.VideoModelRunway:
		return map[string]interface{}{
			"prompt":    prompt,
			"image_url": imageURL,
			"duration":  5,
			"ratio":     "9:16",
		}
	default:
		// Kling family and any unknown model.
		return map[string]interface{}{
			"prompt":          prompt,
			"negative_prompt": negativePrompt,
			"image_url":       imageURL,
			"duration":        "5",
			"aspect_ratio":    "9:16",
		}
	}
}

// SceneClipGenerator turns one photo into a short camera-motion clip.
type SceneClipGenerator struct {
	video       client.VideoGenerator
	httpClient  *http.Client
	breaker     *breaker.Breaker
	clipTimeout time.Duration
}

// NewSceneClipGenerator creates a clip generator guarded by the breaker
// registered for the video provider. clipTimeout bounds one end-to-end clip
// generation; zero means no deadline beyond the caller's context.
func NewSceneClipGenerator(video client.VideoGenerator, breakers *breaker.Registry, clipTimeout time.Duration) *SceneClipGenerator {
	return &SceneClipGenerator{
		video:       video,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		breaker:     breakers.Get("fal"),
		clipTimeout: clipTimeout,
	}
}

// ClipRequest describes one scene clip to generate.
type ClipRequest struct {
	ImageURL       string
	CameraMovement model.CameraMovement
	DurationMs     int
	Style          model.StyleSettings
}

// Generate produces a video clip for one scene.
func (g *SceneClipGenerator) Generate(ctx context.Context, req *ClipRequest) (*model.SceneClipResult, error) {
	if g.clipTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.clipTimeout)
		defer cancel()
	}

	imageURL := g.ensureMinimumImageSize(ctx, req.ImageURL)

	prompt := BuildClipPrompt(req.Style.Tone, req.CameraMovement)
	args := buildModelArgs(req.Style.VideoModel, prompt, imageURL)

	var result *client.VideoResult
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = g.video.GenerateVideo(ctx, ModelID(req.Style.VideoModel), args)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("scene clip generation failed: %w", err)
	}

	return &model.SceneClipResult{
		VideoURL:        result.URL,
		DurationSeconds: clipDurationSeconds,
		Width:           1080,
		Height:          1920,
		Seed:            result.Seed,
	}, nil
}

// ensureMinimumImageSize fetches the photo and, when either edge is below
// the model minimum, upscales it and inlines the result as a JPEG data URL.
// Any fetch or decode problem falls back to the original URL so the video
// model gets a chance to handle it.
func (g *SceneClipGenerator) ensureMinimumImageSize(ctx context.Context, imageURL string) string {
	if len(imageURL) >= 5 && imageURL[:5] == "data:" {
		return imageURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return imageURL
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Printf("Image fetch failed for %s: %v", imageURL, err)
		return imageURL
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("Image fetch returned status %d for %s", resp.StatusCode, imageURL)
		return imageURL
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return imageURL
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Printf("Image decode failed for %s: %v", imageURL, err)
		return imageURL
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width >= minImageSize && height >= minImageSize {
		return imageURL
	}

	upscaled := UpscaleToMinimum(img, minImageSize)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, upscaled, &jpeg.Options{Quality: 85}); err != nil {
		return imageURL
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// UpscaleToMinimum scales an image up so both edges reach minSize, keeping
// the aspect ratio.
func UpscaleToMinimum(img image.Image, minSize int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	scale := float64(minSize) / float64(width)
	if s := float64(minSize) / float64(height); s > scale {
		scale = s
	}

	newWidth := int(float64(width) * scale)
	newHeight := int(float64(height) * scale)

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}
