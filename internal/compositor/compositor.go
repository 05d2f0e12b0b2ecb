// Package compositor assembles the final tour video from generated scene
// clips, the voiceover track and optional music, using FFmpeg. The filter
// graphs are built by pure functions so the command construction is
// testable without running FFmpeg.
package compositor

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/keylia/api/internal/config"
	"github.com/keylia/api/internal/model"
)

// transitionSeconds is the crossfade overlap between consecutive scenes.
const transitionSeconds = 0.5

// SceneClip is one generated clip to place on the timeline, in order.
type SceneClip struct {
	VideoURL        string
	OnScreenText    string
	DurationSeconds float64
}

// ComposeRequest carries everything needed to build one final video.
type ComposeRequest struct {
	Clips          []SceneClip
	VoiceoverAudio []byte
	MusicURL       string
	BrandKit       *model.BrandKit
}

// Compositor runs the FFmpeg composition pipeline.
type Compositor struct {
	ffmpeg     string
	fontPath   string
	workDir    string
	timeout    time.Duration
	httpClient *http.Client
}

// New creates a compositor from FFmpeg settings.
func New(cfg *config.FFmpegConfig) *Compositor {
	return &Compositor{
		ffmpeg:     cfg.BinaryPath,
		fontPath:   cfg.FontPath,
		workDir:    cfg.WorkDir,
		timeout:    time.Duration(cfg.TimeoutSecs) * time.Second,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Compose downloads the clips, concatenates them with crossfades, burns in
// on-screen text and the brand watermark, mixes audio, and returns the path
// of the finished MP4 plus a cleanup func that removes the work directory.
// Every attempt gets a fresh directory so retries never see stale files.
func (c *Compositor) Compose(ctx context.Context, req *ComposeRequest) (string, func(), error) {
	if len(req.Clips) == 0 {
		return "", nil, fmt.Errorf("no clips to compose")
	}

	tempDir, err := os.MkdirTemp(c.workDir, "tour-compose-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(tempDir) }

	fail := func(err error) (string, func(), error) {
		cleanup()
		return "", nil, err
	}

	clipPaths, err := c.downloadClips(ctx, req.Clips, tempDir)
	if err != nil {
		return fail(err)
	}

	var voiceoverPath string
	if len(req.VoiceoverAudio) > 0 {
		voiceoverPath = filepath.Join(tempDir, "voiceover.mp3")
		if err := os.WriteFile(voiceoverPath, req.VoiceoverAudio, 0o644); err != nil {
			return fail(fmt.Errorf("failed to write voiceover: %w", err))
		}
	}

	var musicPath string
	if req.MusicURL != "" {
		musicPath = filepath.Join(tempDir, "music.mp3")
		if err := c.downloadFile(ctx, req.MusicURL, musicPath); err != nil {
			// Music is an enhancement; a missing track should not sink the render.
			log.Printf("Music download failed, continuing without: %v", err)
			musicPath = ""
		}
	}

	concatPath := filepath.Join(tempDir, "concat.mp4")
	if err := c.run(ctx, ConcatArgs(clipPaths, durations(req.Clips), concatPath)); err != nil {
		return fail(fmt.Errorf("clip concatenation failed: %w", err))
	}

	current := concatPath
	if filters := DrawtextFilters(req.Clips, c.fontPath); filters != "" {
		overlayPath := filepath.Join(tempDir, "overlay.mp4")
		if err := c.run(ctx, TextOverlayArgs(current, filters, overlayPath)); err != nil {
			return fail(fmt.Errorf("text overlay failed: %w", err))
		}
		current = overlayPath
	}

	if req.BrandKit != nil && req.BrandKit.LogoURL != "" {
		logoPath := filepath.Join(tempDir, "logo.png")
		if err := c.downloadFile(ctx, req.BrandKit.LogoURL, logoPath); err != nil {
			log.Printf("Logo download failed, continuing without watermark: %v", err)
		} else {
			watermarkPath := filepath.Join(tempDir, "watermark.mp4")
			if err := c.run(ctx, WatermarkArgs(current, logoPath, watermarkPath)); err != nil {
				return fail(fmt.Errorf("logo watermark failed: %w", err))
			}
			current = watermarkPath
		}
	}

	finalPath := filepath.Join(tempDir, "final.mp4")
	if err := c.run(ctx, MixAudioArgs(current, voiceoverPath, musicPath, finalPath)); err != nil {
		return fail(fmt.Errorf("audio mix failed: %w", err))
	}

	return finalPath, cleanup, nil
}

func durations(clips []SceneClip) []float64 {
	out := make([]float64, len(clips))
	for i, clip := range clips {
		out[i] = clip.DurationSeconds
	}
	return out
}

// downloadClips fetches every clip in parallel, preserving order on disk.
func (c *Compositor) downloadClips(ctx context.Context, clips []SceneClip, tempDir string) ([]string, error) {
	paths := make([]string, len(clips))
	g, ctx := errgroup.WithContext(ctx)

	for i, clip := range clips {
		i, clip := i, clip
		paths[i] = filepath.Join(tempDir, fmt.Sprintf("clip_%03d.mp4", i))
		g.Go(func() error {
			if err := c.downloadFile(ctx, clip.VideoURL, paths[i]); err != nil {
				return fmt.Errorf("failed to download clip %d: %w", i, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func (c *Compositor) downloadFile(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, resp.Body)
	return err
}

// run executes FFmpeg with a timeout derived from the compositor config.
func (c *Compositor) run(ctx context.Context, args []string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.ffmpeg, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		tail := string(out)
		if len(tail) > 2000 {
			tail = tail[len(tail)-2000:]
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail)
	}
	return nil
}

// ConcatFilter builds the filter_complex that scales every input to
// 1080x1920 and chains crossfade transitions. Each transition starts half a
// second before the previous clip ends, so offsets accumulate effective
// durations (duration minus overlap).
func ConcatFilter(clipDurations []float64) string {
	n := len(clipDurations)
	parts := make([]string, 0, 2*n)

	for i := 0; i < n; i++ {
		parts = append(parts, fmt.Sprintf(
			"[%d:v]scale=1080:1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2,setsar=1[v%d]", i, i))
	}

	prev := "[v0]"
	offset := 0.0
	for i := 1; i < n; i++ {
		out := fmt.Sprintf("[v%dout]", i)
		if i == n-1 {
			out = "[vout]"
		}
		offset += clipDurations[i-1] - transitionSeconds
		parts = append(parts, fmt.Sprintf(
			"%s[v%d]xfade=transition=fade:duration=%g:offset=%g%s", prev, i, transitionSeconds, offset, out))
		prev = out
	}

	return strings.Join(parts, ";")
}

// ConcatArgs builds the full FFmpeg argument list for clip concatenation.
// A single clip is copied without re-encoding.
func ConcatArgs(clipPaths []string, clipDurations []float64, output string) []string {
	if len(clipPaths) == 1 {
		return []string{"-y", "-i", clipPaths[0], "-c", "copy", output}
	}

	args := []string{"-y"}
	for _, p := range clipPaths {
		args = append(args, "-i", p)
	}
	args = append(args,
		"-filter_complex", ConcatFilter(clipDurations),
		"-map", "[vout]",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "18",
		output,
	)
	return args
}

// escapeDrawtext neutralizes the characters drawtext treats specially.
func escapeDrawtext(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, `'`, `\'`)
	text = strings.ReplaceAll(text, `:`, `\:`)
	return text
}

// DrawtextFilters builds the comma-joined drawtext chain for the scenes'
// on-screen text. Each caption shows for its scene window on the crossfaded
// timeline, ending half a second early so text never straddles a transition.
// A non-empty fontPath selects the configured font file; otherwise FFmpeg
// falls back to its default font. Returns "" when no scene carries text.
func DrawtextFilters(clips []SceneClip, fontPath string) string {
	fontArg := ""
	if fontPath != "" {
		fontArg = fmt.Sprintf("fontfile=%s:", escapeDrawtext(fontPath))
	}

	var filters []string
	currentTime := 0.0

	for _, clip := range clips {
		if clip.OnScreenText != "" {
			filters = append(filters, fmt.Sprintf(
				"drawtext=%stext='%s':fontsize=64:fontcolor=white:borderw=3:bordercolor=black:x=(w-text_w)/2:y=h-250:enable='between(t,%g,%g)'",
				fontArg, escapeDrawtext(clip.OnScreenText), currentTime, currentTime+clip.DurationSeconds-transitionSeconds))
		}
		currentTime += clip.DurationSeconds - transitionSeconds
	}

	return strings.Join(filters, ",")
}

// TextOverlayArgs builds the FFmpeg argument list for burning captions in.
func TextOverlayArgs(input, filters, output string) []string {
	return []string{
		"-y",
		"-i", input,
		"-vf", filters,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "18",
		"-c:a", "copy",
		output,
	}
}

// WatermarkArgs builds the FFmpeg argument list that overlays the brand
// logo, scaled to 120px wide, near the bottom-right corner above the
// caption band.
func WatermarkArgs(video, logo, output string) []string {
	return []string{
		"-y",
		"-i", video,
		"-i", logo,
		"-filter_complex", "[1:v]scale=120:-1[logo];[0:v][logo]overlay=W-w-40:H-h-180",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "18",
		"-c:a", "copy",
		output,
	}
}

// MixAudioArgs builds the FFmpeg argument list for the audio mix. Voiceover
// plays at full volume over music ducked to 0.15; music alone plays at 0.3.
// With no audio at all, the video is copied through.
func MixAudioArgs(video, voiceover, music, output string) []string {
	if voiceover == "" && music == "" {
		return []string{"-y", "-i", video, "-c", "copy", output}
	}

	args := []string{"-y", "-i", video}
	var filterComplex string

	switch {
	case voiceover != "" && music != "":
		args = append(args, "-i", voiceover, "-i", music)
		filterComplex = "[1:a]volume=1.0[vo];[2:a]volume=0.15[music];[vo][music]amix=inputs=2:duration=first[aout]"
	case voiceover != "":
		args = append(args, "-i", voiceover)
		filterComplex = "[1:a]volume=1.0[aout]"
	default:
		args = append(args, "-i", music)
		filterComplex = "[1:a]volume=0.3[aout]"
	}

	args = append(args,
		"-filter_complex", filterComplex,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		output,
	)
	return args
}
