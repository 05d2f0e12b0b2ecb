// Package worker contains the asynq task handlers that run the tour-video
// pipeline: the orchestrator for full renders and the single-scene
// regeneration handler.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/keylia/api/internal/client"
	"github.com/keylia/api/internal/compositor"
	"github.com/keylia/api/internal/generator"
	"github.com/keylia/api/internal/model"
	"github.com/keylia/api/internal/store"
	"github.com/keylia/api/internal/websocket"
)

// ClipGenerator produces one scene clip.
type ClipGenerator interface {
	Generate(ctx context.Context, req *generator.ClipRequest) (*model.SceneClipResult, error)
}

// VoiceoverSynth produces the narration track for a script.
type VoiceoverSynth interface {
	Generate(ctx context.Context, script *model.GeneratedScript, voice model.VoiceSettings) (*model.VoiceoverResult, error)
}

// ScriptWriter produces the script for a listing.
type ScriptWriter interface {
	Generate(ctx context.Context, listing model.Listing, photos []model.PhotoDescriptor, style model.StyleSettings, sceneCount, durationSeconds int) (*model.GeneratedScript, error)
}

// errCancelled aborts the pipeline when a cancellation is observed at a
// checkpoint. It maps to a clean task completion, not a retry.
var errCancelled = errors.New("job cancelled")

// TourWorker processes full tour-video render jobs.
type TourWorker struct {
	jobs       *store.ProgressStore
	projects   *store.ProjectStore
	scripts    ScriptWriter
	voiceovers VoiceoverSynth
	clips      ClipGenerator
	compositor *compositor.Compositor
	storage    client.StorageClient
	hub        *websocket.Hub

	maxConcurrentClips int
	workerID           string
}

// NewTourWorker creates the orchestrator worker.
func NewTourWorker(
	jobs *store.ProgressStore,
	projects *store.ProjectStore,
	scripts ScriptWriter,
	voiceovers VoiceoverSynth,
	clips ClipGenerator,
	comp *compositor.Compositor,
	storage client.StorageClient,
	hub *websocket.Hub,
	maxConcurrentClips int,
	workerID string,
) *TourWorker {
	if maxConcurrentClips <= 0 {
		maxConcurrentClips = 5
	}
	return &TourWorker{
		jobs:               jobs,
		projects:           projects,
		scripts:            scripts,
		voiceovers:         voiceovers,
		clips:              clips,
		compositor:         comp,
		storage:            storage,
		hub:                hub,
		maxConcurrentClips: maxConcurrentClips,
		workerID:           workerID,
	}
}

// ProcessTask runs the full pipeline for one render job.
func (w *TourWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID   string          `json:"jobId"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := taskPayload.JobID
	log.Printf("Starting tour video job: %s", jobID)

	var payload model.TourJobPayload
	if err := json.Unmarshal(taskPayload.Payload, &payload); err != nil {
		w.failFinal(ctx, jobID, "Invalid payload", "InvalidPayload", "")
		return fmt.Errorf("failed to unmarshal tour payload: %w", err)
	}

	if err := w.jobs.MarkStarted(ctx, jobID, w.workerID); err != nil {
		if errors.Is(err, store.ErrJobTerminal) {
			// Cancelled or already resolved before we picked it up.
			log.Printf("Job %s already terminal, skipping", jobID)
			return nil
		}
		return err
	}
	w.broadcastProgress(ctx, jobID)

	err := w.runPipeline(ctx, jobID, &payload)
	if errors.Is(err, errCancelled) {
		log.Printf("Job %s cancelled", jobID)
		return nil
	}
	return err
}

func (w *TourWorker) runPipeline(ctx context.Context, jobID string, payload *model.TourJobPayload) error {
	// Step 1: script.
	w.updateStep(ctx, jobID, model.StepScript, model.StepInProgress, nil)
	script, err := w.scripts.Generate(ctx, payload.Listing, payload.Photos, payload.Style, len(payload.Scenes), payload.Duration)
	if err != nil {
		return w.stepFailed(ctx, jobID, model.StepScript, "Script generation failed", err)
	}
	w.updateStep(ctx, jobID, model.StepScript, model.StepCompleted, map[string]interface{}{"scenes": len(script.Scenes)})
	w.setProgress(ctx, jobID, 15)

	if err := w.projects.SetGeneratedContent(ctx, payload.ProjectID, script); err != nil {
		log.Printf("Failed to store generated script for project %s: %v", payload.ProjectID, err)
	}

	if err := w.checkpoint(ctx, jobID); err != nil {
		return err
	}

	// Steps 2 and 3: voiceover and scene clips run concurrently.
	w.updateStep(ctx, jobID, model.StepVoiceover, model.StepInProgress, nil)
	w.updateStep(ctx, jobID, model.StepVideos, model.StepInProgress, map[string]interface{}{"completed": 0, "total": len(payload.Scenes)})
	w.setProgress(ctx, jobID, 20)

	voiceover, clipResults, err := w.fanOut(ctx, jobID, payload, script)
	if err != nil {
		return w.stepFailed(ctx, jobID, model.StepVideos, "Content generation failed", err)
	}
	w.updateStep(ctx, jobID, model.StepVoiceover, model.StepCompleted, map[string]interface{}{"duration_seconds": voiceover.DurationSeconds})
	w.updateStep(ctx, jobID, model.StepVideos, model.StepCompleted, nil)

	for i, sc := range payload.Scenes {
		if err := w.projects.SetSceneClip(ctx, payload.ProjectID, sc.ID, clipResults[i].VideoURL); err != nil {
			log.Printf("Failed to store clip URL for scene %s: %v", sc.ID, err)
		}
	}

	if err := w.checkpoint(ctx, jobID); err != nil {
		return err
	}

	// Step 4: composition.
	w.updateStep(ctx, jobID, model.StepComposition, model.StepInProgress, nil)
	sceneClips := make([]compositor.SceneClip, len(clipResults))
	for i, clip := range clipResults {
		text := ""
		if i < len(script.Scenes) {
			text = script.Scenes[i].OnScreenText
		}
		sceneClips[i] = compositor.SceneClip{
			VideoURL:        clip.VideoURL,
			OnScreenText:    text,
			DurationSeconds: clip.DurationSeconds,
		}
	}

	finalPath, cleanup, err := w.compositor.Compose(ctx, &compositor.ComposeRequest{
		Clips:          sceneClips,
		VoiceoverAudio: voiceover.AudioData,
		MusicURL:       payload.Style.MusicURL,
		BrandKit:       payload.BrandKit,
	})
	if err != nil {
		return w.stepFailed(ctx, jobID, model.StepComposition, "Video composition failed", err)
	}
	defer cleanup()

	w.updateStep(ctx, jobID, model.StepComposition, model.StepCompleted, nil)
	w.setProgress(ctx, jobID, 90)

	if err := w.checkpoint(ctx, jobID); err != nil {
		return err
	}

	// Step 5: upload.
	w.updateStep(ctx, jobID, model.StepUpload, model.StepInProgress, nil)
	outputURL, fileSize, err := w.upload(ctx, finalPath, payload.ProjectID, jobID)
	if err != nil {
		return w.stepFailed(ctx, jobID, model.StepUpload, "Upload failed", err)
	}
	w.updateStep(ctx, jobID, model.StepUpload, model.StepCompleted, nil)

	if err := w.jobs.Complete(ctx, jobID, outputURL, fileSize); err != nil {
		return err
	}

	w.hub.BroadcastComplete(jobID, outputURL)
	log.Printf("Tour video job %s completed: %s", jobID, outputURL)
	return nil
}

// fanOut issues the voiceover request and up to maxConcurrentClips clip
// requests concurrently. Results come back indexed by scene order. Any
// failure cancels the remaining work; there is no partial success.
func (w *TourWorker) fanOut(ctx context.Context, jobID string, payload *model.TourJobPayload, script *model.GeneratedScript) (*model.VoiceoverResult, []*model.SceneClipResult, error) {
	total := len(payload.Scenes)

	var mu sync.Mutex
	completed := 0

	onClipDone := func() {
		mu.Lock()
		completed++
		done := completed
		mu.Unlock()

		w.updateStep(ctx, jobID, model.StepVideos, model.StepInProgress, map[string]interface{}{"completed": done, "total": total})
		w.setProgress(ctx, jobID, 20+done*55/total)
	}

	return runFanOut(ctx, payload, script, w.voiceovers, w.clips, w.maxConcurrentClips, onClipDone)
}

// runFanOut is the pure concurrency core of the fan-out, separated from job
// bookkeeping so it can be exercised directly.
func runFanOut(
	ctx context.Context,
	payload *model.TourJobPayload,
	script *model.GeneratedScript,
	voiceovers VoiceoverSynth,
	clips ClipGenerator,
	maxConcurrentClips int,
	onClipDone func(),
) (*model.VoiceoverResult, []*model.SceneClipResult, error) {
	var voiceover *model.VoiceoverResult
	clipResults := make([]*model.SceneClipResult, len(payload.Scenes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentClips + 1)

	g.Go(func() error {
		var err error
		voiceover, err = voiceovers.Generate(gctx, script, payload.Voice)
		if err != nil {
			return fmt.Errorf("voiceover: %w", err)
		}
		return nil
	})

	for i, scene := range payload.Scenes {
		i, scene := i, scene
		g.Go(func() error {
			result, err := clips.Generate(gctx, &generator.ClipRequest{
				ImageURL:       scene.ImageURL,
				CameraMovement: scene.CameraMovement,
				DurationMs:     scene.DurationMs,
				Style:          payload.Style,
			})
			if err != nil {
				return fmt.Errorf("scene %d clip: %w", scene.SequenceOrder, err)
			}
			clipResults[i] = result
			if onClipDone != nil {
				onClipDone()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return voiceover, clipResults, nil
}

func (w *TourWorker) upload(ctx context.Context, path, projectID, jobID string) (string, int64, error) {
	if w.storage == nil {
		return "", 0, errors.New("storage not configured")
	}

	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", 0, err
	}

	key := fmt.Sprintf("videos/%s/%s/tour_video.mp4", projectID, jobID)
	url, err := w.storage.Upload(ctx, key, f, "video/mp4")
	if err != nil {
		return "", 0, err
	}
	return url, info.Size(), nil
}

// checkpoint aborts the pipeline if the job was cancelled.
func (w *TourWorker) checkpoint(ctx context.Context, jobID string) error {
	cancelled, err := w.jobs.IsCancelled(ctx, jobID)
	if err != nil {
		// A status read failure should not kill a healthy pipeline.
		log.Printf("Cancellation check failed for job %s: %v", jobID, err)
		return nil
	}
	if cancelled {
		return errCancelled
	}
	return nil
}

// stepFailed marks the failing step, decides between retry and final
// failure, and always returns an error so asynq records the attempt.
func (w *TourWorker) stepFailed(ctx context.Context, jobID string, step model.StepName, message string, cause error) error {
	w.updateStep(ctx, jobID, step, model.StepFailed, nil)

	retryCount, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if retryCount >= maxRetry {
		w.failJob(ctx, jobID, message, errorType(cause), string(step))
	} else {
		log.Printf("Job %s step %s failed (attempt %d/%d), will retry: %v", jobID, step, retryCount+1, maxRetry+1, cause)
	}

	return fmt.Errorf("%s: %w", message, cause)
}

// failFinal marks the job failed unless more retries remain.
func (w *TourWorker) failFinal(ctx context.Context, jobID, message, errType, step string) {
	retryCount, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if retryCount >= maxRetry {
		w.failJob(ctx, jobID, message, errType, step)
	}
}

func (w *TourWorker) failJob(ctx context.Context, jobID, message, errType, step string) {
	err := w.jobs.Fail(ctx, jobID, message, &model.ErrorDetails{Type: errType, Step: step})
	if err != nil && !errors.Is(err, store.ErrJobTerminal) {
		log.Printf("Failed to mark job %s as failed: %v", jobID, err)
	}
	w.hub.BroadcastError(jobID, "GENERATION_FAILED", message)
}

func (w *TourWorker) setProgress(ctx context.Context, jobID string, percent int) {
	if err := w.jobs.UpdateProgress(ctx, jobID, percent); err != nil && !errors.Is(err, store.ErrJobTerminal) {
		log.Printf("Failed to update progress for job %s: %v", jobID, err)
	}
	w.broadcastProgress(ctx, jobID)
}

func (w *TourWorker) updateStep(ctx context.Context, jobID string, step model.StepName, status model.StepStatus, details map[string]interface{}) {
	if err := w.jobs.UpdateStep(ctx, jobID, step, status, details); err != nil && !errors.Is(err, store.ErrJobTerminal) {
		log.Printf("Failed to update step %s for job %s: %v", step, jobID, err)
	}
}

func (w *TourWorker) broadcastProgress(ctx context.Context, jobID string) {
	job, err := w.jobs.GetJob(ctx, jobID)
	if err != nil {
		return
	}
	w.hub.BroadcastProgress(jobID, job.ProgressPercent, job.Status, job.Steps)
}

// errorType names the failure class without leaking internals.
func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	case errors.Is(err, context.Canceled):
		return "Cancelled"
	default:
		return "GenerationError"
	}
}
