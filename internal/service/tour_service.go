// Package service implements the tour-video application logic between the
// HTTP handlers and the task queue.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/keylia/api/internal/client"
	"github.com/keylia/api/internal/idempotency"
	"github.com/keylia/api/internal/model"
	"github.com/keylia/api/internal/sanitize"
	"github.com/keylia/api/internal/store"
)

const (
	TaskTypeTourGenerate    = "tour:generate"
	TaskTypeSceneRegenerate = "scene:regenerate"

	QueueVideo = "video"
	QueueAI    = "ai"
)

// scenePlan describes scene count and per-scene duration for one video length.
type scenePlan struct {
	SceneCount int
	DurationMs int
}

var scenePlans = map[int]scenePlan{
	15: {SceneCount: 3, DurationMs: 5000},
	30: {SceneCount: 5, DurationMs: 6000},
	60: {SceneCount: 8, DurationMs: 7500},
}

const transitionDurationMs = 500

// PlanScenes builds the ordered scene list for a duration, capped at the
// number of photos available. Camera movements rotate through the default
// sequence.
func PlanScenes(durationSeconds int, photos []model.PhotoDescriptor) []model.Scene {
	plan, ok := scenePlans[durationSeconds]
	if !ok {
		plan = scenePlans[30]
	}

	count := plan.SceneCount
	if len(photos) < count {
		count = len(photos)
	}

	scenes := make([]model.Scene, 0, count)
	startMs := 0
	for i := 0; i < count; i++ {
		scenes = append(scenes, model.Scene{
			ID:                 uuid.New().String(),
			SequenceOrder:      i + 1,
			StartTimeMs:        startMs,
			DurationMs:         plan.DurationMs,
			ImageURL:           photos[i].URL,
			CameraMovement:     model.DefaultCameraSequence[i%len(model.DefaultCameraSequence)],
			CameraIntensity:    0.7,
			TransitionType:     model.TransitionCrossfade,
			TransitionDuration: transitionDurationMs,
		})
		startMs += plan.DurationMs - transitionDurationMs
	}
	return scenes
}

// SceneTextRegenerator rewrites one scene's narration in context.
type SceneTextRegenerator interface {
	RegenerateSceneText(ctx context.Context, prev, current, next string, durationMs int) (string, error)
}

// TourService manages the tour-video generation lifecycle.
type TourService struct {
	jobs        *store.ProgressStore
	projects    *store.ProjectStore
	idempotency *idempotency.Guard
	asynqClient *asynq.Client
	tts         client.SpeechSynthesizer
	sceneText   SceneTextRegenerator
}

func NewTourService(
	jobs *store.ProgressStore,
	projects *store.ProjectStore,
	guard *idempotency.Guard,
	asynqClient *asynq.Client,
	tts client.SpeechSynthesizer,
	sceneText SceneTextRegenerator,
) *TourService {
	return &TourService{
		jobs:        jobs,
		projects:    projects,
		idempotency: guard,
		asynqClient: asynqClient,
		tts:         tts,
		sceneText:   sceneText,
	}
}

// Submit validates and sanitizes a generation request, persists the project
// and render job, and enqueues the pipeline task. A repeated idempotency key
// replays the original acceptance instead of starting a second pipeline.
func (s *TourService) Submit(ctx context.Context, req *model.GenerateTourVideoRequest, idempotencyKey string) (*model.GenerateTourVideoResponse, error) {
	if data, ok := s.idempotency.Check(ctx, idempotencyKey); ok {
		if cached, ok := decodeAcceptance(data); ok {
			return cached, nil
		}
	}

	listing := sanitize.Listing(model.Listing{
		Address:      req.Listing.Address,
		Neighborhood: req.Listing.Neighborhood,
		City:         req.Listing.City,
		Price:        req.Listing.Price,
		Bedrooms:     req.Listing.Bedrooms,
		Bathrooms:    req.Listing.Bathrooms,
		SquareFeet:   req.Listing.SquareFeet,
		PropertyType: req.Listing.PropertyType,
		Status:       req.Listing.Status,
		Features:     req.Listing.Features,
		Target:       req.Listing.Target,
	})
	style := sanitize.StyleSettings(req.StyleSettings)
	voice := sanitize.VoiceSettings(req.VoiceSettings)

	photos := make([]model.PhotoDescriptor, 0, len(req.Photos))
	for _, p := range req.Photos {
		photos = append(photos, model.PhotoDescriptor{
			URL:         p.URL,
			Category:    sanitize.Line(p.Category, sanitize.MaxCity),
			Description: sanitize.Line(p.Description, sanitize.MaxFeature),
		})
	}

	scenes := PlanScenes(req.DurationSeconds, photos)
	if len(scenes) == 0 {
		return nil, fmt.Errorf("no scenes could be planned from the supplied photos")
	}

	now := time.Now()
	jobID := uuid.New().String()

	project := &model.Project{
		ID:              uuid.New().String(),
		Title:           listing.Address,
		RenderJobID:     jobID,
		ListingID:       req.ListingID,
		DurationSeconds: req.DurationSeconds,
		Style:           style,
		Voice:           voice,
		Scenes:          scenes,
		CreatedAt:       now,
	}

	job := &model.RenderJob{
		ID:         jobID,
		ProjectID:  project.ID,
		RenderType: model.RenderTypeFinal,
		Status:     model.RenderStatusQueued,
		Steps:      model.NewPipelineSteps(),
		CreatedAt:  now,
	}

	if err := s.projects.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to save project: %w", err)
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	payload := &model.TourJobPayload{
		RenderJobID: jobID,
		ProjectID:   project.ID,
		Listing:     listing,
		Photos:      photos,
		Scenes:      scenes,
		Style:       style,
		Voice:       voice,
		BrandKit:    req.BrandKit,
		Duration:    req.DurationSeconds,
	}

	task, err := newTourTask(jobID, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if _, err := s.asynqClient.Enqueue(task,
		asynq.Queue(QueueVideo),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour),
	); err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	resp := &model.GenerateTourVideoResponse{
		ProjectID:   project.ID,
		RenderJobID: jobID,
		Status:      model.RenderStatusQueued,
		Message:     "Tour video generation started",
	}
	if data, err := json.Marshal(resp); err == nil {
		s.idempotency.Remember(ctx, idempotencyKey, data)
	}

	return resp, nil
}

// decodeAcceptance parses a cached acceptance response so a duplicate submit
// replays exactly what the first one returned. Undecodable or incomplete
// cache entries are treated as a miss.
func decodeAcceptance(data []byte) (*model.GenerateTourVideoResponse, bool) {
	var cached model.GenerateTourVideoResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}
	if cached.RenderJobID == "" {
		return nil, false
	}
	return &cached, true
}

// Progress reports pipeline progress for a project.
func (s *TourService) Progress(ctx context.Context, projectID string) (*model.TourVideoProgressResponse, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	job, err := s.jobs.GetJob(ctx, project.RenderJobID)
	if err != nil {
		return nil, err
	}

	resp := &model.TourVideoProgressResponse{
		ProjectID:       project.ID,
		RenderJobID:     job.ID,
		Status:          job.Status,
		ProgressPercent: job.ProgressPercent,
		Steps:           job.Steps,
		OutputURL:       job.OutputURL,
		ErrorMessage:    job.ErrorMessage,
	}

	for _, step := range job.Steps {
		if step.Status == model.StepInProgress {
			resp.CurrentStep = string(step.Name)
			break
		}
	}

	if remaining := estimateRemaining(job, time.Now()); remaining != nil {
		resp.EstimatedRemaining = remaining
	}

	return resp, nil
}

// estimateRemaining extrapolates from elapsed time and current progress.
func estimateRemaining(job *model.RenderJob, now time.Time) *int {
	if job.Status != model.RenderStatusProcessing || job.StartedAt == nil || job.ProgressPercent <= 5 {
		return nil
	}
	elapsed := now.Sub(*job.StartedAt).Seconds()
	if elapsed <= 0 {
		return nil
	}
	remaining := int(elapsed * float64(100-job.ProgressPercent) / float64(job.ProgressPercent))
	return &remaining
}

// Preview returns the project's scenes and generated content.
func (s *TourService) Preview(ctx context.Context, projectID string) (*model.TourVideoPreviewResponse, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	scenes := make([]model.ScenePreview, 0, len(project.Scenes))
	for _, sc := range project.Scenes {
		scenes = append(scenes, model.ScenePreview{
			SceneID:        sc.ID,
			SequenceOrder:  sc.SequenceOrder,
			ImageURL:       sc.ImageURL,
			NarrationText:  sc.NarrationText,
			DurationMs:     sc.DurationMs,
			CameraMovement: sc.CameraMovement,
			ClipURL:        sc.ClipURL,
		})
	}

	return &model.TourVideoPreviewResponse{
		ProjectID:       project.ID,
		Title:           project.Title,
		DurationSeconds: project.DurationSeconds,
		Scenes:          scenes,
		Script:          project.GeneratedScript,
		Caption:         project.GeneratedCaption,
		Hashtags:        project.GeneratedTags,
	}, nil
}

// GetJob returns the raw render job record.
func (s *TourService) GetJob(ctx context.Context, jobID string) (*model.RenderJob, error) {
	return s.jobs.GetJob(ctx, jobID)
}

// Cancel requests cooperative cancellation of a running job.
func (s *TourService) Cancel(ctx context.Context, jobID string) (*model.CancelJobResponse, error) {
	if err := s.jobs.Cancel(ctx, jobID); err != nil {
		return nil, err
	}
	return &model.CancelJobResponse{
		JobID:  jobID,
		Status: model.RenderStatusCancelled,
	}, nil
}

// RegenerateScene enqueues a single-scene clip regeneration.
func (s *TourService) RegenerateScene(ctx context.Context, projectID, sceneID string) (*model.RegenerateSceneResponse, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var scene *model.Scene
	for i := range project.Scenes {
		if project.Scenes[i].ID == sceneID {
			scene = &project.Scenes[i]
			break
		}
	}
	if scene == nil {
		return nil, fmt.Errorf("scene %s not found in project %s", sceneID, projectID)
	}

	payload := &model.SceneJobPayload{
		ProjectID:      projectID,
		SceneID:        sceneID,
		ImageURL:       scene.ImageURL,
		CameraMovement: scene.CameraMovement,
		DurationMs:     scene.DurationMs,
		Style:          project.Style,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	info, err := s.asynqClient.Enqueue(asynq.NewTask(TaskTypeSceneRegenerate, data),
		asynq.Queue(QueueAI),
		asynq.MaxRetry(2),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.RegenerateSceneResponse{
		ProjectID: projectID,
		SceneID:   sceneID,
		TaskID:    info.ID,
		Status:    "queued",
	}, nil
}

// RegenerateSceneNarration rewrites one scene's narration synchronously,
// keeping continuity with the neighboring scenes, and persists the result.
// The voiceover track is not re-synthesized until the next full render.
func (s *TourService) RegenerateSceneNarration(ctx context.Context, projectID, sceneID string) (*model.RegenerateSceneTextResponse, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range project.Scenes {
		if project.Scenes[i].ID == sceneID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("scene %s not found in project %s", sceneID, projectID)
	}

	var prev, next string
	if idx > 0 {
		prev = project.Scenes[idx-1].NarrationText
	}
	if idx < len(project.Scenes)-1 {
		next = project.Scenes[idx+1].NarrationText
	}

	narration, err := s.sceneText.RegenerateSceneText(ctx, prev, project.Scenes[idx].NarrationText, next, project.Scenes[idx].DurationMs)
	if err != nil {
		return nil, err
	}

	if err := s.projects.SetSceneNarration(ctx, projectID, sceneID, narration); err != nil {
		return nil, err
	}

	return &model.RegenerateSceneTextResponse{
		ProjectID: projectID,
		SceneID:   sceneID,
		Narration: narration,
	}, nil
}

// Voices returns the selectable TTS voices, preferring the provider's live
// list and falling back to the curated set when the provider is down.
func (s *TourService) Voices(ctx context.Context) ([]model.VoiceOption, error) {
	if s.tts != nil {
		if voices, err := s.tts.ListVoices(ctx); err == nil && len(voices) > 0 {
			return voices, nil
		}
	}

	var voices []model.VoiceOption
	for _, gender := range []string{"female", "male"} {
		voices = append(voices, client.RecommendedVoices[gender]...)
	}
	return voices, nil
}

func newTourTask(jobID string, payload *model.TourJobPayload) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	taskPayload := map[string]interface{}{
		"jobId":   jobID,
		"payload": json.RawMessage(payloadBytes),
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeTourGenerate, data), nil
}
