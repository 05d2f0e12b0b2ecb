package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/keylia/api/internal/generator"
	"github.com/keylia/api/internal/model"
	"github.com/keylia/api/internal/store"
)

// SceneWorker regenerates a single scene clip outside the full pipeline.
type SceneWorker struct {
	projects *store.ProjectStore
	clips    ClipGenerator
}

// NewSceneWorker creates a scene regeneration worker.
func NewSceneWorker(projects *store.ProjectStore, clips ClipGenerator) *SceneWorker {
	return &SceneWorker{
		projects: projects,
		clips:    clips,
	}
}

// ProcessTask regenerates one scene's video clip and stores the new URL on
// the project.
func (w *SceneWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.SceneJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal scene payload: %w", err)
	}

	log.Printf("Regenerating scene %s in project %s", payload.SceneID, payload.ProjectID)

	result, err := w.clips.Generate(ctx, &generator.ClipRequest{
		ImageURL:       payload.ImageURL,
		CameraMovement: payload.CameraMovement,
		DurationMs:     payload.DurationMs,
		Style:          payload.Style,
	})
	if err != nil {
		return fmt.Errorf("scene %s regeneration failed: %w", payload.SceneID, err)
	}

	if err := w.projects.SetSceneClip(ctx, payload.ProjectID, payload.SceneID, result.VideoURL); err != nil {
		return fmt.Errorf("failed to store regenerated clip: %w", err)
	}

	log.Printf("Scene %s regenerated: %s", payload.SceneID, result.VideoURL)
	return nil
}
