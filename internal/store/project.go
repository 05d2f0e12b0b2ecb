package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/keylia/api/internal/model"
)

var ErrProjectNotFound = errors.New("project not found")

// ProjectStore persists tour projects and their scenes.
type ProjectStore struct {
	redis *redis.Client
}

func NewProjectStore(redisClient *redis.Client) *ProjectStore {
	return &ProjectStore{redis: redisClient}
}

func projectKey(id string) string { return fmt.Sprintf("project:%s", id) }

// CreateProject persists a new project.
func (s *ProjectStore) CreateProject(ctx context.Context, project *model.Project) error {
	return s.save(ctx, project)
}

// GetProject loads a project by id.
func (s *ProjectStore) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	data, err := s.redis.Get(ctx, projectKey(projectID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	var project model.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// SetGeneratedContent stores the script, caption and hashtags once the
// pipeline has produced them, and copies narrations onto the scenes in
// sequence order.
func (s *ProjectStore) SetGeneratedContent(ctx context.Context, projectID string, script *model.GeneratedScript) error {
	return s.mutate(ctx, projectID, func(project *model.Project) error {
		project.GeneratedScript = script
		project.GeneratedCaption = script.Caption
		project.GeneratedTags = script.Hashtags

		for i := range project.Scenes {
			if i < len(script.Scenes) {
				project.Scenes[i].NarrationText = script.Scenes[i].Narration
				if project.Scenes[i].OnScreenText == "" {
					project.Scenes[i].OnScreenText = script.Scenes[i].OnScreenText
				}
			}
		}
		return nil
	})
}

// SetSceneClip records the generated clip URL for one scene.
func (s *ProjectStore) SetSceneClip(ctx context.Context, projectID, sceneID, clipURL string) error {
	return s.mutate(ctx, projectID, func(project *model.Project) error {
		for i := range project.Scenes {
			if project.Scenes[i].ID == sceneID {
				project.Scenes[i].ClipURL = clipURL
				return nil
			}
		}
		return fmt.Errorf("scene %s not found in project %s", sceneID, projectID)
	})
}

// SetSceneNarration updates one scene's narration after regeneration.
func (s *ProjectStore) SetSceneNarration(ctx context.Context, projectID, sceneID, narration string) error {
	return s.mutate(ctx, projectID, func(project *model.Project) error {
		for i := range project.Scenes {
			if project.Scenes[i].ID == sceneID {
				project.Scenes[i].NarrationText = narration
				return nil
			}
		}
		return fmt.Errorf("scene %s not found in project %s", sceneID, projectID)
	})
}

func (s *ProjectStore) mutate(ctx context.Context, projectID string, fn func(*model.Project) error) error {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := fn(project); err != nil {
		return err
	}
	return s.save(ctx, project)
}

func (s *ProjectStore) save(ctx context.Context, project *model.Project) error {
	data, err := json.Marshal(project)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, projectKey(project.ID), data, recordTTL).Err()
}
