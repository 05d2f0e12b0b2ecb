// Package handler contains the Fiber HTTP handlers.
package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/keylia/api/internal/model"
	"github.com/keylia/api/internal/service"
	"github.com/keylia/api/internal/store"
	"github.com/keylia/api/pkg/response"
)

type TourVideoHandler struct {
	service   *service.TourService
	validator *validator.Validate
}

func NewTourVideoHandler(svc *service.TourService, v *validator.Validate) *TourVideoHandler {
	return &TourVideoHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /api/tour-videos/generate. Accepts the request and
// enqueues the pipeline; the heavy work runs on the worker. A repeated
// X-Idempotency-Key returns the original acceptance.
func (h *TourVideoHandler) Generate(c *fiber.Ctx) error {
	var req model.GenerateTourVideoRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	idempotencyKey := c.Get("X-Idempotency-Key")

	result, err := h.service.Submit(c.Context(), &req, idempotencyKey)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Progress handles GET /api/tour-videos/:projectId/progress
func (h *TourVideoHandler) Progress(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	result, err := h.service.Progress(c.Context(), projectID)
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) || errors.Is(err, store.ErrJobNotFound) {
			return response.NotFound(c, "Project not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Preview handles GET /api/tour-videos/:projectId/preview
func (h *TourVideoHandler) Preview(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	result, err := h.service.Preview(c.Context(), projectID)
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			return response.NotFound(c, "Project not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// JobStatus handles GET /api/tour-videos/jobs/:jobId
func (h *TourVideoHandler) JobStatus(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.service.GetJob(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, job)
}

// Cancel handles POST /api/tour-videos/jobs/:jobId/cancel. Cancellation is
// cooperative; the worker stops at its next checkpoint.
func (h *TourVideoHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.Cancel(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		if errors.Is(err, store.ErrJobTerminal) {
			return response.Conflict(c, "Job already finished")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// RegenerateScene handles POST /api/tour-videos/:projectId/scenes/:sceneId/regenerate
func (h *TourVideoHandler) RegenerateScene(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	sceneID := c.Params("sceneId")
	if projectID == "" || sceneID == "" {
		return response.ValidationError(c, "Project ID and scene ID are required", nil)
	}

	result, err := h.service.RegenerateScene(c.Context(), projectID, sceneID)
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			return response.NotFound(c, "Project not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// RegenerateSceneText handles POST /api/tour-videos/:projectId/scenes/:sceneId/regenerate-text.
// Synchronous: rewrites and persists the scene narration in one request.
func (h *TourVideoHandler) RegenerateSceneText(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	sceneID := c.Params("sceneId")
	if projectID == "" || sceneID == "" {
		return response.ValidationError(c, "Project ID and scene ID are required", nil)
	}

	result, err := h.service.RegenerateSceneNarration(c.Context(), projectID, sceneID)
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			return response.NotFound(c, "Project not found")
		}
		return response.AIError(c, "Scene text regeneration failed")
	}

	return response.OK(c, result)
}

// Voices handles GET /api/tour-videos/voices
func (h *TourVideoHandler) Voices(c *fiber.Ctx) error {
	voices, err := h.service.Voices(c.Context())
	if err != nil {
		return response.AIError(c, "Voice list unavailable")
	}

	return response.OK(c, fiber.Map{"voices": voices})
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
