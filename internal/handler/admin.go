package handler

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/keylia/api/internal/breaker"
	"github.com/keylia/api/internal/service"
	"github.com/keylia/api/internal/store"
	"github.com/keylia/api/pkg/response"
)

// AdminHandler exposes the dead-letter queue and circuit-breaker state for
// operators.
type AdminHandler struct {
	deadLetters *store.DeadLetterStore
	breakers    *breaker.Registry
	asynqClient *asynq.Client
}

func NewAdminHandler(deadLetters *store.DeadLetterStore, breakers *breaker.Registry, asynqClient *asynq.Client) *AdminHandler {
	return &AdminHandler{
		deadLetters: deadLetters,
		breakers:    breakers,
		asynqClient: asynqClient,
	}
}

// ListDeadLetters handles GET /api/admin/dead-letters
func (h *AdminHandler) ListDeadLetters(c *fiber.Ctx) error {
	limit := int64(100)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 || parsed > 1000 {
			return response.ValidationError(c, "limit must be between 1 and 1000", nil)
		}
		limit = parsed
	}

	records, err := h.deadLetters.List(c.Context(), limit)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, fiber.Map{
		"deadLetters": records,
		"count":       len(records),
	})
}

// GetDeadLetter handles GET /api/admin/dead-letters/:taskId
func (h *AdminHandler) GetDeadLetter(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return response.ValidationError(c, "Task ID is required", nil)
	}

	rec, err := h.deadLetters.Get(c.Context(), taskID)
	if err != nil {
		if errors.Is(err, store.ErrDeadLetterNotFound) {
			return response.NotFound(c, "Dead letter not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, rec)
}

// ReplayDeadLetter handles POST /api/admin/dead-letters/:taskId/replay.
// Re-enqueues the original payload on its original queue and removes the
// dead letter once the enqueue succeeds.
func (h *AdminHandler) ReplayDeadLetter(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return response.ValidationError(c, "Task ID is required", nil)
	}

	rec, err := h.deadLetters.Get(c.Context(), taskID)
	if err != nil {
		if errors.Is(err, store.ErrDeadLetterNotFound) {
			return response.NotFound(c, "Dead letter not found")
		}
		return response.ServiceError(c, err.Error())
	}

	if !json.Valid(rec.Payload) {
		return response.ValidationError(c, "Dead letter payload is not replayable", nil)
	}

	queue := rec.Queue
	if queue == "" {
		queue = service.QueueVideo
	}

	info, err := h.asynqClient.Enqueue(
		asynq.NewTask(rec.TaskName, rec.Payload),
		asynq.Queue(queue),
		asynq.MaxRetry(1),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return response.ServiceError(c, "Failed to re-enqueue task: "+err.Error())
	}

	if err := h.deadLetters.Remove(c.Context(), taskID); err != nil {
		// The replay went out; a stale record is an acceptable leftover.
		return response.OK(c, fiber.Map{
			"replayedTaskId": info.ID,
			"warning":        "replayed but failed to remove dead letter",
		})
	}

	return response.OK(c, fiber.Map{"replayedTaskId": info.ID})
}

// ClearDeadLetters handles DELETE /api/admin/dead-letters
func (h *AdminHandler) ClearDeadLetters(c *fiber.Ctx) error {
	count, err := h.deadLetters.Clear(c.Context())
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, fiber.Map{"cleared": count})
}

// CircuitBreakers handles GET /api/admin/circuit-breakers
func (h *AdminHandler) CircuitBreakers(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{"breakers": h.breakers.Statuses()})
}

// ResetCircuitBreaker handles POST /api/admin/circuit-breakers/:service/reset
func (h *AdminHandler) ResetCircuitBreaker(c *fiber.Ctx) error {
	name := c.Params("service")
	if name == "" {
		return response.ValidationError(c, "Service name is required", nil)
	}

	h.breakers.Get(name).Reset()
	return response.OK(c, fiber.Map{"service": name, "state": "closed"})
}
