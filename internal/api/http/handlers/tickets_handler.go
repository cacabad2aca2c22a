package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/lifecycle-engine/internal/api/dto"
	"github.com/spec-kit/lifecycle-engine/internal/service"
	apperrors "github.com/spec-kit/lifecycle-engine/pkg/util"
)

// TicketsHandler exposes ticket lifecycle triggers and the audit trail.
type TicketsHandler struct {
	service *service.LifecycleService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(lifecycleService *service.LifecycleService) *TicketsHandler {
	return &TicketsHandler{service: lifecycleService}
}

// Created POST /tickets/:id/lifecycle/created. Also the retargeting
// trigger: the surrounding application calls it again after changing
// channel, priority or policy, restarting both SLA clocks.
func (h *TicketsHandler) Created(c *fiber.Ctx) error {
	execCtx, err := executionContext(c)
	if err != nil {
		return err
	}
	var req dto.TicketCreatedRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	at := time.Now()
	if req.OccurredAt != nil {
		at = *req.OccurredAt
	}

	ticket, err := h.service.OnTicketCreatedOrRetargeted(c.UserContext(), execCtx, c.Params("id"), at)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDeadlinesResponse(ticket)})
}

// Transition POST /tickets/:id/transitions.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	execCtx, err := executionContext(c)
	if err != nil {
		return err
	}
	var req dto.TransitionTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ToState == "" {
		return apperrors.NewValidationError("to_state required", nil)
	}
	at := time.Now()
	if req.OccurredAt != nil {
		at = *req.OccurredAt
	}

	outcome, err := h.service.OnTransitionRequested(c.UserContext(), execCtx, c.Params("id"), req.ToState, req.Comment, req.Actor, req.Context, at)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTransitionTicketResponse(outcome)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	execCtx, err := executionContext(c)
	if err != nil {
		return err
	}
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	entries, err := h.service.History(c.UserContext(), execCtx, c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHistoryEntryResponses(entries)})
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
