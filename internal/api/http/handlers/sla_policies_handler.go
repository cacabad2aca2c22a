package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/lifecycle-engine/internal/api/dto"
	"github.com/spec-kit/lifecycle-engine/internal/service"
	apperrors "github.com/spec-kit/lifecycle-engine/pkg/util"
)

// SlaPoliciesHandler manages SLA policy authoring endpoints.
type SlaPoliciesHandler struct {
	service *service.SlaAdminService
}

// NewSlaPoliciesHandler constructs handler.
func NewSlaPoliciesHandler(adminService *service.SlaAdminService) *SlaPoliciesHandler {
	return &SlaPoliciesHandler{service: adminService}
}

// Create POST /sla/policies.
func (h *SlaPoliciesHandler) Create(c *fiber.Ctx) error {
	execCtx, err := executionContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateSlaPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	policy, err := h.service.CreatePolicy(c.UserContext(), execCtx, service.PolicyCreateInput{
		Slug:                        req.Slug,
		Name:                        req.Name,
		Timezone:                    req.Timezone,
		EnforceBusinessHours:        req.EnforceBusinessHours,
		DefaultFirstResponseMinutes: req.DefaultFirstResponseMinutes,
		DefaultResolutionMinutes:    req.DefaultResolutionMinutes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewSlaPolicyResponse(policy)})
}

// List GET /sla/policies.
func (h *SlaPoliciesHandler) List(c *fiber.Ctx) error {
	execCtx, err := executionContext(c)
	if err != nil {
		return err
	}
	policies, err := h.service.ListPolicies(c.UserContext(), execCtx)
	if err != nil {
		return err
	}
	items := make([]dto.SlaPolicyResponse, 0, len(policies))
	for i := range policies {
		items = append(items, dto.NewSlaPolicyResponse(&policies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /sla/policies/:id.
func (h *SlaPoliciesHandler) Get(c *fiber.Ctx) error {
	execCtx, err := executionContext(c)
	if err != nil {
		return err
	}
	snapshot, err := h.service.GetSnapshot(c.UserContext(), execCtx, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSlaPolicySnapshotResponse(snapshot)})
}

// Update PUT /sla/policies/:id.
func (h *SlaPoliciesHandler) Update(c *fiber.Ctx) error {
	execCtx, err := executionContext(c)
	if err != nil {
		return err
	}
	var req dto.UpdateSlaPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	windows, holidays, targets, err := req.ToDomain()
	if err != nil {
		return err
	}

	snapshot, err := h.service.UpdatePolicy(c.UserContext(), execCtx, c.Params("id"), service.PolicyUpdateInput{
		Name:                        req.Name,
		Timezone:                    req.Timezone,
		EnforceBusinessHours:        req.EnforceBusinessHours,
		DefaultFirstResponseMinutes: req.DefaultFirstResponseMinutes,
		DefaultResolutionMinutes:    req.DefaultResolutionMinutes,
		Windows:                     windows,
		Holidays:                    holidays,
		Targets:                     targets,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSlaPolicySnapshotResponse(snapshot)})
}
