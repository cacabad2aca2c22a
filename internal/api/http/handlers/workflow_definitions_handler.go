package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/lifecycle-engine/internal/api/dto"
	"github.com/spec-kit/lifecycle-engine/internal/service"
	apperrors "github.com/spec-kit/lifecycle-engine/pkg/util"
)

// WorkflowDefinitionsHandler manages workflow authoring endpoints.
type WorkflowDefinitionsHandler struct {
	service *service.WorkflowAdminService
}

// NewWorkflowDefinitionsHandler constructs handler.
func NewWorkflowDefinitionsHandler(adminService *service.WorkflowAdminService) *WorkflowDefinitionsHandler {
	return &WorkflowDefinitionsHandler{service: adminService}
}

// Create POST /workflows/definitions.
func (h *WorkflowDefinitionsHandler) Create(c *fiber.Ctx) error {
	execCtx, err := executionContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateWorkflowDefinitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	def, err := h.service.CreateDefinition(c.UserContext(), execCtx, service.DefinitionCreateInput{
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewWorkflowDefinitionResponse(def)})
}

// List GET /workflows/definitions.
func (h *WorkflowDefinitionsHandler) List(c *fiber.Ctx) error {
	execCtx, err := executionContext(c)
	if err != nil {
		return err
	}
	defs, err := h.service.ListDefinitions(c.UserContext(), execCtx)
	if err != nil {
		return err
	}
	items := make([]dto.WorkflowDefinitionResponse, 0, len(defs))
	for i := range defs {
		items = append(items, dto.NewWorkflowDefinitionResponse(&defs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /workflows/definitions/:id.
func (h *WorkflowDefinitionsHandler) Get(c *fiber.Ctx) error {
	execCtx, err := executionContext(c)
	if err != nil {
		return err
	}
	snapshot, err := h.service.GetSnapshot(c.UserContext(), execCtx, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkflowSnapshotResponse(snapshot)})
}

// Reconcile PUT /workflows/definitions/:id.
func (h *WorkflowDefinitionsHandler) Reconcile(c *fiber.Ctx) error {
	execCtx, err := executionContext(c)
	if err != nil {
		return err
	}
	var req dto.ReconcileWorkflowRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.service.Reconcile(c.UserContext(), execCtx, c.Params("id"), req.ToDesired())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReconcileWorkflowResponse(result)})
}
