package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/lifecycle-engine/internal/domain"
	apperrors "github.com/spec-kit/lifecycle-engine/pkg/util"
)

// executionContext resolves the tenant scope every request must declare.
// The brand header is optional; absent means tenant-wide scope.
func executionContext(c *fiber.Ctx) (domain.ExecutionContext, error) {
	tenantID := c.Get("X-Tenant-ID")
	if tenantID == "" {
		return domain.ExecutionContext{}, apperrors.NewValidationError("X-Tenant-ID header is required", nil)
	}
	execCtx := domain.ExecutionContext{TenantID: tenantID}
	if brandID := c.Get("X-Brand-ID"); brandID != "" {
		execCtx.BrandID = &brandID
	}
	return execCtx, nil
}
