package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/lifecycle-engine/internal/api/dto"
	"github.com/spec-kit/lifecycle-engine/internal/auth"
	"github.com/spec-kit/lifecycle-engine/internal/config"
	"github.com/spec-kit/lifecycle-engine/internal/domain"
	apperrors "github.com/spec-kit/lifecycle-engine/pkg/util"
)

// AuthHandler issues tokens for config-declared service accounts.
type AuthHandler struct {
	accounts []config.ServiceAccount
	tokens   *auth.TokenManager
}

// NewAuthHandler constructs handler.
func NewAuthHandler(accounts []config.ServiceAccount, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens}
}

// Token POST /auth/token.
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AccountID == "" || req.Secret == "" {
		return apperrors.NewValidationError("account_id and secret required", nil)
	}

	account, ok := h.findAccount(req.AccountID)
	if !ok {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.CompareSecret(account.SecretHash, req.Secret); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := h.tokens.GenerateToken(account.ID, domain.ServiceRole(account.Role))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}})
}

func (h *AuthHandler) findAccount(id string) (config.ServiceAccount, bool) {
	for _, account := range h.accounts {
		if account.ID == id {
			return account, true
		}
	}
	return config.ServiceAccount{}, false
}
