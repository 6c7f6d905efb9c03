package issuance

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tokenbook/tokenbook/internal/ledger"
	"github.com/tokenbook/tokenbook/internal/token"
)

const adminKeyHeader = "X-Admin-Key"

// Handler exposes mint and burn endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an issuance handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type issuanceRequest struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

// Mint credits newly created supply to an account.
func (h *Handler) Mint(c *fiber.Ctx) error {
	return h.apply(c, h.service.Mint)
}

// Burn destroys supply held by an account.
func (h *Handler) Burn(c *fiber.Ctx) error {
	return h.apply(c, h.service.Burn)
}

func (h *Handler) apply(c *fiber.Ctx, op func(ctx context.Context, input Input) (Result, error)) error {
	id, err := token.ParseTokenID(c.Params("tokenId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	var req issuanceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := op(c.UserContext(), Input{
		TokenID:    id,
		Account:    ledger.AccountID(req.Account),
		Amount:     req.Amount,
		Credential: c.Get(adminKeyHeader),
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrUnauthorized):
			return fiber.NewError(http.StatusForbidden, "unauthorized")
		case errors.Is(err, ledger.ErrUnknownToken):
			return fiber.NewError(http.StatusNotFound, "unknown token")
		case errors.Is(err, ledger.ErrInsufficientBalance):
			return fiber.NewError(http.StatusBadRequest, "insufficient balance")
		case errors.Is(err, ledger.ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "invalid amount")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"token_id":     uint32(res.TokenID),
		"account":      string(res.Account),
		"amount":       res.Amount,
		"total_supply": res.TotalSupply,
		"completed_at": res.CompletedAt,
	})
}
