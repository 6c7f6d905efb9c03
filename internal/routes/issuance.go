package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tokenbook/tokenbook/internal/issuance"
)

// RegisterIssuanceRoutes wires supply-changing endpoints.
func RegisterIssuanceRoutes(r fiber.Router, h *issuance.Handler) {
	r.Post("/tokens/:tokenId/mint", h.Mint)
	r.Post("/tokens/:tokenId/burn", h.Burn)
}
