package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tokenbook/tokenbook/internal/token"
)

// RegisterTokenRoutes wires token lifecycle and query endpoints.
func RegisterTokenRoutes(r fiber.Router, h *token.Handler) {
	r.Post("/tokens", h.Create)
	r.Get("/tokens", h.List)
	r.Get("/tokens/:tokenId", h.Get)
	r.Get("/tokens/:tokenId/supply", h.Supply)
	r.Get("/tokens/:tokenId/balances/:account", h.Balance)
	r.Get("/tokens/:tokenId/allowances/:owner/:spender", h.Allowance)
}
