package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tokenbook/tokenbook/internal/transfers"
)

// RegisterTransferRoutes wires transfer and approval endpoints.
func RegisterTransferRoutes(r fiber.Router, h *transfers.Handler) {
	r.Post("/transfers", h.Transfer)
	r.Post("/transfers/delegated", h.Delegated)
	r.Post("/approvals", h.Approve)
}
