package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const accountHeader = "X-Account-ID"

// CallerAccount reads the caller's asserted account identifier and makes it
// available to handlers. The ledger treats accounts as opaque keys; verifying
// that a caller really controls the identifier is the identity collaborator's
// job in front of this service.
func CallerAccount() fiber.Handler {
	return func(c *fiber.Ctx) error {
		account := strings.TrimSpace(c.Get(accountHeader))
		if account != "" {
			c.Locals("account_id", account)
		}
		return c.Next()
	}
}
