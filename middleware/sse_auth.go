package middleware

import (
	"strings"

	"ze-club/services"

	"github.com/gofiber/fiber/v2"
)

// SSEAuth authenticates EventSource requests, which cannot set headers, from the
// `token` query parameter.
//
//	app.Get("/ze-club/ledger/stream", middleware.SSEAuth(verifier, members), h.StreamLedger)
func SSEAuth(verifier services.SessionVerifier, members *services.MemberService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			token = bearerToken(c)
		}
		if token == "" {
			return unauthorized("missing token in query")
		}
		if err := authenticate(c, token, verifier, members); err != nil {
			return err
		}
		return c.Next()
	}
}
