package middleware

import (
	"strings"

	"ze-club/logging"
	"ze-club/models"
	"ze-club/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	memberKey   = "member"
	identityKey = "identity"
)

// MemberID returns the authenticated member id, or "" for anonymous requests.
func MemberID(c *fiber.Ctx) string {
	if m := CurrentMember(c); m != nil {
		return m.ID
	}
	return ""
}

// CurrentMember returns the member attached by Session or OptionalSession.
func CurrentMember(c *fiber.Ctx) *models.Member {
	m, _ := c.Locals(memberKey).(*models.Member)
	return m
}

func bearerToken(c *fiber.Ctx) string {
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func unauthorized(msg string) error {
	return &services.SettlementError{Kind: services.ErrUnauthorized, Message: msg}
}

// authenticate verifies token, loads (or creates) the member and attaches both to c.
func authenticate(c *fiber.Ctx, token string, verifier services.SessionVerifier, members *services.MemberService) error {
	id, err := verifier.Verify(c.UserContext(), token)
	if err != nil {
		return unauthorized("invalid or expired session")
	}

	member, err := members.EnsureMember(c.UserContext(), *id)
	if err != nil {
		return err
	}
	if member.IsBanned {
		return &services.SettlementError{Kind: services.ErrForbidden, Message: "account suspended"}
	}

	c.Locals(identityKey, id)
	c.Locals(memberKey, member)
	c.SetUserContext(logging.WithFields(c.UserContext(), zap.String("member_id", member.ID)))
	return nil
}

// Session requires a valid bearer session on every request it guards.
func Session(verifier services.SessionVerifier, members *services.MemberService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return unauthorized("missing bearer token")
		}
		if err := authenticate(c, token, verifier, members); err != nil {
			return err
		}
		return c.Next()
	}
}

// OptionalSession attaches the member when a bearer token is present and lets anonymous
// requests through. A token that is present but invalid is still rejected.
func OptionalSession(verifier services.SessionVerifier, members *services.MemberService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Next()
		}
		if err := authenticate(c, token, verifier, members); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireAdmin must run after Session.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		m := CurrentMember(c)
		if m == nil {
			return unauthorized("missing session")
		}
		if !m.IsAdmin() {
			return &services.SettlementError{Kind: services.ErrForbidden, Message: "admin role required"}
		}
		return c.Next()
	}
}
