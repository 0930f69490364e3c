package handlers

import (
	"ze-club/middleware"
	"ze-club/models"
	"ze-club/services"

	"github.com/gofiber/fiber/v2"
)

// IdempotencyKeyHeader deduplicates redemption retries per member.
const IdempotencyKeyHeader = "Idempotency-Key"

type clubHandler struct {
	Deps
}

// SetupClubRoutes registers the member-facing /ze-club API. Session requirements are
// applied per route because public and member routes share the prefix.
func SetupClubRoutes(app *fiber.App, d Deps) {
	h := &clubHandler{Deps: d}
	session := middleware.Session(d.Verifier, d.Members)
	optional := middleware.OptionalSession(d.Verifier, d.Members)

	club := app.Group("/ze-club")

	// public, personalised when signed in
	club.Get("/rewards", optional, h.listRewards)
	club.Get("/missions", optional, h.listMissions)
	club.Get("/leaderboard", h.leaderboard)
	club.Get("/events", d.Events.GetPublishedEvents)
	club.Get("/announcements", d.Announcements.GetPublishedAnnouncements)
	club.Get("/site-settings", h.siteSettings)

	// member
	club.Get("/me", session, h.me)
	club.Get("/me/badges", session, h.myBadges)
	club.Post("/missions/:id/submissions", session, h.createSubmission)
	club.Get("/submissions", session, h.mySubmissions)
	club.Post("/redemption-requests", session, h.createRedemption)
	club.Get("/redemption-requests", session, h.myRedemptions)
	club.Get("/ledger", session, h.ledger)
	club.Get("/ledger/stream", middleware.SSEAuth(d.Verifier, d.Members), h.ledgerStream)
}

func (h *clubHandler) listRewards(c *fiber.Ctx) error {
	views, err := h.Ledger.ListRewards(c.UserContext(), middleware.MemberID(c))
	if err != nil {
		return err
	}
	return c.JSON(views)
}

func (h *clubHandler) listMissions(c *fiber.Ctx) error {
	missions, err := h.Missions.ListOpenMissions(c.UserContext(), middleware.MemberID(c))
	if err != nil {
		return err
	}
	return c.JSON(missions)
}

func (h *clubHandler) leaderboard(c *fiber.Ctx) error {
	entries, err := h.Members.Leaderboard(c.UserContext(), c.QueryInt("limit", services.DefaultLeaderboardLimit))
	if err != nil {
		return err
	}
	return c.JSON(entries)
}

func (h *clubHandler) siteSettings(c *fiber.Ctx) error {
	st, err := h.Settings.Get(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (h *clubHandler) me(c *fiber.Ctx) error {
	profile, err := h.Members.Profile(c.UserContext(), middleware.MemberID(c))
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

func (h *clubHandler) myBadges(c *fiber.Ctx) error {
	badges, err := h.Badges.ListMemberBadges(c.UserContext(), middleware.MemberID(c))
	if err != nil {
		return err
	}
	return c.JSON(badges)
}

func (h *clubHandler) createSubmission(c *fiber.Ctx) error {
	proof, err := c.FormFile("proof")
	if err != nil {
		proof = nil
	}
	sub, err := h.Missions.CreateSubmission(c.UserContext(), middleware.MemberID(c), c.Params("id"), proof, c.FormValue("note"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

func (h *clubHandler) mySubmissions(c *fiber.Ctx) error {
	subs, err := h.Missions.ListMemberSubmissions(c.UserContext(), middleware.MemberID(c))
	if err != nil {
		return err
	}
	return c.JSON(subs)
}

func (h *clubHandler) createRedemption(c *fiber.Ctx) error {
	var in services.RedemptionInput
	if err := c.BodyParser(&in); err != nil {
		return &services.SettlementError{Kind: services.ErrValidation, Message: "invalid request body"}
	}

	req, replayed, err := h.Ledger.CreateRedemption(c.UserContext(), middleware.MemberID(c), in, c.Get(IdempotencyKeyHeader))
	if err != nil {
		return err
	}
	resp := redemptionResponse{RedemptionRequest: req, RequestID: req.ID}
	if replayed {
		c.Set("Idempotent-Replayed", "true")
		return c.Status(fiber.StatusOK).JSON(resp)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// redemptionResponse is the stored request plus request_id, the field clients key on.
type redemptionResponse struct {
	*models.RedemptionRequest
	RequestID string `json:"request_id"`
}

func (h *clubHandler) myRedemptions(c *fiber.Ctx) error {
	reqs, err := h.Ledger.ListMemberRedemptions(c.UserContext(), middleware.MemberID(c))
	if err != nil {
		return err
	}
	return c.JSON(reqs)
}

func (h *clubHandler) ledger(c *fiber.Ctx) error {
	entries, err := h.Ledger.ListLedgerEntries(c.UserContext(), middleware.MemberID(c), c.QueryInt("limit", services.DefaultLedgerPage))
	if err != nil {
		return err
	}
	return c.JSON(entries)
}

func (h *clubHandler) ledgerStream(c *fiber.Ctx) error {
	return h.Ledger.StreamLedgerSSE(c, middleware.MemberID(c))
}
