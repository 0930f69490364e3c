package handlers

import (
	"ze-club/middleware"
	"ze-club/models"
	"ze-club/services"

	"github.com/gofiber/fiber/v2"
)

type adminHandler struct {
	Deps
}

// SetupAdminRoutes registers /admin; every route requires an admin session.
func SetupAdminRoutes(app *fiber.App, d Deps) {
	h := &adminHandler{Deps: d}
	admin := app.Group("/admin", middleware.Session(d.Verifier, d.Members), middleware.RequireAdmin())

	// settlement
	admin.Get("/submissions", h.listSubmissions)
	admin.Patch("/submissions/verify", h.verifySubmission)
	admin.Post("/submissions/revert", h.revertSubmission)
	admin.Get("/redemption-requests", h.listRedemptions)
	admin.Patch("/redemption-requests/:id", h.updateRedemption)
	admin.Post("/redemption-requests/:id/refund", h.refundRedemption)

	// catalogue
	admin.Get("/missions", h.listMissions)
	admin.Post("/missions", h.createMission)
	admin.Put("/missions/:id", h.updateMission)
	admin.Delete("/missions/:id", h.deleteMission)

	admin.Get("/rewards", d.Rewards.GetAllRewards)
	admin.Post("/rewards", d.Rewards.CreateReward)
	admin.Put("/rewards/:id", d.Rewards.UpdateReward)
	admin.Delete("/rewards/:id", d.Rewards.DeleteReward)

	admin.Get("/events", d.Events.GetAllEvents)
	admin.Post("/events", d.Events.CreateEvent)
	admin.Put("/events/:id", d.Events.UpdateEvent)
	admin.Post("/events/:id/publish", d.Events.PublishEvent)
	admin.Delete("/events/:id", d.Events.DeleteEvent)

	admin.Get("/announcements", d.Announcements.GetAllAnnouncements)
	admin.Post("/announcements", d.Announcements.CreateAnnouncement)
	admin.Put("/announcements/:id", d.Announcements.UpdateAnnouncement)
	admin.Post("/announcements/:id/publish", d.Announcements.PublishAnnouncement)
	admin.Delete("/announcements/:id", d.Announcements.DeleteAnnouncement)

	// members and site
	admin.Get("/users", h.listUsers)
	admin.Patch("/users/:id/role", h.updateRole)
	admin.Put("/site-settings", h.updateSiteSettings)
}

func (h *adminHandler) listSubmissions(c *fiber.Ctx) error {
	subs, err := h.Missions.ListSubmissions(c.UserContext(), c.Query("status"))
	if err != nil {
		return err
	}
	return c.JSON(subs)
}

func (h *adminHandler) verifySubmission(c *fiber.Ctx) error {
	var req struct {
		SubmissionID string                  `json:"submission_id" validate:"required"`
		Status       models.SubmissionStatus `json:"status" validate:"required,oneof=approved rejected"`
	}
	if err := services.ParseBody(c, &req); err != nil {
		return err
	}
	result, err := h.Ledger.VerifySubmission(c.UserContext(), req.SubmissionID, middleware.MemberID(c), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *adminHandler) revertSubmission(c *fiber.Ctx) error {
	var req struct {
		SubmissionID string `json:"submission_id" validate:"required"`
		Reason       string `json:"reason" validate:"required,max=1000"`
	}
	if err := services.ParseBody(c, &req); err != nil {
		return err
	}
	result, err := h.Ledger.RevertSubmission(c.UserContext(), req.SubmissionID, middleware.MemberID(c), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *adminHandler) listRedemptions(c *fiber.Ctx) error {
	reqs, err := h.Ledger.ListRedemptions(c.UserContext(), c.Query("status"))
	if err != nil {
		return err
	}
	return c.JSON(reqs)
}

func (h *adminHandler) updateRedemption(c *fiber.Ctx) error {
	var req struct {
		Status     models.RedemptionStatus `json:"status" validate:"required,oneof=pending processing completed cancelled"`
		AdminNotes *string                 `json:"admin_notes" validate:"omitempty,max=2000"`
	}
	if err := services.ParseBody(c, &req); err != nil {
		return err
	}
	updated, err := h.Ledger.UpdateRedemptionStatus(c.UserContext(), c.Params("id"), req.Status, req.AdminNotes)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

func (h *adminHandler) refundRedemption(c *fiber.Ctx) error {
	refunded, err := h.Ledger.RefundRedemption(c.UserContext(), c.Params("id"), middleware.MemberID(c))
	if err != nil {
		return err
	}
	return c.JSON(refunded)
}

func (h *adminHandler) listMissions(c *fiber.Ctx) error {
	missions, err := h.Missions.ListMissions(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(missions)
}

func (h *adminHandler) createMission(c *fiber.Ctx) error {
	var in services.MissionInput
	if err := c.BodyParser(&in); err != nil {
		return &services.SettlementError{Kind: services.ErrValidation, Message: "invalid request body"}
	}
	m, err := h.Missions.CreateMission(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

func (h *adminHandler) updateMission(c *fiber.Ctx) error {
	var in services.MissionUpdate
	if err := c.BodyParser(&in); err != nil {
		return &services.SettlementError{Kind: services.ErrValidation, Message: "invalid request body"}
	}
	m, err := h.Missions.UpdateMission(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(m)
}

func (h *adminHandler) deleteMission(c *fiber.Ctx) error {
	if err := h.Missions.DeleteMission(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Mission deleted successfully"})
}

func (h *adminHandler) listUsers(c *fiber.Ctx) error {
	members, err := h.Members.SearchMembers(c.UserContext(), c.Query("q"), c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	return c.JSON(members)
}

func (h *adminHandler) updateRole(c *fiber.Ctx) error {
	var req struct {
		Role models.MemberRole `json:"role" validate:"required,oneof=member admin"`
	}
	if err := services.ParseBody(c, &req); err != nil {
		return err
	}
	m, err := h.Members.UpdateRole(c.UserContext(), c.Params("id"), req.Role, middleware.MemberID(c))
	if err != nil {
		return err
	}
	return c.JSON(m)
}

func (h *adminHandler) updateSiteSettings(c *fiber.Ctx) error {
	var in services.SiteSettingsInput
	if err := c.BodyParser(&in); err != nil {
		return &services.SettlementError{Kind: services.ErrValidation, Message: "invalid request body"}
	}
	st, err := h.Settings.Update(c.UserContext(), in, middleware.MemberID(c))
	if err != nil {
		return err
	}
	return c.JSON(st)
}
