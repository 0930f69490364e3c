package services

import (
	"errors"
	"strings"
	"time"

	"ze-club/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AnnouncementService struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewAnnouncementService(db *gorm.DB, log *zap.Logger) *AnnouncementService {
	return &AnnouncementService{DB: db, Log: log}
}

// GetPublishedAnnouncements lists published posts, pinned first.
func (s *AnnouncementService) GetPublishedAnnouncements(c *fiber.Ctx) error {
	var posts []models.Announcement
	if err := s.DB.WithContext(c.UserContext()).
		Where("status = ?", models.PublishPublished).
		Order("pinned DESC").Order("created_at DESC").
		Find(&posts).Error; err != nil {
		return err
	}
	return c.JSON(posts)
}

func (s *AnnouncementService) GetAllAnnouncements(c *fiber.Ctx) error {
	var posts []models.Announcement
	if err := s.DB.WithContext(c.UserContext()).Order("created_at DESC").Find(&posts).Error; err != nil {
		return err
	}
	return c.JSON(posts)
}

type announcementRequest struct {
	Title     string               `json:"title" validate:"required,max=160"`
	Body      string               `json:"body" validate:"required,max=20000"`
	Pinned    bool                 `json:"pinned"`
	Status    models.PublishStatus `json:"status"`
	PublishAt *time.Time           `json:"publish_at"`
}

func (s *AnnouncementService) CreateAnnouncement(c *fiber.Ctx) error {
	var req announcementRequest
	if err := ParseBody(c, &req); err != nil {
		return err
	}
	status, publishAt, err := resolvePublish(req.Status, req.PublishAt)
	if err != nil {
		return err
	}

	post := &models.Announcement{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(req.Title),
		Slug:      slug.Make(req.Title),
		Body:      req.Body,
		Pinned:    req.Pinned,
		Status:    status,
		PublishAt: publishAt,
	}
	if err := s.DB.WithContext(c.UserContext()).Create(post).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (s *AnnouncementService) UpdateAnnouncement(c *fiber.Ctx) error {
	db := s.DB.WithContext(c.UserContext())

	var post models.Announcement
	if err := db.First(&post, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("announcement")
		}
		return err
	}

	var req announcementRequest
	if err := ParseBody(c, &req); err != nil {
		return err
	}
	status, publishAt, err := resolvePublish(req.Status, req.PublishAt)
	if err != nil {
		return err
	}

	post.Title = strings.TrimSpace(req.Title)
	post.Slug = slug.Make(req.Title)
	post.Body = req.Body
	post.Pinned = req.Pinned
	post.Status = status
	post.PublishAt = publishAt

	if err := db.Save(&post).Error; err != nil {
		return err
	}
	return c.JSON(post)
}

func (s *AnnouncementService) PublishAnnouncement(c *fiber.Ctx) error {
	db := s.DB.WithContext(c.UserContext())
	res := db.Model(&models.Announcement{}).Where("id = ?", c.Params("id")).
		Updates(map[string]interface{}{"status": models.PublishPublished, "publish_at": nil})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("announcement")
	}
	var post models.Announcement
	if err := db.First(&post, "id = ?", c.Params("id")).Error; err != nil {
		return err
	}
	s.Log.Info("announcement published", zap.String("announcement_id", post.ID))
	return c.JSON(post)
}

func (s *AnnouncementService) DeleteAnnouncement(c *fiber.Ctx) error {
	res := s.DB.WithContext(c.UserContext()).Delete(&models.Announcement{}, "id = ?", c.Params("id"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("announcement")
	}
	return c.JSON(fiber.Map{"message": "Announcement deleted successfully"})
}
