package services

import (
	"errors"
	"strings"
	"time"

	"ze-club/models"
	"ze-club/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type EventService struct {
	DB      *gorm.DB
	Log     *zap.Logger
	Storage utils.Storage
}

func NewEventService(db *gorm.DB, log *zap.Logger, storage utils.Storage) *EventService {
	return &EventService{DB: db, Log: log, Storage: storage}
}

// GetPublishedEvents is the public listing: upcoming first, then past.
func (s *EventService) GetPublishedEvents(c *fiber.Ctx) error {
	var events []models.Event
	if err := s.DB.WithContext(c.UserContext()).
		Where("status = ?", models.PublishPublished).
		Order("starts_at DESC").
		Find(&events).Error; err != nil {
		return err
	}
	return c.JSON(events)
}

func (s *EventService) GetAllEvents(c *fiber.Ctx) error {
	var events []models.Event
	if err := s.DB.WithContext(c.UserContext()).Order("created_at DESC").Find(&events).Error; err != nil {
		return err
	}
	return c.JSON(events)
}

type eventRequest struct {
	Title       string               `json:"title" form:"title" validate:"required,max=160"`
	Description string               `json:"description" form:"description" validate:"max=10000"`
	Location    string               `json:"location" form:"location" validate:"max=200"`
	ImageURL    string               `json:"image_url" form:"image_url" validate:"omitempty,url"`
	StartsAt    *time.Time           `json:"starts_at" form:"starts_at"`
	EndsAt      *time.Time           `json:"ends_at" form:"ends_at"`
	Status      models.PublishStatus `json:"status" form:"status"`
	PublishAt   *time.Time           `json:"publish_at" form:"publish_at"`
}

func (r *eventRequest) checkDates() error {
	if r.StartsAt != nil && r.EndsAt != nil && r.EndsAt.Before(*r.StartsAt) {
		return newSettlementError(ErrValidation, "ends_at must not be before starts_at",
			map[string]interface{}{"ends_at": "must not be before starts_at"})
	}
	return nil
}

func (s *EventService) CreateEvent(c *fiber.Ctx) error {
	var req eventRequest
	if err := ParseBody(c, &req); err != nil {
		return err
	}
	if err := req.checkDates(); err != nil {
		return err
	}
	status, publishAt, err := resolvePublish(req.Status, req.PublishAt)
	if err != nil {
		return err
	}

	imageURL, err := uploadImage(c, s.Storage, "events")
	if err != nil {
		return err
	}
	if imageURL == "" {
		imageURL = req.ImageURL
	}

	event := &models.Event{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Slug:        slug.Make(req.Title),
		Description: req.Description,
		Location:    req.Location,
		ImageURL:    imageURL,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Status:      status,
		PublishAt:   publishAt,
	}
	if err := s.DB.WithContext(c.UserContext()).Create(event).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

// UpdateEvent replaces the editable fields of an event.
func (s *EventService) UpdateEvent(c *fiber.Ctx) error {
	db := s.DB.WithContext(c.UserContext())

	var event models.Event
	if err := db.First(&event, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("event")
		}
		return err
	}

	var req eventRequest
	if err := ParseBody(c, &req); err != nil {
		return err
	}
	if err := req.checkDates(); err != nil {
		return err
	}
	status, publishAt, err := resolvePublish(req.Status, req.PublishAt)
	if err != nil {
		return err
	}

	event.Title = strings.TrimSpace(req.Title)
	event.Slug = slug.Make(req.Title)
	event.Description = req.Description
	event.Location = req.Location
	event.ImageURL = req.ImageURL
	event.StartsAt = req.StartsAt
	event.EndsAt = req.EndsAt
	event.Status = status
	event.PublishAt = publishAt

	if err := db.Save(&event).Error; err != nil {
		return err
	}
	return c.JSON(event)
}

// PublishEvent publishes immediately, whatever the current state.
func (s *EventService) PublishEvent(c *fiber.Ctx) error {
	db := s.DB.WithContext(c.UserContext())
	res := db.Model(&models.Event{}).Where("id = ?", c.Params("id")).
		Updates(map[string]interface{}{"status": models.PublishPublished, "publish_at": nil})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("event")
	}
	var event models.Event
	if err := db.First(&event, "id = ?", c.Params("id")).Error; err != nil {
		return err
	}
	s.Log.Info("event published", zap.String("event_id", event.ID))
	return c.JSON(event)
}

func (s *EventService) DeleteEvent(c *fiber.Ctx) error {
	res := s.DB.WithContext(c.UserContext()).Delete(&models.Event{}, "id = ?", c.Params("id"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("event")
	}
	return c.JSON(fiber.Map{"message": "Event deleted successfully"})
}
