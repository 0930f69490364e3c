package services

import (
	"errors"
	"strings"

	"ze-club/models"
	"ze-club/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const MaxImageBytes = 5 << 20

// RewardService is the admin side of the reward catalogue. Handlers return errors to the
// app's error handler.
type RewardService struct {
	DB      *gorm.DB
	Log     *zap.Logger
	Storage utils.Storage
}

func NewRewardService(db *gorm.DB, log *zap.Logger, storage utils.Storage) *RewardService {
	return &RewardService{DB: db, Log: log, Storage: storage}
}

func checkRequiredRank(rank string) error {
	if rank != "" && RankTierIndex(rank) < 0 {
		return newSettlementError(ErrValidation, "unknown rank",
			map[string]interface{}{"required_rank": "must be one of the rank tiers"})
	}
	return nil
}

// uploadImage stores the optional "image" form file and returns its URL, or "" when absent.
func uploadImage(c *fiber.Ctx, storage utils.Storage, prefix string) (string, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return "", nil
	}
	if err := utils.CheckUpload(fh, MaxImageBytes, utils.ImageExtensions); err != nil {
		return "", newSettlementError(ErrValidation, err.Error(), map[string]interface{}{"image": err.Error()})
	}
	return storage.Put(c.UserContext(), utils.ObjectKey(prefix, fh.Filename), fh)
}

// --- Admin Handlers ---

// CreateReward creates a reward from JSON or multipart form data (with optional "image").
func (s *RewardService) CreateReward(c *fiber.Ctx) error {
	var req struct {
		Name            string `json:"name" form:"name" validate:"required,max=120"`
		Description     string `json:"description" form:"description" validate:"max=5000"`
		ImageURL        string `json:"image_url" form:"image_url" validate:"omitempty,url"`
		Emoji           string `json:"emoji" form:"emoji" validate:"max=10"`
		Cost            int64  `json:"cost" form:"cost" validate:"required,gt=0"`
		Stock           int64  `json:"stock" form:"stock" validate:"gte=0"`
		RequiredRank    string `json:"required_rank" form:"required_rank"`
		ExclusiveToTop3 bool   `json:"exclusive_to_top3" form:"exclusive_to_top3"`
		Discountable    bool   `json:"discountable" form:"discountable"`
		Active          *bool  `json:"active" form:"active"`
	}
	if err := ParseBody(c, &req); err != nil {
		return err
	}
	if err := checkRequiredRank(req.RequiredRank); err != nil {
		return err
	}

	imageURL, err := uploadImage(c, s.Storage, "rewards")
	if err != nil {
		return err
	}
	if imageURL == "" {
		imageURL = req.ImageURL
	}

	reward := &models.Reward{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(req.Name),
		Slug:            slug.Make(req.Name),
		Description:     req.Description,
		ImageURL:        imageURL,
		Emoji:           req.Emoji,
		Cost:            req.Cost,
		Stock:           req.Stock,
		RequiredRank:    req.RequiredRank,
		ExclusiveToTop3: req.ExclusiveToTop3,
		Discountable:    req.Discountable,
		Active:          req.Active == nil || *req.Active,
	}
	if err := s.DB.WithContext(c.UserContext()).Select("*").Create(reward).Error; err != nil {
		return err
	}
	s.Log.Info("reward created", zap.String("reward_id", reward.ID), zap.String("name", reward.Name))
	return c.Status(fiber.StatusCreated).JSON(reward)
}

// UpdateReward applies a partial update. Stock set here is an absolute restock.
func (s *RewardService) UpdateReward(c *fiber.Ctx) error {
	db := s.DB.WithContext(c.UserContext())

	var existing models.Reward
	if err := db.First(&existing, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("reward")
		}
		return err
	}

	var req struct {
		Name            *string `json:"name" validate:"omitempty,min=1,max=120"`
		Description     *string `json:"description" validate:"omitempty,max=5000"`
		ImageURL        *string `json:"image_url" validate:"omitempty,url"`
		Emoji           *string `json:"emoji" validate:"omitempty,max=10"`
		Cost            *int64  `json:"cost" validate:"omitempty,gt=0"`
		Stock           *int64  `json:"stock" validate:"omitempty,gte=0"`
		RequiredRank    *string `json:"required_rank"`
		ExclusiveToTop3 *bool   `json:"exclusive_to_top3"`
		Discountable    *bool   `json:"discountable"`
		Active          *bool   `json:"active"`
	}
	if err := ParseBody(c, &req); err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
		updates["slug"] = slug.Make(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.Emoji != nil {
		updates["emoji"] = *req.Emoji
	}
	if req.Cost != nil {
		updates["cost"] = *req.Cost
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if req.RequiredRank != nil {
		if err := checkRequiredRank(*req.RequiredRank); err != nil {
			return err
		}
		updates["required_rank"] = *req.RequiredRank
	}
	if req.ExclusiveToTop3 != nil {
		updates["exclusive_to_top3"] = *req.ExclusiveToTop3
	}
	if req.Discountable != nil {
		updates["discountable"] = *req.Discountable
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}

	if len(updates) > 0 {
		if err := db.Model(&existing).Updates(updates).Error; err != nil {
			return err
		}
	}
	if err := db.First(&existing, "id = ?", existing.ID).Error; err != nil {
		return err
	}
	return c.JSON(existing)
}

// DeleteReward soft-deletes a reward. Requests already made against it are unaffected.
func (s *RewardService) DeleteReward(c *fiber.Ctx) error {
	res := s.DB.WithContext(c.UserContext()).Delete(&models.Reward{}, "id = ?", c.Params("id"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("reward")
	}
	return c.JSON(fiber.Map{"message": "Reward deleted successfully"})
}

// GetAllRewards lists every reward, inactive ones included.
func (s *RewardService) GetAllRewards(c *fiber.Ctx) error {
	var rewards []models.Reward
	if err := s.DB.WithContext(c.UserContext()).Order("created_at DESC").Find(&rewards).Error; err != nil {
		return err
	}
	return c.JSON(rewards)
}
