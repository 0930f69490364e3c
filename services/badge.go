package services

import (
	"context"
	"errors"

	"ze-club/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeService struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewBadgeService(db *gorm.DB, log *zap.Logger) *BadgeService {
	return &BadgeService{DB: db, Log: log}
}

// badgeProgress is the snapshot the badge thresholds are compared against.
type badgeProgress struct {
	RankTier         int64
	ApprovedMissions int64
	Redemptions      int64
}

// EnsureBadgeTypes seeds the predefined badges, keyed by code.
func (s *BadgeService) EnsureBadgeTypes(ctx context.Context) error {
	db := s.DB.WithContext(ctx)
	for _, trigger := range models.BadgeTriggers {
		bt := trigger
		bt.ID = uuid.NewString()
		if err := db.Where(models.BadgeType{Code: trigger.Code}).
			Attrs(bt).
			FirstOrCreate(&models.BadgeType{}).Error; err != nil {
			return err
		}
	}
	return nil
}

// AutoAwardBadges checks every badge threshold for a member and awards the ones newly met.
// It returns the names of the badges awarded by this call.
func (s *BadgeService) AutoAwardBadges(ctx context.Context, memberID string) ([]string, error) {
	db := s.DB.WithContext(ctx)

	prog, err := s.progress(db, memberID)
	if err != nil {
		return nil, err
	}

	var types []models.BadgeType
	if err := db.Find(&types).Error; err != nil {
		return nil, err
	}

	var awarded []string
	for _, bt := range types {
		if !meetsThreshold(prog, bt.Threshold) {
			continue
		}
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.UserBadge{
			ID:          uuid.NewString(),
			MemberID:    memberID,
			BadgeTypeID: bt.ID,
		})
		if res.Error != nil {
			return awarded, res.Error
		}
		if res.RowsAffected > 0 {
			awarded = append(awarded, bt.Name)
			s.Log.Info("badge awarded", zap.String("badge", bt.Code), zap.String("member_id", memberID))
		}
	}
	return awarded, nil
}

func (s *BadgeService) progress(db *gorm.DB, memberID string) (badgeProgress, error) {
	var m models.Member
	if err := db.Select("id", "experience").First(&m, "id = ?", memberID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return badgeProgress{}, notFound("user")
		}
		return badgeProgress{}, err
	}

	p := badgeProgress{RankTier: int64(ResolveRank(m.Experience).Tier)}
	if err := db.Model(&models.MissionSubmission{}).
		Where("member_id = ? AND status = ?", memberID, models.SubmissionApproved).
		Count(&p.ApprovedMissions).Error; err != nil {
		return p, err
	}
	if err := db.Model(&models.RedemptionRequest{}).
		Where("member_id = ? AND status IN ?", memberID, models.ActiveRedemptionStatuses).
		Count(&p.Redemptions).Error; err != nil {
		return p, err
	}
	return p, nil
}

func meetsThreshold(p badgeProgress, req map[string]int64) bool {
	if len(req) == 0 {
		return false
	}
	for key, required := range req {
		switch key {
		case models.ThresholdRankTier:
			if p.RankTier < required {
				return false
			}
		case models.ThresholdApprovedMissions:
			if p.ApprovedMissions < required {
				return false
			}
		case models.ThresholdRedemptions:
			if p.Redemptions < required {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// ListMemberBadges returns the badges a member holds, newest first.
func (s *BadgeService) ListMemberBadges(ctx context.Context, memberID string) ([]models.UserBadge, error) {
	var badges []models.UserBadge
	err := s.DB.WithContext(ctx).
		Preload("BadgeType").
		Where("member_id = ?", memberID).
		Order("awarded_at DESC").
		Find(&badges).Error
	return badges, err
}
