package services

import (
	"context"
	"errors"

	"ze-club/models"

	"gorm.io/gorm"
)

const (
	lockReasonTop3   = "Exclusive to Top 3 Errorless Legends"
	lockReasonSignIn = "Sign in to claim"
)

// Viewer is who a reward list is rendered for. A nil *Viewer is an anonymous visitor.
type Viewer struct {
	MemberID   string
	Experience int64
	Top3       bool
}

// RewardView is a reward annotated for one viewer.
type RewardView struct {
	models.Reward
	IsLocked     bool   `json:"is_locked"`
	LockedReason string `json:"locked_reason,omitempty"`
	FinalCost    int64  `json:"final_cost"`
}

// EvaluateReward applies the lock rules in order (first reason wins) and the
// Vanguard+ discount, which applies whether or not the reward is locked.
func EvaluateReward(r models.Reward, v *Viewer) RewardView {
	view := RewardView{Reward: r, FinalCost: r.Cost}

	var experience int64
	top3 := false
	if v != nil {
		experience = v.Experience
		top3 = v.Top3
	}
	tier := ResolveRank(experience).Tier

	var reasons []string
	if required := RankTierIndex(r.RequiredRank); required > 0 && tier < required {
		reasons = append(reasons, "Requires "+r.RequiredRank+" rank")
	}
	if r.ExclusiveToTop3 && !top3 {
		reasons = append(reasons, lockReasonTop3)
	}
	if v == nil {
		reasons = append(reasons, lockReasonSignIn)
	}
	if len(reasons) > 0 {
		view.IsLocked = true
		view.LockedReason = reasons[0]
	}

	if v != nil && tier >= RankTierIndex(RankVanguard) && r.Discountable {
		view.FinalCost = r.Cost * 9 / 10
	}
	return view
}

// isTop3 reports whether fewer than three members have strictly more experience.
func isTop3(tx *gorm.DB, experience int64) (bool, error) {
	var above int64
	if err := tx.Model(&models.Member{}).Where("experience > ?", experience).Count(&above).Error; err != nil {
		return false, err
	}
	return above < 3, nil
}

// LoadViewer resolves a member id into a Viewer; an empty id yields nil (anonymous).
func (s *LedgerService) LoadViewer(ctx context.Context, memberID string) (*Viewer, error) {
	if memberID == "" {
		return nil, nil
	}
	db := s.DB.WithContext(ctx)
	var m models.Member
	if err := db.Select("id", "experience").First(&m, "id = ?", memberID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	top3, err := isTop3(db, m.Experience)
	if err != nil {
		return nil, err
	}
	return &Viewer{MemberID: m.ID, Experience: m.Experience, Top3: top3}, nil
}

// ListRewards returns every active reward annotated for the viewer (memberID may be empty).
func (s *LedgerService) ListRewards(ctx context.Context, memberID string) ([]RewardView, error) {
	viewer, err := s.LoadViewer(ctx, memberID)
	if err != nil {
		return nil, err
	}

	var rewards []models.Reward
	if err := s.DB.WithContext(ctx).Where("active = ?", true).Order("cost ASC").Find(&rewards).Error; err != nil {
		return nil, err
	}

	views := make([]RewardView, 0, len(rewards))
	for _, r := range rewards {
		views = append(views, EvaluateReward(r, viewer))
	}
	return views, nil
}
