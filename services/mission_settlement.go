package services

import (
	"context"
	"errors"
	"fmt"

	"ze-club/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettlementResult describes the balance and rank outcome of an approve or revert.
type SettlementResult struct {
	SubmissionID   string `json:"submission_id"`
	PointsAwarded  int64  `json:"points_awarded,omitempty"`
	PointsDeducted int64  `json:"points_deducted,omitempty"`
	NewBalance     int64  `json:"new_balance"`
	NewExperience  int64  `json:"new_experience"`
	OldRank        string `json:"old_rank"`
	NewRank        string `json:"new_rank"`
	RankChanged    bool   `json:"rank_changed"`
}

// VerifySubmission dispatches an admin verdict on a pending submission.
func (s *LedgerService) VerifySubmission(ctx context.Context, submissionID, adminID string, status models.SubmissionStatus) (*SettlementResult, error) {
	switch status {
	case models.SubmissionApproved:
		return s.ApproveSubmission(ctx, submissionID, adminID)
	case models.SubmissionRejected:
		if err := s.RejectSubmission(ctx, submissionID, adminID); err != nil {
			return nil, err
		}
		return &SettlementResult{SubmissionID: submissionID}, nil
	default:
		return nil, newSettlementError(ErrValidation, "status must be approved or rejected", nil)
	}
}

func loadSubmission(tx *gorm.DB, id string) (*models.MissionSubmission, *models.Mission, error) {
	var sub models.MissionSubmission
	if err := tx.First(&sub, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, notFound("submission")
		}
		return nil, nil, err
	}
	// Soft-deleted missions still settle: deletion hides a mission, it does not void claims.
	var mission models.Mission
	if err := tx.Unscoped().First(&mission, "id = ?", sub.MissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, notFound("mission")
		}
		return nil, nil, err
	}
	return &sub, &mission, nil
}

func memberExists(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&models.Member{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound("user")
	}
	return nil
}

// transitionSubmission moves a submission out of `from`; zero rows means someone else got there first.
func transitionSubmission(tx *gorm.DB, id string, from models.SubmissionStatus, updates map[string]interface{}) error {
	res := tx.Model(&models.MissionSubmission{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return newSettlementError(ErrInvalidState, fmt.Sprintf("submission is no longer %s", from), nil)
	}
	return nil
}

// ApproveSubmission credits the mission's points to both ledgers and bumps the completion counter.
func (s *LedgerService) ApproveSubmission(ctx context.Context, submissionID, adminID string) (*SettlementResult, error) {
	var result SettlementResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, mission, err := loadSubmission(tx, submissionID)
		if err != nil {
			return err
		}
		if sub.Status != models.SubmissionPending {
			return newSettlementError(ErrInvalidState,
				fmt.Sprintf("only pending submissions can be approved (current: %s)", sub.Status), nil)
		}
		if err := memberExists(tx, sub.MemberID); err != nil {
			return err
		}

		now := s.now()
		if err := transitionSubmission(tx, sub.ID, models.SubmissionPending, map[string]interface{}{
			"status":      models.SubmissionApproved,
			"reviewed_by": adminID,
			"reviewed_at": now,
		}); err != nil {
			return err
		}

		// Claim a completion slot; a capped mission that is already full rolls the approval back.
		res := tx.Model(&models.Mission{}).Unscoped().
			Where("id = ? AND (max_completions = 0 OR current_completions < max_completions)", mission.ID).
			Update("current_completions", gorm.Expr("current_completions + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return newSettlementError(ErrMissionClosed, "mission has reached its completion limit",
				map[string]interface{}{"max_completions": mission.MaxCompletions})
		}

		if err := tx.Model(&models.Member{}).Where("id = ?", sub.MemberID).Updates(map[string]interface{}{
			"experience": gorm.Expr("experience + ?", mission.Points),
			"ze_coins":   gorm.Expr("ze_coins + ?", mission.Points),
		}).Error; err != nil {
			return err
		}

		member, oldRank, rank, err := persistRank(tx, sub.MemberID, now)
		if err != nil {
			return err
		}

		if err := writeLedger(tx, sub.MemberID, models.LedgerMissionApproved, mission.Points, mission.Points,
			sub.ID, mission.Title); err != nil {
			return err
		}

		result = SettlementResult{
			SubmissionID:  sub.ID,
			PointsAwarded: mission.Points,
			NewBalance:    member.ZeCoins,
			NewExperience: member.Experience,
			OldRank:       oldRank,
			NewRank:       rank.Name,
			RankChanged:   oldRank != rank.Name,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("submission approved",
		zap.String("submission_id", submissionID),
		zap.String("admin_id", adminID),
		zap.Int64("points", result.PointsAwarded),
		zap.String("rank", result.NewRank),
	)
	s.awardBadgesFor(ctx, submissionID)
	return &result, nil
}

func (s *LedgerService) awardBadgesFor(ctx context.Context, submissionID string) {
	var sub models.MissionSubmission
	if err := s.DB.WithContext(ctx).Select("member_id").First(&sub, "id = ?", submissionID).Error; err != nil {
		return
	}
	s.awardBadges(ctx, sub.MemberID)
}

// RejectSubmission closes a pending submission without touching any balance.
func (s *LedgerService) RejectSubmission(ctx context.Context, submissionID, adminID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, _, err := loadSubmission(tx, submissionID)
		if err != nil {
			return err
		}
		if sub.Status != models.SubmissionPending {
			return newSettlementError(ErrInvalidState,
				fmt.Sprintf("only pending submissions can be rejected (current: %s)", sub.Status), nil)
		}
		return transitionSubmission(tx, sub.ID, models.SubmissionPending, map[string]interface{}{
			"status":      models.SubmissionRejected,
			"reviewed_by": adminID,
			"reviewed_at": s.now(),
		})
	})
}

// RevertSubmission claws back an approved submission. It refuses when the clawback would
// push ZE Coins below zero while the member has coins tied up in redemptions.
func (s *LedgerService) RevertSubmission(ctx context.Context, submissionID, adminID, reason string) (*SettlementResult, error) {
	var result SettlementResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, mission, err := loadSubmission(tx, submissionID)
		if err != nil {
			return err
		}
		if sub.Status != models.SubmissionApproved {
			return newSettlementError(ErrInvalidState, "only approved submissions can be reverted",
				map[string]interface{}{"current_status": sub.Status})
		}

		// Lock the member so a redemption cannot spend the coins between the guard and the deduction.
		var member models.Member
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&member, "id = ?", sub.MemberID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("user")
			}
			return err
		}

		points := mission.Points
		resulting := member.ZeCoins - points
		if resulting < 0 {
			var active int64
			if err := tx.Model(&models.RedemptionRequest{}).
				Where("member_id = ? AND status IN ?", member.ID, models.ActiveRedemptionStatuses).
				Count(&active).Error; err != nil {
				return err
			}
			if active > 0 {
				return newSettlementError(ErrRevertBlocked,
					fmt.Sprintf("cannot revert: member holds %s, deducting %d would go negative and %d redemption(s) are active",
						formatCoins(member.ZeCoins), points, active),
					map[string]interface{}{
						"current_balance":    member.ZeCoins,
						"points_to_deduct":   points,
						"resulting_balance":  resulting,
						"active_redemptions": active,
					})
			}
		}

		now := s.now()
		if err := transitionSubmission(tx, sub.ID, models.SubmissionApproved, map[string]interface{}{
			"status":        models.SubmissionRejected,
			"reverted_by":   adminID,
			"reverted_at":   now,
			"revert_reason": reason,
		}); err != nil {
			return err
		}

		if err := tx.Model(&models.Member{}).Where("id = ?", member.ID).Updates(map[string]interface{}{
			"experience": gorm.Expr("CASE WHEN experience >= ? THEN experience - ? ELSE 0 END", points, points),
			"ze_coins":   gorm.Expr("CASE WHEN ze_coins >= ? THEN ze_coins - ? ELSE 0 END", points, points),
		}).Error; err != nil {
			return err
		}

		updated, oldRank, rank, err := persistRank(tx, member.ID, now)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.Mission{}).Unscoped().Where("id = ?", mission.ID).
			Update("current_completions", gorm.Expr("CASE WHEN current_completions > 0 THEN current_completions - 1 ELSE 0 END")).Error; err != nil {
			return err
		}

		if err := writeLedger(tx, member.ID, models.LedgerMissionReverted,
			updated.Experience-member.Experience, updated.ZeCoins-member.ZeCoins, sub.ID, reason); err != nil {
			return err
		}

		result = SettlementResult{
			SubmissionID:   sub.ID,
			PointsDeducted: points,
			NewBalance:     updated.ZeCoins,
			NewExperience:  updated.Experience,
			OldRank:        oldRank,
			NewRank:        rank.Name,
			RankChanged:    oldRank != rank.Name,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("submission reverted",
		zap.String("submission_id", submissionID),
		zap.String("admin_id", adminID),
		zap.Int64("points", result.PointsDeducted),
		zap.String("old_rank", result.OldRank),
		zap.String("new_rank", result.NewRank),
	)
	return &result, nil
}
