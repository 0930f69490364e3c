package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ze-club/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// RedemptionInput is the member-supplied part of a redemption.
type RedemptionInput struct {
	RewardID        string `json:"reward_id" validate:"required"`
	ContactName     string `json:"contact_name" validate:"required,max=120"`
	ContactEmail    string `json:"contact_email" validate:"required,email"`
	ContactPhone    string `json:"contact_phone" validate:"required,zephone"`
	Address         string `json:"address" validate:"required,max=500"`
	AdditionalNotes string `json:"additional_notes" validate:"max=1000"`
}

func (in *RedemptionInput) normalize() {
	in.RewardID = strings.TrimSpace(in.RewardID)
	in.ContactName = strings.TrimSpace(in.ContactName)
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)
	in.ContactPhone = strings.TrimSpace(in.ContactPhone)
	in.Address = strings.TrimSpace(in.Address)
	in.AdditionalNotes = strings.TrimSpace(in.AdditionalNotes)
}

func (s *LedgerService) findByIdempotencyKey(ctx context.Context, memberID, key string) (*models.RedemptionRequest, error) {
	var existing models.RedemptionRequest
	err := s.DB.WithContext(ctx).
		Where("member_id = ? AND idempotency_key = ?", memberID, key).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// CreateRedemption exchanges ZE Coins for one unit of a reward. The request row, the coin
// debit and the stock decrement commit together; both debits are compare-and-swap updates,
// so concurrent redemptions can never drive stock or balance negative.
//
// When idempotencyKey is non-empty and a request with that key already exists for the
// member, it is returned with replayed=true and nothing is debited.
func (s *LedgerService) CreateRedemption(ctx context.Context, memberID string, in RedemptionInput, idempotencyKey string) (req *models.RedemptionRequest, replayed bool, err error) {
	in.normalize()
	if err := validateInput(&in); err != nil {
		return nil, false, err
	}

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" {
		existing, err := s.findByIdempotencyKey(ctx, memberID, idempotencyKey)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, true, nil
		}
	}

	open, err := gateOpen(s.DB.WithContext(ctx), func(st *models.SiteSettings) bool { return st.RedemptionsOpen })
	if err != nil {
		return nil, false, err
	}
	if !open {
		return nil, false, newSettlementError(ErrInvalidState, "redemptions are currently closed", nil)
	}

	var (
		member models.Member
		reward models.Reward
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.DB.WithContext(gctx).First(&member, "id = ?", memberID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("user")
			}
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := s.DB.WithContext(gctx).First(&reward, "id = ? AND active = ?", in.RewardID, true).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("reward")
			}
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	top3, err := isTop3(s.DB.WithContext(ctx), member.Experience)
	if err != nil {
		return nil, false, err
	}
	view := EvaluateReward(reward, &Viewer{MemberID: member.ID, Experience: member.Experience, Top3: top3})
	if view.IsLocked {
		return nil, false, newSettlementError(ErrRewardLocked, view.LockedReason, nil)
	}

	if reward.Stock <= 0 {
		return nil, false, outOfStock(reward.Name)
	}
	if member.ZeCoins < reward.Cost {
		return nil, false, insufficientBalance(reward.Cost, member.ZeCoins)
	}

	request := &models.RedemptionRequest{
		ID:              uuid.NewString(),
		MemberID:        member.ID,
		RewardID:        reward.ID,
		RewardName:      reward.Name,
		RewardCost:      reward.Cost,
		ContactName:     in.ContactName,
		ContactEmail:    in.ContactEmail,
		ContactPhone:    in.ContactPhone,
		Address:         in.Address,
		AdditionalNotes: in.AdditionalNotes,
		Status:          models.RedemptionPending,
	}
	if idempotencyKey != "" {
		request.IdempotencyKey = &idempotencyKey
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(request).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Reward{}).
			Where("id = ? AND stock > 0", reward.ID).
			Update("stock", gorm.Expr("stock - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return outOfStock(reward.Name)
		}

		res = tx.Model(&models.Member{}).
			Where("id = ? AND ze_coins >= ?", member.ID, reward.Cost).
			Update("ze_coins", gorm.Expr("ze_coins - ?", reward.Cost))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var current models.Member
			if err := tx.Select("ze_coins").First(&current, "id = ?", member.ID).Error; err != nil {
				return err
			}
			return insufficientBalance(reward.Cost, current.ZeCoins)
		}

		return writeLedger(tx, member.ID, models.LedgerRedemption, 0, -reward.Cost, request.ID, reward.Name)
	})
	if err != nil {
		// A concurrent retry with the same key may have won the unique index race.
		if idempotencyKey != "" && !errors.Is(err, ErrOutOfStock) && !errors.Is(err, ErrInsufficientBalance) {
			if existing, ferr := s.findByIdempotencyKey(ctx, memberID, idempotencyKey); ferr == nil && existing != nil {
				return existing, true, nil
			}
		}
		return nil, false, err
	}

	s.Log.Info("reward redeemed",
		zap.String("redemption_id", request.ID),
		zap.String("member_id", member.ID),
		zap.String("reward_id", reward.ID),
		zap.Int64("cost", reward.Cost),
	)
	if err := s.Mailer.SendRedemptionReceipt(ctx, request); err != nil {
		s.Log.Warn("redemption receipt not sent", zap.String("redemption_id", request.ID), zap.Error(err))
	}
	s.awardBadges(ctx, member.ID)
	return request, false, nil
}

func outOfStock(name string) error {
	return newSettlementError(ErrOutOfStock, fmt.Sprintf("%s is out of stock", name), nil)
}

func insufficientBalance(required, current int64) error {
	return newSettlementError(ErrInsufficientBalance,
		fmt.Sprintf("insufficient ZE Coins: requires %s, you have %s", formatCoins(required), formatCoins(current)),
		map[string]interface{}{"required": required, "current": current})
}

// UpdateRedemptionStatus is the admin fulfilment transition. Cancelling never refunds;
// see RefundRedemption.
func (s *LedgerService) UpdateRedemptionStatus(ctx context.Context, id string, status models.RedemptionStatus, adminNotes *string) (*models.RedemptionRequest, error) {
	if !status.Valid() {
		return nil, newSettlementError(ErrValidation, "status must be one of pending, processing, completed, cancelled", nil)
	}

	var req models.RedemptionRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("redemption request")
			}
			return err
		}
		if req.RefundedAt != nil && status != models.RedemptionCancelled {
			return newSettlementError(ErrInvalidState, "a refunded redemption cannot be reopened", nil)
		}

		updates := map[string]interface{}{"status": status}
		if adminNotes != nil {
			updates["admin_notes"] = *adminNotes
		}
		if err := tx.Model(&req).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&req, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.Mailer.SendRedemptionStatus(ctx, &req); err != nil {
		s.Log.Warn("redemption status mail not sent", zap.String("redemption_id", req.ID), zap.Error(err))
	}
	return &req, nil
}

// RefundRedemption returns the snapshot cost to the member and the unit to stock.
// Only cancelled, not-yet-refunded requests qualify.
func (s *LedgerService) RefundRedemption(ctx context.Context, id, adminID string) (*models.RedemptionRequest, error) {
	var req models.RedemptionRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("redemption request")
			}
			return err
		}
		if req.Status != models.RedemptionCancelled {
			return newSettlementError(ErrInvalidState, "only cancelled redemptions can be refunded", nil)
		}

		now := s.now()
		res := tx.Model(&models.RedemptionRequest{}).
			Where("id = ? AND status = ? AND refunded_at IS NULL", req.ID, models.RedemptionCancelled).
			Updates(map[string]interface{}{"refunded_at": now, "refunded_by": adminID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return newSettlementError(ErrInvalidState, "redemption already refunded", nil)
		}

		if err := tx.Model(&models.Member{}).Where("id = ?", req.MemberID).
			Update("ze_coins", gorm.Expr("ze_coins + ?", req.RewardCost)).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Reward{}).Unscoped().Where("id = ?", req.RewardID).
			Update("stock", gorm.Expr("stock + 1")).Error; err != nil {
			return err
		}
		if err := writeLedger(tx, req.MemberID, models.LedgerRedemptionRefund, 0, req.RewardCost, req.ID, req.RewardName); err != nil {
			return err
		}
		return tx.First(&req, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("redemption refunded",
		zap.String("redemption_id", req.ID),
		zap.String("admin_id", adminID),
		zap.Int64("coins", req.RewardCost),
	)
	return &req, nil
}

func (s *LedgerService) ListMemberRedemptions(ctx context.Context, memberID string) ([]models.RedemptionRequest, error) {
	var reqs []models.RedemptionRequest
	err := s.DB.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

// ListRedemptions is the admin fulfilment queue, optionally filtered by status.
func (s *LedgerService) ListRedemptions(ctx context.Context, status string) ([]models.RedemptionRequest, error) {
	db := s.DB.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		if !models.RedemptionStatus(status).Valid() {
			return nil, newSettlementError(ErrValidation, "unknown status filter", nil)
		}
		db = db.Where("status = ?", status)
	}
	var reqs []models.RedemptionRequest
	err := db.Find(&reqs).Error
	return reqs, err
}
