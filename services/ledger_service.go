package services

import (
	"context"
	"time"

	"ze-club/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

// LedgerService owns every operation that moves experience, ZE Coins, reward stock
// or mission completion counters. Each settlement runs in one transaction.
type LedgerService struct {
	DB     *gorm.DB
	Log    *zap.Logger
	Badges *BadgeService
	Mailer Mailer

	now func() time.Time
}

func NewLedgerService(db *gorm.DB, log *zap.Logger, badges *BadgeService, mailer Mailer) *LedgerService {
	if mailer == nil {
		mailer = NoopMailer{}
	}
	return &LedgerService{DB: db, Log: log, Badges: badges, Mailer: mailer, now: time.Now}
}

var printer = message.NewPrinter(language.English)

// formatCoins renders an amount with thousands separators, e.g. "1,250 ZE Coins".
func formatCoins(n int64) string {
	return printer.Sprintf("%d ZE Coins", n)
}

func writeLedger(tx *gorm.DB, memberID string, kind models.LedgerKind, xp, coins int64, ref, note string) error {
	return tx.Create(&models.LedgerEntry{
		ID:              uuid.NewString(),
		MemberID:        memberID,
		Kind:            kind,
		ExperienceDelta: xp,
		CoinsDelta:      coins,
		ReferenceID:     ref,
		Note:            note,
	}).Error
}

// persistRank recomputes the rank of the member as stored in tx and writes the derived fields.
func persistRank(tx *gorm.DB, memberID string, now time.Time) (*models.Member, string, Rank, error) {
	var m models.Member
	if err := tx.First(&m, "id = ?", memberID).Error; err != nil {
		return nil, "", Rank{}, err
	}
	oldRank, current := applyRank(&m, now)
	err := tx.Model(&models.Member{}).Where("id = ?", memberID).Updates(map[string]interface{}{
		"rank":                  m.Rank,
		"rank_icon":             m.RankIcon,
		"progress_to_next_rank": m.ProgressToNextRank,
		"current_rank_points":   m.CurrentRankPoints,
		"next_rank_points":      m.NextRankPoints,
		"last_rank_up_at":       m.LastRankUpAt,
	}).Error
	if err != nil {
		return nil, "", Rank{}, err
	}
	return &m, oldRank, current, nil
}

// awardBadges runs after commit; a failure never undoes a settlement.
func (s *LedgerService) awardBadges(ctx context.Context, memberID string) {
	if s.Badges == nil {
		return
	}
	if _, err := s.Badges.AutoAwardBadges(ctx, memberID); err != nil {
		s.Log.Warn("badge award failed", zap.String("member_id", memberID), zap.Error(err))
	}
}
