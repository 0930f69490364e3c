package services

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ze-club/models"
)

var dbSeq atomic.Int64

// newTestDB opens a private in-memory SQLite database with the full schema.
// A single connection serializes transactions the way row locks would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:zeclub%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.Migrate(db))
	return db
}

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T, db *gorm.DB) *LedgerService {
	t.Helper()
	log := zap.NewNop()
	s := NewLedgerService(db, log, NewBadgeService(db, log), nil)
	s.now = func() time.Time { return fixedNow }
	return s
}

func seedMember(t *testing.T, db *gorm.DB, experience, coins int64) *models.Member {
	t.Helper()
	m := &models.Member{
		ID:         uuid.NewString(),
		Email:      uuid.NewString()[:8] + "@ze.gg",
		Role:       models.RoleMember,
		Experience: experience,
		ZeCoins:    coins,
	}
	m.DisplayTag = displayTagFromEmail(m.Email)
	applyRank(m, fixedNow)
	require.NoError(t, db.Create(m).Error)
	return m
}

func seedMission(t *testing.T, db *gorm.DB, points int64) *models.Mission {
	t.Helper()
	m := &models.Mission{
		ID:     uuid.NewString(),
		Title:  "Mission " + uuid.NewString()[:6],
		Points: points,
		Active: true,
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func seedSubmission(t *testing.T, db *gorm.DB, memberID, missionID string, status models.SubmissionStatus) *models.MissionSubmission {
	t.Helper()
	sub := &models.MissionSubmission{
		ID:        uuid.NewString(),
		MemberID:  memberID,
		MissionID: missionID,
		Status:    status,
		ProofURL:  "https://cdn.example/proof.png",
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}

func seedReward(t *testing.T, db *gorm.DB, cost, stock int64, mutate ...func(*models.Reward)) *models.Reward {
	t.Helper()
	r := &models.Reward{
		ID:     uuid.NewString(),
		Name:   "Reward " + uuid.NewString()[:6],
		Cost:   cost,
		Stock:  stock,
		Active: true,
	}
	for _, fn := range mutate {
		fn(r)
	}
	require.NoError(t, db.Select("*").Create(r).Error)
	return r
}

func seedRedemption(t *testing.T, db *gorm.DB, memberID, rewardID string, status models.RedemptionStatus) *models.RedemptionRequest {
	t.Helper()
	req := &models.RedemptionRequest{
		ID:           uuid.NewString(),
		MemberID:     memberID,
		RewardID:     rewardID,
		RewardName:   "Jersey",
		RewardCost:   50,
		ContactName:  "Ana",
		ContactEmail: "ana@example.com",
		ContactPhone: "+63 912 345 6789",
		Address:      "1 Arena Way",
		Status:       status,
	}
	require.NoError(t, db.Create(req).Error)
	return req
}

func reloadMember(t *testing.T, db *gorm.DB, id string) models.Member {
	t.Helper()
	var m models.Member
	require.NoError(t, db.First(&m, "id = ?", id).Error)
	return m
}

func validRedemptionInput(rewardID string) RedemptionInput {
	return RedemptionInput{
		RewardID:     rewardID,
		ContactName:  "Ana Reyes",
		ContactEmail: "ana@example.com",
		ContactPhone: "+63 (912) 345-6789",
		Address:      "1 Arena Way, Manila",
	}
}
