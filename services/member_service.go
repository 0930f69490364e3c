package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"ze-club/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

type MemberService struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewMemberService(db *gorm.DB, log *zap.Logger) *MemberService {
	return &MemberService{DB: db, Log: log}
}

// EnsureMember returns the member for an authenticated identity, creating it on first sight.
// The stored role is authoritative once the row exists.
func (s *MemberService) EnsureMember(ctx context.Context, id Identity) (*models.Member, error) {
	db := s.DB.WithContext(ctx)
	now := time.Now()

	var m models.Member
	err := db.First(&m, "id = ?", id.MemberID).Error
	if err == nil {
		if err := db.Model(&models.Member{}).Where("id = ?", m.ID).UpdateColumn("last_seen", now).Error; err != nil {
			return nil, err
		}
		m.LastSeen = &now
		return &m, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	m = models.Member{
		ID:         id.MemberID,
		Email:      id.Email,
		DisplayTag: displayTagFromEmail(id.Email),
		Role:       models.RoleMember,
		LastSeen:   &now,
	}
	if id.HasRole(string(models.RoleAdmin)) {
		m.Role = models.RoleAdmin
	}
	applyRank(&m, now)
	m.LastRankUpAt = nil

	if err := db.Where(models.Member{ID: m.ID}).Attrs(m).FirstOrCreate(&m).Error; err != nil {
		return nil, err
	}
	s.Log.Info("member created", zap.String("member_id", m.ID))
	return &m, nil
}

func displayTagFromEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

// MemberProfile is a member plus the resolved rank breakdown.
type MemberProfile struct {
	models.Member
	RankDetail Rank `json:"rank_detail"`
	Top3       bool `json:"top3"`
}

func (s *MemberService) Profile(ctx context.Context, memberID string) (*MemberProfile, error) {
	db := s.DB.WithContext(ctx)
	var m models.Member
	if err := db.First(&m, "id = ?", memberID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user")
		}
		return nil, err
	}
	top3, err := isTop3(db, m.Experience)
	if err != nil {
		return nil, err
	}
	return &MemberProfile{Member: m, RankDetail: ResolveRank(m.Experience), Top3: top3}, nil
}

type LeaderboardEntry struct {
	Position   int     `json:"position"`
	MemberID   string  `json:"member_id"`
	DisplayTag string  `json:"display_tag"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
	Experience int64   `json:"experience"`
	Rank       string  `json:"rank"`
	RankIcon   string  `json:"rank_icon"`
}

// ClampLeaderboardLimit applies the default and the upper bound.
func ClampLeaderboardLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return limit
}

// Leaderboard ranks members by experience; ties go to whoever joined first.
func (s *MemberService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	var members []models.Member
	if err := s.DB.WithContext(ctx).
		Where("is_banned = ?", false).
		Order("experience DESC").Order("created_at ASC").
		Limit(ClampLeaderboardLimit(limit)).
		Find(&members).Error; err != nil {
		return nil, err
	}

	out := make([]LeaderboardEntry, len(members))
	for i, m := range members {
		out[i] = LeaderboardEntry{
			Position:   i + 1,
			MemberID:   m.ID,
			DisplayTag: m.DisplayTag,
			AvatarURL:  m.AvatarURL,
			Experience: m.Experience,
			Rank:       m.Rank,
			RankIcon:   m.RankIcon,
		}
	}
	return out, nil
}

// SearchMembers matches display tag or email, case-insensitively.
func (s *MemberService) SearchMembers(ctx context.Context, query string, limit int) ([]models.Member, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	db := s.DB.WithContext(ctx).Model(&models.Member{}).Order("created_at DESC").Limit(limit)
	if query = strings.TrimSpace(query); query != "" {
		term := "%" + strings.ToLower(query) + "%"
		db = db.Where("LOWER(display_tag) LIKE ? OR LOWER(email) LIKE ?", term, term)
	}

	var members []models.Member
	if err := db.Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// UpdateRole changes a member's role. An admin cannot demote themselves.
func (s *MemberService) UpdateRole(ctx context.Context, memberID string, role models.MemberRole, actorID string) (*models.Member, error) {
	if role != models.RoleMember && role != models.RoleAdmin {
		return nil, newSettlementError(ErrValidation, "role must be member or admin", nil)
	}
	if memberID == actorID && role != models.RoleAdmin {
		return nil, newSettlementError(ErrInvalidState, "admins cannot demote themselves", nil)
	}

	db := s.DB.WithContext(ctx)
	res := db.Model(&models.Member{}).Where("id = ?", memberID).Update("role", role)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, notFound("user")
	}

	var m models.Member
	if err := db.First(&m, "id = ?", memberID).Error; err != nil {
		return nil, err
	}
	s.Log.Info("member role updated",
		zap.String("member_id", memberID),
		zap.String("role", string(role)),
		zap.String("admin_id", actorID),
	)
	return &m, nil
}
