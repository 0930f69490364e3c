package models

import "time"

type MemberRole string

const (
	RoleMember MemberRole = "member"
	RoleAdmin  MemberRole = "admin"
)

// Member is a ZE Club user: the holder of both ledgers and of the derived rank fields.
// ID is the subject issued by the identity provider.
type Member struct {
	ID         string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Email      string     `gorm:"index" json:"email"`
	DisplayTag string     `gorm:"index" json:"display_tag"`
	AvatarURL  *string    `json:"avatar_url,omitempty"`
	Role       MemberRole `gorm:"type:varchar(16);not null;default:'member'" json:"role"`

	// Experience is lifetime and drives rank; ZeCoins is the spendable balance.
	Experience int64 `gorm:"not null;default:0;index" json:"experience"`
	ZeCoins    int64 `gorm:"not null;default:0" json:"ze_coins"`

	// Derived from Experience, always written together with it.
	Rank               string `gorm:"type:varchar(32);not null;default:'Rookie'" json:"rank"`
	RankIcon           string `json:"rank_icon"`
	ProgressToNextRank int    `json:"progress_to_next_rank"`
	CurrentRankPoints  int64  `json:"current_rank_points"`
	NextRankPoints     int64  `json:"next_rank_points"`

	LastRankUpAt *time.Time `json:"last_rank_up_at,omitempty"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	IsBanned     bool       `gorm:"default:false" json:"is_banned"`

	Timestamps
}

func (m *Member) IsAdmin() bool { return m.Role == RoleAdmin }
