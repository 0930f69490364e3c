package models

import (
	"time"
)

// BadgeType: static config seeded from BadgeTriggers at startup
type BadgeType struct {
	ID          string           `gorm:"primaryKey;type:uuid" json:"id"`
	Code        string           `gorm:"uniqueIndex;not null" json:"code"` // e.g., "FIRST_MISSION", "LEGEND"
	Name        string           `gorm:"not null" json:"name"`
	Description string           `json:"description"`
	IconURL     string           `gorm:"type:text" json:"icon_url"`
	Rarity      string           `gorm:"type:varchar(16);default:'common'" json:"rarity"` // common, rare, epic, legendary
	Threshold   map[string]int64 `gorm:"serializer:json" json:"threshold"`                // e.g., {"approved_missions": 10}
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

// UserBadge: awarded instance (many-to-many)
type UserBadge struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"id"`
	MemberID    string     `gorm:"uniqueIndex:idx_user_badge,priority:1;not null" json:"member_id"`
	BadgeTypeID string     `gorm:"uniqueIndex:idx_user_badge,priority:2;not null" json:"badge_type_id"`
	BadgeType   *BadgeType `gorm:"foreignKey:BadgeTypeID" json:"badge,omitempty"`
	AwardedAt   time.Time  `gorm:"autoCreateTime" json:"awarded_at"`
}

// Threshold keys understood by the badge engine.
const (
	ThresholdRankTier         = "rank_tier"
	ThresholdApprovedMissions = "approved_missions"
	ThresholdRedemptions      = "redemptions"
)

// BadgeTriggers are the predefined badges.
var BadgeTriggers = []BadgeType{
	{
		Code:        "FIRST_MISSION",
		Name:        "First Blood",
		Description: "Completed your first mission",
		Rarity:      "common",
		Threshold:   map[string]int64{ThresholdApprovedMissions: 1},
	},
	{
		Code:        "MISSION_10",
		Name:        "Grinder",
		Description: "Completed 10 missions",
		Rarity:      "rare",
		Threshold:   map[string]int64{ThresholdApprovedMissions: 10},
	},
	{
		Code:        "FIRST_REDEMPTION",
		Name:        "Big Spender",
		Description: "Redeemed your first reward",
		Rarity:      "common",
		Threshold:   map[string]int64{ThresholdRedemptions: 1},
	},
	{
		Code:        "VANGUARD",
		Name:        "Vanguard",
		Description: "Reached Vanguard rank",
		Rarity:      "epic",
		Threshold:   map[string]int64{ThresholdRankTier: 3},
	},
	{
		Code:        "ERRORLESS_LEGEND",
		Name:        "Errorless Legend",
		Description: "Reached the top of the ladder",
		Rarity:      "legendary",
		Threshold:   map[string]int64{ThresholdRankTier: 4},
	},
}
