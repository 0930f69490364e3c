package models

import "time"

type LedgerKind string

const (
	LedgerMissionApproved  LedgerKind = "mission_approved"
	LedgerMissionReverted  LedgerKind = "mission_reverted"
	LedgerRedemption       LedgerKind = "redemption"
	LedgerRedemptionRefund LedgerKind = "redemption_refund"
)

// LedgerEntry records one balance movement, written in the same transaction as the movement.
type LedgerEntry struct {
	ID              string     `gorm:"primaryKey;type:uuid" json:"id"`
	MemberID        string     `gorm:"index;not null" json:"member_id"`
	Kind            LedgerKind `gorm:"type:varchar(32);not null" json:"kind"`
	ExperienceDelta int64      `json:"experience_delta"`
	CoinsDelta      int64      `json:"coins_delta"`
	ReferenceID     string     `gorm:"index" json:"reference_id"` // submission or redemption id
	Note            string     `gorm:"type:text" json:"note,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}
