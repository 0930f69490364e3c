package models

import "time"

// Reward is a redeemable item priced in ZE Coins.
type Reward struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"index" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	ImageURL    string `gorm:"type:text" json:"image_url"`
	Emoji       string `gorm:"size:10" json:"emoji"`
	Cost        int64  `gorm:"not null" json:"cost"`
	// Stock is decremented on redemption and only restored by an explicit refund.
	Stock           int64  `gorm:"not null;default:0" json:"stock"`
	RequiredRank    string `gorm:"type:varchar(32)" json:"required_rank"`
	ExclusiveToTop3 bool   `gorm:"default:false" json:"exclusive_to_top3"`
	Discountable    bool   `gorm:"default:false" json:"discountable"`
	Active          bool   `gorm:"default:true;index" json:"active"`

	Timestamps
}

type RedemptionStatus string

const (
	RedemptionPending    RedemptionStatus = "pending"
	RedemptionProcessing RedemptionStatus = "processing"
	RedemptionCompleted  RedemptionStatus = "completed"
	RedemptionCancelled  RedemptionStatus = "cancelled"
)

// ActiveRedemptionStatuses are the statuses that count as coins already spent.
var ActiveRedemptionStatuses = []RedemptionStatus{
	RedemptionPending,
	RedemptionProcessing,
	RedemptionCompleted,
}

func (s RedemptionStatus) Valid() bool {
	switch s {
	case RedemptionPending, RedemptionProcessing, RedemptionCompleted, RedemptionCancelled:
		return true
	}
	return false
}

// RedemptionRequest is the fulfilment record created together with the coin and stock debit.
// RewardName and RewardCost are snapshots taken at redemption time.
type RedemptionRequest struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	MemberID   string `gorm:"index;not null;uniqueIndex:idx_redemption_idempotency,priority:1" json:"member_id"`
	RewardID   string `gorm:"index;not null" json:"reward_id"`
	RewardName string `gorm:"not null" json:"reward_name"`
	RewardCost int64  `gorm:"not null" json:"reward_cost"`

	ContactName     string `gorm:"not null" json:"contact_name"`
	ContactEmail    string `gorm:"not null" json:"contact_email"`
	ContactPhone    string `gorm:"not null" json:"contact_phone"`
	Address         string `gorm:"type:text;not null" json:"address"`
	AdditionalNotes string `gorm:"type:text" json:"additional_notes,omitempty"`

	Status     RedemptionStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	AdminNotes string           `gorm:"type:text" json:"admin_notes,omitempty"`

	// IdempotencyKey is nil when the client sent none; NULLs never collide in the unique index.
	IdempotencyKey *string `gorm:"uniqueIndex:idx_redemption_idempotency,priority:2" json:"-"`

	RefundedAt *time.Time `json:"refunded_at,omitempty"`
	RefundedBy *string    `json:"refunded_by,omitempty"`

	Timestamps
}
