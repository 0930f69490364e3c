package models

import "time"

// Mission is a reward template: completing it (and getting the proof approved) is worth Points.
type Mission struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	Slug        string `gorm:"index" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	ImageURL    string `gorm:"type:text" json:"image_url"`
	Points      int64  `gorm:"not null" json:"points"`
	Active      bool   `gorm:"default:true;index" json:"active"`

	IsTimeLimited bool       `gorm:"default:false" json:"is_time_limited"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`

	// MaxCompletions of 0 means uncapped.
	MaxCompletions     int64 `gorm:"default:0" json:"max_completions"`
	CurrentCompletions int64 `gorm:"default:0" json:"current_completions"`

	Timestamps
}

// OpenAt reports whether the mission accepts submissions at t.
func (m *Mission) OpenAt(t time.Time) bool {
	if !m.Active {
		return false
	}
	if m.IsTimeLimited {
		if m.StartDate != nil && t.Before(*m.StartDate) {
			return false
		}
		if m.EndDate != nil && t.After(*m.EndDate) {
			return false
		}
	}
	return true
}

// Full reports whether the completion cap has been reached.
func (m *Mission) Full() bool {
	return m.MaxCompletions > 0 && m.CurrentCompletions >= m.MaxCompletions
}

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// MissionSubmission is a member's claim against a mission, backed by one proof file.
type MissionSubmission struct {
	ID        string           `gorm:"primaryKey;type:uuid" json:"id"`
	MemberID  string           `gorm:"index:idx_submission_member_mission;not null" json:"member_id"`
	MissionID string           `gorm:"index:idx_submission_member_mission;not null" json:"mission_id"`
	Status    SubmissionStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	ProofURL  string           `gorm:"type:text" json:"proof_url"`
	ProofKey  string           `json:"-"`
	Note      string           `gorm:"type:text" json:"note,omitempty"`

	ReviewedBy *string    `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`

	RevertedBy   *string    `json:"reverted_by,omitempty"`
	RevertedAt   *time.Time `json:"reverted_at,omitempty"`
	RevertReason *string    `gorm:"type:text" json:"revert_reason,omitempty"`

	Mission *Mission `gorm:"foreignKey:MissionID" json:"mission,omitempty"`
	Member  *Member  `gorm:"foreignKey:MemberID" json:"member,omitempty"`

	Timestamps
}
