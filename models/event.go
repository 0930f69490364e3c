package models

import "time"

type PublishStatus string

const (
	PublishDraft     PublishStatus = "draft"
	PublishScheduled PublishStatus = "scheduled"
	PublishPublished PublishStatus = "published"
)

func (s PublishStatus) Valid() bool {
	return s == PublishDraft || s == PublishScheduled || s == PublishPublished
}

// Event is an esports event shown on the club page.
type Event struct {
	ID          string        `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string        `gorm:"not null" json:"title"`
	Slug        string        `gorm:"index" json:"slug"`
	Description string        `gorm:"type:text" json:"description"`
	Location    string        `json:"location"`
	ImageURL    string        `gorm:"type:text" json:"image_url"`
	StartsAt    *time.Time    `json:"starts_at,omitempty"`
	EndsAt      *time.Time    `json:"ends_at,omitempty"`
	Status      PublishStatus `gorm:"type:varchar(16);not null;default:'draft';index" json:"status"`
	PublishAt   *time.Time    `json:"publish_at,omitempty"`
	Timestamps
}

// Announcement is a news post for members.
type Announcement struct {
	ID        string        `gorm:"primaryKey;type:uuid" json:"id"`
	Title     string        `gorm:"not null" json:"title"`
	Slug      string        `gorm:"index" json:"slug"`
	Body      string        `gorm:"type:text" json:"body"`
	Pinned    bool          `gorm:"default:false" json:"pinned"`
	Status    PublishStatus `gorm:"type:varchar(16);not null;default:'draft';index" json:"status"`
	PublishAt *time.Time    `json:"publish_at,omitempty"`
	Timestamps
}
