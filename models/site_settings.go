package models

import "time"

// SiteSettingsID is the primary key of the single settings row.
const SiteSettingsID = "global"

// SiteSettings is created once at startup (see services.EnsureSiteSettings), never on read.
type SiteSettings struct {
	ID              string    `gorm:"primaryKey;type:varchar(16)" json:"-"`
	ClubName        string    `json:"club_name"`
	Tagline         string    `json:"tagline"`
	MaintenanceMode bool      `json:"maintenance_mode"`
	RedemptionsOpen bool      `json:"redemptions_open"`
	SubmissionsOpen bool      `json:"submissions_open"`
	DiscordURL      string    `json:"discord_url"`
	TwitterURL      string    `json:"twitter_url"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	UpdatedBy       *string   `json:"updated_by,omitempty"`
}
