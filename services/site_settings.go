package services

import (
	"context"
	"errors"

	"ze-club/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SiteSettingsService struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewSiteSettingsService(db *gorm.DB, log *zap.Logger) *SiteSettingsService {
	return &SiteSettingsService{DB: db, Log: log}
}

func defaultSiteSettings() models.SiteSettings {
	return models.SiteSettings{
		ID:              models.SiteSettingsID,
		ClubName:        "ZE Club",
		RedemptionsOpen: true,
		SubmissionsOpen: true,
	}
}

// EnsureSiteSettings creates the settings row if it does not exist yet. Run once at startup.
func (s *SiteSettingsService) EnsureSiteSettings(ctx context.Context) (*models.SiteSettings, error) {
	st := defaultSiteSettings()
	if err := s.DB.WithContext(ctx).
		Where(models.SiteSettings{ID: models.SiteSettingsID}).
		Attrs(st).
		FirstOrCreate(&st).Error; err != nil {
		return nil, err
	}
	return &st, nil
}

// Get reads the settings row. A missing row is reported as NotFound.
func (s *SiteSettingsService) Get(ctx context.Context) (*models.SiteSettings, error) {
	return loadSiteSettings(s.DB.WithContext(ctx))
}

func loadSiteSettings(db *gorm.DB) (*models.SiteSettings, error) {
	var st models.SiteSettings
	if err := db.First(&st, "id = ?", models.SiteSettingsID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("site settings")
		}
		return nil, err
	}
	return &st, nil
}

// gateOpen reports whether a feature toggle allows the action. Without a settings row
// everything is open.
func gateOpen(db *gorm.DB, pick func(*models.SiteSettings) bool) (bool, error) {
	st, err := loadSiteSettings(db)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return !st.MaintenanceMode && pick(st), nil
}

type SiteSettingsInput struct {
	ClubName        *string `json:"club_name" validate:"omitempty,min=1,max=80"`
	Tagline         *string `json:"tagline" validate:"omitempty,max=200"`
	MaintenanceMode *bool   `json:"maintenance_mode"`
	RedemptionsOpen *bool   `json:"redemptions_open"`
	SubmissionsOpen *bool   `json:"submissions_open"`
	DiscordURL      *string `json:"discord_url" validate:"omitempty,url"`
	TwitterURL      *string `json:"twitter_url" validate:"omitempty,url"`
}

func (s *SiteSettingsService) Update(ctx context.Context, in SiteSettingsInput, adminID string) (*models.SiteSettings, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"updated_by": adminID}
	if in.ClubName != nil {
		updates["club_name"] = *in.ClubName
	}
	if in.Tagline != nil {
		updates["tagline"] = *in.Tagline
	}
	if in.MaintenanceMode != nil {
		updates["maintenance_mode"] = *in.MaintenanceMode
	}
	if in.RedemptionsOpen != nil {
		updates["redemptions_open"] = *in.RedemptionsOpen
	}
	if in.SubmissionsOpen != nil {
		updates["submissions_open"] = *in.SubmissionsOpen
	}
	if in.DiscordURL != nil {
		updates["discord_url"] = *in.DiscordURL
	}
	if in.TwitterURL != nil {
		updates["twitter_url"] = *in.TwitterURL
	}

	db := s.DB.WithContext(ctx)
	res := db.Model(&models.SiteSettings{}).Where("id = ?", models.SiteSettingsID).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, notFound("site settings")
	}
	s.Log.Info("site settings updated", zap.String("admin_id", adminID))
	return loadSiteSettings(db)
}
