package models

import "gorm.io/gorm"

// OpenSubmissionIndex allows one pending or approved submission per member and mission.
const OpenSubmissionIndex = "idx_submission_open_claim"

// Migrate creates the schema and the indexes gorm tags cannot express.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return err
	}
	// Partial unique index; both postgres and sqlite accept this form.
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ` + OpenSubmissionIndex +
		` ON mission_submissions (member_id, mission_id) WHERE status IN ('pending', 'approved')`).Error
}
