package services

import (
	"time"

	"ze-club/models"
)

// resolvePublish validates a requested publish state. Scheduled requires publishAt;
// draft and published clear it.
func resolvePublish(status models.PublishStatus, publishAt *time.Time) (models.PublishStatus, *time.Time, error) {
	switch status {
	case "":
		return models.PublishDraft, nil, nil
	case models.PublishDraft, models.PublishPublished:
		return status, nil, nil
	case models.PublishScheduled:
		if publishAt == nil {
			return "", nil, newSettlementError(ErrValidation, "publish_at required for scheduled status",
				map[string]interface{}{"publish_at": "is required"})
		}
		return status, publishAt, nil
	default:
		return "", nil, newSettlementError(ErrValidation, "invalid status (use: draft, scheduled, published)",
			map[string]interface{}{"status": "must be one of: draft scheduled published"})
	}
}
