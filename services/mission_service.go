package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"ze-club/models"
	"ze-club/utils"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const MaxProofBytes = 20 << 20

// MissionService covers the mission catalogue and member submissions. Settling a
// submission is LedgerService's job.
type MissionService struct {
	DB      *gorm.DB
	Log     *zap.Logger
	Storage utils.Storage

	now func() time.Time
}

func NewMissionService(db *gorm.DB, log *zap.Logger, storage utils.Storage) *MissionService {
	return &MissionService{DB: db, Log: log, Storage: storage, now: time.Now}
}

// MissionView is a mission as one member sees it.
type MissionView struct {
	models.Mission
	SubmissionStatus *models.SubmissionStatus `json:"submission_status,omitempty"`
	Full             bool                     `json:"full"`
}

// ListOpenMissions returns active missions inside their window, annotated with the
// member's latest submission status when memberID is set.
func (s *MissionService) ListOpenMissions(ctx context.Context, memberID string) ([]MissionView, error) {
	db := s.DB.WithContext(ctx)

	var missions []models.Mission
	if err := db.Where("active = ?", true).Order("created_at DESC").Find(&missions).Error; err != nil {
		return nil, err
	}

	latest := map[string]models.SubmissionStatus{}
	if memberID != "" {
		var subs []models.MissionSubmission
		if err := db.Select("mission_id", "status", "created_at").
			Where("member_id = ?", memberID).
			Order("created_at ASC").
			Find(&subs).Error; err != nil {
			return nil, err
		}
		for _, sub := range subs {
			latest[sub.MissionID] = sub.Status
		}
	}

	now := s.now()
	views := make([]MissionView, 0, len(missions))
	for _, m := range missions {
		if !m.OpenAt(now) {
			continue
		}
		v := MissionView{Mission: m, Full: m.Full()}
		if st, ok := latest[m.ID]; ok {
			st := st
			v.SubmissionStatus = &st
		}
		views = append(views, v)
	}
	return views, nil
}

// CreateSubmission files a pending claim backed by an uploaded proof.
func (s *MissionService) CreateSubmission(ctx context.Context, memberID, missionID string, proof *multipart.FileHeader, note string) (*models.MissionSubmission, error) {
	if proof == nil {
		return nil, newSettlementError(ErrValidation, "proof file is required",
			map[string]interface{}{"proof": "is required"})
	}
	if err := utils.CheckUpload(proof, MaxProofBytes, utils.ProofExtensions); err != nil {
		return nil, newSettlementError(ErrValidation, err.Error(), map[string]interface{}{"proof": err.Error()})
	}

	db := s.DB.WithContext(ctx)
	open, err := gateOpen(db, func(st *models.SiteSettings) bool { return st.SubmissionsOpen })
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, newSettlementError(ErrMissionClosed, "submissions are currently closed", nil)
	}

	var mission models.Mission
	if err := db.First(&mission, "id = ?", missionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("mission")
		}
		return nil, err
	}
	if !mission.OpenAt(s.now()) {
		return nil, newSettlementError(ErrMissionClosed, "mission is not accepting submissions", nil)
	}
	if mission.Full() {
		return nil, newSettlementError(ErrMissionClosed, "mission has reached its completion limit", nil)
	}

	key := utils.ObjectKey("proofs/"+mission.ID, proof.Filename)
	url, err := s.Storage.Put(ctx, key, proof)
	if err != nil {
		return nil, err
	}

	sub := &models.MissionSubmission{
		ID:        uuid.NewString(),
		MemberID:  memberID,
		MissionID: mission.ID,
		Status:    models.SubmissionPending,
		ProofURL:  url,
		ProofKey:  key,
		Note:      strings.TrimSpace(note),
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		// Serializes a member's concurrent submissions; the open-claim index backs it up.
		var member models.Member
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&member, "id = ?", memberID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("user")
			}
			return err
		}

		var existing int64
		if err := tx.Model(&models.MissionSubmission{}).
			Where("member_id = ? AND mission_id = ? AND status IN ?", memberID, mission.ID,
				[]models.SubmissionStatus{models.SubmissionPending, models.SubmissionApproved}).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return duplicateSubmission()
		}
		return tx.Create(sub).Error
	})
	if err != nil && s.openClaimExists(ctx, err, memberID, mission.ID) {
		err = duplicateSubmission()
	}
	if err != nil {
		if derr := s.Storage.Delete(ctx, key); derr != nil {
			s.Log.Warn("orphaned proof not removed", zap.String("key", key), zap.Error(derr))
		}
		return nil, err
	}

	s.Log.Info("submission created",
		zap.String("submission_id", sub.ID),
		zap.String("member_id", memberID),
		zap.String("mission_id", mission.ID),
	)
	return sub, nil
}

func duplicateSubmission() error {
	return newSettlementError(ErrDuplicateSubmission, "you already have a pending or approved submission for this mission", nil)
}

// openClaimExists reports whether a failed insert lost a race against a concurrent
// submission for the same mission, which the open-claim index rejects.
func (s *MissionService) openClaimExists(ctx context.Context, err error, memberID, missionID string) bool {
	var serr *SettlementError
	if errors.As(err, &serr) {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var count int64
	if cerr := s.DB.WithContext(ctx).Model(&models.MissionSubmission{}).
		Where("member_id = ? AND mission_id = ? AND status IN ?", memberID, missionID,
			[]models.SubmissionStatus{models.SubmissionPending, models.SubmissionApproved}).
		Count(&count).Error; cerr != nil {
		return false
	}
	return count > 0
}

func (s *MissionService) ListMemberSubmissions(ctx context.Context, memberID string) ([]models.MissionSubmission, error) {
	var subs []models.MissionSubmission
	err := s.DB.WithContext(ctx).
		Preload("Mission", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}

// ListSubmissions is the admin review queue, optionally filtered by status.
func (s *MissionService) ListSubmissions(ctx context.Context, status string) ([]models.MissionSubmission, error) {
	db := s.DB.WithContext(ctx).
		Preload("Mission", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Member").
		Order("created_at DESC")
	if status != "" {
		switch models.SubmissionStatus(status) {
		case models.SubmissionPending, models.SubmissionApproved, models.SubmissionRejected:
		default:
			return nil, newSettlementError(ErrValidation, "unknown status filter", nil)
		}
		db = db.Where("status = ?", status)
	}
	var subs []models.MissionSubmission
	err := db.Find(&subs).Error
	return subs, err
}

// --- Admin catalogue ---

type MissionInput struct {
	Title          string     `json:"title" validate:"required,max=120"`
	Description    string     `json:"description" validate:"max=5000"`
	ImageURL       string     `json:"image_url" validate:"omitempty,url"`
	Points         int64      `json:"points" validate:"required,gt=0"`
	Active         *bool      `json:"active"`
	IsTimeLimited  bool       `json:"is_time_limited"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	MaxCompletions int64      `json:"max_completions" validate:"gte=0"`
}

type MissionUpdate struct {
	Title          *string    `json:"title" validate:"omitempty,min=1,max=120"`
	Description    *string    `json:"description" validate:"omitempty,max=5000"`
	ImageURL       *string    `json:"image_url" validate:"omitempty,url"`
	Points         *int64     `json:"points" validate:"omitempty,gt=0"`
	Active         *bool      `json:"active"`
	IsTimeLimited  *bool      `json:"is_time_limited"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	MaxCompletions *int64     `json:"max_completions" validate:"omitempty,gte=0"`
}

func checkWindow(m *models.Mission) error {
	if !m.IsTimeLimited {
		return nil
	}
	if m.EndDate == nil {
		return newSettlementError(ErrValidation, "time-limited missions need an end_date",
			map[string]interface{}{"end_date": "is required"})
	}
	if m.StartDate != nil && !m.EndDate.After(*m.StartDate) {
		return newSettlementError(ErrValidation, "end_date must be after start_date",
			map[string]interface{}{"end_date": "must be after start_date"})
	}
	return nil
}

func (s *MissionService) ListMissions(ctx context.Context) ([]models.Mission, error) {
	var missions []models.Mission
	err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&missions).Error
	return missions, err
}

func (s *MissionService) CreateMission(ctx context.Context, in MissionInput) (*models.Mission, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	m := &models.Mission{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(in.Title),
		Slug:           slug.Make(in.Title),
		Description:    in.Description,
		ImageURL:       in.ImageURL,
		Points:         in.Points,
		Active:         in.Active == nil || *in.Active,
		IsTimeLimited:  in.IsTimeLimited,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		MaxCompletions: in.MaxCompletions,
	}
	if err := checkWindow(m); err != nil {
		return nil, err
	}
	// Select("*") so an explicit active=false is not replaced by the column default.
	if err := s.DB.WithContext(ctx).Select("*").Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MissionService) UpdateMission(ctx context.Context, id string, in MissionUpdate) (*models.Mission, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	var m models.Mission
	if err := db.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("mission")
		}
		return nil, err
	}

	if in.Title != nil {
		m.Title = strings.TrimSpace(*in.Title)
		m.Slug = slug.Make(m.Title)
	}
	if in.Description != nil {
		m.Description = *in.Description
	}
	if in.ImageURL != nil {
		m.ImageURL = *in.ImageURL
	}
	if in.Points != nil {
		m.Points = *in.Points
	}
	if in.Active != nil {
		m.Active = *in.Active
	}
	if in.IsTimeLimited != nil {
		m.IsTimeLimited = *in.IsTimeLimited
	}
	if in.StartDate != nil {
		m.StartDate = in.StartDate
	}
	if in.EndDate != nil {
		m.EndDate = in.EndDate
	}
	if in.MaxCompletions != nil {
		m.MaxCompletions = *in.MaxCompletions
	}
	if err := checkWindow(&m); err != nil {
		return nil, err
	}

	// current_completions is owned by settlement and never written here.
	if err := db.Model(&m).Select(
		"title", "slug", "description", "image_url", "points", "active",
		"is_time_limited", "start_date", "end_date", "max_completions",
	).Updates(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMission soft-deletes; existing submissions keep settling against it.
func (s *MissionService) DeleteMission(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Delete(&models.Mission{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("mission")
	}
	return nil
}
