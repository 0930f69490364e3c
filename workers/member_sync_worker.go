package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"ze-club/models"
	"ze-club/services"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfilesEndpoint is the sync service path that lists changed profiles.
const ProfilesEndpoint = "/api/v1/public/profiles"

// RemoteProfile matches one entry of the sync service response.
type RemoteProfile struct {
	ExternalID        string    `json:"external_id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty"`
	AccountStatus     string    `json:"account_status"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// GetProfileChangesResponse is the top-level structure of the sync service response.
type GetProfileChangesResponse struct {
	Users []RemoteProfile `json:"users"`
}

// MemberSyncWorker mirrors identity-provider profiles into members. It only ever
// writes profile columns; balances and rank are never touched.
type MemberSyncWorker struct {
	db           *gorm.DB
	log          *zap.Logger
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client

	mu    sync.Mutex
	since time.Time
}

func NewMemberSyncWorker(db *gorm.DB, log *zap.Logger, baseURL, serviceToken string, interval time.Duration) *MemberSyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &MemberSyncWorker{
		db:           db,
		log:          log,
		interval:     interval,
		baseURL:      baseURL,
		endpointPath: ProfilesEndpoint,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *MemberSyncWorker) Start(ctx context.Context) {
	w.log.Info("starting member sync worker", zap.Duration("interval", w.interval))
	go w.run(ctx)
}

func (w *MemberSyncWorker) run(ctx context.Context) {
	if _, err := w.SyncOnce(ctx); err != nil {
		w.log.Warn("initial member sync failed", zap.Error(err))
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.SyncOnce(ctx); err != nil {
				w.log.Error("member sync batch failed", zap.Error(err))
			}
		case <-ctx.Done():
			w.log.Info("member sync worker stopped")
			return
		}
	}
}

// SyncOnce pulls profiles changed since the last successful batch and upserts them.
// It returns the number of members written.
func (w *MemberSyncWorker) SyncOnce(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	profiles, err := w.fetch(ctx, w.since)
	if err != nil {
		return 0, err
	}
	if len(profiles) == 0 {
		return 0, nil
	}

	rookie := services.ResolveRank(0)
	var upserted, failed int
	latest := w.since
	for _, p := range profiles {
		if p.ExternalID == "" {
			continue
		}
		member := models.Member{
			ID:             p.ExternalID,
			Email:          p.Email,
			DisplayTag:     p.Username,
			AvatarURL:      p.ProfilePictureURL,
			Role:           models.RoleMember,
			Rank:           rookie.Name,
			RankIcon:       rookie.Icon,
			NextRankPoints: rookie.ThresholdHigh,
			IsBanned:       isSuspended(p.AccountStatus),
		}

		// Select("*") so is_banned=false is written on insert rather than skipped as a zero value.
		err := w.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "display_tag", "avatar_url", "is_banned", "updated_at"}),
		}).Select("*").Create(&member).Error
		if err != nil {
			failed++
			w.log.Warn("member upsert failed", zap.String("member_id", p.ExternalID), zap.Error(err))
			continue
		}
		upserted++
		if p.UpdatedAt.After(latest) {
			latest = p.UpdatedAt
		}
	}
	if failed == 0 {
		w.since = latest
	}

	w.log.Info("member sync batch done",
		zap.Int("received", len(profiles)),
		zap.Int("upserted", upserted),
		zap.Int("failed", failed),
		zap.Time("cursor", w.since),
	)
	return upserted, nil
}

func isSuspended(status string) bool {
	switch strings.ToLower(status) {
	case "suspended", "banned", "deactivated":
		return true
	}
	return false
}

func (w *MemberSyncWorker) fetch(ctx context.Context, since time.Time) ([]RemoteProfile, error) {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid sync service URL %q: %w", w.baseURL, err)
	}
	endpoint := base.JoinPath(w.endpointPath)
	q := endpoint.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request to sync service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("sync service non-200 response: %d: %s", resp.StatusCode, string(body))
	}

	var out GetProfileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode sync service response: %w", err)
	}
	return out.Users, nil
}
