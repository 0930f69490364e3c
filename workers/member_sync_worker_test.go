package workers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ze-club/models"
)

func newSyncDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Member{}))
	return db
}

type profileServer struct {
	mu       sync.Mutex
	sinces   []string
	profiles []RemoteProfile
}

func (p *profileServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ProfilesEndpoint, r.URL.Path)
		assert.Equal(t, "svc-token", r.Header.Get("X-Service-Token"))

		p.mu.Lock()
		p.sinces = append(p.sinces, r.URL.Query().Get("since"))
		users := p.profiles
		p.mu.Unlock()
		_ = json.NewEncoder(w).Encode(GetProfileChangesResponse{Users: users})
	}
}

func TestSyncOnce_UpsertsProfilesOnly(t *testing.T) {
	db := newSyncDB(t)
	existing := models.Member{ID: "ext-1", Email: "old@ze.gg", DisplayTag: "old", Role: models.RoleAdmin, Experience: 600, ZeCoins: 90, Rank: "Vanguard"}
	require.NoError(t, db.Create(&existing).Error)

	changed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ps := &profileServer{profiles: []RemoteProfile{
		{ExternalID: "ext-1", Username: "kai", Email: "kai@ze.gg", AccountStatus: "active", UpdatedAt: changed},
		{ExternalID: "ext-2", Username: "rex", Email: "rex@ze.gg", AccountStatus: "Suspended", UpdatedAt: changed.Add(time.Hour)},
		{ExternalID: "", Username: "ghost"},
	}}
	srv := httptest.NewServer(ps.handler(t))
	defer srv.Close()

	w := NewMemberSyncWorker(db, zap.NewNop(), srv.URL, "svc-token", time.Minute)
	n, err := w.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var kai models.Member
	require.NoError(t, db.First(&kai, "id = ?", "ext-1").Error)
	assert.Equal(t, "kai", kai.DisplayTag)
	assert.Equal(t, "kai@ze.gg", kai.Email)
	assert.Equal(t, int64(600), kai.Experience)
	assert.Equal(t, int64(90), kai.ZeCoins)
	assert.Equal(t, models.RoleAdmin, kai.Role)
	assert.Equal(t, "Vanguard", kai.Rank)
	assert.False(t, kai.IsBanned)

	var rex models.Member
	require.NoError(t, db.First(&rex, "id = ?", "ext-2").Error)
	assert.True(t, rex.IsBanned)
	assert.Equal(t, "Rookie", rex.Rank)

	ps.mu.Lock()
	ps.profiles = nil
	ps.mu.Unlock()
	n, err = w.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	require.Len(t, ps.sinces, 2)
	assert.Equal(t, time.Time{}.Format(time.RFC3339), ps.sinces[0])
	assert.Equal(t, "2026-03-01T11:00:00Z", ps.sinces[1])
}

func TestSyncOnce_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	w := NewMemberSyncWorker(newSyncDB(t), zap.NewNop(), srv.URL, "svc-token", 0)
	_, err := w.SyncOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, time.Minute, w.interval)
}

func TestIsSuspended(t *testing.T) {
	for _, s := range []string{"suspended", "BANNED", "deactivated"} {
		assert.True(t, isSuspended(s), s)
	}
	for _, s := range []string{"active", "", "pending"} {
		assert.False(t, isSuspended(s), s)
	}
}
