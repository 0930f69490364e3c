package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/zeclub")
	t.Setenv("SESSION_SECRET", "secret")

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5200, cfg.Port)
	assert.Equal(t, time.Minute, cfg.SchedulerInterval)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.False(t, cfg.R2Enabled())
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_SECRET", "secret")

	_, _, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "local sessions", cfg: Config{SessionSecret: "s"}},
		{name: "remote sessions", cfg: Config{AuthServiceURL: "http://auth"}},
		{name: "no session source", cfg: Config{}, wantErr: true},
		{name: "sync without token", cfg: Config{SessionSecret: "s", SyncServiceURL: "http://sync"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOrigins(t *testing.T) {
	cfg := Config{AllowedOrigins: " https://zeesports.gg , ,http://localhost:3000 "}
	assert.Equal(t, "https://zeesports.gg,http://localhost:3000", cfg.Origins())
}
